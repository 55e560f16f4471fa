package iface

import (
	"net"

	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"
)

// Interface is what a ping over a raw link needs to know about the local side.
type Interface struct {
	Name         string
	Index        int
	HardwareAddr net.HardwareAddr
	// IPv4 is the first IPv4 address of the interface, nil if it has none.
	IPv4 net.IP
}

func Lookup(name string) (*Interface, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil, errors.Wrapf(err, "get link %s failed", name)
	}

	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return nil, errors.Wrapf(err, "list addresses of %s failed", name)
	}

	attrs := link.Attrs()
	i := &Interface{
		Name:         attrs.Name,
		Index:        attrs.Index,
		HardwareAddr: attrs.HardwareAddr,
	}
	for _, addr := range addrs {
		if ip := addr.IP.To4(); ip != nil {
			i.IPv4 = ip
			break
		}
	}

	return i, nil
}

// Neighbor returns the MAC of ip from the neighbour table of the interface.
// Only reachable (or at least resolved) entries count.
func Neighbor(index int, ip net.IP) (net.HardwareAddr, error) {
	neighs, err := netlink.NeighList(index, netlink.FAMILY_V4)
	if err != nil {
		return nil, errors.Wrap(err, "list neighbours failed")
	}

	for _, n := range neighs {
		if !n.IP.Equal(ip) || len(n.HardwareAddr) == 0 {
			continue
		}
		if n.State&(netlink.NUD_INCOMPLETE|netlink.NUD_FAILED) != 0 {
			continue
		}
		return n.HardwareAddr, nil
	}

	return nil, errors.Errorf("no neighbour entry for %s", ip)
}
