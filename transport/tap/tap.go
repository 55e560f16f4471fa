package tap

import (
	"net"
	"os"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// Tap is an opened TAP device. What the kernel routes to the device is read
// from it and what is written to it is received by the kernel, both as whole
// ethernet frames.
type Tap struct {
	*os.File
	name  string
	index int
	mac   net.HardwareAddr
}

// Open attaches to the TAP device name. The device must already exist as a
// single queue TAP, e.g. `ip tuntap add dev tap0 mode tap`; it is brought up
// when it is down.
func Open(name string) (*Tap, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil, errors.Wrap(err, "get link by name failed")
	}

	if link.Type() != "tuntap" {
		return nil, errors.Errorf("invalid netlink type: %s is not tuntap", link.Type())
	}

	tap, ok := link.(*netlink.Tuntap)
	if !ok {
		return nil, errors.New("can not assert type")
	}

	if tap.Mode != unix.IFF_TAP {
		return nil, errors.New("invalid tuntap type: not tap")
	}

	if tap.Flags&netlink.TUNTAP_MULTI_QUEUE != 0 {
		return nil, errors.New("invalid tap property: not one queue")
	}

	if tap.Attrs().Flags&net.FlagUp == 0 {
		logrus.WithField("module", "tap").Infof("link %s is down, set up", name)
		if err = netlink.LinkSetUp(link); err != nil {
			return nil, errors.Wrap(err, "set link up failed")
		}
	}

	f, err := newFile(name)
	if err != nil {
		return nil, err
	}

	return &Tap{
		File:  f,
		name:  name,
		index: tap.Attrs().Index,
		mac:   tap.Attrs().HardwareAddr,
	}, nil
}

func (t *Tap) Name() string { return t.name }

func (t *Tap) Index() int { return t.index }

// HardwareAddr is the kernel side MAC of the device. Frames written to the
// TAP must be addressed to it (or broadcast) to be accepted.
func (t *Tap) HardwareAddr() net.HardwareAddr { return t.mac }

func newFile(name string) (*os.File, error) {
	fd, err := createFd()
	if err != nil {
		return nil, err
	}

	if err = openDev(fd, name); err != nil {
		_ = unix.Close(int(fd))
		return nil, errors.Wrap(err, "open tap failed")
	}

	// 非阻塞的fd交给runtime poller，Close可以打断阻塞中的Read
	return os.NewFile(fd, name), nil
}

func createFd() (uintptr, error) {
	res, err := unix.Open("/dev/net/tun", os.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return 0, errors.Wrap(err, "open /dev/net/tun failed")
	}

	return uintptr(res), nil
}

func openDev(fd uintptr, name string) error {
	var r req

	copy(r.Name[:], name)
	r.Flags = unix.IFF_TAP | unix.IFF_NO_PI
	err := ioctl(fd, unix.TUNSETIFF, uintptr(unsafe.Pointer(&r)))
	if err != nil {
		return errors.Wrap(err, "ioctl set IFF_TAP and IFF_NO_PI failed")
	}

	return nil
}
