package ping

import (
	"net"

	"starPing/layers"
)

// replyARP answers an ARP request for ip with mac. A TAP device has no
// neighbour but us, so nobody else would answer the kernel's resolution of
// our address.
func replyARP(frame []byte, mac net.HardwareAddr, ip net.IP) ([]byte, bool) {
	if len(frame) < layers.LengthEthernet+layers.LengthARPIPv4 {
		return nil, false
	}

	ethReq := layers.Ethernet(frame)
	if ethReq.GetEthernetType() != layers.EthernetTypeARP {
		return nil, false
	}

	req := layers.ARP(frame[layers.LengthEthernet:])
	if !req.IsEthernetIPv4() || req.GetOpCode() != layers.ARPRequest || !req.GetTargetProtocolAddr().Equal(ip) {
		return nil, false
	}

	resp := make([]byte, layers.LengthEthernet+layers.LengthARPIPv4)
	ethResp := layers.Ethernet(resp)
	ethResp.SetDstAddress(ethReq.GetSrcAddress())
	ethResp.SetSrcAddress(mac)
	ethResp.SetEthernetType(layers.EthernetTypeARP)

	arp := layers.ARP(resp[layers.LengthEthernet:])
	arp.SetLinkType(layers.LinkTypeEthernet)
	arp.SetProtocolType(layers.EthernetTypeIPv4)
	arp.SetLinkAddressLength(6)
	arp.SetProtocolAddressLength(4)
	arp.SetOpCode(layers.ARPReply)
	arp.SetSenderHardwareAddr(mac)
	arp.SetSenderProtocolAddr(ip)
	arp.SetTargetHardwareAddr(req.GetSenderHardwareAddr())
	arp.SetTargetProtocolAddr(req.GetSenderProtocolAddr())

	return resp, true
}
