package layers

import (
	"encoding/binary"
	"net"
)

const (
	ARPRequest uint16 = 0x0001
	ARPReply   uint16 = 0x0002
)

const (
	// According to pcap-linktype(7) and http://www.tcpdump.org/linktypes.html
	LinkTypeNull     uint16 = 0
	LinkTypeEthernet uint16 = 1
	LinkTypeRaw      uint16 = 101
	LinkTypeIPv4     uint16 = 228
)

// ARP is the fixed part of an ARP packet followed by the addresses, which are
// only accessible for ethernet/IPv4 (6/4 byte addresses).
type ARP []byte

const (
	LengthARP = 8
	// LengthARPIPv4 is a whole ethernet/IPv4 ARP packet.
	LengthARPIPv4 = LengthARP + 6 + 4 + 6 + 4
)

func (a *ARP) GetLinkType() uint16 {
	return binary.BigEndian.Uint16((*a)[0:2])
}

func (a *ARP) SetLinkType(u uint16) {
	binary.BigEndian.PutUint16((*a)[0:2], u)
}

func (a *ARP) GetProtocolType() EthernetType {
	return EthernetType(binary.BigEndian.Uint16((*a)[2:4]))
}

func (a *ARP) SetProtocolType(u EthernetType) {
	binary.BigEndian.PutUint16((*a)[2:4], uint16(u))
}

func (a *ARP) GetLinkAddressLength() uint8 {
	return (*a)[4]
}

func (a *ARP) SetLinkAddressLength(u uint8) {
	(*a)[4] = u
}

func (a *ARP) GetProtocolAddressLength() uint8 {
	return (*a)[5]
}

func (a *ARP) SetProtocolAddressLength(u uint8) {
	(*a)[5] = u
}

func (a *ARP) GetOpCode() uint16 {
	return binary.BigEndian.Uint16((*a)[6:8])
}

func (a *ARP) SetOpCode(u uint16) {
	binary.BigEndian.PutUint16((*a)[6:8], u)
}

// IsEthernetIPv4 reports whether the packet is long enough and uses 6 byte
// hardware and 4 byte protocol addresses.
func (a *ARP) IsEthernetIPv4() bool {
	return len(*a) >= LengthARPIPv4 &&
		a.GetLinkType() == LinkTypeEthernet &&
		a.GetProtocolType() == EthernetTypeIPv4 &&
		a.GetLinkAddressLength() == 6 &&
		a.GetProtocolAddressLength() == 4
}

func (a *ARP) GetSenderHardwareAddr() net.HardwareAddr {
	return net.HardwareAddr((*a)[8:14])
}

func (a *ARP) SetSenderHardwareAddr(addr net.HardwareAddr) {
	copy((*a)[8:14], addr)
}

func (a *ARP) GetSenderProtocolAddr() net.IP {
	return net.IP((*a)[14:18])
}

func (a *ARP) SetSenderProtocolAddr(ip net.IP) {
	copy((*a)[14:18], ip.To4())
}

func (a *ARP) GetTargetHardwareAddr() net.HardwareAddr {
	return net.HardwareAddr((*a)[18:24])
}

func (a *ARP) SetTargetHardwareAddr(addr net.HardwareAddr) {
	copy((*a)[18:24], addr)
}

func (a *ARP) GetTargetProtocolAddr() net.IP {
	return net.IP((*a)[24:28])
}

func (a *ARP) SetTargetProtocolAddr(ip net.IP) {
	copy((*a)[24:28], ip.To4())
}
