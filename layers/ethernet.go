package layers

import (
	"encoding/binary"
	"fmt"
	"net"
	"strings"
)

type EthernetType uint16

const (
	EthernetTypeIPv4  EthernetType = 0x0800
	EthernetTypeARP   EthernetType = 0x0806
	EthernetTypeIPv6  EthernetType = 0x86DD
	EthernetTypeDot1Q EthernetType = 0x8100
)

func (t EthernetType) String() string {
	switch t {
	case EthernetTypeIPv4:
		return "IPv4"
	case EthernetTypeARP:
		return "ARP"
	case EthernetTypeIPv6:
		return "IPv6"
	case EthernetTypeDot1Q:
		return "802.1Q"
	default:
		return fmt.Sprintf("0x%04x", uint16(t))
	}
}

// BroadcastAddress is the default destination of outgoing frames.
var BroadcastAddress = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// Ethernet is the layer for Ethernet frame headers.
// [0:6] is DstMAC, [6:12] is SrcMAC
// [12:14] is EthernetType
type Ethernet []byte

const LengthEthernet = 14

func (e *Ethernet) GetDstAddress() net.HardwareAddr {
	return net.HardwareAddr((*e)[0:6])
}

func (e *Ethernet) GetSrcAddress() net.HardwareAddr {
	return net.HardwareAddr((*e)[6:12])
}

func (e *Ethernet) GetEthernetType() EthernetType {
	return EthernetType(binary.BigEndian.Uint16((*e)[12:14]))
}

func (e *Ethernet) SetDstAddress(addr net.HardwareAddr) {
	copy((*e)[0:6], addr)
}

func (e *Ethernet) SetSrcAddress(addr net.HardwareAddr) {
	copy((*e)[6:12], addr)
}

func (e *Ethernet) SetEthernetType(typ EthernetType) {
	binary.BigEndian.PutUint16((*e)[12:14], uint16(typ))
}

// EthernetFrame is the outermost layer. There is no frame check sequence,
// the NIC appends it.
type EthernetFrame struct {
	DstAddr   [6]byte
	SrcAddr   [6]byte
	EtherType EthernetType
	Payload   *IPv4Header
}

// NewEthernetFrame wraps payload in a frame from src to dst. An empty dst
// selects the broadcast address.
func NewEthernetFrame(payload *IPv4Header, src, dst net.HardwareAddr) *EthernetFrame {
	if len(dst) == 0 {
		dst = BroadcastAddress
	}

	f := &EthernetFrame{
		EtherType: EthernetTypeIPv4,
		Payload:   payload,
	}
	copy(f.DstAddr[:], dst)
	copy(f.SrcAddr[:], src)
	return f
}

func (f *EthernetFrame) DstMAC() net.HardwareAddr {
	return append(net.HardwareAddr(nil), f.DstAddr[:]...)
}

func (f *EthernetFrame) SrcMAC() net.HardwareAddr {
	return append(net.HardwareAddr(nil), f.SrcAddr[:]...)
}

func (f *EthernetFrame) Len() int {
	if f.Payload == nil {
		return LengthEthernet
	}
	return LengthEthernet + f.Payload.Len()
}

// Encode returns the frame with every nested checksum assigned.
func (f *EthernetFrame) Encode() []byte {
	b := make([]byte, f.Len())
	copy(b[0:6], f.DstAddr[:])
	copy(b[6:12], f.SrcAddr[:])
	eth := Ethernet(b)
	eth.SetEthernetType(f.EtherType)
	if f.Payload != nil {
		f.Payload.encodeTo(b[LengthEthernet:])
	}
	return b
}

// DecodeEthernetFrame parses b with the Lenient options.
func DecodeEthernetFrame(b []byte) (*EthernetFrame, error) {
	return Lenient.DecodeEthernetFrame(b)
}

func (f *EthernetFrame) String() string {
	var sb strings.Builder
	sb.WriteString("ETHER: -----Ether Header-----\n")
	fmt.Fprintf(&sb, "ETHER: Destination = %s\n", net.HardwareAddr(f.DstAddr[:]))
	fmt.Fprintf(&sb, "ETHER: Source      = %s\n", net.HardwareAddr(f.SrcAddr[:]))
	fmt.Fprintf(&sb, "ETHER: Ethertype   = 0x%04x (%s)\n", uint16(f.EtherType), f.EtherType)
	sb.WriteString("ETHER: -----Ether Header-----\n")
	if f.Payload != nil {
		sb.WriteString(f.Payload.String())
	}
	return sb.String()
}
