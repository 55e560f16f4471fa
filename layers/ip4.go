package layers

import (
	"encoding/binary"
	"fmt"
	"net"
	"strings"

	"starPing/utils/checksum"
)

const (
	IPProtocolICMPv4 uint8 = 1
	IPProtocolTCP    uint8 = 6
	IPProtocolUDP    uint8 = 17
)

// IPv4 is the header of an IP packet.
//  struct iphdr {
//  	__u8	version:4,
//    		ihl:4;
//  	__u8	tos;
//  	__be16	tot_len;
//  	__be16	id;
//  	__be16	frag_off;
//  	__u8	ttl;
//  	__u8	protocol;
//  	__sum16	check;
//  	__be32	saddr;
//  	__be32	daddr;
//  	/*The options start here. */
//  };
type IPv4 []byte

const (
	LengthIPv4Min = 20
	LengthIPv4Max = 60

	IPv4Version    = 4
	IPv4DefaultTTL = 64

	// maxOptionWords is how far the IHL nibble is raised by options.
	maxOptionWords = 4
)

func (p *IPv4) GetVersion() uint8 {
	return (*p)[0] >> 4
}

func (p *IPv4) SetVersion(i uint8) {
	(*p)[0] = (*p)[0]&0x0f | i<<4
}

// GetIHL returns the header length in bytes.
func (p *IPv4) GetIHL() uint8 {
	return ((*p)[0] & 0x0f) * 4
}

// SetIHL takes the header length in bytes.
func (p *IPv4) SetIHL(i uint8) {
	(*p)[0] = (*p)[0]&0xf0 | (i/4)&0x0f
}

func (p *IPv4) GetTOS() uint8 {
	return (*p)[1]
}

func (p *IPv4) SetTOS(i uint8) {
	(*p)[1] = i
}

func (p *IPv4) GetTotalLen() uint16 {
	return binary.BigEndian.Uint16((*p)[2:4])
}

func (p *IPv4) SetTotalLen(i uint16) {
	binary.BigEndian.PutUint16((*p)[2:4], i)
}

func (p *IPv4) GetID() uint16 {
	return binary.BigEndian.Uint16((*p)[4:6])
}

func (p *IPv4) SetID(i uint16) {
	binary.BigEndian.PutUint16((*p)[4:6], i)
}

// GetFlagsFragOff returns the flags and the fragment offset as one word.
func (p *IPv4) GetFlagsFragOff() uint16 {
	return binary.BigEndian.Uint16((*p)[6:8])
}

func (p *IPv4) SetFlagsFragOff(i uint16) {
	binary.BigEndian.PutUint16((*p)[6:8], i)
}

func (p *IPv4) GetTTL() uint8 {
	return (*p)[8]
}

func (p *IPv4) SetTTL(i uint8) {
	(*p)[8] = i
}

func (p *IPv4) GetProtocol() uint8 {
	return (*p)[9]
}

func (p *IPv4) SetProtocol(i uint8) {
	(*p)[9] = i
}

func (p *IPv4) GetChecksum() uint16 {
	return binary.BigEndian.Uint16((*p)[10:12])
}

func (p *IPv4) SetChecksum(i uint16) {
	binary.BigEndian.PutUint16((*p)[10:12], i)
}

func (p *IPv4) GetSrcAddr() net.IP {
	return net.IP((*p)[12:16])
}

func (p *IPv4) SetSrcAddr(i net.IP) {
	copy((*p)[12:16], i.To4())
}

func (p *IPv4) GetDstAddr() net.IP {
	return net.IP((*p)[16:20])
}

func (p *IPv4) SetDstAddr(i net.IP) {
	copy((*p)[16:20], i.To4())
}

// IPv4Header is an owned IPv4 header carrying one echo message.
type IPv4Header struct {
	VersionIHL   uint8
	TOS          uint8 // DSCP and ECN
	TotalLength  uint16
	ID           uint16
	FlagsFragOff uint16
	TTL          uint8
	Protocol     uint8
	Checksum     uint16
	SrcAddr      [4]byte
	DstAddr      [4]byte
	Options      []byte
	Payload      *ICMPv4Echo
}

// NewIPv4Header wraps payload. Options are zero padded to a multiple of 4
// bytes. The IHL nibble grows by at most 4 words: longer options are still
// encoded but the header length field stops counting them.
func NewIPv4Header(payload *ICMPv4Echo, protocol, ttl uint8, options []byte, src, dst net.IP) *IPv4Header {
	options = padOptions(options)

	words := len(options) / 4
	if words > maxOptionWords {
		words = maxOptionWords
	}

	h := &IPv4Header{
		VersionIHL: IPv4Version<<4 | uint8(LengthIPv4Min/4+words),
		TTL:        ttl,
		Protocol:   protocol,
		Options:    options,
		Payload:    payload,
	}
	copy(h.SrcAddr[:], src.To4())
	copy(h.DstAddr[:], dst.To4())
	h.TotalLength = uint16(h.Len())
	h.UpdateChecksum()
	return h
}

// NewICMPv4Header is NewIPv4Header for ICMP without options.
func NewICMPv4Header(payload *ICMPv4Echo, ttl uint8, src, dst net.IP) *IPv4Header {
	return NewIPv4Header(payload, IPProtocolICMPv4, ttl, nil, src, dst)
}

func padOptions(options []byte) []byte {
	if len(options) == 0 {
		return nil
	}
	padded := make([]byte, (len(options)+3)/4*4)
	copy(padded, options)
	return padded
}

func (h *IPv4Header) Version() uint8 {
	return h.VersionIHL >> 4
}

// IHL is the header length field in 32-bit words.
func (h *IPv4Header) IHL() uint8 {
	return h.VersionIHL & 0x0f
}

// HeaderLen is the number of header bytes actually encoded, options included.
func (h *IPv4Header) HeaderLen() int {
	return LengthIPv4Min + len(h.Options)
}

// Len is the encoded length of the header and its payload.
func (h *IPv4Header) Len() int {
	if h.Payload == nil {
		return h.HeaderLen()
	}
	return h.HeaderLen() + h.Payload.Len()
}

func (h *IPv4Header) SrcIP() net.IP {
	return net.IPv4(h.SrcAddr[0], h.SrcAddr[1], h.SrcAddr[2], h.SrcAddr[3]).To4()
}

func (h *IPv4Header) DstIP() net.IP {
	return net.IPv4(h.DstAddr[0], h.DstAddr[1], h.DstAddr[2], h.DstAddr[3]).To4()
}

func (h *IPv4Header) DontFragment() bool {
	return h.FlagsFragOff&0x4000 != 0
}

func (h *IPv4Header) MoreFragments() bool {
	return h.FlagsFragOff&0x2000 != 0
}

func (h *IPv4Header) FragmentOffset() uint16 {
	return h.FlagsFragOff & 0x1fff
}

func (h *IPv4Header) marshalHeader(b []byte, csum uint16) {
	p := IPv4(b)
	p[0] = h.VersionIHL
	p.SetTOS(h.TOS)
	p.SetTotalLen(h.TotalLength)
	p.SetID(h.ID)
	p.SetFlagsFragOff(h.FlagsFragOff)
	p.SetTTL(h.TTL)
	p.SetProtocol(h.Protocol)
	p.SetChecksum(csum)
	copy(b[12:16], h.SrcAddr[:])
	copy(b[16:20], h.DstAddr[:])
	copy(b[LengthIPv4Min:], h.Options)
}

// ComputeChecksum returns the checksum over the header bytes only, with the
// checksum field zeroed. h is not modified.
func (h *IPv4Header) ComputeChecksum() uint16 {
	b := make([]byte, h.HeaderLen())
	h.marshalHeader(b, 0)
	return checksum.TCPIPChecksum(b, 0)
}

// UpdateChecksum assigns and returns the header checksum.
func (h *IPv4Header) UpdateChecksum() uint16 {
	h.Checksum = h.ComputeChecksum()
	return h.Checksum
}

func (h *IPv4Header) VerifyChecksum() error {
	if want := h.ComputeChecksum(); want != h.Checksum {
		return errMismatch("ipv4", h.Checksum, want)
	}
	return nil
}

// Encode assigns the header and payload checksums and returns the header,
// options and encoded payload. TotalLength is written as stored.
func (h *IPv4Header) Encode() []byte {
	b := make([]byte, h.Len())
	h.encodeTo(b)
	return b
}

func (h *IPv4Header) encodeTo(b []byte) {
	hl := h.HeaderLen()
	h.marshalHeader(b, 0)
	h.Checksum = checksum.TCPIPChecksum(b[:hl], 0)
	p := IPv4(b)
	p.SetChecksum(h.Checksum)
	if h.Payload != nil {
		h.Payload.encodeTo(b[hl:])
	}
}

// DecodeIPv4Header parses b with the Lenient options: bytes from offset 20
// on are the ICMP message, whatever the IHL nibble says.
func DecodeIPv4Header(b []byte) (*IPv4Header, error) {
	return Lenient.DecodeIPv4Header(b)
}

func (h *IPv4Header) String() string {
	var sb strings.Builder
	sb.WriteString("IPV4: -----IPv4 Header-----\n")
	fmt.Fprintf(&sb, "IPV4: Version         = %d\n", h.Version())
	fmt.Fprintf(&sb, "IPV4: Header Length   = %d words\n", h.IHL())
	fmt.Fprintf(&sb, "IPV4: DSCP/ECN        = 0x%02x\n", h.TOS)
	fmt.Fprintf(&sb, "IPV4: Total Length    = %d\n", h.TotalLength)
	fmt.Fprintf(&sb, "IPV4: Identification  = %d\n", h.ID)
	fmt.Fprintf(&sb, "IPV4: Flags/Fragment  = 0x%04x (DF=%t MF=%t offset=%d)\n",
		h.FlagsFragOff, h.DontFragment(), h.MoreFragments(), h.FragmentOffset())
	fmt.Fprintf(&sb, "IPV4: TTL             = %d\n", h.TTL)
	fmt.Fprintf(&sb, "IPV4: Protocol        = %d\n", h.Protocol)
	fmt.Fprintf(&sb, "IPV4: Header Checksum = 0x%04x\n", h.Checksum)
	fmt.Fprintf(&sb, "IPV4: Source          = %s\n", h.SrcIP())
	fmt.Fprintf(&sb, "IPV4: Destination     = %s\n", h.DstIP())
	if len(h.Options) == 0 {
		sb.WriteString("IPV4: Options         = none\n")
	} else {
		fmt.Fprintf(&sb, "IPV4: Options         = %x\n", h.Options)
	}
	sb.WriteString("IPV4: -----IPv4 Header-----\n")
	if h.Payload != nil {
		sb.WriteString(h.Payload.String())
	}
	return sb.String()
}
