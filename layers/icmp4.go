package layers

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"
	"time"

	"starPing/utils/checksum"
)

const (
	ICMPv4TypeEchoReply              = 0
	ICMPv4TypeDestinationUnreachable = 3
	ICMPv4TypeEchoRequest            = 8
	ICMPv4TypeTimeExceeded           = 11
)

// Echo request and reply only define code 0.
const ICMPv4CodeEcho = 0

// ICMPv4 is a view over the first LengthICMPv4 bytes of an ICMP message.
//  0               1               2               3
//  +---------------+---------------+-------------------------------+
//  |     Type      |     Code      |           Checksum            |
//  +---------------+---------------+-------------------------------+
//  |          Identifier           |        Sequence Number        |
//  +-------------------------------+-------------------------------+
//  |     Data ...
type ICMPv4 []byte

const (
	LengthICMPv4 = 8
	// LengthEchoTimestamp is the size of the timestamp carried by our echo requests.
	LengthEchoTimestamp = 12
)

func (i *ICMPv4) GetType() uint8 {
	return (*i)[0]
}

func (i *ICMPv4) SetType(u uint8) {
	(*i)[0] = u
}

func (i *ICMPv4) GetCode() uint8 {
	return (*i)[1]
}

func (i *ICMPv4) SetCode(u uint8) {
	(*i)[1] = u
}

func (i *ICMPv4) GetChecksum() uint16 {
	return binary.BigEndian.Uint16((*i)[2:4])
}

func (i *ICMPv4) SetChecksum(u uint16) {
	binary.BigEndian.PutUint16((*i)[2:4], u)
}

func (i *ICMPv4) GetID() uint16 {
	return binary.BigEndian.Uint16((*i)[4:6])
}

func (i *ICMPv4) SetID(u uint16) {
	binary.BigEndian.PutUint16((*i)[4:6], u)
}

func (i *ICMPv4) GetSequence() uint16 {
	return binary.BigEndian.Uint16((*i)[6:8])
}

func (i *ICMPv4) SetSequence(u uint16) {
	binary.BigEndian.PutUint16((*i)[6:8], u)
}

// ICMPv4Echo is an echo request or reply together with its data.
type ICMPv4Echo struct {
	Type       uint8
	Code       uint8
	Checksum   uint16
	Identifier uint16
	Sequence   uint16
	Payload    []byte
}

// ProcessIdentifier is the echo identifier used by this process: the pid
// truncated to 16 bits. Stable for the process lifetime, not globally unique.
func ProcessIdentifier() uint16 {
	return uint16(os.Getpid())
}

// NewEchoRequest builds an echo request stamped with the current time.
func NewEchoRequest(sequence uint16) *ICMPv4Echo {
	return NewEchoRequestAt(sequence, ProcessIdentifier(), time.Now())
}

// NewEchoRequestAt builds an echo request with an explicit identifier and
// timestamp. The checksum is assigned before returning.
func NewEchoRequestAt(sequence, identifier uint16, t time.Time) *ICMPv4Echo {
	m := &ICMPv4Echo{
		Type:       ICMPv4TypeEchoRequest,
		Code:       ICMPv4CodeEcho,
		Identifier: identifier,
		Sequence:   sequence,
		Payload:    EncodeTimestamp(t),
	}
	m.UpdateChecksum()
	return m
}

// Reply returns the echo reply answering m. The payload is copied.
func (m *ICMPv4Echo) Reply() *ICMPv4Echo {
	r := &ICMPv4Echo{
		Type:       ICMPv4TypeEchoReply,
		Code:       ICMPv4CodeEcho,
		Identifier: m.Identifier,
		Sequence:   m.Sequence,
		Payload:    append([]byte(nil), m.Payload...),
	}
	r.UpdateChecksum()
	return r
}

func (m *ICMPv4Echo) IsEchoRequest() bool {
	return m.Type == ICMPv4TypeEchoRequest && m.Code == ICMPv4CodeEcho
}

func (m *ICMPv4Echo) IsEchoReply() bool {
	return m.Type == ICMPv4TypeEchoReply && m.Code == ICMPv4CodeEcho
}

// Len is the encoded length of m.
func (m *ICMPv4Echo) Len() int {
	return LengthICMPv4 + len(m.Payload)
}

// marshal writes m into b as is, b must hold at least m.Len() bytes.
func (m *ICMPv4Echo) marshal(b []byte, csum uint16) {
	h := ICMPv4(b)
	h.SetType(m.Type)
	h.SetCode(m.Code)
	h.SetChecksum(csum)
	h.SetID(m.Identifier)
	h.SetSequence(m.Sequence)
	copy(b[LengthICMPv4:], m.Payload)
}

// ComputeChecksum returns the checksum of m's encoding with the checksum
// field zeroed. m is not modified.
func (m *ICMPv4Echo) ComputeChecksum() uint16 {
	b := make([]byte, m.Len())
	m.marshal(b, 0)
	return checksum.TCPIPChecksum(b, 0)
}

// UpdateChecksum assigns and returns the checksum of m.
func (m *ICMPv4Echo) UpdateChecksum() uint16 {
	m.Checksum = m.ComputeChecksum()
	return m.Checksum
}

// Encode assigns the checksum and returns the wire form of m.
func (m *ICMPv4Echo) Encode() []byte {
	b := make([]byte, m.Len())
	m.encodeTo(b)
	return b
}

func (m *ICMPv4Echo) encodeTo(b []byte) {
	m.marshal(b, 0)
	m.Checksum = checksum.TCPIPChecksum(b[:m.Len()], 0)
	h := ICMPv4(b)
	h.SetChecksum(m.Checksum)
}

// VerifyChecksum recomputes the checksum and compares it with m.Checksum.
func (m *ICMPv4Echo) VerifyChecksum() error {
	if want := m.ComputeChecksum(); want != m.Checksum {
		return errMismatch("icmpv4", m.Checksum, want)
	}
	return nil
}

// Timestamp decodes the send time carried in the payload.
func (m *ICMPv4Echo) Timestamp() (time.Time, error) {
	return DecodeTimestamp(m.Payload)
}

// DecodeICMPv4Echo parses an echo message. The checksum is not verified.
func DecodeICMPv4Echo(b []byte) (*ICMPv4Echo, error) {
	if len(b) < LengthICMPv4 {
		return nil, errTruncated("icmpv4", LengthICMPv4, len(b))
	}

	var payload []byte
	if len(b) > LengthICMPv4 {
		payload = append(payload, b[LengthICMPv4:]...)
	}

	h := ICMPv4(b)
	return &ICMPv4Echo{
		Type:       h.GetType(),
		Code:       h.GetCode(),
		Checksum:   h.GetChecksum(),
		Identifier: h.GetID(),
		Sequence:   h.GetSequence(),
		Payload:    payload,
	}, nil
}

func (m *ICMPv4Echo) String() string {
	var sb strings.Builder
	sb.WriteString("ICMP: -----ICMP Header-----\n")
	fmt.Fprintf(&sb, "ICMP: Type       = %d (%s)\n", m.Type, icmpTypeName(m.Type))
	fmt.Fprintf(&sb, "ICMP: Code       = %d\n", m.Code)
	fmt.Fprintf(&sb, "ICMP: Checksum   = 0x%04x\n", m.Checksum)
	fmt.Fprintf(&sb, "ICMP: Identifier = 0x%04x\n", m.Identifier)
	fmt.Fprintf(&sb, "ICMP: Sequence   = %d\n", m.Sequence)
	fmt.Fprintf(&sb, "ICMP: Payload    = %d bytes %x\n", len(m.Payload), m.Payload)
	sb.WriteString("ICMP: -----ICMP Header-----\n")
	return sb.String()
}

func icmpTypeName(t uint8) string {
	switch t {
	case ICMPv4TypeEchoReply:
		return "echo reply"
	case ICMPv4TypeEchoRequest:
		return "echo request"
	case ICMPv4TypeDestinationUnreachable:
		return "destination unreachable"
	case ICMPv4TypeTimeExceeded:
		return "time exceeded"
	default:
		return "unknown"
	}
}

// EncodeTimestamp returns t as 8 bytes of Unix seconds followed by 4 bytes
// of nanoseconds, both big-endian.
func EncodeTimestamp(t time.Time) []byte {
	b := make([]byte, LengthEchoTimestamp)
	binary.BigEndian.PutUint64(b[0:8], uint64(t.Unix()))
	binary.BigEndian.PutUint32(b[8:12], uint32(t.Nanosecond()))
	return b
}

// DecodeTimestamp reads a timestamp written by EncodeTimestamp from the start of b.
func DecodeTimestamp(b []byte) (time.Time, error) {
	if len(b) < LengthEchoTimestamp {
		return time.Time{}, errTruncated("echo timestamp", LengthEchoTimestamp, len(b))
	}
	sec := int64(binary.BigEndian.Uint64(b[0:8]))
	nsec := int64(binary.BigEndian.Uint32(b[8:12]))
	return time.Unix(sec, nsec), nil
}
