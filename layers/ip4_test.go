package layers

import (
	"math/rand"
	"net"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/ipv4"

	"starPing/utils/checksum"
)

var (
	testSrcIP = net.IPv4(172, 16, 67, 126)
	testDstIP = net.IPv4(142, 251, 35, 174)
)

func TestIPv4_GetAll(t *testing.T) {
	p := []byte{
		0x45,
		0x00,
		0x00, 0x3c,
		0x97, 0x8b,
		0x00, 0x00,
		0x7f,
		0x01,
		0x78, 0x4a,
		0x64, 0x61, 0x51, 0x6b,
		0x64, 0x63, 0x11, 0xbc,
	}

	ip4 := IPv4(p)
	assert.Equal(t, uint8(4), ip4.GetVersion())
	assert.Equal(t, uint8(20), ip4.GetIHL())
	assert.Equal(t, uint8(0), ip4.GetTOS())
	assert.Equal(t, uint16(60), ip4.GetTotalLen())
	assert.Equal(t, uint16(0x978b), ip4.GetID())
	assert.Equal(t, uint16(0), ip4.GetFlagsFragOff())
	assert.Equal(t, uint8(127), ip4.GetTTL())
	assert.Equal(t, IPProtocolICMPv4, ip4.GetProtocol())
	assert.Equal(t, uint16(0x784a), ip4.GetChecksum())
	assert.Equal(t, "100.97.81.107", ip4.GetSrcAddr().String())
	assert.Equal(t, "100.99.17.188", ip4.GetDstAddr().String())
	assert.True(t, checksum.Verify(p))
}

func TestIPv4_SetAll(t *testing.T) {
	p := make([]byte, 20)

	ip4 := IPv4(p)
	ip4.SetVersion(4)
	ip4.SetIHL(20)
	ip4.SetTOS(64)
	ip4.SetTotalLen(20)
	ip4.SetID(1)
	ip4.SetFlagsFragOff(0x4000)
	ip4.SetTTL(6)
	ip4.SetProtocol(IPProtocolICMPv4)
	ip4.SetSrcAddr(net.IP{1, 1, 1, 1})
	ip4.SetDstAddr(net.IPv4(2, 2, 2, 2))

	ip4.SetChecksum(0)
	ip4.SetChecksum(checksum.TCPIPChecksum(p[:20], 0))

	assert.Equal(t, []byte{
		0x45, 0x40, 0x00, 0x14,
		0x00, 0x01, 0x40, 0x00,
		0x06, 0x01, 0x6e, 0xa3,
		0x01, 0x01, 0x01, 0x01,
		0x02, 0x02, 0x02, 0x02,
	}, p)
	assert.True(t, checksum.Verify(p))
}

func TestNewICMPv4Header_TotalLength(t *testing.T) {
	m := &ICMPv4Echo{Type: ICMPv4TypeEchoRequest, Identifier: 0x1234, Sequence: 1, Payload: make([]byte, 12)}
	h := NewICMPv4Header(m, IPv4DefaultTTL, testSrcIP, testDstIP)

	assert.Equal(t, uint16(40), h.TotalLength)
	assert.Equal(t, uint8(4), h.Version())
	assert.Equal(t, uint8(5), h.IHL())
	assert.Equal(t, IPProtocolICMPv4, h.Protocol)
	assert.Equal(t, uint8(64), h.TTL)
	assert.Equal(t, [4]byte{172, 16, 67, 126}, h.SrcAddr)
	assert.Equal(t, [4]byte{142, 251, 35, 174}, h.DstAddr)
	assert.Nil(t, h.Options)
	assert.NoError(t, h.VerifyChecksum())

	b := h.Encode()
	require.Len(t, b, 40)
	assert.Equal(t, m.Encode(), b[20:])
}

func TestNewIPv4Header_OptionsPadding(t *testing.T) {
	m := NewEchoRequestAt(1, 1, time.Unix(0, 0))
	opts := []byte{0x01, 0x01, 0x01, 0x01, 0x00}
	h := NewIPv4Header(m, IPProtocolICMPv4, 32, opts, testSrcIP, testDstIP)

	assert.Equal(t, []byte{0x01, 0x01, 0x01, 0x01, 0x00, 0x00, 0x00, 0x00}, h.Options)
	assert.Equal(t, uint8(5+2), h.IHL())
	assert.Equal(t, 28, h.HeaderLen())
	assert.Equal(t, uint16(28+m.Len()), h.TotalLength)
	// caller's slice is untouched
	assert.Len(t, opts, 5)

	b := h.Encode()
	assert.Equal(t, byte(0x47), b[0])
	assert.Equal(t, h.Options, b[20:28])
	assert.True(t, checksum.Verify(b[:28]))
	assert.False(t, checksum.Verify(b[:20]))
}

func TestNewIPv4Header_OptionsSaturate(t *testing.T) {
	m := NewEchoRequestAt(1, 1, time.Unix(0, 0))
	for _, tc := range []struct {
		optLen int
		ihl    uint8
		hdrLen int
	}{
		{optLen: 16, ihl: 9, hdrLen: 36},
		{optLen: 17, ihl: 9, hdrLen: 40},
		{optLen: 40, ihl: 9, hdrLen: 60},
	} {
		h := NewIPv4Header(m, IPProtocolICMPv4, 64, make([]byte, tc.optLen), testSrcIP, testDstIP)
		assert.Equal(t, tc.ihl, h.IHL(), "options %d", tc.optLen)
		assert.Equal(t, tc.hdrLen, h.HeaderLen(), "options %d", tc.optLen)
		assert.Equal(t, uint16(tc.hdrLen+m.Len()), h.TotalLength, "options %d", tc.optLen)
		// the checksum still covers every encoded header byte
		assert.True(t, checksum.Verify(h.Encode()[:tc.hdrLen]), "options %d", tc.optLen)
	}
}

func TestIPv4Header_ChecksumExcludesPayload(t *testing.T) {
	a := NewICMPv4Header(NewEchoRequestAt(1, 1, time.Unix(0, 0)), 64, testSrcIP, testDstIP)
	b := NewICMPv4Header(NewEchoRequestAt(1, 1, time.Unix(99, 99)), 64, testSrcIP, testDstIP)
	assert.Equal(t, a.Checksum, b.Checksum)
}

func TestIPv4Header_RoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 200; i++ {
		m := &ICMPv4Echo{
			Type:       ICMPv4TypeEchoReply,
			Identifier: uint16(r.Uint32()),
			Sequence:   uint16(r.Uint32()),
			Payload:    make([]byte, 1+r.Intn(48)),
		}
		r.Read(m.Payload)
		src := net.IP{byte(r.Intn(256)), byte(r.Intn(256)), byte(r.Intn(256)), byte(r.Intn(256))}
		h := NewICMPv4Header(m, uint8(r.Intn(256)), src, testDstIP)
		h.ID = uint16(r.Uint32())
		h.TOS = uint8(r.Intn(256))

		b := h.Encode()
		require.True(t, checksum.Verify(b[:LengthIPv4Min]))
		require.True(t, checksum.Verify(b[LengthIPv4Min:]))

		decoded, err := DecodeIPv4Header(b)
		require.NoError(t, err)
		require.Equal(t, h, decoded)
	}
}

func TestIPv4Header_RoundTripWithOptions(t *testing.T) {
	m := NewEchoRequestAt(3, 4, time.Unix(5, 6))
	h := NewIPv4Header(m, IPProtocolICMPv4, 64, []byte{0x94, 0x04, 0x00, 0x00, 0x01}, testSrcIP, testDstIP)
	b := h.Encode()

	decoded, err := Strict.DecodeIPv4Header(b)
	require.NoError(t, err)
	assert.Equal(t, h, decoded)

	// lenient decoding leaves the options in front of the echo message
	lenient, err := DecodeIPv4Header(b)
	require.NoError(t, err)
	assert.Nil(t, lenient.Options)
	assert.Equal(t, uint8(0x94), lenient.Payload.Type)
	assert.Len(t, lenient.Payload.Payload, len(b)-LengthIPv4Min-LengthICMPv4)
}

func TestIPv4Header_DecodeTruncated(t *testing.T) {
	for n := 0; n < LengthIPv4Min; n++ {
		_, err := DecodeIPv4Header(make([]byte, n))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTruncatedBuffer), "length %d: %v", n, err)
	}

	// a bare header has no room for the echo message
	_, err := DecodeIPv4Header(make([]byte, LengthIPv4Min))
	assert.True(t, errors.Is(err, ErrTruncatedBuffer))
}

func TestIPv4Header_ParseWithXNetIPv4(t *testing.T) {
	h := NewICMPv4Header(NewEchoRequestAt(1, 2, time.Now()), 61, testSrcIP, testDstIP)
	h.ID = 0xabcd
	b := h.Encode()

	xh, err := ipv4.ParseHeader(b)
	require.NoError(t, err)
	assert.Equal(t, 4, xh.Version)
	assert.Equal(t, LengthIPv4Min, xh.Len)
	assert.Equal(t, 0xabcd, xh.ID)
	assert.Equal(t, 61, xh.TTL)
	assert.Equal(t, 1, xh.Protocol)
	assert.Equal(t, int(h.Checksum), xh.Checksum)
	assert.True(t, xh.Src.Equal(testSrcIP))
	assert.True(t, xh.Dst.Equal(testDstIP))
}

func TestIPv4Header_Deterministic(t *testing.T) {
	h := NewICMPv4Header(NewEchoRequestAt(1, 2, time.Unix(3, 4)), 64, testSrcIP, testDstIP)
	assert.Equal(t, h.Encode(), h.Encode())
}

func TestIPv4Header_VerifyChecksum(t *testing.T) {
	h := NewICMPv4Header(NewEchoRequestAt(1, 2, time.Unix(3, 4)), 64, testSrcIP, testDstIP)
	require.NoError(t, h.VerifyChecksum())

	h.TTL--
	err := h.VerifyChecksum()
	assert.True(t, errors.Is(err, ErrChecksumMismatch))

	// Encode repairs it
	h.Encode()
	assert.NoError(t, h.VerifyChecksum())
}

func TestIPv4Header_String(t *testing.T) {
	h := NewICMPv4Header(NewEchoRequestAt(1, 2, time.Unix(3, 4)), 64, testSrcIP, testDstIP)
	h.FlagsFragOff = 0x4000
	h.UpdateChecksum()

	s := h.String()
	assert.Contains(t, s, "Version         = 4")
	assert.Contains(t, s, "Header Length   = 5 words")
	assert.Contains(t, s, "Total Length    = 40")
	assert.Contains(t, s, "DF=true MF=false offset=0")
	assert.Contains(t, s, "TTL             = 64")
	assert.Contains(t, s, "Source          = 172.16.67.126")
	assert.Contains(t, s, "Destination     = 142.251.35.174")
	assert.Contains(t, s, "Options         = none")
	assert.Contains(t, s, "ICMP: -----ICMP Header-----")
}
