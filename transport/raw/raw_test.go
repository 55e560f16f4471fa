package raw

import (
	"net"
	"os"
	"testing"
	"time"

	"github.com/google/gopacket"
	gplayers "github.com/google/gopacket/layers"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"starPing/layers"
	"starPing/transport/filter"
)

func openLoopback(t *testing.T, filter func([]byte) bool) *Raw {
	if os.Geteuid() != 0 {
		t.Skip("packet sockets need root")
	}

	lo, err := net.InterfaceByName("lo")
	if err != nil {
		t.Skipf("no loopback interface: %v", err)
	}

	r, err := New(lo.Index, unix.ETH_P_IP, filter)
	if errors.Is(err, unix.EPERM) || errors.Is(err, unix.EAFNOSUPPORT) {
		t.Skipf("packet sockets unavailable: %v", err)
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	require.NoError(t, r.SetReadTimeout(100*time.Millisecond))
	return r
}

func TestRaw_WriteRead(t *testing.T) {
	const id = 0x4d21

	r := openLoopback(t, func(b []byte) bool {
		p := gopacket.NewPacket(b, gplayers.LayerTypeEthernet, gopacket.NoCopy)
		icmp, ok := p.Layer(gplayers.LayerTypeICMPv4).(*gplayers.ICMPv4)
		return ok && icmp.Id == id
	})

	zero := net.HardwareAddr{0, 0, 0, 0, 0, 0}
	lo := net.IPv4(127, 0, 0, 1)
	m := layers.NewEchoRequestAt(1, id, time.Now())
	frame := layers.NewEthernetFrame(layers.NewICMPv4Header(m, 64, lo, lo), zero, zero).Encode()

	n, err := r.Write(frame)
	require.NoError(t, err)
	assert.Equal(t, len(frame), n)

	// 回环口上能读到请求本身，内核开启回显时还能读到应答
	buf := make([]byte, 2048)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, err = r.Read(buf)
		if err != nil {
			require.True(t, isTimeout(err), "%v", err)
			continue
		}

		f, err := layers.Strict.DecodeEthernetFrame(buf[:n])
		require.NoError(t, err)
		assert.Equal(t, uint16(id), f.Payload.Payload.Identifier)
		return
	}
	t.Fatal("no frame read back")
}

func TestRaw_ReadTimeout(t *testing.T) {
	r := openLoopback(t, func([]byte) bool { return false })

	start := time.Now()
	_, err := r.Read(make([]byte, 2048))
	require.Error(t, err)
	assert.True(t, isTimeout(err))
	assert.True(t, time.Since(start) < time.Second)
}

func TestRaw_AttachFilter(t *testing.T) {
	r := openLoopback(t, nil)

	raw, err := filter.Assemble(filter.EchoReply(1))
	require.NoError(t, err)
	assert.NoError(t, r.AttachFilter(raw))
	assert.Error(t, r.AttachFilter(nil))
}

func TestRaw_BufferIsFull(t *testing.T) {
	r := openLoopback(t, nil)

	lo := net.IPv4(127, 0, 0, 1)
	zero := net.HardwareAddr{0, 0, 0, 0, 0, 0}
	m := layers.NewEchoRequestAt(1, 2, time.Now())
	_, err := r.Write(layers.NewEthernetFrame(layers.NewICMPv4Header(m, 64, lo, lo), zero, zero).Encode())
	require.NoError(t, err)

	_, err = r.Read(make([]byte, 4))
	if isTimeout(err) {
		t.Skip("nothing read back")
	}
	assert.True(t, errors.Is(err, ErrBufferIsFull))
}

func isTimeout(err error) bool {
	t, ok := errors.Cause(err).(interface{ Timeout() bool })
	return ok && t.Timeout()
}
