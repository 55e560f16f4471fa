package raw

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"

	"starPing/utils/binary"
)

const (
	_buffLen = 9000
)

var (
	ErrBufferIsFull = errors.New("buffer is full")
)

// Raw is an AF_PACKET socket bound to one interface. Every Read returns one
// whole ethernet frame and every Write sends one.
type Raw struct {
	fd        int
	buf       []byte
	filter    func([]byte) bool // return true to pass, or false to drop
	linkLayer unix.SockaddrLinklayer
}

// New opens a packet socket on the interface with index ifindex, receiving
// frames of the given ethernet protocol (unix.ETH_P_IP, unix.ETH_P_ALL...).
// Frames sent by this host are never returned by Read.
func New(ifindex int, protocol uint16, filter func([]byte) bool) (*Raw, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_CLOEXEC, int(binary.Htons16(protocol)))
	if err != nil {
		return nil, errors.Wrap(err, "unix.Socket failed")
	}

	linkLayer := unix.SockaddrLinklayer{
		Protocol: binary.Htons16(protocol),
		Ifindex:  ifindex,
		Halen:    6,
	}
	if err = unix.Bind(fd, &linkLayer); err != nil {
		_ = unix.Close(fd)
		return nil, errors.Wrapf(err, "bind to ifindex %d failed", ifindex)
	}

	return &Raw{
		fd:        fd,
		buf:       make([]byte, _buffLen),
		filter:    filter,
		linkLayer: linkLayer,
	}, nil
}

func (r *Raw) Read(buf []byte) (int, error) {
	for {
		n, from, err := unix.Recvfrom(r.fd, r.buf, 0)
		if err != nil {
			return 0, errors.WithStack(err)
		}

		// 自己发出的包也会被抓到
		if ll, ok := from.(*unix.SockaddrLinklayer); ok && ll.Pkttype == unix.PACKET_OUTGOING {
			continue
		}

		if r.filter != nil {
			if !r.filter(r.buf[:n]) {
				continue
			}
		}

		if n > len(buf) {
			return 0, errors.WithStack(ErrBufferIsFull)
		}

		copy(buf, r.buf[:n])
		return n, nil
	}
}

func (r *Raw) Write(buf []byte) (int, error) {
	if len(buf) >= 6 {
		copy(r.linkLayer.Addr[:], buf[0:6])
	}
	if err := unix.Sendto(r.fd, buf, 0, &r.linkLayer); err != nil {
		return 0, errors.WithStack(err)
	}
	return len(buf), nil
}

// SetReadTimeout bounds every Read; a Read that times out fails with an error
// whose cause reports Timeout() == true. Zero blocks forever.
func (r *Raw) SetReadTimeout(d time.Duration) error {
	tv := unix.NsecToTimeval(d.Nanoseconds())
	err := unix.SetsockoptTimeval(r.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
	return errors.Wrap(err, "set SO_RCVTIMEO failed")
}

// AttachFilter installs a classic BPF program in the kernel, see package filter.
func (r *Raw) AttachFilter(raw []bpf.RawInstruction) error {
	if len(raw) == 0 {
		return errors.New("empty filter")
	}

	f := make([]unix.SockFilter, len(raw))
	for i, ins := range raw {
		f[i] = unix.SockFilter{Code: ins.Op, Jt: ins.Jt, Jf: ins.Jf, K: ins.K}
	}
	prog := unix.SockFprog{
		Len:    uint16(len(f)),
		Filter: &f[0],
	}

	err := unix.SetsockoptSockFprog(r.fd, unix.SOL_SOCKET, unix.SO_ATTACH_FILTER, &prog)
	return errors.Wrap(err, "set SO_ATTACH_FILTER failed")
}

// AttachProgram installs a loaded eBPF socket filter program.
func (r *Raw) AttachProgram(fd int) error {
	err := unix.SetsockoptInt(r.fd, unix.SOL_SOCKET, unix.SO_ATTACH_BPF, fd)
	return errors.Wrap(err, "set SO_ATTACH_BPF failed")
}

func (r *Raw) Close() error {
	return errors.WithStack(unix.Close(r.fd))
}
