package ping

import (
	"io"
	"sync"
)

// memLink is one end of an in-memory ethernet segment.
type memLink struct {
	in     <-chan []byte
	out    chan<- []byte
	closed chan struct{}
	once   *sync.Once
}

func newLinkPair() (*memLink, *memLink) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	closed := make(chan struct{})
	once := &sync.Once{}
	return &memLink{in: ba, out: ab, closed: closed, once: once},
		&memLink{in: ab, out: ba, closed: closed, once: once}
}

func (l *memLink) Read(b []byte) (int, error) {
	select {
	case frame := <-l.in:
		return copy(b, frame), nil
	case <-l.closed:
		return 0, io.EOF
	}
}

func (l *memLink) Write(b []byte) (int, error) {
	frame := append([]byte(nil), b...)
	select {
	case l.out <- frame:
		return len(b), nil
	case <-l.closed:
		return 0, io.ErrClosedPipe
	}
}

func (l *memLink) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}
