package ping

import (
	"fmt"
	"net"
	"time"
)

type Status int

const (
	// Replied is the result of an echo request answered in time.
	Replied Status = iota
	// TimedOut is the result of an echo request without a reply within Config.Timeout.
	TimedOut
)

func (s Status) String() string {
	switch s {
	case Replied:
		return "replied"
	case TimedOut:
		return "timed out"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the outcome of one probe.
type Result struct {
	Sequence uint16
	Status   Status
	// The fields below are only set when Status is Replied.
	RTT    time.Duration
	TTL    uint8
	Source net.IP
	Bytes  int
}

func (r *Result) String() string {
	if r.Status != Replied {
		return fmt.Sprintf("icmp_seq=%d %s", r.Sequence, r.Status)
	}
	return fmt.Sprintf("%d bytes from %s: icmp_seq=%d ttl=%d time=%s", r.Bytes, r.Source, r.Sequence, r.TTL, r.RTT)
}

type Statistics struct {
	Transmitted int
	Received    int
	MinRTT      time.Duration
	MaxRTT      time.Duration
	AvgRTT      time.Duration

	total time.Duration
}

func (s *Statistics) add(r *Result) {
	s.Transmitted++
	if r.Status != Replied {
		return
	}

	s.Received++
	s.total += r.RTT
	if s.Received == 1 || r.RTT < s.MinRTT {
		s.MinRTT = r.RTT
	}
	if r.RTT > s.MaxRTT {
		s.MaxRTT = r.RTT
	}
	s.AvgRTT = s.total / time.Duration(s.Received)
}

func (s *Statistics) String() string {
	return fmt.Sprintf("%d packets transmitted, %d received, rtt min/avg/max = %s/%s/%s",
		s.Transmitted, s.Received, s.MinRTT, s.AvgRTT, s.MaxRTT)
}
