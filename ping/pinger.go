package ping

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"starPing/layers"
)

// _buffLen fits any standard ethernet frame.
const _buffLen = 9000

// Pinger sends echo requests over a link and matches the echo replies read
// back from it. The link carries whole ethernet frames.
type Pinger struct {
	cfg  Config
	link io.ReadWriter
	log  *logrus.Entry
}

func New(link io.ReadWriter, cfg Config) (*Pinger, error) {
	if link == nil {
		return nil, errors.New("nil link")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessage(err, "invalid config")
	}

	return &Pinger{
		cfg:  cfg,
		link: link,
		log: logrus.WithFields(logrus.Fields{
			"module": "ping",
			"remote": cfg.RemoteIP.String(),
		}),
	}, nil
}

// Run sends Config.Count probes, one per Config.Interval, and calls onResult
// for each of them in order. It returns when all probes are done or ctx is
// cancelled; cancellation is not an error.
//
// Replies are read by a goroutine that stops on the first read after ctx is
// done, so the link should either time out its reads or be closed by the caller.
func (p *Pinger) Run(ctx context.Context, onResult func(*Result)) (*Statistics, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	replies := make(chan *Result, 16)
	errc := make(chan error, 1)
	go p.receive(ctx, replies, errc)

	stats := &Statistics{}
	seq := p.cfg.FirstSequence
	for i := 0; p.cfg.Count == 0 || i < p.cfg.Count; i++ {
		if i > 0 && p.cfg.Interval > 0 {
			select {
			case <-time.After(p.cfg.Interval):
			case <-ctx.Done():
				return stats, nil
			}
		}

		res, err := p.probe(ctx, seq, replies, errc)
		if err != nil {
			if ctx.Err() != nil {
				return stats, nil
			}
			return stats, err
		}

		stats.add(res)
		if onResult != nil {
			onResult(res)
		}
		seq++
	}

	return stats, nil
}

func (p *Pinger) request(seq uint16) *layers.EthernetFrame {
	m := layers.NewEchoRequestAt(seq, p.cfg.Identifier, time.Now())
	ip := layers.NewIPv4Header(m, layers.IPProtocolICMPv4, p.cfg.TTL, p.cfg.Options, p.cfg.LocalIP, p.cfg.RemoteIP)
	return layers.NewEthernetFrame(ip, p.cfg.LocalMAC, p.cfg.PeerMAC)
}

func (p *Pinger) probe(ctx context.Context, seq uint16, replies <-chan *Result, errc <-chan error) (*Result, error) {
	frame := p.request(seq)
	if p.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		p.log.Tracef("send frame:\n%s", frame)
	}

	if _, err := p.link.Write(frame.Encode()); err != nil {
		return nil, errors.Wrap(err, "write echo request failed")
	}

	timer := time.NewTimer(p.cfg.Timeout)
	defer timer.Stop()

	for {
		select {
		case res := <-replies:
			if res.Sequence == seq {
				return res, nil
			}
			p.log.WithField("seq", res.Sequence).Debug("drop late reply")
		case err := <-errc:
			return nil, err
		case <-timer.C:
			return &Result{Sequence: seq, Status: TimedOut}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (p *Pinger) receive(ctx context.Context, replies chan<- *Result, errc chan<- error) {
	buf := make([]byte, _buffLen)
	for {
		n, err := p.link.Read(buf)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if isTimeout(err) {
				continue
			}
			errc <- errors.Wrap(err, "read link failed")
			return
		}

		if p.cfg.AnswerARP {
			if reply, ok := replyARP(buf[:n], p.cfg.LocalMAC, p.cfg.LocalIP); ok {
				if _, err = p.link.Write(reply); err != nil {
					p.log.WithError(err).Error("write arp reply failed")
				}
				continue
			}
		}

		res, ok := p.match(buf[:n], time.Now())
		if !ok {
			continue
		}

		select {
		case replies <- res:
		case <-ctx.Done():
			return
		}
	}
}

// match decodes frame and reports whether it answers one of our probes.
func (p *Pinger) match(frame []byte, received time.Time) (*Result, bool) {
	// 先用视图判断类型，避免对无关流量完整解码
	eth := layers.Ethernet(frame)
	if len(frame) < layers.LengthEthernet || eth.GetEthernetType() != layers.EthernetTypeIPv4 {
		return nil, false
	}

	f, err := p.cfg.Decode.DecodeEthernetFrame(frame)
	if err != nil {
		p.log.WithError(err).Debug("drop undecodable frame")
		return nil, false
	}

	ip := f.Payload
	m := ip.Payload
	if ip.Protocol != layers.IPProtocolICMPv4 || !m.IsEchoReply() || m.Identifier != p.cfg.Identifier {
		return nil, false
	}
	if !ip.SrcIP().Equal(p.cfg.RemoteIP) {
		p.log.WithField("src", ip.SrcIP().String()).Debug("drop reply from unexpected source")
		return nil, false
	}

	sent, err := m.Timestamp()
	if err != nil {
		p.log.WithError(err).WithField("seq", m.Sequence).Debug("drop reply without timestamp")
		return nil, false
	}
	if p.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		p.log.Tracef("receive frame:\n%s", f)
	}

	return &Result{
		Sequence: m.Sequence,
		Status:   Replied,
		RTT:      received.Sub(sent),
		TTL:      ip.TTL,
		Source:   ip.SrcIP(),
		Bytes:    m.Len(),
	}, true
}

func isTimeout(err error) bool {
	t, ok := errors.Cause(err).(interface{ Timeout() bool })
	return ok && t.Timeout()
}
