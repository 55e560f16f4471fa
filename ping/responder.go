package ping

import (
	"context"
	"io"
	"net"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"starPing/layers"
	"starPing/utils/checksum"
)

// Responder answers echo requests addressed to IP.
type Responder struct {
	MAC net.HardwareAddr
	IP  net.IP
	// TTL of the replies, 0 uses layers.IPv4DefaultTTL.
	TTL    uint8
	Decode layers.DecodeOptions
	// AnswerARP makes Serve reply to ARP requests for IP as well.
	AnswerARP bool
}

// Reply returns the echo reply frame for frame, or false when frame is not an
// echo request for r.IP. Addresses are swapped and all checksums recomputed.
func (r *Responder) Reply(frame []byte) ([]byte, bool) {
	eth := layers.Ethernet(frame)
	if len(frame) < layers.LengthEthernet || eth.GetEthernetType() != layers.EthernetTypeIPv4 {
		return nil, false
	}

	f, err := r.Decode.DecodeEthernetFrame(frame)
	if err != nil {
		return nil, false
	}

	req := f.Payload
	if req.Protocol != layers.IPProtocolICMPv4 || !req.Payload.IsEchoRequest() || !req.DstIP().Equal(r.IP) {
		return nil, false
	}

	ttl := r.TTL
	if ttl == 0 {
		ttl = layers.IPv4DefaultTTL
	}

	ip := layers.NewICMPv4Header(req.Payload.Reply(), ttl, r.IP, req.SrcIP())
	ip.ID = req.ID
	// DF, same as the kernel sets on echo replies
	ip.FlagsFragOff = 0x4000

	return layers.NewEthernetFrame(ip, r.MAC, f.SrcMAC()).Encode(), true
}

// ReplyARP returns the ARP reply frame for frame, or false when frame is not
// an ARP request for r.IP.
func (r *Responder) ReplyARP(frame []byte) ([]byte, bool) {
	return replyARP(frame, r.MAC, r.IP)
}

// Rewrite turns the echo request in frame into its reply in place and
// reports whether it did. Unlike Reply it never allocates, but the frame must
// have been checked by the caller (or the capture filter) to be well formed;
// only the lengths are checked here.
func (r *Responder) Rewrite(frame []byte) bool {
	if len(frame) < layers.LengthEthernet+layers.LengthIPv4Min {
		return false
	}

	eth := layers.Ethernet(frame)
	if eth.GetEthernetType() != layers.EthernetTypeIPv4 {
		return false
	}

	ipRaw := frame[layers.LengthEthernet:]
	ip := layers.IPv4(ipRaw)
	ihl := int(ip.GetIHL())
	if ihl < layers.LengthIPv4Min || len(ipRaw) < ihl+layers.LengthICMPv4 ||
		ip.GetProtocol() != layers.IPProtocolICMPv4 || !ip.GetDstAddr().Equal(r.IP) {
		return false
	}
	if tl := int(ip.GetTotalLen()); tl >= ihl+layers.LengthICMPv4 && tl < len(ipRaw) {
		ipRaw = ipRaw[:tl]
	}

	icmpRaw := ipRaw[ihl:]
	icmp := layers.ICMPv4(icmpRaw)
	if icmp.GetType() != layers.ICMPv4TypeEchoRequest {
		return false
	}

	var tmpMac [6]byte
	copy(tmpMac[:], eth.GetSrcAddress())
	eth.SetSrcAddress(r.MAC)
	eth.SetDstAddress(tmpMac[:])

	var tmpIP [4]byte
	copy(tmpIP[:], ip.GetSrcAddr())
	ip.SetSrcAddr(r.IP)
	ip.SetDstAddr(tmpIP[:])
	ttl := r.TTL
	if ttl == 0 {
		ttl = layers.IPv4DefaultTTL
	}
	ip.SetTTL(ttl)
	ip.SetFlagsFragOff(0x4000)
	ip.SetChecksum(0)
	ip.SetChecksum(checksum.TCPIPChecksum(ipRaw[:ihl], 0))

	icmp.SetType(layers.ICMPv4TypeEchoReply)
	icmp.SetChecksum(0)
	icmp.SetChecksum(checksum.TCPIPChecksum(icmpRaw, 0))
	return true
}

// Serve answers echo requests read from link until ctx is done or the link
// fails. Read timeouts are retried.
func (r *Responder) Serve(ctx context.Context, link io.ReadWriter) error {
	log := logrus.WithFields(logrus.Fields{
		"module": "responder",
		"ip":     r.IP.String(),
	})

	buf := make([]byte, _buffLen)
	for {
		n, err := link.Read(buf)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return errors.Wrap(err, "read link failed")
		}

		reply, ok := r.Reply(buf[:n])
		if !ok && r.AnswerARP {
			reply, ok = r.ReplyARP(buf[:n])
		}
		if !ok {
			continue
		}

		if _, err = link.Write(reply); err != nil {
			return errors.Wrap(err, "write echo reply failed")
		}
		log.WithField("bytes", len(reply)).Debug("echo reply sent")
	}
}
