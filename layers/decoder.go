package layers

import (
	"starPing/utils/checksum"
)

// DecodeOptions selects how strictly received bytes are parsed. The zero
// value parses the way the codecs always have: no checksum verification,
// IPv4 options left inside the ICMP payload, link padding kept.
type DecodeOptions struct {
	// VerifyChecksums checks the IPv4 header and ICMP checksums over the
	// received bytes and fails with ErrChecksumMismatch.
	VerifyChecksums bool
	// ParseIPv4Options splits IHL*4-20 option bytes off the ICMP payload.
	ParseIPv4Options bool
	// TrimToTotalLength drops bytes past the IPv4 total length, such as the
	// padding of short Ethernet frames.
	TrimToTotalLength bool
}

var (
	Lenient = DecodeOptions{}
	Strict  = DecodeOptions{
		VerifyChecksums:   true,
		ParseIPv4Options:  true,
		TrimToTotalLength: true,
	}
)

func (o DecodeOptions) DecodeEthernetFrame(b []byte) (*EthernetFrame, error) {
	if len(b) < LengthEthernet {
		return nil, errTruncated("ethernet", LengthEthernet, len(b))
	}

	payload, err := o.DecodeIPv4Header(b[LengthEthernet:])
	if err != nil {
		return nil, err
	}

	eth := Ethernet(b)
	f := &EthernetFrame{
		EtherType: eth.GetEthernetType(),
		Payload:   payload,
	}
	copy(f.DstAddr[:], b[0:6])
	copy(f.SrcAddr[:], b[6:12])
	return f, nil
}

func (o DecodeOptions) DecodeIPv4Header(b []byte) (*IPv4Header, error) {
	if len(b) < LengthIPv4Min {
		return nil, errTruncated("ipv4", LengthIPv4Min, len(b))
	}

	p := IPv4(b)
	hl := LengthIPv4Min
	if o.ParseIPv4Options {
		if ihl := int(p.GetIHL()); ihl > hl {
			hl = ihl
		}
		if len(b) < hl {
			return nil, errTruncated("ipv4 options", hl, len(b))
		}
	}

	if o.VerifyChecksums && !checksum.Verify(b[:hl]) {
		return nil, errMismatch("ipv4", p.GetChecksum(), recomputed(b[:hl], 10))
	}

	end := len(b)
	if o.TrimToTotalLength {
		if tl := int(p.GetTotalLen()); tl >= hl && tl < end {
			end = tl
		}
	}

	payload, err := o.DecodeICMPv4Echo(b[hl:end])
	if err != nil {
		return nil, err
	}

	h := &IPv4Header{
		VersionIHL:   b[0],
		TOS:          p.GetTOS(),
		TotalLength:  p.GetTotalLen(),
		ID:           p.GetID(),
		FlagsFragOff: p.GetFlagsFragOff(),
		TTL:          p.GetTTL(),
		Protocol:     p.GetProtocol(),
		Checksum:     p.GetChecksum(),
		Payload:      payload,
	}
	copy(h.SrcAddr[:], b[12:16])
	copy(h.DstAddr[:], b[16:20])
	if hl > LengthIPv4Min {
		h.Options = append([]byte(nil), b[LengthIPv4Min:hl]...)
	}
	return h, nil
}

func (o DecodeOptions) DecodeICMPv4Echo(b []byte) (*ICMPv4Echo, error) {
	m, err := DecodeICMPv4Echo(b)
	if err != nil {
		return nil, err
	}

	if o.VerifyChecksums && !checksum.Verify(b) {
		return nil, errMismatch("icmpv4", m.Checksum, recomputed(b, 2))
	}
	return m, nil
}

// recomputed returns the checksum b should carry at offset off.
func recomputed(b []byte, off int) uint16 {
	c := append([]byte(nil), b...)
	c[off], c[off+1] = 0, 0
	return checksum.TCPIPChecksum(c, 0)
}
