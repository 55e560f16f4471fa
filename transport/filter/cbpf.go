package filter

import (
	"github.com/pkg/errors"
	"golang.org/x/net/bpf"

	"starPing/layers"
)

// _snapLen is what a matching frame keeps, larger than any frame we read.
const _snapLen = 262144

// EchoReply returns a classic BPF program accepting only ethernet frames that
// carry an ICMP echo reply with the given identifier. The IPv4 header length
// is read from the packet, so replies with options pass too.
func EchoReply(identifier uint16) []bpf.Instruction {
	const (
		offEtherType = 12
		offIPv4      = layers.LengthEthernet
		offProtocol  = offIPv4 + 9
	)

	return []bpf.Instruction{
		bpf.LoadAbsolute{Off: offEtherType, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpNotEqual, Val: uint32(layers.EthernetTypeIPv4), SkipTrue: 8},
		bpf.LoadAbsolute{Off: offProtocol, Size: 1},
		bpf.JumpIf{Cond: bpf.JumpNotEqual, Val: uint32(layers.IPProtocolICMPv4), SkipTrue: 6},
		// X = IHL*4
		bpf.LoadMemShift{Off: offIPv4},
		bpf.LoadIndirect{Off: offIPv4, Size: 1},
		bpf.JumpIf{Cond: bpf.JumpNotEqual, Val: layers.ICMPv4TypeEchoReply, SkipTrue: 3},
		bpf.LoadIndirect{Off: offIPv4 + 4, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpNotEqual, Val: uint32(identifier), SkipTrue: 1},
		bpf.RetConstant{Val: _snapLen},
		bpf.RetConstant{Val: 0},
	}
}

// Assemble converts a program into the form taken by raw.Raw.AttachFilter.
func Assemble(insts []bpf.Instruction) ([]bpf.RawInstruction, error) {
	raw, err := bpf.Assemble(insts)
	if err != nil {
		return nil, errors.Wrap(err, "assemble bpf failed")
	}
	return raw, nil
}
