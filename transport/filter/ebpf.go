package filter

import (
	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/asm"
	"github.com/pkg/errors"

	"starPing/layers"
)

// EchoReplyInstructions is the eBPF version of EchoReply. It only accepts
// IPv4 headers without options, which is what every echo reply we expect
// looks like.
func EchoReplyInstructions(identifier uint16) asm.Instructions {
	const (
		offIPv4     = layers.LengthEthernet
		offProtocol = offIPv4 + 9
		offICMPv4   = offIPv4 + layers.LengthIPv4Min
	)

	// LoadAbs 需要 R6 指向 skb，结果按网络序转换后放在 R0
	return asm.Instructions{
		asm.Mov.Reg(asm.R6, asm.R1),
		asm.LoadAbs(12, asm.Half),
		asm.JNE.Imm(asm.R0, int32(layers.EthernetTypeIPv4), "drop"),
		asm.LoadAbs(offIPv4, asm.Byte),
		asm.JNE.Imm(asm.R0, 0x45, "drop"),
		asm.LoadAbs(offProtocol, asm.Byte),
		asm.JNE.Imm(asm.R0, int32(layers.IPProtocolICMPv4), "drop"),
		asm.LoadAbs(offICMPv4, asm.Byte),
		asm.JNE.Imm(asm.R0, layers.ICMPv4TypeEchoReply, "drop"),
		asm.LoadAbs(offICMPv4+4, asm.Half),
		asm.JNE.Imm(asm.R0, int32(identifier), "drop"),
		asm.Mov.Imm(asm.R0, _snapLen),
		asm.Return(),
		asm.Mov.Imm(asm.R0, 0).Sym("drop"),
		asm.Return(),
	}
}

// NewEchoReplyProgram loads EchoReplyInstructions as a socket filter. The
// caller attaches it with raw.Raw.AttachProgram and closes it afterwards.
func NewEchoReplyProgram(identifier uint16) (*ebpf.Program, error) {
	prog, err := ebpf.NewProgram(&ebpf.ProgramSpec{
		Name:         "echo_reply",
		Type:         ebpf.SocketFilter,
		License:      "GPL",
		Instructions: EchoReplyInstructions(identifier),
	})
	if err != nil {
		return nil, errors.Wrap(err, "load echo reply program failed")
	}
	return prog, nil
}
