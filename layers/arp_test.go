package layers

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestARP_GetAll(t *testing.T) {
	p := []byte{
		0x00, 0x01, 0x08, 0x00, 0x06, 0x04, 0x00, 0x01,
		0x02, 0x00, 0x00, 0x00, 0x00, 0x01, 192, 168, 1, 1,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 192, 168, 1, 2,
	}
	arp := ARP(p)
	assert.Equal(t, LinkTypeEthernet, arp.GetLinkType())
	assert.Equal(t, EthernetTypeIPv4, arp.GetProtocolType())
	assert.Equal(t, uint8(6), arp.GetLinkAddressLength())
	assert.Equal(t, uint8(4), arp.GetProtocolAddressLength())
	assert.Equal(t, ARPRequest, arp.GetOpCode())
	assert.True(t, arp.IsEthernetIPv4())
	assert.Equal(t, "02:00:00:00:00:01", arp.GetSenderHardwareAddr().String())
	assert.Equal(t, "192.168.1.1", arp.GetSenderProtocolAddr().String())
	assert.Equal(t, "192.168.1.2", arp.GetTargetProtocolAddr().String())

	short := ARP(p[:LengthARP])
	assert.False(t, short.IsEthernetIPv4())
}

func TestARP_SetAll(t *testing.T) {
	p := make([]byte, LengthARPIPv4)

	arp := ARP(p)
	arp.SetLinkType(LinkTypeEthernet)
	arp.SetProtocolType(EthernetTypeIPv4)
	arp.SetLinkAddressLength(6)
	arp.SetProtocolAddressLength(4)
	arp.SetOpCode(ARPReply)
	arp.SetSenderHardwareAddr(net.HardwareAddr{0x02, 0, 0, 0, 0, 2})
	arp.SetSenderProtocolAddr(net.IPv4(10, 0, 0, 2))
	arp.SetTargetHardwareAddr(net.HardwareAddr{0x02, 0, 0, 0, 0, 1})
	arp.SetTargetProtocolAddr(net.IPv4(10, 0, 0, 1))

	assert.Equal(t, []byte{
		0x00, 0x01, 0x08, 0x00, 0x06, 0x04, 0x00, 0x02,
		0x02, 0x00, 0x00, 0x00, 0x00, 0x02, 10, 0, 0, 2,
		0x02, 0x00, 0x00, 0x00, 0x00, 0x01, 10, 0, 0, 1,
	}, p)
}
