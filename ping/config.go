package ping

import (
	"net"
	"time"

	"github.com/pkg/errors"

	"starPing/layers"
)

// Config describes one ping session. Addresses are resolved by the caller.
type Config struct {
	LocalMAC net.HardwareAddr
	// PeerMAC is the next hop. Empty means broadcast.
	PeerMAC  net.HardwareAddr
	LocalIP  net.IP
	RemoteIP net.IP

	Identifier    uint16
	FirstSequence uint16
	TTL           uint8
	// Options are appended to every IPv4 header, see layers.NewIPv4Header.
	Options []byte

	// Count is the number of probes, 0 sends until the context is done.
	Count    int
	Interval time.Duration
	Timeout  time.Duration

	Decode layers.DecodeOptions
	// AnswerARP replies to ARP requests for LocalIP, needed when nobody else
	// owns LocalIP on the link (TAP devices).
	AnswerARP bool
}

func DefaultConfig() Config {
	return Config{
		Identifier: layers.ProcessIdentifier(),
		TTL:        layers.IPv4DefaultTTL,
		Interval:   time.Second,
		Timeout:    time.Second,
	}
}

func (c *Config) Validate() error {
	if len(c.LocalMAC) != 6 {
		return errors.Errorf("invalid local mac address: %s", c.LocalMAC)
	}
	if len(c.PeerMAC) != 0 && len(c.PeerMAC) != 6 {
		return errors.Errorf("invalid peer mac address: %s", c.PeerMAC)
	}
	if c.LocalIP.To4() == nil {
		return errors.Errorf("invalid local ipv4 address: %s", c.LocalIP)
	}
	if c.RemoteIP.To4() == nil {
		return errors.Errorf("invalid remote ipv4 address: %s", c.RemoteIP)
	}
	if c.Count < 0 {
		return errors.Errorf("invalid count: %d", c.Count)
	}
	if c.Interval < 0 {
		return errors.Errorf("invalid interval: %s", c.Interval)
	}
	if c.Timeout <= 0 {
		return errors.Errorf("invalid timeout: %s", c.Timeout)
	}
	return nil
}
