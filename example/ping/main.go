package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cilium/ebpf/rlimit"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"starPing/layers"
	"starPing/ping"
	"starPing/transport/filter"
	"starPing/transport/raw"
	"starPing/transport/tap"
	"starPing/utils/iface"
)

// 回环的读超时，Run结束后接收协程最多再阻塞这么久
const _readTimeout = 200 * time.Millisecond

func main() {
	interfaceName := flag.String("interface", "", "interface to send the echo requests on")
	tapName := flag.String("tap", "", "tap device to send the echo requests on, instead of -interface")
	dst := flag.String("dst", "", "ipv4 address to ping")
	src := flag.String("src", "", "source ipv4 address, the interface address by default, required with -tap")
	localMAC := flag.String("mac", "02:00:00:00:00:01", "source mac address, only used with -tap")
	peerMAC := flag.String("peer-mac", "", "next hop mac address, resolved from the neighbour table by default")
	count := flag.Int("count", 0, "stop after sending count requests, 0 means never")
	interval := flag.Duration("interval", time.Second, "wait interval between requests")
	timeout := flag.Duration("timeout", time.Second, "time to wait for each reply")
	ttl := flag.Uint("ttl", layers.IPv4DefaultTTL, "ipv4 time to live")
	options := flag.String("options", "", "ipv4 options in hex, padded to 4 bytes")
	strict := flag.Bool("strict", false, "verify checksums and parse ipv4 options of replies")
	filterType := flag.String("filter", "cbpf", "kernel filter for replies with -interface: none, cbpf or ebpf")
	verbose := flag.Bool("v", false, "print ignored frames and decode failures")
	flag.Parse()

	log.SetOutput(os.Stdout)
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg := ping.DefaultConfig()
	cfg.RemoteIP = net.ParseIP(*dst).To4()
	if cfg.RemoteIP == nil {
		panic(fmt.Errorf("parse dst ip failed: %s", *dst))
	}
	if *src != "" {
		cfg.LocalIP = net.ParseIP(*src).To4()
		if cfg.LocalIP == nil {
			panic(fmt.Errorf("parse src ip failed: %s", *src))
		}
	}
	if *ttl == 0 || *ttl > 255 {
		panic(fmt.Errorf("invalid ttl: %d", *ttl))
	}
	cfg.TTL = uint8(*ttl)
	cfg.Count = *count
	cfg.Interval = *interval
	cfg.Timeout = *timeout
	if *strict {
		cfg.Decode = layers.Strict
	}

	var err error
	if *options != "" {
		cfg.Options, err = hex.DecodeString(*options)
		if err != nil {
			panic(errors.Wrap(err, "parse options failed"))
		}
	}
	if *peerMAC != "" {
		cfg.PeerMAC, err = net.ParseMAC(*peerMAC)
		if err != nil {
			panic(err)
		}
	}

	var link io.ReadWriteCloser
	switch {
	case *tapName != "":
		link = openTap(*tapName, *localMAC, &cfg)
	case *interfaceName != "":
		link = openRaw(*interfaceName, *filterType, &cfg)
	default:
		panic(errors.New("one of -interface and -tap is required"))
	}
	defer link.Close()

	p, err := ping.New(link, cfg)
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGINT)
	go func() {
		<-sc
		cancel()
	}()

	fmt.Printf("PING %s from %s: %d data bytes\n", cfg.RemoteIP, cfg.LocalIP, layers.LengthEchoTimestamp)
	stats, err := p.Run(ctx, func(r *ping.Result) {
		if r.Status == ping.Replied {
			log.Info(r.String())
		} else {
			log.Warn(r.String())
		}
	})
	if err != nil {
		log.Errorf("ping stopped: %v", err)
	}

	fmt.Printf("--- %s ping statistics ---\n%s\n", cfg.RemoteIP, stats)
}

func openTap(name, localMAC string, cfg *ping.Config) io.ReadWriteCloser {
	t, err := tap.Open(name)
	if err != nil {
		panic(err)
	}

	if cfg.LocalIP == nil {
		panic(errors.New("-src is required with -tap"))
	}
	cfg.LocalMAC, err = net.ParseMAC(localMAC)
	if err != nil {
		panic(err)
	}
	// tap对端就是内核协议栈
	if cfg.PeerMAC == nil {
		cfg.PeerMAC = t.HardwareAddr()
	}
	cfg.AnswerARP = true

	return t
}

func openRaw(name, filterType string, cfg *ping.Config) io.ReadWriteCloser {
	i, err := iface.Lookup(name)
	if err != nil {
		panic(err)
	}

	cfg.LocalMAC = i.HardwareAddr
	if cfg.LocalIP == nil {
		if i.IPv4 == nil {
			panic(fmt.Errorf("interface %s has no ipv4 address, use -src", name))
		}
		cfg.LocalIP = i.IPv4
	}
	if cfg.PeerMAC == nil {
		cfg.PeerMAC, err = iface.Neighbor(i.Index, cfg.RemoteIP)
		if err != nil {
			log.Warnf("%v, use broadcast", err)
		}
	}

	r, err := raw.New(i.Index, unix.ETH_P_IP, nil)
	if err != nil {
		panic(err)
	}
	if err = r.SetReadTimeout(_readTimeout); err != nil {
		panic(err)
	}

	switch filterType {
	case "none":
	case "cbpf":
		prog, err := filter.Assemble(filter.EchoReply(cfg.Identifier))
		if err != nil {
			panic(err)
		}
		if err = r.AttachFilter(prog); err != nil {
			panic(err)
		}
	case "ebpf":
		if len(cfg.Options) != 0 {
			log.Warn("ebpf filter drops replies carrying ipv4 options")
		}
		if err = rlimit.RemoveMemlock(); err != nil {
			panic(err)
		}
		prog, err := filter.NewEchoReplyProgram(cfg.Identifier)
		if err != nil {
			panic(err)
		}
		// 挂载后socket持有程序的引用，可以直接关闭
		defer prog.Close()
		if err = r.AttachProgram(prog.FD()); err != nil {
			panic(err)
		}
	default:
		panic(fmt.Errorf("unknown filter: %s", filterType))
	}

	return r
}
