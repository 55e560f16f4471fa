package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"starPing/layers"
	"starPing/ping"
	"starPing/transport/raw"
	"starPing/transport/tap"
	"starPing/utils/iface"
)

func main() {
	interfaceName := flag.String("interface", "", "interface to answer on")
	tapName := flag.String("tap", "", "tap device to answer on, instead of -interface")
	localIP := flag.String("ip", "", "ipv4 address to answer for")
	localMAC := flag.String("mac", "", "mac address to answer with, the interface address by default, required with -tap")
	ttl := flag.Uint("ttl", layers.IPv4DefaultTTL, "ipv4 time to live of the replies")
	strict := flag.Bool("strict", false, "only answer requests with valid checksums")
	inPlace := flag.Bool("inplace", false, "rewrite requests into replies in place, without decoding")
	verbose := flag.Bool("v", false, "log every reply")
	flag.Parse()

	log.SetOutput(os.Stdout)
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	r := &ping.Responder{
		IP:        net.ParseIP(*localIP).To4(),
		TTL:       uint8(*ttl),
		AnswerARP: true,
	}
	if r.IP == nil {
		panic(fmt.Errorf("parse ip failed: %s", *localIP))
	}
	if *strict {
		r.Decode = layers.Strict
	}

	var err error
	if *localMAC != "" {
		r.MAC, err = net.ParseMAC(*localMAC)
		if err != nil {
			panic(err)
		}
	}

	var link io.ReadWriteCloser
	switch {
	case *tapName != "":
		if r.MAC == nil {
			panic(errors.New("-mac is required with -tap"))
		}
		link, err = tap.Open(*tapName)
		if err != nil {
			panic(err)
		}
	case *interfaceName != "":
		i, err := iface.Lookup(*interfaceName)
		if err != nil {
			panic(err)
		}
		if r.MAC == nil {
			r.MAC = i.HardwareAddr
		}
		// ARP也要收，所以是ETH_P_ALL
		s, err := raw.New(i.Index, unix.ETH_P_ALL, nil)
		if err != nil {
			panic(err)
		}
		if err = s.SetReadTimeout(time.Second); err != nil {
			panic(err)
		}
		link = s
	default:
		panic(errors.New("one of -interface and -tap is required"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGINT)
	go func() {
		<-sc
		cancel()
		_ = link.Close()
	}()

	log.Infof("answering echo requests for %s (%s)", r.IP, r.MAC)
	if *inPlace {
		err = serveInPlace(ctx, r, link)
	} else {
		err = r.Serve(ctx, link)
	}
	if err != nil {
		panic(err)
	}
}

// serveInPlace 不解码，直接在读缓冲区里把请求改成应答
func serveInPlace(ctx context.Context, r *ping.Responder, link io.ReadWriter) error {
	buf := make([]byte, 9000)
	for {
		n, err := link.Read(buf)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if t, ok := errors.Cause(err).(interface{ Timeout() bool }); ok && t.Timeout() {
				continue
			}
			return err
		}

		frame := buf[:n]
		if !r.Rewrite(frame) {
			reply, ok := r.ReplyARP(frame)
			if !ok {
				continue
			}
			frame = reply
		}

		if _, err = link.Write(frame); err != nil {
			return errors.Wrap(err, "write reply failed")
		}
	}
}
