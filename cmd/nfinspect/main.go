package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/netsampler/nfrelay/format"
	_ "github.com/netsampler/nfrelay/format/json"
	_ "github.com/netsampler/nfrelay/format/text"
	"github.com/netsampler/nfrelay/pkg/nfrelay/logging"
	"github.com/netsampler/nfrelay/utils"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type options struct {
	pcap     string
	listen   string
	port     int
	format   string
	filtered bool
	filter   []string
	logLevel string
}

// printer renders inspected packets on an output, one per line.
type printer struct {
	out       io.Writer
	formatter format.FormatInterface
	inspector *Inspector
	logger    log.FieldLogger
}

func (p *printer) handle(src netip.AddrPort, payload []byte) {
	msg, err := p.inspector.Inspect(src, payload)
	if err != nil {
		entry := p.logger.WithError(err).WithField("src", src.String())
		if errors.Is(err, utils.ErrUnsupportedVersion) || msg == nil {
			entry.Warn("ignored")
			return
		}
		entry.Warn("partially decoded")
	}
	_, text, err := p.formatter.Format(msg)
	if err != nil {
		p.logger.WithError(err).Error("error formatting")
		return
	}
	fmt.Fprintln(p.out, strings.TrimRight(string(text), "\n"))
}

// readPcap inspects the UDP payloads of a capture file, optionally only those
// sent to port.
func readPcap(path string, port int, p *printer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	r, err := pcapgo.NewReader(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	source := gopacket.NewPacketSource(r, r.LinkType())
	for packet := range source.Packets() {
		udpLayer, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if !ok {
			continue
		}
		if port != 0 && int(udpLayer.DstPort) != port {
			continue
		}
		var srcIP net.IP
		switch network := packet.NetworkLayer().(type) {
		case *layers.IPv4:
			srcIP = network.SrcIP
		case *layers.IPv6:
			srcIP = network.SrcIP
		default:
			continue
		}
		addr, _ := netip.AddrFromSlice(srcIP)
		p.handle(netip.AddrPortFrom(addr.Unmap(), uint16(udpLayer.SrcPort)), udpLayer.Payload)
	}
	return nil
}

// listen inspects the packets received on addr until ctx is done.
func listen(ctx context.Context, addr string, p *printer) error {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port %q", portStr)
	}
	recv, err := utils.NewUDPReceiver(&utils.UDPReceiverConfig{Workers: 1, Blocking: true})
	if err != nil {
		return err
	}
	if err := recv.Start(host, port, func(msg interface{}) error {
		pkt := msg.(*utils.Message)
		p.handle(pkt.Src, pkt.Payload)
		return nil
	}); err != nil {
		return err
	}
	p.logger.WithField("listen", addr).Info("inspecting packets")
	<-ctx.Done()
	return recv.Stop()
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "nfinspect",
		Short: "Print decoded NetFlow v5, v9 and IPFIX packets from a capture or a socket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (opts.pcap == "") == (opts.listen == "") {
				return fmt.Errorf("one of --pcap or --listen is required")
			}
			cmd.SilenceUsage = true

			logger, err := logging.NewLogger(opts.logLevel, "normal")
			if err != nil {
				return err
			}
			formatter, err := format.FindFormat(opts.format)
			if err != nil {
				return err
			}
			var filter *utils.Filter
			if opts.filtered {
				if filter, err = utils.NewFilter(opts.filter); err != nil {
					return err
				}
			}
			p := &printer{
				out:       cmd.OutOrStdout(),
				formatter: formatter,
				inspector: NewInspector(filter, logger),
				logger:    logger,
			}

			if opts.pcap != "" {
				return readPcap(opts.pcap, opts.port, p)
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return listen(ctx, opts.listen, p)
		},
	}
	cmd.Flags().StringVar(&opts.pcap, "pcap", "", "Capture file to read")
	cmd.Flags().StringVar(&opts.listen, "listen", "", "Address to receive packets on (host:port)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "Only inspect captured packets sent to this port (0 for any)")
	cmd.Flags().StringVar(&opts.format, "format", "text", fmt.Sprintf("Output format (available: %s)", strings.Join(format.GetFormats(), ", ")))
	cmd.Flags().BoolVar(&opts.filtered, "filtered", false, "Print only the records the relay would forward")
	cmd.Flags().StringSliceVar(&opts.filter, "filter", utils.DefaultFilterElements, "Elements making a record forwardable, with --filtered")
	cmd.Flags().StringVar(&opts.logLevel, "loglevel", "warning", "Log level")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
