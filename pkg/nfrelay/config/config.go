// Package config holds the relay command line configuration.
package config

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/netsampler/nfrelay/decoders/netflow"
	"github.com/netsampler/nfrelay/state"
	"github.com/netsampler/nfrelay/utils"

	"github.com/spf13/pflag"
)

const (
	DefaultBindAddress     = "127.0.0.2"
	DefaultPort            = 2055
	DefaultDestination     = "127.0.0.1"
	DefaultDestinationPort = 2055
)

// Config holds configuration for the relay.
type Config struct {
	BindAddress     string
	Port            int
	Destination     string
	DestinationPort int
	Source          string

	LogLevel string
	LogFmt   string

	Filter     []string
	FilterFile string

	MaxPacketSize  int
	TemplateResend time.Duration

	Sockets   int
	Workers   int
	QueueSize int
	Blocking  bool

	ErrCnt int
	ErrInt time.Duration

	StateTemplates string

	Addr         string
	TemplatePath string
}

// BindFlags registers configuration flags and returns a Config with the
// positional defaults set.
func BindFlags(fs *pflag.FlagSet) *Config {
	cfg := &Config{
		BindAddress:     DefaultBindAddress,
		Port:            DefaultPort,
		Destination:     DefaultDestination,
		DestinationPort: DefaultDestinationPort,
	}

	fs.StringVar(&cfg.LogLevel, "loglevel", "info", "Log level")
	fs.StringVar(&cfg.LogFmt, "logfmt", "normal", "Log formatter (normal or json)")
	fs.StringSliceVar(&cfg.Filter, "filter", utils.DefaultFilterElements, "Elements making a record forwardable (names or ids)")
	fs.StringVar(&cfg.FilterFile, "filter.file", "", "YAML file listing the elements making a record forwardable")
	fs.StringVar(&cfg.Source, "source", "", "Local address of the sending socket")
	fs.IntVar(&cfg.MaxPacketSize, "max-packet-size", netflow.DefaultMaxPacketSize, "Maximum size of a relayed packet")
	fs.DurationVar(&cfg.TemplateResend, "template.resend", time.Second*netflow.DefaultTemplateResendSecs, "Interval between two sends of a template")
	fs.IntVar(&cfg.Sockets, "sockets", 1, "Number of receiving sockets")
	fs.IntVar(&cfg.Workers, "workers", 1, "Number of relay workers, an exporter is always handled by the same worker")
	fs.IntVar(&cfg.QueueSize, "queue-size", 10000, "Packets queued per worker")
	fs.BoolVar(&cfg.Blocking, "blocking", false, "Block reading when the worker queue is full instead of dropping")
	fs.IntVar(&cfg.ErrCnt, "err.cnt", 10, "Maximum errors per batch for muting")
	fs.DurationVar(&cfg.ErrInt, "err.int", time.Second*10, "Maximum errors interval for muting")
	fs.StringVar(&cfg.StateTemplates, "state.templates", "memory://", fmt.Sprintf("Templates persistence URL (available schemes: %s)", strings.Join(state.SupportedSchemes, ", ")))
	fs.StringVar(&cfg.Addr, "metrics.addr", "", "HTTP server address for metrics, empty disables it")
	fs.StringVar(&cfg.TemplatePath, "templates.path", "/templates", "NetFlow/IPFIX templates list")

	return cfg
}

func parsePort(arg string) (int, error) {
	port, err := strconv.ParseUint(arg, 10, 16)
	if err != nil || port == 0 {
		return 0, fmt.Errorf("invalid port %q", arg)
	}
	return int(port), nil
}

func parseAddress(arg string) (string, error) {
	if _, err := netip.ParseAddr(arg); err != nil {
		return "", fmt.Errorf("invalid address %q", arg)
	}
	return arg, nil
}

// ParseArgs reads the positional arguments
// [bind-address [port [destination [destination-port]]]].
func (cfg *Config) ParseArgs(args []string) error {
	if len(args) > 4 {
		return fmt.Errorf("too many arguments: %d", len(args))
	}
	var err error
	if len(args) > 0 {
		if cfg.BindAddress, err = parseAddress(args[0]); err != nil {
			return err
		}
	}
	if len(args) > 1 {
		if cfg.Port, err = parsePort(args[1]); err != nil {
			return err
		}
	}
	if len(args) > 2 {
		if cfg.Destination, err = parseAddress(args[2]); err != nil {
			return err
		}
	}
	if len(args) > 3 {
		if cfg.DestinationPort, err = parsePort(args[3]); err != nil {
			return err
		}
	}
	return nil
}

// FilterElements returns the filter file elements when set, the filter flag otherwise.
func (cfg *Config) FilterElements() ([]string, error) {
	if cfg.FilterFile != "" {
		return utils.LoadFilterFile(cfg.FilterFile)
	}
	return cfg.Filter, nil
}
