package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/netsampler/nfrelay/pkg/nfrelay/config"
	"github.com/netsampler/nfrelay/pkg/nfrelay/logging"
	"github.com/netsampler/nfrelay/pkg/nfrelay/relay"

	"github.com/spf13/cobra"
)

var (
	version    = ""
	buildinfos = ""
	AppVersion = "nfrelay " + version + " " + buildinfos
)

func newRootCmd() *cobra.Command {
	var cfg *config.Config
	cmd := &cobra.Command{
		Use:   "nfrelay [bind-address [port [destination [destination-port]]]]",
		Short: "Relay the NAT records of NetFlow v9 and IPFIX exporters to one collector",
		Long: `nfrelay receives NetFlow v9 and IPFIX packets, keeps the records carrying
one of the filter elements (post-NAT addresses by default) and sends them with
their templates to a single collector, keeping the exporter sequence numbers.

Defaults: bind 127.0.0.2 port 2055, destination 127.0.0.1 port 2055.`,
		Version: AppVersion,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.MaximumNArgs(4)(cmd, args); err != nil {
				return err
			}
			return cfg.ParseArgs(args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFmt)
			if err != nil {
				return fmt.Errorf("error parsing log level: %w", err)
			}
			app, err := relay.New(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.Run(ctx)
		},
	}
	cfg = config.BindFlags(cmd.Flags())
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
