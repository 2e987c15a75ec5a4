// Package relay wires the receiver, the relay pipe and the collector socket
// into a running process.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/netsampler/nfrelay/metrics"
	"github.com/netsampler/nfrelay/pkg/nfrelay/config"
	"github.com/netsampler/nfrelay/pkg/nfrelay/httpserver"
	"github.com/netsampler/nfrelay/state"
	"github.com/netsampler/nfrelay/transport"
	"github.com/netsampler/nfrelay/transport/udp"
	"github.com/netsampler/nfrelay/utils"
	"github.com/netsampler/nfrelay/utils/debug"
	"github.com/netsampler/nfrelay/utils/templates"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// App relays the filtered records received on one socket to one collector.
type App struct {
	cfg    *config.Config
	logger log.FieldLogger
	filter []string

	persistence *state.TemplateState
	store       *templates.Store
	pipe        *utils.RelayPipe
	transport   *transport.Transport
	receiver    *utils.UDPReceiver
	server      *http.Server

	relaying atomic.Bool
	stopped  atomic.Bool
}

// New resolves the filter, opens the template persistence and connects the
// collector socket. Every error is a startup error.
func New(cfg *config.Config, logger log.FieldLogger) (*App, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}

	names, err := cfg.FilterElements()
	if err != nil {
		return nil, err
	}
	filter, err := utils.NewFilter(names)
	if err != nil {
		return nil, err
	}

	app := &App{
		cfg:    cfg,
		logger: logger,
		filter: names,
	}

	var persistence templates.Persistence
	if cfg.StateTemplates != "" {
		app.persistence, err = state.NewTemplateState(cfg.StateTemplates)
		if err != nil {
			return nil, fmt.Errorf("templates state: %w", err)
		}
		persistence = app.persistence
	}
	app.store = templates.NewStore(persistence, logger)
	metrics.InstrumentStore(app.store)

	driver := udp.New(cfg.Destination, cfg.DestinationPort)
	driver.Source = cfg.Source
	driver.Logger = logger
	app.transport, err = transport.NewTransport("udp", driver)
	if err != nil {
		app.closeState()
		return nil, err
	}

	app.pipe, err = utils.NewRelayPipe(&utils.PipeConfig{
		Store:              app.store,
		Filter:             filter,
		Transport:          app.transport,
		MaxPacketSize:      cfg.MaxPacketSize,
		TemplateResendSecs: uint32(cfg.TemplateResend / time.Second),
		Stats:              metrics.NewPromPipeStats(),
		Logger:             logger,
	})
	if err != nil {
		app.closeOutputs()
		return nil, err
	}
	metrics.InstrumentSelector(app.pipe.Selector())

	app.receiver, err = utils.NewUDPReceiver(&utils.UDPReceiverConfig{
		Sockets:          cfg.Sockets,
		Workers:          cfg.Workers,
		QueueSize:        cfg.QueueSize,
		Blocking:         cfg.Blocking,
		ReceiverCallback: metrics.NewReceiverMetric(),
	})
	if err != nil {
		app.closeOutputs()
		return nil, err
	}

	if cfg.Addr != "" {
		mux := httpserver.New(httpserver.Config{
			Addr:         cfg.Addr,
			TemplatePath: cfg.TemplatePath,
			Logger:       logger,
		}, app.store.GetAll, app.relaying.Load)
		app.server = &http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: time.Second * 5,
		}
	}

	return app, nil
}

// Start binds the receiving sockets.
func (a *App) Start() error {
	decodeFunc := a.pipe.DecodeFlow
	decodeFunc = debug.PanicDecoderWrapper(decodeFunc)
	decodeFunc = metrics.PromDecoderWrapper(decodeFunc, "netflow")

	a.logger.WithFields(log.Fields{
		"bind":        fmt.Sprintf("%s:%d", a.cfg.BindAddress, a.cfg.Port),
		"destination": fmt.Sprintf("%s:%d", a.cfg.Destination, a.cfg.DestinationPort),
		"workers":     a.cfg.Workers,
		"filter":      a.filter,
	}).Info("starting relay")

	if err := a.receiver.Start(a.cfg.BindAddress, a.cfg.Port, decodeFunc); err != nil {
		return err
	}
	a.relaying.Store(true)
	return nil
}

// LocalAddrs returns the addresses of the receiving sockets.
func (a *App) LocalAddrs() []net.Addr {
	return a.receiver.LocalAddrs()
}

// Run starts the relay and blocks until the context is cancelled or the HTTP
// server fails. Errors met while relaying are logged, they never stop Run.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		a.Shutdown(context.Background())
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logErrors(gctx)
		return nil
	})
	if a.server != nil {
		g.Go(func() error {
			err := a.server.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			a.logger.WithField("http", a.cfg.Addr).Info("closed HTTP server")
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		a.Shutdown(shutdownCtx)
		return nil
	})
	return g.Wait()
}

// logErrors reports the errors of the relay loop, muting them when too many
// happen in an interval.
func (a *App) logErrors(ctx context.Context) {
	bm := utils.NewBatchMute(a.cfg.ErrInt, a.cfg.ErrCnt)
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-a.receiver.Errors():
			if errors.Is(err, net.ErrClosed) {
				a.logger.Info("closed receiver")
				continue
			}

			muted, skipped := bm.Increment()
			if muted && skipped == 0 {
				a.logger.Warn("too many relay errors, muting")
			} else if !muted && skipped > 0 {
				a.logger.WithField("count", skipped).Warn("skipped relay errors")
			}
			if muted {
				continue
			}

			var versionErr *utils.VersionError
			var pErrMsg *debug.PanicErrorMessage
			var msgErr *utils.PipeMessageError
			logger := a.logger
			if errors.As(err, &msgErr) {
				logger = logger.WithField("src", msgErr.Message.Src.String())
			}
			switch {
			case errors.As(err, &versionErr):
				logger.WithField("version", versionErr.Version).Info("ignored")
			case errors.As(err, &pErrMsg):
				logger.WithFields(log.Fields{
					"error":      pErrMsg.Error(),
					"stacktrace": string(pErrMsg.Stacktrace),
				}).Error("intercepted panic")
			default:
				logger.WithError(err).Warn("relay error")
			}
		}
	}
}

// Shutdown stops the receiver then closes the collector socket, the template
// persistence and the HTTP server. It can be called more than once.
func (a *App) Shutdown(ctx context.Context) {
	if a.stopped.Swap(true) {
		return
	}
	a.relaying.Store(false)

	if err := a.receiver.Stop(); err != nil {
		a.logger.WithError(err).Error("error stopping receiver")
	}
	if err := a.pipe.Close(); err != nil {
		a.logger.WithError(err).Error("error saving templates")
	}
	a.closeOutputs()
	a.logger.Info("relay stopped")

	if a.server == nil {
		return
	}
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.WithError(err).Error("error shutting-down HTTP server")
	}
}

func (a *App) closeOutputs() {
	if err := a.transport.Close(); err != nil {
		a.logger.WithError(err).Error("error closing transport")
	}
	a.closeState()
}

func (a *App) closeState() {
	if a.persistence == nil {
		return
	}
	if err := a.persistence.Close(); err != nil {
		a.logger.WithError(err).Error("error closing templates state")
	}
}
