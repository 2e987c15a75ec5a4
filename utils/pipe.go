// Package utils provides the relay pipeline and its UDP receiver.
package utils

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/netsampler/nfrelay/decoders/netflow"
	"github.com/netsampler/nfrelay/transport"
	"github.com/netsampler/nfrelay/utils/templates"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

// RelayReport describes what happened to one received message.
type RelayReport struct {
	Session       string
	Version       uint16
	Records       int
	Forwarded     int
	Packets       int
	Bytes         int
	SendErrors    int
	Missing       int64
	SequenceReset bool
}

// PipeStats receives a report for every message that reached the decoder.
type PipeStats interface {
	Relayed(report *RelayReport)
}

// PipeConfig wires the relay pipe dependencies.
type PipeConfig struct {
	Store     *templates.Store
	Selector  *templates.Selector // created from Store when nil
	Filter    *Filter
	Transport transport.TransportInterface

	MaxPacketSize      int
	TemplateResendSecs uint32
	Clock              clock.Clock // wall clock when nil

	Tracker *SequenceTracker
	Stats   PipeStats
	Logger  logrus.FieldLogger
}

// RelayPipe re-encodes the filtered records of NetFlow v9 and IPFIX messages
// and sends them to a single collector.
type RelayPipe struct {
	store     *templates.Store
	selector  *templates.Selector
	filter    *Filter
	transport transport.TransportInterface
	tracker   *SequenceTracker
	stats     PipeStats
	logger    logrus.FieldLogger

	maxPacketSize int
	closed        atomic.Bool

	// the export state numbers one outgoing stream
	exportLock *sync.Mutex
	export     *netflow.ExportState
}

// ErrPipeClosed is returned for messages received after Close.
var ErrPipeClosed = errors.New("relay pipe closed")

// PipeMessageError wraps a relay error with source message metadata.
type PipeMessageError struct {
	Message *Message
	Err     error
}

func (e *PipeMessageError) Error() string {
	return fmt.Sprintf("message from %s %s", e.Message.Src.String(), e.Err.Error())
}

func (e *PipeMessageError) Unwrap() error {
	return e.Err
}

func NewRelayPipe(cfg *PipeConfig) (*RelayPipe, error) {
	if cfg.Store == nil || cfg.Filter == nil || cfg.Transport == nil {
		return nil, fmt.Errorf("relay pipe needs a store, a filter and a transport")
	}
	p := &RelayPipe{
		store:         cfg.Store,
		selector:      cfg.Selector,
		filter:        cfg.Filter,
		transport:     cfg.Transport,
		tracker:       cfg.Tracker,
		stats:         cfg.Stats,
		logger:        cfg.Logger,
		maxPacketSize: cfg.MaxPacketSize,
		exportLock:    &sync.Mutex{},
		export:        netflow.NewExportState(cfg.TemplateResendSecs, cfg.Clock),
	}
	if p.selector == nil {
		p.selector = templates.NewSelector(cfg.Store)
	}
	if p.tracker == nil {
		p.tracker = NewSequenceTracker(DefaultMaxNegativeSequenceDifference)
	}
	if p.logger == nil {
		p.logger = logrus.StandardLogger()
	}
	if p.maxPacketSize <= 0 {
		p.maxPacketSize = netflow.DefaultMaxPacketSize
	}
	return p, nil
}

// Selector returns the output template cache.
func (p *RelayPipe) Selector() *templates.Selector {
	return p.selector
}

// DecodeFlow relays a *Message. Every error is scoped to the message:
// the records that could be decoded and encoded are still sent.
func (p *RelayPipe) DecodeFlow(msg interface{}) error {
	pkt, ok := msg.(*Message)
	if !ok {
		return fmt.Errorf("flow is not *Message")
	}
	if p.closed.Load() {
		return &PipeMessageError{pkt, ErrPipeClosed}
	}

	version, err := PacketVersion(pkt.Payload)
	if err != nil {
		return &PipeMessageError{pkt, err}
	}
	// NetFlow v5 has a session key but is not relayed
	if version != 9 && version != 10 {
		return &PipeMessageError{pkt, &VersionError{version}}
	}

	key, err := IdentifySession(pkt.Payload, pkt.Src)
	if err != nil {
		return &PipeMessageError{pkt, err}
	}
	session := key.String()

	header, records, errs := p.store.DecodeAndUpdate(session, pkt.Payload)
	report := &RelayReport{
		Session: session,
		Version: version,
		Records: len(records),
	}
	if len(errs) == 0 {
		report.Missing, report.SequenceReset = p.tracker.Track(session, header, len(records))
	}

	forwardable := p.filter.Apply(records)
	report.Forwarded = len(forwardable)
	if len(forwardable) > 0 {
		for _, record := range forwardable {
			if _, err := p.selector.Resolve(session, record); err != nil {
				errs = append(errs, err)
			}
		}
		errs = append(errs, p.relay(session, header, forwardable, report)...)
	}

	if p.stats != nil {
		p.stats.Relayed(report)
	}
	if len(errs) > 0 {
		return &PipeMessageError{pkt, errors.Join(errs...)}
	}
	return nil
}

// relay encodes and sends the records with the output templates of the session.
func (p *RelayPipe) relay(session string, header netflow.Header, records []netflow.Record, report *RelayReport) []error {
	var errs []error

	p.exportLock.Lock()
	defer p.exportLock.Unlock()

	state := PrepareOutputHeader(header, p.export)
	packets, err := netflow.Encode(state, p.selector.Templates(session), records, p.maxPacketSize)
	if err != nil {
		errs = append(errs, err)
	}
	for _, packet := range packets {
		if err := p.transport.Send(nil, packet); err != nil {
			report.SendErrors++
			errs = append(errs, err)
			continue
		}
		report.Packets++
		report.Bytes += len(packet)
	}

	p.logger.WithFields(logrus.Fields{
		"session":  session,
		"sequence": header.SequenceNumber,
		"records":  len(records),
		"packets":  report.Packets,
	}).Debug("relayed")
	return errs
}

// Close stops relaying and saves the templates of every session so that a
// restarted relay decodes data sets without waiting for new templates.
func (p *RelayPipe) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.store.Flush()
}
