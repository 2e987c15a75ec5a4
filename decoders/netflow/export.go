package netflow

import (
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultTemplateResendSecs is how often templates are sent again to the collector.
const DefaultTemplateResendSecs = 60

// ExportState is the state carried by an exporter between two encoded messages:
// the header of the next message and the templates already sent.
// It is not safe for concurrent use.
type ExportState struct {
	Header

	// TemplateResendSecs is the interval after which a template is sent again.
	// Zero sends templates with every message.
	TemplateResendSecs uint32

	clock clock.Clock
	sent  map[uint64]sentTemplate
}

type sentTemplate struct {
	at  time.Time
	raw string
}

// NewExportState creates an export state. A nil clock uses the wall clock.
func NewExportState(templateResendSecs uint32, clk clock.Clock) *ExportState {
	if clk == nil {
		clk = clock.New()
	}
	return &ExportState{
		TemplateResendSecs: templateResendSecs,
		clock:              clk,
		sent:               make(map[uint64]sentTemplate),
	}
}

// SetHeader replaces the header of the next message and keeps the template bookkeeping.
func (s *ExportState) SetHeader(header Header) {
	if s.sent == nil || (s.Version != 0 && s.Version != header.Version) {
		s.sent = make(map[uint64]sentTemplate)
	}
	s.Header = header
}

func (s *ExportState) now() time.Time {
	if s.clock == nil {
		s.clock = clock.New()
	}
	return s.clock.Now()
}

func templateKey(version uint16, obsDomainId uint32, templateId uint16) uint64 {
	return (uint64(version) << 48) | (uint64(obsDomainId) << 16) | uint64(templateId)
}

// templateDue tells whether a template must be part of the next message: it was never
// sent for this observation domain, it changed, or the resend interval elapsed.
func (s *ExportState) templateDue(templateId uint16, raw []byte, now time.Time) bool {
	sent, ok := s.sent[templateKey(s.Version, s.ObservationDomainId, templateId)]
	if !ok || sent.raw != string(raw) {
		return true
	}
	return now.Sub(sent.at) >= time.Duration(s.TemplateResendSecs)*time.Second
}

func (s *ExportState) markSent(templateId uint16, raw []byte, now time.Time) {
	if s.sent == nil {
		s.sent = make(map[uint64]sentTemplate)
	}
	s.sent[templateKey(s.Version, s.ObservationDomainId, templateId)] = sentTemplate{
		at:  now,
		raw: string(raw),
	}
}
