package netflow

import (
	"fmt"
)

// Header is the export header shared by NetFlow v9 and IPFIX messages.
// Count is only meaningful for v9 and Length only for IPFIX.
type Header struct {
	Version             uint16 `json:"version"`
	Count               uint16 `json:"count,omitempty"`
	Length              uint16 `json:"length,omitempty"`
	SystemUptime        uint32 `json:"system-uptime,omitempty"`
	ExportTime          uint32 `json:"export-time"`
	SequenceNumber      uint32 `json:"sequence-number"`
	ObservationDomainId uint32 `json:"observation-domain-id"`
}

func (h Header) String() string {
	return fmt.Sprintf("version:%d seq:%d domain:%d", h.Version, h.SequenceNumber, h.ObservationDomainId)
}

// Record is a single decoded data record with the id of the template describing it.
// Scopes is only set for records of options templates.
type Record struct {
	TemplateId uint16      `json:"template-id"`
	Scopes     []DataField `json:"scopes,omitempty"`
	Values     []DataField `json:"values"`
}

// Get returns the first non-enterprise value of an element, searching scopes first.
func (r Record) Get(id Element) ([]byte, bool) {
	for _, fields := range [][]DataField{r.Scopes, r.Values} {
		for _, field := range fields {
			if field.PenProvided || field.Type != uint16(id) {
				continue
			}
			value, _ := field.Value.([]byte)
			return value, true
		}
	}
	return nil, false
}

// Has reports whether the record carries a non-empty value for the element.
func (r Record) Has(id Element) bool {
	value, ok := r.Get(id)
	return ok && len(value) > 0
}

func (r Record) String() string {
	str := fmt.Sprintf("template:%d", r.TemplateId)
	for _, field := range r.Scopes {
		str += fmt.Sprintf(" %s=%v", ElementName(field.Type), field.Value)
	}
	for _, field := range r.Values {
		str += fmt.Sprintf(" %s=%v", ElementName(field.Type), field.Value)
	}
	return str
}

// GetTemplateId returns the id of a template record of any kind.
func GetTemplateId(template interface{}) (uint16, bool) {
	switch templatec := template.(type) {
	case TemplateRecord:
		return templatec.TemplateId, true
	case NFv9OptionsTemplateRecord:
		return templatec.TemplateId, true
	case IPFIXOptionsTemplateRecord:
		return templatec.TemplateId, true
	}
	return 0, false
}
