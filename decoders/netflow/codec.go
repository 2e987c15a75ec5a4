package netflow

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/netsampler/goflow2/v2/decoders/netflow"
)

// Wire types are the ones of the goflow2 decoder.
type (
	FlowSetHeader              = netflow.FlowSetHeader
	Field                      = netflow.Field
	DataField                  = netflow.DataField
	TemplateRecord             = netflow.TemplateRecord
	NFv9OptionsTemplateRecord  = netflow.NFv9OptionsTemplateRecord
	IPFIXOptionsTemplateRecord = netflow.IPFIXOptionsTemplateRecord
	DecoderError               = netflow.DecoderError
	FlowError                  = netflow.FlowError
)

// Set ids of template and options template sets.
const (
	NFv9TemplateSetId         uint16 = 0
	NFv9OptionsTemplateSetId  uint16 = 1
	IPFIXTemplateSetId        uint16 = 2
	IPFIXOptionsTemplateSetId uint16 = 3
)

var (
	ErrorTemplateNotFound = netflow.ErrorTemplateNotFound
	ErrorTruncated        = fmt.Errorf("truncated message")
)

// templateList is a template system holding the templates of a single exporter
// session, keyed by template id only.
type templateList struct {
	templates     map[uint16]interface{}
	templateslock *sync.RWMutex
}

var _ netflow.NetFlowTemplateSystem = &templateList{}

func newTemplateList(templates []interface{}) *templateList {
	ts := &templateList{
		templates:     make(map[uint16]interface{}, len(templates)),
		templateslock: &sync.RWMutex{},
	}
	for _, template := range templates {
		if templateId, ok := GetTemplateId(template); ok {
			ts.templates[templateId] = template
		}
	}
	return ts
}

// AddTemplate stores a template. Templates without fields are ignored: the
// known ones are never withdrawn and a data set cannot be read with them.
func (ts *templateList) AddTemplate(version uint16, obsDomainId uint32, templateId uint16, template interface{}) error {
	template = normalizeTemplate(template)
	if templateFieldCount(template) == 0 {
		return nil
	}
	ts.templateslock.Lock()
	ts.templates[templateId] = template
	ts.templateslock.Unlock()
	return nil
}

func (ts *templateList) GetTemplate(version uint16, obsDomainId uint32, templateId uint16) (interface{}, error) {
	ts.templateslock.RLock()
	defer ts.templateslock.RUnlock()
	if template, ok := ts.templates[templateId]; ok {
		return template, nil
	}
	return nil, ErrorTemplateNotFound
}

func (ts *templateList) RemoveTemplate(version uint16, obsDomainId uint32, templateId uint16) (interface{}, error) {
	ts.templateslock.Lock()
	defer ts.templateslock.Unlock()
	if template, ok := ts.templates[templateId]; ok {
		delete(ts.templates, templateId)
		return template, nil
	}
	return nil, ErrorTemplateNotFound
}

// list returns the templates ordered by template id.
func (ts *templateList) list() []interface{} {
	ts.templateslock.RLock()
	defer ts.templateslock.RUnlock()
	ids := make([]int, 0, len(ts.templates))
	for templateId := range ts.templates {
		ids = append(ids, int(templateId))
	}
	sort.Ints(ids)
	templates := make([]interface{}, len(ids))
	for i, templateId := range ids {
		templates[i] = ts.templates[uint16(templateId)]
	}
	return templates
}

// normalizeFields drops the enterprise bit the decoder leaves in the type of
// IPFIX fields carrying an enterprise number.
func normalizeFields(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	normalized := make([]Field, len(fields))
	for i, field := range fields {
		if field.PenProvided {
			field.Type &^= 0x8000
		}
		normalized[i] = field
	}
	return normalized
}

func normalizeTemplate(template interface{}) interface{} {
	switch templatec := template.(type) {
	case TemplateRecord:
		templatec.Fields = normalizeFields(templatec.Fields)
		return templatec
	case NFv9OptionsTemplateRecord:
		templatec.Scopes = normalizeFields(templatec.Scopes)
		templatec.Options = normalizeFields(templatec.Options)
		return templatec
	case IPFIXOptionsTemplateRecord:
		templatec.Scopes = normalizeFields(templatec.Scopes)
		templatec.Options = normalizeFields(templatec.Options)
		return templatec
	}
	return template
}

func templateFieldCount(template interface{}) int {
	switch templatec := template.(type) {
	case TemplateRecord:
		return len(templatec.Fields)
	case NFv9OptionsTemplateRecord:
		return len(templatec.Scopes) + len(templatec.Options)
	case IPFIXOptionsTemplateRecord:
		return len(templatec.Scopes) + len(templatec.Options)
	}
	return 0
}

// Decode decodes a NetFlow v9 or IPFIX message using the templates already known
// for the exporter session. It returns the header, the known templates updated with
// the ones found in the message (ordered by id), the data records and the errors met.
// Errors are not fatal: the records decoded before an error are returned.
func Decode(payload []byte, templates []interface{}) (Header, []interface{}, []Record, []error) {
	var header Header
	if len(payload) < 2 {
		return header, templates, nil, []error{fmt.Errorf("%w: no version", ErrorTruncated)}
	}
	header.Version = binary.BigEndian.Uint16(payload)
	ts := newTemplateList(templates)
	buf := bytes.NewBuffer(payload[2:])

	var flowSets []interface{}
	var err error
	switch header.Version {
	case 9:
		var packet netflow.NFv9Packet
		err = netflow.DecodeMessageNetFlow(buf, ts, &packet)
		header.Count = packet.Count
		header.SystemUptime = packet.SystemUptime
		header.ExportTime = packet.UnixSeconds
		header.SequenceNumber = packet.SequenceNumber
		header.ObservationDomainId = packet.SourceId
		flowSets = packet.FlowSets
	case 10:
		var packet netflow.IPFIXPacket
		err = netflow.DecodeMessageIPFIX(buf, ts, &packet)
		header.Length = packet.Length
		header.ExportTime = packet.ExportTime
		header.SequenceNumber = packet.SequenceNumber
		header.ObservationDomainId = packet.ObservationDomainId
		flowSets = packet.FlowSets
	default:
		return header, templates, nil, []error{fmt.Errorf("%w %d", ErrorVersion, header.Version)}
	}

	return header, ts.list(), recordsFromFlowSets(flowSets), splitErrors(err)
}

// splitErrors flattens joined decoding errors so each flow set error can be
// classified on its own.
func splitErrors(err error) []error {
	switch errc := err.(type) {
	case nil:
		return nil
	case interface{ Unwrap() []error }:
		var errs []error
		for _, inner := range errc.Unwrap() {
			errs = append(errs, splitErrors(inner)...)
		}
		return errs
	case *DecoderError:
		if inner := splitErrors(errc.Err); len(inner) > 1 {
			return inner
		}
	}
	return []error{err}
}

// recordsFromFlowSets flattens the data and options data sets of a decoded packet.
func recordsFromFlowSets(flowSets []interface{}) []Record {
	var records []Record
	for _, flowSet := range flowSets {
		switch fs := flowSet.(type) {
		case netflow.DataFlowSet:
			values := make([][]DataField, len(fs.Records))
			for i, record := range fs.Records {
				values[i] = record.Values
			}
			for _, record := range trimPadding(values) {
				records = append(records, Record{
					TemplateId: fs.Id,
					Values:     record,
				})
			}
		case netflow.OptionsDataFlowSet:
			for _, record := range fs.Records {
				records = append(records, Record{
					TemplateId: fs.Id,
					Scopes:     record.ScopesValues,
					Values:     record.OptionsValues,
				})
			}
		}
	}
	return records
}

// trimPadding drops the trailing records the decoder reads from the zero bytes
// padding a set to 4 bytes. It only happens with templates holding variable
// length fields.
func trimPadding(records [][]DataField) [][]DataField {
	tail := 0
	for len(records) > 0 {
		last := records[len(records)-1]
		size, zero := encodedSize(last)
		tail += size
		if tail >= 4 || !zero {
			break
		}
		records = records[:len(records)-1]
	}
	return records
}

func encodedSize(values []DataField) (int, bool) {
	size := 0
	zero := true
	for _, field := range values {
		value, _ := field.Value.([]byte)
		size += len(value)
		for _, b := range value {
			if b != 0 {
				zero = false
			}
		}
	}
	return size, zero
}
