package netflow

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// DefaultMaxPacketSize keeps encoded messages under a typical Ethernet MTU.
	DefaultMaxPacketSize = 1400

	nfv9HeaderLength  = 20
	ipfixHeaderLength = 16
)

var (
	ErrorTooLarge       = fmt.Errorf("does not fit in a message")
	ErrorVersion        = fmt.Errorf("unsupported version")
	ErrorTemplateKind   = fmt.Errorf("template kind not supported by version")
	ErrorValuesMismatch = fmt.Errorf("values do not match template")
)

type EncoderError struct {
	Version    uint16
	TemplateId uint16
	Err        error
}

func (e *EncoderError) Error() string {
	return fmt.Sprintf("[version:%d templateId:%d] %s", e.Version, e.TemplateId, e.Err.Error())
}

func (e *EncoderError) Unwrap() error {
	return e.Err
}

func writeU8(buf *bytes.Buffer, v uint8) {
	buf.WriteByte(v)
}

func writeU16(buf *bytes.Buffer, v uint16) {
	buf.Write(binary.BigEndian.AppendUint16(nil, v))
}

func writeU32(buf *bytes.Buffer, v uint32) {
	buf.Write(binary.BigEndian.AppendUint32(nil, v))
}

func headerLength(version uint16) int {
	if version == 10 {
		return ipfixHeaderLength
	}
	return nfv9HeaderLength
}

func writeField(buf *bytes.Buffer, version uint16, field Field) {
	fieldType := field.Type
	if version == 10 && field.PenProvided {
		fieldType |= 0x8000
	}
	writeU16(buf, fieldType)
	writeU16(buf, field.Length)
	if version == 10 && field.PenProvided {
		writeU32(buf, field.Pen)
	}
}

// EncodeTemplate returns the set id and the wire form of a template record.
func EncodeTemplate(version uint16, template interface{}) (uint16, []byte, error) {
	buf := new(bytes.Buffer)
	switch templatec := template.(type) {
	case TemplateRecord:
		setId := NFv9TemplateSetId
		if version == 10 {
			setId = IPFIXTemplateSetId
		}
		writeU16(buf, templatec.TemplateId)
		writeU16(buf, uint16(len(templatec.Fields)))
		for _, field := range templatec.Fields {
			writeField(buf, version, field)
		}
		return setId, buf.Bytes(), nil
	case NFv9OptionsTemplateRecord:
		if version != 9 {
			return 0, nil, ErrorTemplateKind
		}
		writeU16(buf, templatec.TemplateId)
		writeU16(buf, uint16(4*len(templatec.Scopes)))
		writeU16(buf, uint16(4*len(templatec.Options)))
		for _, field := range templatec.Scopes {
			writeField(buf, version, field)
		}
		for _, field := range templatec.Options {
			writeField(buf, version, field)
		}
		return NFv9OptionsTemplateSetId, buf.Bytes(), nil
	case IPFIXOptionsTemplateRecord:
		if version != 10 {
			return 0, nil, ErrorTemplateKind
		}
		writeU16(buf, templatec.TemplateId)
		writeU16(buf, uint16(len(templatec.Scopes)+len(templatec.Options)))
		writeU16(buf, uint16(len(templatec.Scopes)))
		for _, field := range templatec.Scopes {
			writeField(buf, version, field)
		}
		for _, field := range templatec.Options {
			writeField(buf, version, field)
		}
		return IPFIXOptionsTemplateSetId, buf.Bytes(), nil
	}
	return 0, nil, fmt.Errorf("unknown template type %T", template)
}

func writeValues(buf *bytes.Buffer, fields []Field, values []DataField) error {
	if len(fields) != len(values) {
		return fmt.Errorf("%w: %d fields, %d values", ErrorValuesMismatch, len(fields), len(values))
	}
	for i, field := range fields {
		value, ok := values[i].Value.([]byte)
		if !ok {
			return fmt.Errorf("%w: value %d is %T", ErrorValuesMismatch, i, values[i].Value)
		}
		if field.Length == 0xffff {
			if len(value) < 0xff {
				writeU8(buf, uint8(len(value)))
			} else if len(value) <= 0xffff {
				writeU8(buf, 0xff)
				writeU16(buf, uint16(len(value)))
			} else {
				return fmt.Errorf("%w: value %d is %d bytes", ErrorValuesMismatch, i, len(value))
			}
		} else if len(value) != int(field.Length) {
			return fmt.Errorf("%w: value %d is %d bytes, expected %d", ErrorValuesMismatch, i, len(value), field.Length)
		}
		buf.Write(value)
	}
	return nil
}

// EncodeRecord returns the wire form of a data record described by template.
func EncodeRecord(template interface{}, record Record) ([]byte, error) {
	buf := new(bytes.Buffer)
	var err error
	switch templatec := template.(type) {
	case TemplateRecord:
		err = writeValues(buf, templatec.Fields, record.Values)
	case NFv9OptionsTemplateRecord:
		if err = writeValues(buf, templatec.Scopes, record.Scopes); err == nil {
			err = writeValues(buf, templatec.Options, record.Values)
		}
	case IPFIXOptionsTemplateRecord:
		if err = writeValues(buf, templatec.Scopes, record.Scopes); err == nil {
			err = writeValues(buf, templatec.Options, record.Values)
		}
	default:
		err = fmt.Errorf("unknown template type %T", template)
	}
	return buf.Bytes(), err
}

// packer lays out records in sets and sets in messages no larger than maxSize.
type packer struct {
	maxSize   int
	headerLen int

	bodies [][]byte
	counts []uint16

	cur      *bytes.Buffer
	count    uint16
	setOpen  bool
	setId    uint16
	setStart int
}

func newPacker(version uint16, maxSize int) *packer {
	return &packer{
		maxSize:   maxSize,
		headerLen: headerLength(version),
		cur:       new(bytes.Buffer),
	}
}

func (p *packer) closeSet() {
	if !p.setOpen {
		return
	}
	body := p.cur.Bytes()
	binary.BigEndian.PutUint16(body[p.setStart+2:], uint16(len(body)-p.setStart))
	p.setOpen = false
}

func (p *packer) flush() {
	p.closeSet()
	if p.cur.Len() == 0 {
		return
	}
	body := make([]byte, p.cur.Len())
	copy(body, p.cur.Bytes())
	p.bodies = append(p.bodies, body)
	p.counts = append(p.counts, p.count)
	p.cur.Reset()
	p.count = 0
}

// add appends an encoded record to a set, opening a new set or message when needed.
// It returns false when the record cannot fit in any message.
func (p *packer) add(setId uint16, data []byte) bool {
	sameSet := p.setOpen && p.setId == setId
	need := len(data)
	if !sameSet {
		need += 4
	}
	if p.headerLen+p.cur.Len()+need > p.maxSize {
		if p.headerLen+4+len(data) > p.maxSize {
			return false
		}
		p.flush()
		sameSet = false
	}
	if !sameSet {
		p.closeSet()
		p.setOpen = true
		p.setId = setId
		p.setStart = p.cur.Len()
		writeU16(p.cur, setId)
		writeU16(p.cur, 0)
	}
	p.cur.Write(data)
	p.count++
	return true
}

func writeHeader(buf *bytes.Buffer, header Header, count uint16, length int) {
	writeU16(buf, header.Version)
	if header.Version == 10 {
		writeU16(buf, uint16(length))
		writeU32(buf, header.ExportTime)
		writeU32(buf, header.SequenceNumber)
		writeU32(buf, header.ObservationDomainId)
		return
	}
	writeU16(buf, count)
	writeU32(buf, header.SystemUptime)
	writeU32(buf, header.ExportTime)
	writeU32(buf, header.SequenceNumber)
	writeU32(buf, header.ObservationDomainId)
}

// Encode builds the messages carrying records using the header of state.
// The sequence number of state is incremented once per call; when the records
// span several messages, each extra message takes the next sequence number.
// Templates are included when they were not sent yet or when the resend interval
// of state elapsed. Records that cannot be encoded are skipped and reported.
func Encode(state *ExportState, templates []interface{}, records []Record, maxSize int) ([][]byte, error) {
	version := state.Version
	if version != 9 && version != 10 {
		return nil, &EncoderError{version, 0, ErrorVersion}
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxPacketSize
	}
	state.SequenceNumber++

	now := state.now()
	p := newPacker(version, maxSize)
	var errs []error

	known := make(map[uint16]interface{}, len(templates))
	for _, template := range templates {
		templateId, ok := GetTemplateId(template)
		if !ok {
			errs = append(errs, &EncoderError{version, 0, fmt.Errorf("unknown template type %T", template)})
			continue
		}
		setId, raw, err := EncodeTemplate(version, template)
		if err != nil {
			errs = append(errs, &EncoderError{version, templateId, err})
			continue
		}
		known[templateId] = template
		if !state.templateDue(templateId, raw, now) {
			continue
		}
		if !p.add(setId, raw) {
			errs = append(errs, &EncoderError{version, templateId, ErrorTooLarge})
			continue
		}
		state.markSent(templateId, raw, now)
	}

	for _, record := range records {
		template, ok := known[record.TemplateId]
		if !ok {
			errs = append(errs, &EncoderError{version, record.TemplateId, ErrorTemplateNotFound})
			continue
		}
		data, err := EncodeRecord(template, record)
		if err != nil {
			errs = append(errs, &EncoderError{version, record.TemplateId, err})
			continue
		}
		if !p.add(record.TemplateId, data) {
			errs = append(errs, &EncoderError{version, record.TemplateId, ErrorTooLarge})
		}
	}
	p.flush()

	packets := make([][]byte, len(p.bodies))
	for i, body := range p.bodies {
		if i > 0 {
			state.SequenceNumber++
		}
		length := p.headerLen + len(body)
		buf := bytes.NewBuffer(make([]byte, 0, length))
		writeHeader(buf, state.Header, p.counts[i], length)
		buf.Write(body)
		packets[i] = buf.Bytes()
	}
	return packets, errors.Join(errs...)
}
