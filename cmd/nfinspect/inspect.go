package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/netsampler/nfrelay/decoders/netflow"
	"github.com/netsampler/nfrelay/utils"
	"github.com/netsampler/nfrelay/utils/templates"

	"github.com/netsampler/goflow2/v2/decoders/netflowlegacy"
	log "github.com/sirupsen/logrus"
)

// Inspected is one decoded packet, rendered by the format drivers.
type Inspected struct {
	Source  string      `json:"source"`
	Session string      `json:"session"`
	Version uint16      `json:"version"`
	Packet  interface{} `json:"packet"`
}

func (m *Inspected) Key() []byte {
	return []byte(m.Session)
}

func (m *Inspected) String() string {
	str := fmt.Sprintf("from %s session %s\n", m.Source, m.Session)
	if packet, ok := m.Packet.(fmt.Stringer); ok {
		str += packet.String()
	}
	return str
}

// Records are the records of a NetFlow v9 or IPFIX packet.
type Records struct {
	Header    netflow.Header   `json:"header"`
	Templates []uint16         `json:"templates"`
	Records   []netflow.Record `json:"records"`
}

func (r Records) String() string {
	lines := []string{fmt.Sprintf("%s templates:%v", r.Header, r.Templates)}
	for _, record := range r.Records {
		lines = append(lines, "  "+record.String())
	}
	return strings.Join(lines, "\n") + "\n"
}

// LegacyRecord is a NetFlow v5 flow record.
type LegacyRecord struct {
	SrcAddr  netip.Addr `json:"src-addr"`
	DstAddr  netip.Addr `json:"dst-addr"`
	NextHop  netip.Addr `json:"next-hop"`
	Input    uint16     `json:"input"`
	Output   uint16     `json:"output"`
	Packets  uint32     `json:"packets"`
	Octets   uint32     `json:"octets"`
	SrcPort  uint16     `json:"src-port"`
	DstPort  uint16     `json:"dst-port"`
	Proto    uint8      `json:"proto"`
	Tos      uint8      `json:"tos"`
	TCPFlags uint8      `json:"tcp-flags"`
	SrcAS    uint16     `json:"src-as"`
	DstAS    uint16     `json:"dst-as"`
	SrcMask  uint8      `json:"src-mask"`
	DstMask  uint8      `json:"dst-mask"`
}

func (r LegacyRecord) String() string {
	return fmt.Sprintf("srcaddr:%s dstaddr:%s nexthop:%s proto:%d srcport:%d dstport:%d packets:%d octets:%d",
		r.SrcAddr, r.DstAddr, r.NextHop, r.Proto, r.SrcPort, r.DstPort, r.Packets, r.Octets)
}

// Legacy is a NetFlow v5 packet. The relay never forwards those.
type Legacy struct {
	SystemUptime     time.Duration  `json:"system-uptime"`
	ExportTime       time.Time      `json:"export-time"`
	FlowSequence     uint32         `json:"flow-sequence"`
	SamplingInterval uint16         `json:"sampling-interval"`
	Records          []LegacyRecord `json:"records"`
}

func (l Legacy) String() string {
	lines := []string{fmt.Sprintf("version:5 seq:%d records:%d", l.FlowSequence, len(l.Records))}
	for _, record := range l.Records {
		lines = append(lines, "  "+record.String())
	}
	return strings.Join(lines, "\n") + "\n"
}

func legacyAddr(addr uint32) netip.Addr {
	return netip.AddrFrom4([4]byte{byte(addr >> 24), byte(addr >> 16), byte(addr >> 8), byte(addr)})
}

func newLegacy(packet *netflowlegacy.PacketNetFlowV5) Legacy {
	legacy := Legacy{
		SystemUptime:     time.Duration(packet.SysUptime) * time.Millisecond,
		ExportTime:       time.Unix(int64(packet.UnixSecs), 0).UTC(),
		FlowSequence:     packet.FlowSequence,
		SamplingInterval: packet.SamplingInterval,
		Records:          make([]LegacyRecord, len(packet.Records)),
	}
	for i, record := range packet.Records {
		legacy.Records[i] = LegacyRecord{
			SrcAddr:  legacyAddr(uint32(record.SrcAddr)),
			DstAddr:  legacyAddr(uint32(record.DstAddr)),
			NextHop:  legacyAddr(uint32(record.NextHop)),
			Input:    uint16(record.Input),
			Output:   uint16(record.Output),
			Packets:  uint32(record.DPkts),
			Octets:   uint32(record.DOctets),
			SrcPort:  uint16(record.SrcPort),
			DstPort:  uint16(record.DstPort),
			Proto:    uint8(record.Proto),
			Tos:      uint8(record.Tos),
			TCPFlags: uint8(record.TCPFlags),
			SrcAS:    uint16(record.SrcAS),
			DstAS:    uint16(record.DstAS),
			SrcMask:  uint8(record.SrcMask),
			DstMask:  uint8(record.DstMask),
		}
	}
	return legacy
}

// Inspector decodes the packets of several exporters, keeping their templates
// apart the same way the relay does.
type Inspector struct {
	lock   sync.Mutex
	store  *templates.Store
	filter *utils.Filter
}

// NewInspector creates an inspector. With a filter, packets are rendered with
// the forwardable records only.
func NewInspector(filter *utils.Filter, logger log.FieldLogger) *Inspector {
	return &Inspector{
		store:  templates.NewStore(nil, logger),
		filter: filter,
	}
}

// Inspect decodes one payload. Decoding errors are returned with the part of
// the packet that could be decoded.
func (i *Inspector) Inspect(src netip.AddrPort, payload []byte) (*Inspected, error) {
	i.lock.Lock()
	defer i.lock.Unlock()

	key, err := utils.IdentifySession(payload, src)
	if err != nil {
		return nil, err
	}
	version, _ := utils.PacketVersion(payload)
	msg := &Inspected{
		Source:  src.String(),
		Session: key.String(),
		Version: version,
	}

	if version == 5 {
		var packet netflowlegacy.PacketNetFlowV5
		err = netflowlegacy.DecodeMessage(bytes.NewBuffer(payload[2:]), &packet)
		msg.Packet = newLegacy(&packet)
		return msg, err
	}

	header, records, errs := i.store.DecodeAndUpdate(msg.Session, payload)
	if i.filter != nil {
		records = i.filter.Apply(records)
	}
	packet := Records{
		Header:  header,
		Records: records,
	}
	for _, template := range i.store.Templates(msg.Session) {
		if templateId, ok := netflow.GetTemplateId(template); ok {
			packet.Templates = append(packet.Templates, templateId)
		}
	}
	msg.Packet = packet
	return msg, errors.Join(errs...)
}
