package utils

import (
	"bytes"
	"encoding/binary"

	"github.com/netsampler/nfrelay/decoders/netflow"
)

func testSet(id uint16, body ...[]byte) []byte {
	content := bytes.Join(body, nil)
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, []uint16{id, uint16(4 + len(content))})
	buf.Write(content)
	return buf.Bytes()
}

func testTemplate(templateId uint16, fields ...uint16) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, []uint16{templateId, uint16(len(fields) / 2)})
	binary.Write(buf, binary.BigEndian, fields)
	return buf.Bytes()
}

func testNFv9(count uint16, seq, sourceId uint32, sets ...[]byte) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, []uint16{9, count})
	binary.Write(buf, binary.BigEndian, []uint32{1000, 1700000000, seq, sourceId})
	for _, set := range sets {
		buf.Write(set)
	}
	return buf.Bytes()
}

func testIPFIX(seq, domain uint32, sets ...[]byte) []byte {
	content := bytes.Join(sets, nil)
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, []uint16{10, uint16(16 + len(content))})
	binary.Write(buf, binary.BigEndian, []uint32{1700000000, seq, domain})
	buf.Write(content)
	return buf.Bytes()
}

type testNFv5Header struct {
	Version          uint16
	Count            uint16
	SysUptime        uint32
	UnixSecs         uint32
	UnixNSecs        uint32
	FlowSequence     uint32
	EngineType       uint8
	EngineId         uint8
	SamplingInterval uint16
}

type testNFv5Record struct {
	SrcAddr  [4]byte
	DstAddr  [4]byte
	NextHop  [4]byte
	Input    uint16
	Output   uint16
	DPkts    uint32
	DOctets  uint32
	First    uint32
	Last     uint32
	SrcPort  uint16
	DstPort  uint16
	Pad1     uint8
	TCPFlags uint8
	Proto    uint8
	Tos      uint8
	SrcAS    uint16
	DstAS    uint16
	SrcMask  uint8
	DstMask  uint8
	Pad2     uint16
}

// testNFv5 builds a NetFlow v5 packet with one UDP flow record.
func testNFv5(seq uint32) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, testNFv5Header{
		Version:      5,
		Count:        1,
		SysUptime:    1000,
		UnixSecs:     1700000000,
		FlowSequence: seq,
	})
	binary.Write(buf, binary.BigEndian, testNFv5Record{
		SrcAddr: [4]byte{10, 0, 0, 1},
		DstAddr: [4]byte{198, 51, 100, 1},
		DPkts:   1,
		DOctets: 100,
		SrcPort: 40000,
		DstPort: 53,
		Proto:   17,
	})
	return buf.Bytes()
}

// natTemplate: sourceIPv4Address, postNATSourceIPv4Address, octetDeltaCount
var natTemplate = testTemplate(256, 8, 4, 225, 4, 1, 4)

// plainTemplate: sourceIPv4Address, destinationIPv4Address, octetDeltaCount
var plainTemplate = testTemplate(257, 8, 4, 12, 4, 1, 4)

func natData(src, nat byte) []byte {
	return []byte{10, 0, 0, src, 192, 0, 2, nat, 0, 0, 0, 100}
}

func plainData(src, dst byte) []byte {
	return []byte{10, 0, 0, src, 198, 51, 100, dst, 0, 0, 0, 100}
}

func natDataRecord(src, nat byte) netflow.Record {
	data := natData(src, nat)
	return netflow.Record{
		TemplateId: 256,
		Values: []netflow.DataField{
			{Type: 8, Value: data[0:4]},
			{Type: 225, Value: data[4:8]},
			{Type: 1, Value: data[8:12]},
		},
	}
}
