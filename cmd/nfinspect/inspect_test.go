package main

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/netsampler/nfrelay/format"
	_ "github.com/netsampler/nfrelay/format/json"
	"github.com/netsampler/nfrelay/utils"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSet(id uint16, content ...byte) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, []uint16{id, uint16(4 + len(content))})
	buf.Write(content)
	return buf.Bytes()
}

func testNFv9(count uint16, seq uint32, sets ...[]byte) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, []uint16{9, count})
	binary.Write(buf, binary.BigEndian, []uint32{1000, 1700000000, seq, 7})
	for _, set := range sets {
		buf.Write(set)
	}
	return buf.Bytes()
}

// natPacket carries template 256 (sourceIPv4Address, postNATSourceIPv4Address),
// template 257 (sourceIPv4Address, destinationIPv4Address) and one record of each.
var natPacket = testNFv9(4, 3,
	testSet(0, 1, 0, 0, 2, 0, 8, 0, 4, 0, 225, 0, 4, 1, 1, 0, 2, 0, 8, 0, 4, 0, 12, 0, 4),
	testSet(256, 10, 0, 0, 1, 192, 0, 2, 10),
	testSet(257, 10, 0, 0, 2, 198, 51, 100, 20),
)

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

func legacyPacket() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, testNFv5Header{
		Version:      5,
		Count:        1,
		SysUptime:    1000,
		UnixSecs:     1700000000,
		FlowSequence: 12,
	})
	binary.Write(buf, binary.BigEndian, testNFv5Record{
		SrcAddr: [4]byte{10, 0, 0, 1},
		DstAddr: [4]byte{10, 0, 0, 2},
		DPkts:   1,
		DOctets: 64,
		SrcPort: 40000,
		DstPort: 53,
		Proto:   17,
	})
	return buf.Bytes()
}

var exporter = netip.MustParseAddrPort("192.0.2.1:40000")

func TestInspectRaw(t *testing.T) {
	logger, _ := test.NewNullLogger()
	inspector := NewInspector(nil, logger)

	msg, err := inspector.Inspect(exporter, natPacket)
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1:40000/7", msg.Session)
	packet, ok := msg.Packet.(Records)
	require.True(t, ok)
	assert.Equal(t, uint32(3), packet.Header.SequenceNumber)
	assert.Equal(t, []uint16{256, 257}, packet.Templates)
	assert.Len(t, packet.Records, 2)
	assert.Contains(t, msg.String(), "seq:3")
	assert.Contains(t, msg.String(), "destinationIPv4Address")

	msg, err = inspector.Inspect(exporter, legacyPacket())
	require.NoError(t, err)
	assert.Equal(t, "legacy", msg.Session)
	legacy, ok := msg.Packet.(Legacy)
	require.True(t, ok)
	assert.Equal(t, uint32(12), legacy.FlowSequence)
	require.Len(t, legacy.Records, 1)
	assert.Equal(t, uint16(53), legacy.Records[0].DstPort)
	assert.Contains(t, msg.String(), "srcaddr:10.0.0.1")

	_, err = inspector.Inspect(exporter, []byte{0, 8, 0, 0})
	assert.True(t, errors.Is(err, utils.ErrUnsupportedVersion))
}

func TestInspectFiltered(t *testing.T) {
	logger, _ := test.NewNullLogger()
	filter, err := utils.NewFilter(utils.DefaultFilterElements)
	require.NoError(t, err)
	inspector := NewInspector(filter, logger)

	msg, err := inspector.Inspect(exporter, natPacket)
	require.NoError(t, err)
	records, ok := msg.Packet.(Records)
	require.True(t, ok)
	require.Len(t, records.Records, 1)
	assert.Equal(t, uint16(256), records.Records[0].TemplateId)
	assert.Contains(t, msg.String(), "postNATSourceIPv4Address")

	jsonFormat, err := format.FindFormat("json")
	require.NoError(t, err)
	key, out, err := jsonFormat.Format(msg)
	require.NoError(t, err)
	assert.Equal(t, []byte("192.0.2.1:40000/7"), key)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "192.0.2.1:40000", decoded["source"])
}

func writePcap(t *testing.T, payloads ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flows.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))
	for i, payload := range payloads {
		eth := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0, 0, 0, 0, 0, 1},
			DstMAC:       net.HardwareAddr{0, 0, 0, 0, 0, 2},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip := &layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    net.IPv4(192, 0, 2, 1),
			DstIP:    net.IPv4(127, 0, 0, 2),
		}
		udp := &layers.UDP{SrcPort: 40000, DstPort: 2055}
		if i%2 == 1 {
			udp.DstPort = 9995
		}
		require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
		buf := gopacket.NewSerializeBuffer()
		require.NoError(t, gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true},
			eth, ip, udp, gopacket.Payload(payload)))
		data := buf.Bytes()
		require.NoError(t, w.WritePacket(gopacket.CaptureInfo{
			Timestamp:     time.Unix(1700000000, 0),
			CaptureLength: len(data),
			Length:        len(data),
		}, data))
	}
	return path
}

func TestReadPcap(t *testing.T) {
	// the second packet is sent to another port
	path := writePcap(t, natPacket, legacyPacket(), legacyPacket())

	logger, _ := test.NewNullLogger()
	jsonFormat, err := format.FindFormat("json")
	require.NoError(t, err)
	out := new(bytes.Buffer)
	p := &printer{
		out:       out,
		formatter: jsonFormat,
		inspector: NewInspector(nil, logger),
		logger:    logger,
	}
	require.NoError(t, readPcap(path, 2055, p))

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	for i, version := range []float64{9, 5} {
		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(lines[i], &decoded))
		assert.Equal(t, version, decoded["version"])
		assert.Equal(t, "192.0.2.1:40000", decoded["source"])
	}
}

func TestCommandArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.Execute())

	path := writePcap(t, natPacket)
	cmd = newRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--pcap", path, "--filtered"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "postNATSourceIPv4Address")
}
