package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/netsampler/nfrelay/decoders/netflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(templateId uint16, values map[netflow.Element][]byte) netflow.Record {
	record := netflow.Record{TemplateId: templateId}
	for id, value := range values {
		record.Values = append(record.Values, netflow.DataField{Type: uint16(id), Value: value})
	}
	return record
}

func TestNewFilter(t *testing.T) {
	f, err := NewFilter(DefaultFilterElements)
	require.NoError(t, err)
	assert.Equal(t, []netflow.Element{225, 226, 281, 282}, f.Elements())

	f, err = NewFilter([]string{"XLATE_SRC_ADDR_IPV4", "225", "230"})
	require.NoError(t, err)
	assert.Equal(t, []netflow.Element{netflow.PostNATSourceIPv4Address, netflow.NatEvent}, f.Elements())

	_, err = NewFilter([]string{"notAnElement"})
	assert.Error(t, err)

	_, err = NewFilter(nil)
	assert.ErrorIs(t, err, ErrEmptyFilter)
}

func TestFilterIsForwardable(t *testing.T) {
	f, err := NewFilter(DefaultFilterElements)
	require.NoError(t, err)

	tests := []struct {
		name   string
		record netflow.Record
		expect bool
	}{
		{"post-NAT IPv4", testRecord(256, map[netflow.Element][]byte{
			netflow.SourceIPv4Address:        {10, 0, 0, 1},
			netflow.PostNATSourceIPv4Address: {192, 0, 2, 1},
		}), true},
		{"post-NAT IPv6", testRecord(256, map[netflow.Element][]byte{
			netflow.PostNATDestinationIPv6Address: make([]byte, 16),
		}), true},
		{"no NAT element", testRecord(256, map[netflow.Element][]byte{
			netflow.SourceIPv4Address: {10, 0, 0, 1},
		}), false},
		{"empty value", testRecord(256, map[netflow.Element][]byte{
			netflow.PostNATSourceIPv4Address: {},
		}), false},
		{"enterprise field", netflow.Record{Values: []netflow.DataField{
			{PenProvided: true, Pen: 9, Type: 225, Value: []byte{192, 0, 2, 1}},
		}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, f.IsForwardable(tt.record))
		})
	}
}

func TestFilterApply(t *testing.T) {
	f, err := NewFilter(DefaultFilterElements)
	require.NoError(t, err)

	nat := testRecord(256, map[netflow.Element][]byte{netflow.PostNATSourceIPv4Address: {192, 0, 2, 1}})
	plain := testRecord(257, map[netflow.Element][]byte{netflow.SourceIPv4Address: {10, 0, 0, 1}})

	assert.Equal(t, []netflow.Record{nat, nat}, f.Apply([]netflow.Record{nat, plain, nat}))
	assert.Empty(t, f.Apply([]netflow.Record{plain}))
	assert.Empty(t, f.Apply(nil))
}

func TestLoadFilterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filter.yaml")
	require.NoError(t, os.WriteFile(path, []byte("elements:\n  - postNATSourceIPv4Address\n  - natEvent\n"), 0o600))

	names, err := LoadFilterFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"postNATSourceIPv4Address", "natEvent"}, names)

	_, err = LoadFilterFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
