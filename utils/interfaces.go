package utils

import (
	"net/netip"
	"time"
)

// Message is a datagram received from an exporter.
type Message struct {
	Src      netip.AddrPort
	Dst      netip.AddrPort
	Payload  []byte
	Received time.Time
}

// DecoderFunc processes a received *Message.
type DecoderFunc func(msg interface{}) error

// FlowPipe processes received messages until closed.
type FlowPipe interface {
	DecodeFlow(msg interface{}) error
	Close() error
}
