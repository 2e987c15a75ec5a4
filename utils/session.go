package utils

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"
)

var (
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrShortPacket        = errors.New("packet too short")
)

// Offsets of the v9 source id and of the IPFIX observation domain id.
const (
	nfv9DomainOffset  = 16
	ipfixDomainOffset = 12
)

// VersionError reports a packet whose export version cannot be relayed.
type VersionError struct {
	Version uint16
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("version %d ignored", e.Version)
}

func (e *VersionError) Unwrap() error {
	return ErrUnsupportedVersion
}

// SessionKey identifies the export stream of one metering process of an exporter.
type SessionKey struct {
	Addr   netip.Addr
	Port   uint16
	Domain uint32
	Legacy bool
}

// LegacySessionKey is shared by every NetFlow v5 exporter.
var LegacySessionKey = SessionKey{Legacy: true}

func (k SessionKey) String() string {
	if k.Legacy {
		return "legacy"
	}
	return fmt.Sprintf("%s/%d", netip.AddrPortFrom(k.Addr, k.Port).String(), k.Domain)
}

// PacketVersion returns the export version carried by the first two bytes.
func PacketVersion(payload []byte) (uint16, error) {
	if len(payload) < 2 {
		return 0, ErrShortPacket
	}
	return binary.BigEndian.Uint16(payload), nil
}

// IdentifySession derives the session of a packet from its header and sender.
func IdentifySession(payload []byte, src netip.AddrPort) (SessionKey, error) {
	version, err := PacketVersion(payload)
	if err != nil {
		return SessionKey{}, err
	}
	switch version {
	case 5:
		return LegacySessionKey, nil
	case 9, 10:
		offset := nfv9DomainOffset
		if version == 10 {
			offset = ipfixDomainOffset
		}
		if len(payload) < offset+4 {
			return SessionKey{}, ErrShortPacket
		}
		return SessionKey{
			Addr:   src.Addr().Unmap(),
			Port:   src.Port(),
			Domain: binary.BigEndian.Uint32(payload[offset:]),
		}, nil
	}
	return SessionKey{}, &VersionError{version}
}
