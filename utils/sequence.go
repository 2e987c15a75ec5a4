package utils

import (
	"sync"

	"github.com/netsampler/nfrelay/decoders/netflow"
)

// DefaultMaxNegativeSequenceDifference is the gap below which a sequence reset is assumed.
const DefaultMaxNegativeSequenceDifference = 1000

// SequenceTracker estimates the packets or records lost by each session.
type SequenceTracker struct {
	counters   map[string]int64 // next expected sequence number, cumulated
	countersMu *sync.Mutex

	maxNegativeSequenceDifference int
}

func NewSequenceTracker(maxNegativeSequenceDifference int) *SequenceTracker {
	if maxNegativeSequenceDifference <= 0 {
		maxNegativeSequenceDifference = DefaultMaxNegativeSequenceDifference
	}
	return &SequenceTracker{
		counters:                      make(map[string]int64),
		countersMu:                    &sync.Mutex{},
		maxNegativeSequenceDifference: maxNegativeSequenceDifference,
	}
}

// Track accounts a decoded message. NetFlow v9 numbers messages while IPFIX
// numbers data records, so records only matters for IPFIX.
// It returns the missing count since the first message and whether the
// exporter restarted its numbering.
func (s *SequenceTracker) Track(key string, header netflow.Header, records int) (int64, bool) {
	flows := uint16(1)
	if header.Version == 10 {
		flows = uint16(records)
	}
	return s.countMissing(key, header.SequenceNumber, flows)
}

func (s *SequenceTracker) countMissing(key string, seqnum uint32, flows uint16) (int64, bool) {
	s.countersMu.Lock()
	defer s.countersMu.Unlock()

	next := int64(seqnum) + int64(flows)
	if _, ok := s.counters[key]; !ok {
		s.counters[key] = next
		return 0, false
	}
	s.counters[key] += int64(flows)
	missingElements := next - s.counters[key]

	// A large negative gap means the exporter restarted, out of order messages stay close.
	if missingElements <= -int64(s.maxNegativeSequenceDifference) {
		s.counters[key] = next
		return 0, true
	}
	return missingElements, false
}
