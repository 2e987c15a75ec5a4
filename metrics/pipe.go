package metrics

import (
	"strconv"

	"github.com/netsampler/nfrelay/utils"

	"github.com/prometheus/client_golang/prometheus"
)

// PromPipeStats counts what the relay pipe did with each message.
type PromPipeStats struct{}

func NewPromPipeStats() *PromPipeStats {
	return &PromPipeStats{}
}

func (s *PromPipeStats) Relayed(report *utils.RelayReport) {
	version := strconv.Itoa(int(report.Version))
	RelayMessages.With(
		prometheus.Labels{
			"session": report.Session,
			"version": version,
		}).
		Inc()
	RelayRecords.With(
		prometheus.Labels{
			"session": report.Session,
			"version": version,
			"action":  "forwarded",
		}).
		Add(float64(report.Forwarded))
	RelayRecords.With(
		prometheus.Labels{
			"session": report.Session,
			"version": version,
			"action":  "dropped",
		}).
		Add(float64(report.Records - report.Forwarded))

	versionLabels := prometheus.Labels{"version": version}
	RelaySentPackets.With(versionLabels).Add(float64(report.Packets))
	RelaySentBytes.With(versionLabels).Add(float64(report.Bytes))
	RelaySendErrors.With(versionLabels).Add(float64(report.SendErrors))

	if report.Missing > 0 {
		SequenceMissing.With(prometheus.Labels{"session": report.Session}).Add(float64(report.Missing))
	}
	if report.SequenceReset {
		SequenceResets.With(prometheus.Labels{"session": report.Session}).Inc()
	}
}
