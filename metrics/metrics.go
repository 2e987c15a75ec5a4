package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	NAMESPACE = "nfrelay"
)

var (
	MetricTrafficBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_traffic_bytes",
			Help:      "Bytes received by the application.",
			Namespace: NAMESPACE,
		},
		[]string{"remote_ip", "local_ip", "local_port", "type"},
	)
	MetricTrafficPackets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_traffic_packets",
			Help:      "Packets received by the application.",
			Namespace: NAMESPACE},
		[]string{"remote_ip", "local_ip", "local_port", "type"},
	)
	MetricPacketSizeSum = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:      "flow_traffic_summary_size_bytes",
			Help:      "Summary of packet size.",
			Namespace: NAMESPACE, Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"remote_ip", "local_ip", "local_port", "type"},
	)
	MetricReceivedDroppedPackets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_dropped_packets",
			Help:      "Packets dropped before processing.",
			Namespace: NAMESPACE},
		[]string{"remote_ip", "local_ip", "local_port"},
	)
	MetricReceivedDroppedBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_dropped_bytes",
			Help:      "Bytes dropped before processing.",
			Namespace: NAMESPACE},
		[]string{"remote_ip", "local_ip", "local_port"},
	)
	DecoderTime = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:      "flow_summary_decoding_time_us",
			Help:      "Relaying time summary, from decoding to sending.",
			Namespace: NAMESPACE, Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"name"},
	)
	DecoderErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_decoder_error_count",
			Help:      "Messages relayed with errors.",
			Namespace: NAMESPACE},
		[]string{"router", "error"},
	)
	IgnoredMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_ignored_count",
			Help:      "Messages ignored because of their export version.",
			Namespace: NAMESPACE},
		[]string{"router", "version"},
	)
	RelayMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_relay_messages_count",
			Help:      "NetFlow v9 and IPFIX messages decoded.",
			Namespace: NAMESPACE},
		[]string{"session", "version"},
	)
	RelayRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_relay_records_count",
			Help:      "Data records decoded, by filter outcome.",
			Namespace: NAMESPACE},
		[]string{"session", "version", "action"}, // forwarded, dropped
	)
	RelaySentPackets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_relay_sent_packets",
			Help:      "Packets sent to the collector.",
			Namespace: NAMESPACE},
		[]string{"version"},
	)
	RelaySentBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_relay_sent_bytes",
			Help:      "Bytes sent to the collector.",
			Namespace: NAMESPACE},
		[]string{"version"},
	)
	RelaySendErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_relay_send_error_count",
			Help:      "Packets that could not be sent to the collector.",
			Namespace: NAMESPACE},
		[]string{"version"},
	)
	SequenceMissing = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_sequence_missing_count",
			Help:      "Sequence numbers skipped by the exporter.",
			Namespace: NAMESPACE},
		[]string{"session"},
	)
	SequenceResets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_sequence_reset_count",
			Help:      "Sequence resets of the exporter.",
			Namespace: NAMESPACE},
		[]string{"session"},
	)
	TemplatesUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_templates_updates_count",
			Help:      "Changes of the template list of a session.",
			Namespace: NAMESPACE},
		[]string{"session"},
	)
	TemplatesKnown = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:      "flow_templates_known",
			Help:      "Templates known for a session.",
			Namespace: NAMESPACE},
		[]string{"session"},
	)
	OutputTemplates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "flow_output_templates_count",
			Help:      "Output template resolutions.",
			Namespace: NAMESPACE},
		[]string{"session", "template_id", "result"}, // found, missing
	)
)

func init() {
	prometheus.MustRegister(MetricTrafficBytes)
	prometheus.MustRegister(MetricTrafficPackets)
	prometheus.MustRegister(MetricPacketSizeSum)
	prometheus.MustRegister(MetricReceivedDroppedPackets)
	prometheus.MustRegister(MetricReceivedDroppedBytes)

	prometheus.MustRegister(DecoderTime)
	prometheus.MustRegister(DecoderErrors)
	prometheus.MustRegister(IgnoredMessages)

	prometheus.MustRegister(RelayMessages)
	prometheus.MustRegister(RelayRecords)
	prometheus.MustRegister(RelaySentPackets)
	prometheus.MustRegister(RelaySentBytes)
	prometheus.MustRegister(RelaySendErrors)

	prometheus.MustRegister(SequenceMissing)
	prometheus.MustRegister(SequenceResets)

	prometheus.MustRegister(TemplatesUpdates)
	prometheus.MustRegister(TemplatesKnown)
	prometheus.MustRegister(OutputTemplates)
}
