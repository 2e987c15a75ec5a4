package utils

import (
	"github.com/netsampler/nfrelay/decoders/netflow"
)

// PrepareOutputHeader merges the decoded header into the persistent export state.
// The sequence number is held back by one, unless it is zero, so that the
// increment done by netflow.Encode reproduces the exporter's number.
// The resend interval and the templates already sent are kept.
func PrepareOutputHeader(hdr netflow.Header, state *netflow.ExportState) *netflow.ExportState {
	if state == nil {
		state = netflow.NewExportState(netflow.DefaultTemplateResendSecs, nil)
	}
	if hdr.SequenceNumber != 0 {
		hdr.SequenceNumber--
	}
	state.SetHeader(hdr)
	return state
}
