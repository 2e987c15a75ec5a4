package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/netsampler/nfrelay/decoders/netflow"
	"github.com/netsampler/nfrelay/transport"
	"github.com/netsampler/nfrelay/utils"
	"github.com/netsampler/nfrelay/utils/debug"
	"github.com/netsampler/nfrelay/utils/templates"

	"github.com/prometheus/client_golang/prometheus"
)

// errorClass names the first relay step that failed.
func errorClass(err error) string {
	switch {
	case errors.Is(err, debug.ErrPanic):
		return "panic"
	case errors.Is(err, utils.ErrShortPacket):
		return "short_packet"
	case errors.Is(err, transport.ErrTransport):
		return "send"
	case errors.Is(err, templates.ErrOutputTemplateNotFound):
		return "output_template_not_found"
	case errors.Is(err, netflow.ErrorTooLarge), errors.Is(err, netflow.ErrorValuesMismatch), errors.Is(err, netflow.ErrorTemplateKind):
		return "error_encoding"
	}
	return "error_decoding"
}

func PromDecoderWrapper(wrapped utils.DecoderFunc, name string) utils.DecoderFunc {
	return func(msg interface{}) error {
		pkt, ok := msg.(*utils.Message)
		if !ok {
			return fmt.Errorf("flow is not *Message")
		}
		remote := pkt.Src.Addr().Unmap().String()
		localIP := pkt.Dst.Addr().Unmap().String()
		port := strconv.FormatUint(uint64(pkt.Dst.Port()), 10)
		size := len(pkt.Payload)

		labels := prometheus.Labels{
			"remote_ip":  remote,
			"local_ip":   localIP,
			"local_port": port,
			"type":       name,
		}
		MetricTrafficBytes.With(labels).Add(float64(size))
		MetricTrafficPackets.With(labels).Inc()
		MetricPacketSizeSum.With(labels).Observe(float64(size))

		timeTrackStart := time.Now().UTC()

		err := wrapped(msg)

		timeTrackStop := time.Now().UTC()

		DecoderTime.With(
			prometheus.Labels{
				"name": name,
			}).
			Observe(float64((timeTrackStop.Sub(timeTrackStart)).Nanoseconds()) / 1000)

		if err == nil {
			return nil
		}
		var versionErr *utils.VersionError
		if errors.As(err, &versionErr) {
			IgnoredMessages.With(
				prometheus.Labels{
					"router":  remote,
					"version": strconv.Itoa(int(versionErr.Version)),
				}).
				Inc()
			return err
		}
		DecoderErrors.With(
			prometheus.Labels{
				"router": remote,
				"error":  errorClass(err),
			}).
			Inc()
		return err
	}
}
