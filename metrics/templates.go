package metrics

import (
	"strconv"

	"github.com/netsampler/nfrelay/utils/templates"

	"github.com/prometheus/client_golang/prometheus"
)

// InstrumentStore counts template list changes, keeping any hook already set.
func InstrumentStore(store *templates.Store) {
	previous := store.OnUpdate
	store.OnUpdate = func(key string, list []interface{}) {
		TemplatesUpdates.With(prometheus.Labels{"session": key}).Inc()
		TemplatesKnown.With(prometheus.Labels{"session": key}).Set(float64(len(list)))
		if previous != nil {
			previous(key, list)
		}
	}
}

// InstrumentSelector counts output template resolutions, keeping any hook already set.
func InstrumentSelector(selector *templates.Selector) {
	previous := selector.OnResolve
	selector.OnResolve = func(key string, templateId uint16, found bool) {
		result := "found"
		if !found {
			result = "missing"
		}
		OutputTemplates.With(
			prometheus.Labels{
				"session":     key,
				"template_id": strconv.Itoa(int(templateId)),
				"result":      result,
			}).
			Inc()
		if previous != nil {
			previous(key, templateId, found)
		}
	}
}
