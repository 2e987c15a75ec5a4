// Package httpserver exposes metrics, health and the known templates over HTTP.
package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Config configures the HTTP server.
type Config struct {
	Addr         string
	TemplatePath string
	Logger       log.FieldLogger
}

// TemplateSource returns the templates of every session.
type TemplateSource func() map[string][]interface{}

func writeText(wr http.ResponseWriter, logger log.FieldLogger, status int, text string) {
	wr.WriteHeader(status)
	if _, err := wr.Write([]byte(text)); err != nil {
		logger.WithError(err).Error("error writing HTTP")
	}
}

// HealthHandler returns a handler for the health endpoint.
func HealthHandler(logger log.FieldLogger, isRelaying func() bool) http.HandlerFunc {
	return func(wr http.ResponseWriter, r *http.Request) {
		if !isRelaying() {
			writeText(wr, logger, http.StatusServiceUnavailable, "Not OK\n")
			return
		}
		writeText(wr, logger, http.StatusOK, "OK\n")
	}
}

// TemplatesHandler returns a handler for the templates endpoint.
func TemplatesHandler(logger log.FieldLogger, templates TemplateSource) http.HandlerFunc {
	return func(wr http.ResponseWriter, r *http.Request) {
		body, err := json.MarshalIndent(templates(), "", "  ")
		if err != nil {
			logger.WithError(err).Error("error writing JSON body for templates")
			writeText(wr, logger, http.StatusInternalServerError, "Internal Server Error\n")
			return
		}
		wr.Header().Add("Content-Type", "application/json")
		wr.WriteHeader(http.StatusOK)
		if _, err := wr.Write(body); err != nil {
			logger.WithError(err).Error("error writing HTTP")
		}
	}
}

// New constructs a mux with metrics, health, and templates endpoints.
func New(cfg Config, templates TemplateSource, isRelaying func() bool) *http.ServeMux {
	logger := cfg.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/__health", HealthHandler(logger, isRelaying))
	if cfg.TemplatePath != "" && templates != nil {
		mux.HandleFunc(cfg.TemplatePath, TemplatesHandler(logger, templates))
	}

	return mux
}
