// Package state keeps the template list of each exporter session in an
// engine shared by several relay instances or kept across restarts.
package state

import (
	"fmt"
	"net/url"
	"strings"
)

var (
	SupportedSchemes   = []string{"memory", "badger", "redis"}
	ErrSessionNotFound = fmt.Errorf("session not found")
)

// DefaultPrefix namespaces the session keys in shared engines.
const DefaultPrefix = "nfrelay:templates:"

// Engine stores one encoded value per session.
type Engine interface {
	Get(session string) ([]byte, error)
	Set(session string, value []byte) error
	Close() error
}

// OpenEngine opens the engine named by the URL scheme: memory://, badger:///path
// (in memory when the path is empty) or redis://host:port/db. The prefix query
// parameter replaces DefaultPrefix.
func OpenEngine(rawUrl string) (Engine, error) {
	urlParsed, err := url.Parse(rawUrl)
	if err != nil {
		return nil, err
	}
	prefix := DefaultPrefix
	if urlParsed.Query().Has("prefix") {
		prefix = urlParsed.Query().Get("prefix")
	}
	switch urlParsed.Scheme {
	case "memory":
		return newMemoryEngine(), nil
	case "badger":
		return openBadger(urlParsed.Path, prefix)
	case "redis", "rediss":
		return openRedis(urlParsed, prefix)
	default:
		return nil, fmt.Errorf("unknown state engine %q, supported: %s", urlParsed.Scheme, strings.Join(SupportedSchemes, ", "))
	}
}
