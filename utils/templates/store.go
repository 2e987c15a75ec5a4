// Package templates keeps the decode templates of each exporter session and
// the templates needed to re-encode forwarded records.
package templates

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/netsampler/nfrelay/decoders/netflow"

	"github.com/sirupsen/logrus"
)

// ErrPersistedNotFound is returned by a Persistence that has nothing for a session.
var ErrPersistedNotFound = errors.New("no persisted templates")

// Persistence saves the template list of a session across restarts.
type Persistence interface {
	Load(key string) ([]interface{}, error)
	Save(key string, templates []interface{}) error
}

// Store holds the decode templates of every session. Lists only grow or
// get updated, they are never cleared while the process runs.
type Store struct {
	lock     sync.RWMutex
	sessions map[string][]interface{}

	persistence Persistence
	logger      logrus.FieldLogger

	// OnUpdate is called when the template list of a session changed.
	OnUpdate func(key string, templates []interface{})
}

// NewStore creates a store. Persistence is optional.
func NewStore(persistence Persistence, logger logrus.FieldLogger) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{
		sessions:    make(map[string][]interface{}),
		persistence: persistence,
		logger:      logger,
	}
}

func (s *Store) lookup(key string) []interface{} {
	s.lock.RLock()
	templates, ok := s.sessions[key]
	s.lock.RUnlock()
	if ok || s.persistence == nil {
		return templates
	}

	templates, err := s.persistence.Load(key)
	if err != nil {
		if !errors.Is(err, ErrPersistedNotFound) {
			s.logger.WithError(err).WithField("session", key).Warn("error loading templates")
		}
		return nil
	}
	s.lock.Lock()
	s.sessions[key] = templates
	s.lock.Unlock()
	s.logger.WithFields(logrus.Fields{
		"session":   key,
		"templates": len(templates),
	}).Debug("loaded persisted templates")
	return templates
}

// DecodeAndUpdate decodes a packet with the templates of the session and stores
// the template list returned by the decoder. Template not found errors are
// expected until the exporter sends its templates and are not returned.
func (s *Store) DecodeAndUpdate(key string, payload []byte) (netflow.Header, []netflow.Record, []error) {
	known := s.lookup(key)

	header, updated, records, errs := netflow.Decode(payload, known)

	s.lock.Lock()
	s.sessions[key] = updated
	s.lock.Unlock()

	if templatesChanged(known, updated) {
		if s.OnUpdate != nil {
			s.OnUpdate(key, updated)
		}
		if s.persistence != nil {
			if err := s.persistence.Save(key, updated); err != nil {
				s.logger.WithError(err).WithField("session", key).Warn("error persisting templates")
			}
		}
	}

	var surfaced []error
	for _, err := range errs {
		if errors.Is(err, netflow.ErrorTemplateNotFound) {
			continue
		}
		surfaced = append(surfaced, err)
	}
	return header, records, surfaced
}

func templatesChanged(known, updated []interface{}) bool {
	if len(known) != len(updated) {
		return true
	}
	for i := range known {
		if !reflect.DeepEqual(known[i], updated[i]) {
			return true
		}
	}
	return false
}

// Templates returns a copy of the decode templates of a session.
func (s *Store) Templates(key string) []interface{} {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return append([]interface{}(nil), s.sessions[key]...)
}

// GetAll returns a copy of the templates of every session.
func (s *Store) GetAll() map[string][]interface{} {
	s.lock.RLock()
	defer s.lock.RUnlock()
	ret := make(map[string][]interface{}, len(s.sessions))
	for key, templates := range s.sessions {
		ret[key] = append([]interface{}(nil), templates...)
	}
	return ret
}

// Flush saves the templates of every session to the persistence, retrying
// the saves that failed while decoding.
func (s *Store) Flush() error {
	if s.persistence == nil {
		return nil
	}
	var errs []error
	for key, templates := range s.GetAll() {
		if len(templates) == 0 {
			continue
		}
		if err := s.persistence.Save(key, templates); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
