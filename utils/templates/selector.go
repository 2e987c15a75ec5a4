package templates

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/netsampler/nfrelay/decoders/netflow"
)

var ErrOutputTemplateNotFound = errors.New("output template not found")

// TemplateSource gives the decode templates of a session.
type TemplateSource interface {
	Templates(key string) []interface{}
}

// Selector caches, per session, the template of every forwarded template id.
// An entry is resolved once from the decode templates and never invalidated:
// a template redefined by the exporter keeps its first shape here.
type Selector struct {
	lock   sync.RWMutex
	source TemplateSource
	cache  map[string]map[uint16]interface{}

	// OnResolve is called on every cache miss, after scanning the source.
	OnResolve func(key string, templateId uint16, found bool)
}

func NewSelector(source TemplateSource) *Selector {
	return &Selector{
		source: source,
		cache:  make(map[string]map[uint16]interface{}),
	}
}

// Resolve returns the template to encode a record of a session with.
// A template missing from the source is cached as nil and reported once.
func (s *Selector) Resolve(key string, record netflow.Record) (interface{}, error) {
	s.lock.RLock()
	template, ok := s.cache[key][record.TemplateId]
	s.lock.RUnlock()
	if ok {
		return template, nil
	}

	template = nil
	for _, candidate := range s.source.Templates(key) {
		if templateId, ok := netflow.GetTemplateId(candidate); ok && templateId == record.TemplateId {
			template = candidate
			break
		}
	}

	s.lock.Lock()
	session, ok := s.cache[key]
	if !ok {
		session = make(map[uint16]interface{})
		s.cache[key] = session
	}
	session[record.TemplateId] = template
	s.lock.Unlock()

	if s.OnResolve != nil {
		s.OnResolve(key, record.TemplateId, template != nil)
	}
	if template == nil {
		return nil, fmt.Errorf("%w: session %s template %d", ErrOutputTemplateNotFound, key, record.TemplateId)
	}
	return template, nil
}

// Templates returns the resolved templates of a session ordered by template id.
func (s *Selector) Templates(key string) []interface{} {
	s.lock.RLock()
	session := s.cache[key]
	ids := make([]int, 0, len(session))
	for templateId, template := range session {
		if template != nil {
			ids = append(ids, int(templateId))
		}
	}
	sort.Ints(ids)
	templates := make([]interface{}, len(ids))
	for i, templateId := range ids {
		templates[i] = session[uint16(templateId)]
	}
	s.lock.RUnlock()
	return templates
}
