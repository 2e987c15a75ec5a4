package state

import (
	"sync"
)

type memoryEngine struct {
	lock     sync.RWMutex
	sessions map[string][]byte
}

func newMemoryEngine() *memoryEngine {
	return &memoryEngine{
		sessions: make(map[string][]byte),
	}
}

func (m *memoryEngine) Get(session string) ([]byte, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	value, ok := m.sessions[session]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return value, nil
}

func (m *memoryEngine) Set(session string, value []byte) error {
	m.lock.Lock()
	m.sessions[session] = append([]byte(nil), value...)
	m.lock.Unlock()
	return nil
}

func (m *memoryEngine) Close() error {
	return nil
}
