// Package format renders decoded export packets for the inspection tool.
package format

import (
	"fmt"
	"sort"
	"sync"
)

var (
	formatDrivers = make(map[string]FormatDriver)
	lock          = &sync.RWMutex{}

	ErrFormat       = fmt.Errorf("format error")
	ErrNoSerializer = fmt.Errorf("message is not serializable")
)

type DriverFormatError struct {
	Driver string
	Err    error
}

func (e *DriverFormatError) Error() string {
	return fmt.Sprintf("%s for %s format", e.Err.Error(), e.Driver)
}

func (e *DriverFormatError) Unwrap() []error {
	return []error{ErrFormat, e.Err}
}

type FormatDriver interface {
	Init() error                                     // Initialize driver
	Format(data interface{}) ([]byte, []byte, error) // Render a message, returns its key and its text
}

type FormatInterface interface {
	Format(data interface{}) ([]byte, []byte, error)
}

type Format struct {
	FormatDriver
	name string
}

func (t *Format) Name() string {
	return t.name
}

func (t *Format) Format(data interface{}) ([]byte, []byte, error) {
	key, text, err := t.FormatDriver.Format(data)
	if err != nil {
		err = &DriverFormatError{
			t.name,
			err,
		}
	}
	return key, text, err
}

func RegisterFormatDriver(name string, t FormatDriver) {
	lock.Lock()
	formatDrivers[name] = t
	lock.Unlock()
}

func FindFormat(name string) (*Format, error) {
	lock.RLock()
	t, ok := formatDrivers[name]
	lock.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %s not found", ErrFormat, name)
	}

	if err := t.Init(); err != nil {
		return nil, &DriverFormatError{name, err}
	}
	return &Format{t, name}, nil
}

// GetFormats returns the registered format names, sorted.
func GetFormats() []string {
	lock.RLock()
	defer lock.RUnlock()
	t := make([]string, 0, len(formatDrivers))
	for k := range formatDrivers {
		t = append(t, k)
	}
	sort.Strings(t)
	return t
}
