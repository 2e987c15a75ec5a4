// Package transport sends encoded messages to the collector.
package transport

import (
	"fmt"
)

var (
	// ErrTransport is the base error for transport failures.
	ErrTransport = fmt.Errorf("transport error")
)

// DriverTransportError wraps a driver-specific error with its transport name.
type DriverTransportError struct {
	Driver string
	Err    error
}

func (e *DriverTransportError) Error() string {
	return fmt.Sprintf("%s for %s transport", e.Err.Error(), e.Driver)
}

func (e *DriverTransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// TransportDriver describes a transport lifecycle and send method.
type TransportDriver interface {
	Init() error                 // Initialize driver (eg: resolve and connect sockets)
	Close() error                // Close driver
	Send(key, data []byte) error // Send an encoded message
}

// TransportInterface is the minimal interface needed to send payloads.
type TransportInterface interface {
	Send(key, data []byte) error
}

// Transport is a named driver whose errors carry the driver name.
type Transport struct {
	TransportDriver
	name string
}

// NewTransport initializes a driver.
func NewTransport(name string, d TransportDriver) (*Transport, error) {
	if err := d.Init(); err != nil {
		return nil, &DriverTransportError{name, err}
	}
	return &Transport{d, name}, nil
}

func (t *Transport) Name() string {
	return t.name
}

// Close calls the driver Close and wraps errors with transport metadata.
func (t *Transport) Close() error {
	if err := t.TransportDriver.Close(); err != nil {
		return &DriverTransportError{t.name, err}
	}
	return nil
}

// Send forwards data to the driver and wraps errors with transport metadata.
func (t *Transport) Send(key, data []byte) error {
	if err := t.TransportDriver.Send(key, data); err != nil {
		return &DriverTransportError{t.name, err}
	}
	return nil
}
