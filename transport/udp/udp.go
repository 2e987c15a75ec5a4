// Package udp sends messages to a single UDP destination.
package udp

import (
	"fmt"
	"net"
	"strconv"
	"sync"

	log "github.com/sirupsen/logrus"
)

type UdpDriver struct {
	Destination string
	Port        int
	Source      string // optional local address

	Logger log.FieldLogger

	conn *net.UDPConn
	lock *sync.Mutex
}

// New creates a driver sending to destination:port.
func New(destination string, port int) *UdpDriver {
	return &UdpDriver{
		Destination: destination,
		Port:        port,
		lock:        &sync.Mutex{},
	}
}

func (d *UdpDriver) Init() error {
	if d.Logger == nil {
		d.Logger = log.StandardLogger()
	}
	if d.lock == nil {
		d.lock = &sync.Mutex{}
	}

	remote := net.JoinHostPort(d.Destination, strconv.Itoa(d.Port))
	remoteAddr, err := net.ResolveUDPAddr("udp", remote)
	if err != nil {
		d.Logger.Errorf("Unable to resolve remote address %s", remote)
		return err
	}

	var localAddr *net.UDPAddr
	if d.Source != "" {
		local := net.JoinHostPort(d.Source, "0")
		if localAddr, err = net.ResolveUDPAddr("udp", local); err != nil {
			d.Logger.Errorf("Unable to resolve local address %s", local)
			return err
		}
	}

	d.conn, err = net.DialUDP("udp", localAddr, remoteAddr)
	if err != nil {
		d.Logger.Errorf("Unable to create UDP socket %v", err)
		return err
	}
	d.Logger.WithFields(log.Fields{
		"local":  d.conn.LocalAddr().String(),
		"remote": remoteAddr.String(),
	}).Debug("UDP transport ready")
	return nil
}

// Send writes one message as one datagram; the key is ignored.
func (d *UdpDriver) Send(key, data []byte) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.conn == nil {
		return fmt.Errorf("not initialized")
	}
	_, err := d.conn.Write(data)
	return err
}

func (d *UdpDriver) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}
