package utils

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"net/netip"
	"sync"
	"time"

	reuseport "github.com/libp2p/go-reuseport"
)

// MaxUDPPayload bounds the size of a received datagram.
const MaxUDPPayload = 65535

type udpPacket struct {
	src      netip.AddrPort
	dst      netip.AddrPort
	size     int
	payload  []byte
	received time.Time
}

var packetPool = sync.Pool{
	New: func() any {
		return &udpPacket{
			payload: make([]byte, MaxUDPPayload),
		}
	},
}

// ReceiverCallback is notified of the datagrams dropped by a full queue.
type ReceiverCallback interface {
	Dropped(msg Message)
}

type UDPReceiverConfig struct {
	Sockets   int
	Workers   int
	QueueSize int
	Blocking  bool

	ReceiverCallback ReceiverCallback
}

// UDPReceiver reads datagrams on SO_REUSEPORT sockets and hands them to workers.
// Datagrams of a sender always go to the same worker, in arrival order.
type UDPReceiver struct {
	q     chan bool
	wg    *sync.WaitGroup
	errCh chan error

	dispatch []chan *udpPacket

	sockets  int
	workers  int
	blocking bool
	cb       ReceiverCallback

	connsLock sync.Mutex
	conns     []*net.UDPConn
}

func NewUDPReceiver(cfg *UDPReceiverConfig) (*UDPReceiver, error) {
	r := &UDPReceiver{
		q:       make(chan bool),
		wg:      &sync.WaitGroup{},
		errCh:   make(chan error, 32),
		sockets: 1,
		workers: 1,
	}

	queueSize := 10000
	if cfg != nil {
		if cfg.Sockets > 0 {
			r.sockets = cfg.Sockets
		}
		if cfg.Workers > 0 {
			r.workers = cfg.Workers
		}
		if cfg.QueueSize > 0 {
			queueSize = cfg.QueueSize
		}
		r.blocking = cfg.Blocking
		r.cb = cfg.ReceiverCallback
	}

	r.dispatch = make([]chan *udpPacket, r.workers)
	for i := range r.dispatch {
		r.dispatch[i] = make(chan *udpPacket, queueSize)
	}
	return r, nil
}

// Errors returns the errors of the decode function and of the sockets.
func (r *UDPReceiver) Errors() <-chan error {
	return r.errCh
}

func (r *UDPReceiver) logError(err error) {
	select {
	case r.errCh <- err:
	default:
	}
}

func (r *UDPReceiver) worker(dispatch chan *udpPacket, decodeFunc DecoderFunc) {
	defer r.wg.Done()
	for {
		select {
		case <-r.q:
			return
		case pkt := <-dispatch:
			msg := &Message{
				Src:      pkt.src,
				Dst:      pkt.dst,
				Payload:  pkt.payload[:pkt.size],
				Received: pkt.received,
			}
			if decodeFunc != nil {
				if err := decodeFunc(msg); err != nil {
					r.logError(err)
				}
			}
			packetPool.Put(pkt)
		}
	}
}

func (r *UDPReceiver) workerFor(src netip.AddrPort) chan *udpPacket {
	if len(r.dispatch) == 1 {
		return r.dispatch[0]
	}
	h := fnv.New32a()
	addr := src.Addr().Unmap().As16()
	h.Write(addr[:])
	h.Write([]byte{byte(src.Port() >> 8), byte(src.Port())})
	return r.dispatch[h.Sum32()%uint32(len(r.dispatch))]
}

func (r *UDPReceiver) receive(udpconn *net.UDPConn) {
	defer r.wg.Done()
	dst, _ := netip.ParseAddrPort(udpconn.LocalAddr().String())

	for {
		pkt := packetPool.Get().(*udpPacket)
		size, src, err := udpconn.ReadFromUDPAddrPort(pkt.payload)
		if err != nil {
			packetPool.Put(pkt)
			select {
			case <-r.q:
				return
			default:
			}
			r.logError(err)
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		if size == 0 {
			packetPool.Put(pkt)
			continue
		}
		pkt.size = size
		pkt.src = src
		pkt.dst = dst
		pkt.received = time.Now().UTC()

		dispatch := r.workerFor(src)
		if r.blocking {
			select {
			case dispatch <- pkt:
			case <-r.q:
				return
			}
			continue
		}
		select {
		case dispatch <- pkt:
		case <-r.q:
			return
		default:
			if r.cb != nil {
				r.cb.Dropped(Message{
					Src:      pkt.src,
					Dst:      pkt.dst,
					Payload:  pkt.payload[:pkt.size],
					Received: pkt.received,
				})
			}
			packetPool.Put(pkt)
		}
	}
}

// Start binds the sockets then starts the workers and the reading routines.
// Binding errors are returned.
func (r *UDPReceiver) Start(addr string, port int, decodeFunc DecoderFunc) error {
	listen := net.JoinHostPort(addr, fmt.Sprint(port))
	var conns []*net.UDPConn
	for i := 0; i < r.sockets; i++ {
		pconn, err := reuseport.ListenPacket("udp", listen)
		if err != nil {
			for _, conn := range conns {
				conn.Close()
			}
			return err
		}
		udpconn, ok := pconn.(*net.UDPConn)
		if !ok {
			pconn.Close()
			return fmt.Errorf("listener is not UDP")
		}
		conns = append(conns, udpconn)
	}

	r.connsLock.Lock()
	r.conns = append(r.conns, conns...)
	r.connsLock.Unlock()

	for _, dispatch := range r.dispatch {
		r.wg.Add(1)
		go r.worker(dispatch, decodeFunc)
	}
	for _, conn := range conns {
		r.wg.Add(1)
		go r.receive(conn)
	}
	return nil
}

// LocalAddrs returns the addresses the sockets are bound to.
func (r *UDPReceiver) LocalAddrs() []net.Addr {
	r.connsLock.Lock()
	defer r.connsLock.Unlock()
	addrs := make([]net.Addr, len(r.conns))
	for i, conn := range r.conns {
		addrs[i] = conn.LocalAddr()
	}
	return addrs
}

// Stop closes the sockets and waits for the routines to end.
func (r *UDPReceiver) Stop() error {
	select {
	case <-r.q:
		return nil
	default:
		close(r.q)
	}

	var errs []error
	r.connsLock.Lock()
	for _, conn := range r.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.conns = nil
	r.connsLock.Unlock()

	r.wg.Wait()
	return errors.Join(errs...)
}
