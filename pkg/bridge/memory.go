package bridge

import (
	"sync"

	"github.com/golang/glog"
)

// DefaultEndpointBuffer is the number of packets buffered per Endpoint.
const DefaultEndpointBuffer = 64

// Hub is an in-process broker. A packet written to an Endpoint is
// delivered to every other Endpoint of the same Hub.
type Hub struct {
	lock      sync.RWMutex
	endpoints map[*Endpoint]struct{}
}

// Endpoint is a PacketReadWriter connected to a Hub.
type Endpoint struct {
	hub       *Hub
	ch        chan *Packet
	done      chan struct{}
	closeOnce sync.Once
}

// NewHub creates a Hub.
func NewHub() *Hub {
	return &Hub{endpoints: make(map[*Endpoint]struct{})}
}

var (
	sharedHubsLock sync.Mutex
	sharedHubs     = make(map[string]*Hub)
)

// SharedHub returns the process-wide Hub of the name, created on first use.
func SharedHub(name string) *Hub {
	sharedHubsLock.Lock()
	defer sharedHubsLock.Unlock()
	h, ok := sharedHubs[name]
	if !ok {
		h = NewHub()
		sharedHubs[name] = h
	}
	return h
}

// Connect creates an Endpoint buffering up to size packets.
func (h *Hub) Connect(size int) *Endpoint {
	if size <= 0 {
		size = DefaultEndpointBuffer
	}
	ep := &Endpoint{hub: h, ch: make(chan *Packet, size), done: make(chan struct{})}
	h.lock.Lock()
	h.endpoints[ep] = struct{}{}
	h.lock.Unlock()
	return ep
}

// ReadPacket implements PacketReader.
func (e *Endpoint) ReadPacket() (*Packet, error) {
	select {
	case pkt := <-e.ch:
		return pkt, nil
	case <-e.done:
		return nil, ErrClosed
	}
}

// WritePacket implements PacketWriter. A slow reader loses packets
// instead of blocking the writer.
func (e *Endpoint) WritePacket(pkt *Packet) error {
	select {
	case <-e.done:
		return ErrClosed
	default:
	}
	e.hub.lock.RLock()
	defer e.hub.lock.RUnlock()
	for ep := range e.hub.endpoints {
		if ep == e {
			continue
		}
		select {
		case ep.ch <- pkt:
		default:
			glog.Warningf("%s: endpoint full, packet dropped", pkt.Topic)
		}
	}
	return nil
}

// Close implements io.Closer.
func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() {
		e.hub.lock.Lock()
		delete(e.hub.endpoints, e)
		e.hub.lock.Unlock()
		close(e.done)
	})
	return nil
}
