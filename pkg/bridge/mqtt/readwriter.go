package mqtt

import (
	"context"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/wheel.go/pkg/bridge"
)

// DefaultInboundBuffer is the number of inbound packets buffered before
// dropping.
const DefaultInboundBuffer = 64

// ReadWriter implements PacketReadWriter over a Queue.
// Publishing doesn't wait for delivery: only errors already known when
// the publish is issued (e.g. not connected) are returned.
type ReadWriter struct {
	Queue     *Queue
	SubTopics []string

	packetCh chan *bridge.Packet
	lock     sync.RWMutex
	closed   bool
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue, subTopics ...string) *ReadWriter {
	return &ReadWriter{
		Queue:     q,
		SubTopics: subTopics,
		packetCh:  make(chan *bridge.Packet, DefaultInboundBuffer),
	}
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (*bridge.Packet, error) {
	pkt, ok := <-p.packetCh
	if !ok {
		return nil, bridge.ErrClosed
	}
	return pkt, nil
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt *bridge.Packet) error {
	glog.V(2).Infof("PUB %q", pkt.Topic)
	return p.Queue.Pub(pkt.Topic, pkt.Data).Error()
}

// Run implements Runnable.
func (p *ReadWriter) Run(ctx context.Context) error {
	subs := make([]*Subscription, 0, len(p.SubTopics))
	for _, topic := range p.SubTopics {
		subs = append(subs, p.Queue.Sub(topic, Handler(p.handleMsg)))
	}
	<-ctx.Done()
	for _, sub := range subs {
		sub.Close()
	}
	p.Close()
	return ctx.Err()
}

// Close stops delivering inbound packets.
func (p *ReadWriter) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if !p.closed {
		p.closed = true
		close(p.packetCh)
	}
	return nil
}

func (p *ReadWriter) handleMsg(topic string, payload []byte) {
	p.lock.RLock()
	defer p.lock.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.packetCh <- &bridge.Packet{Topic: topic, Data: payload}:
	default:
		glog.Warningf("%s: inbound queue full, packet dropped", topic)
	}
}
