package bridge

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/wheel.go/pkg/bridge/msgs"
	fx "github.com/robotalks/wheel.go/pkg/framework"
)

// ErrClosed indicates the transport has been closed.
var ErrClosed = errors.New("bridge closed")

// Publisher publishes messages to topics.
type Publisher interface {
	Publish(topic string, msg fx.Message) error
	Reply(topic string, seq uint32, msg fx.Message) error
}

// Inbound is a decoded message received on a topic. It's posted into the
// loop as a message.
type Inbound struct {
	Topic    string
	Sequence uint32
	Typed    *msgs.Typed
	Msg      msgs.SerializableMessage
}

// NewMessage implements Message.
func (m *Inbound) NewMessage() fx.Message { return &Inbound{} }

// Bridge moves typed messages between a PacketReadWriter and the loop.
type Bridge struct {
	ReadWriter PacketReadWriter
	// Topics filters inbound packets. Empty accepts all.
	Topics []string
	// Handler receives Inbound messages. When nil, they are posted to
	// the loop running the Bridge and the next iteration is triggered.
	Handler fx.MessageHandler

	sendLock sync.Mutex
}

// New creates a Bridge.
func New(rw PacketReadWriter, topics ...string) *Bridge {
	return &Bridge{ReadWriter: rw, Topics: topics}
}

// Publish implements Publisher.
func (b *Bridge) Publish(topic string, msg fx.Message) error {
	return b.Reply(topic, 0, msg)
}

// Reply implements Publisher.
func (b *Bridge) Reply(topic string, seq uint32, msg fx.Message) error {
	typed, err := msgs.TypedFrom(msg)
	if err != nil {
		return err
	}
	typed.Sequence = seq
	return b.SendTyped(topic, typed)
}

// SendTyped sends a Typed message.
func (b *Bridge) SendTyped(topic string, typed *msgs.Typed) error {
	data, err := typed.Encode()
	if err != nil {
		return err
	}
	b.sendLock.Lock()
	defer b.sendLock.Unlock()
	return b.ReadWriter.WritePacket(&Packet{Topic: topic, Data: data})
}

// Accepts determines if inbound packets on topic are wanted.
func (b *Bridge) Accepts(topic string) bool {
	if len(b.Topics) == 0 {
		return true
	}
	for _, pattern := range b.Topics {
		if MatchTopic(topic, pattern) {
			return true
		}
	}
	return false
}

// Run implements Runnable.
func (b *Bridge) Run(ctx context.Context) error {
	return fx.RunWithContextCloser(ctx, b, func() error {
		for {
			pkt, err := b.ReadWriter.ReadPacket()
			if err != nil {
				return err
			}
			if in := b.decode(pkt); in != nil {
				b.dispatch(ctx, in)
			}
		}
	})
}

func (b *Bridge) decode(pkt *Packet) *Inbound {
	if !b.Accepts(pkt.Topic) {
		return nil
	}
	typed, err := msgs.DecodeTyped(pkt.Data)
	if err != nil {
		glog.Warningf("%s: bad message: %v", pkt.Topic, err)
		return nil
	}
	msg, err := typed.Decode()
	if err != nil {
		glog.Warningf("%s: decode error: (type_id=%x) %v", pkt.Topic, typed.TypeId, err)
		return nil
	}
	glog.V(2).Infof("%s: RCV %T seq=%d", pkt.Topic, msg, typed.Sequence)
	return &Inbound{Topic: pkt.Topic, Sequence: typed.Sequence, Typed: typed, Msg: msg}
}

func (b *Bridge) dispatch(ctx context.Context, in *Inbound) {
	if h := b.Handler; h != nil {
		h.HandleMessage(ctx, in)
		return
	}
	loopCtl := fx.LoopCtlFrom(ctx)
	loopCtl.PostMessage(in)
	loopCtl.TriggerNext()
}

// Close implements Closer.
func (b *Bridge) Close() error {
	if closer, ok := b.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// AddToLoop implements LoopAdder.
func (b *Bridge) AddToLoop(loop *fx.Loop) {
	if adder, ok := b.ReadWriter.(fx.LoopAdder); ok {
		loop.Add(adder)
	} else if runnable, ok := b.ReadWriter.(fx.Runnable); ok {
		loop.AddRunnable(runnable)
	}
	loop.AddRunnable(b)
}

// Mux publishes to multiple Publishers.
type Mux struct {
	Publishers []Publisher
}

// Publish implements Publisher.
func (m *Mux) Publish(topic string, msg fx.Message) error {
	var errs fx.AggregatedError
	for _, p := range m.Publishers {
		errs.Add(p.Publish(topic, msg))
	}
	return errs.Aggregate()
}

// Reply implements Publisher.
func (m *Mux) Reply(topic string, seq uint32, msg fx.Message) error {
	var errs fx.AggregatedError
	for _, p := range m.Publishers {
		errs.Add(p.Reply(topic, seq, msg))
	}
	return errs.Aggregate()
}

// Add adds more publishers.
func (m *Mux) Add(pubs ...Publisher) {
	m.Publishers = append(m.Publishers, pubs...)
}

// AddToLoop implements LoopAdder.
func (m *Mux) AddToLoop(l *fx.Loop) {
	for _, p := range m.Publishers {
		if adder, ok := p.(fx.LoopAdder); ok {
			l.Add(adder)
		}
	}
}
