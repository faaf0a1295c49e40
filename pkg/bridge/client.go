package bridge

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/robotalks/wheel.go/pkg/bridge/msgs"
	fx "github.com/robotalks/wheel.go/pkg/framework"
)

// DefaultRequestExpiration is the default expiration expecting a reply.
const DefaultRequestExpiration = 1 * time.Second

// Result is the reply of a request.
type Result struct {
	Msg msgs.SerializableMessage
	Err error
}

// Future is a pending request.
type Future struct {
	key      requestKey
	expireAt time.Time
	elem     *list.Element
	result   chan Result
}

// ResultChan receives exactly one Result.
func (f *Future) ResultChan() <-chan Result {
	return f.result
}

type requestKey struct {
	topic string
	seq   uint32
}

// Client sends requests and matches replies by reply topic and sequence.
// Messages which are not replies are posted to the loop as *Inbound.
type Client struct {
	Expiration time.Duration
	Clock      fx.Clock

	bridge   Bridge
	seq      uint32
	requests list.List
	pending  map[requestKey]*Future
	lock     sync.Mutex
}

// NewClient creates a Client.
func NewClient(rw PacketReadWriter, topics ...string) *Client {
	c := &Client{
		Expiration: DefaultRequestExpiration,
		Clock:      fx.SystemClock,
		pending:    make(map[requestKey]*Future),
	}
	c.bridge.ReadWriter = rw
	c.bridge.Topics = topics
	c.bridge.Handler = fx.HandleMessageFunc(c.handleInbound)
	return c
}

// Publish publishes a message without expecting a reply.
func (c *Client) Publish(topic string, msg fx.Message) error {
	return c.bridge.Publish(topic, msg)
}

// Request publishes msg on topic and expects a reply on ReplyTopic(topic).
func (c *Client) Request(topic string, msg fx.Message) *Future {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.seq++
	if c.seq == 0 {
		c.seq++
	}
	f := &Future{
		key:      requestKey{topic: ReplyTopic(topic), seq: c.seq},
		expireAt: c.Clock.Now().Add(c.Expiration),
		result:   make(chan Result, 1),
	}
	if err := c.bridge.Reply(topic, f.key.seq, msg); err != nil {
		f.result <- Result{Err: err}
		close(f.result)
		return f
	}
	f.elem = c.requests.PushBack(f)
	c.pending[f.key] = f
	return f
}

// Pending returns the number of requests awaiting replies.
func (c *Client) Pending() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.requests.Len()
}

// AddToLoop implements LoopAdder.
func (c *Client) AddToLoop(l *fx.Loop) {
	l.Add(&c.bridge)
	l.AddController(fx.PrLvIdle, fx.ControlFunc(c.purgeExpired))
}

func (c *Client) handleInbound(ctx context.Context, msg fx.Message) {
	in := msg.(*Inbound)
	if c.resolve(in) {
		return
	}
	loopCtl := fx.LoopCtlFrom(ctx)
	loopCtl.PostMessage(in)
	loopCtl.TriggerNext()
}

func (c *Client) resolve(in *Inbound) bool {
	key := requestKey{topic: in.Topic, seq: in.Sequence}
	c.lock.Lock()
	defer c.lock.Unlock()
	f := c.pending[key]
	if f == nil {
		return false
	}
	c.requests.Remove(f.elem)
	delete(c.pending, key)
	f.result <- Result{Msg: in.Msg}
	close(f.result)
	return true
}

func (c *Client) purgeExpired(cc fx.ControlContext) error {
	now := cc.Time()
	c.lock.Lock()
	defer c.lock.Unlock()
	for c.requests.Len() > 0 {
		elem := c.requests.Front()
		f := elem.Value.(*Future)
		if f.expireAt.After(now) {
			break
		}
		c.requests.Remove(elem)
		delete(c.pending, f.key)
		f.result <- Result{Err: context.DeadlineExceeded}
		close(f.result)
	}
	return nil
}
