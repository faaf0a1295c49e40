package mqtt

import (
	"context"
	"time"

	"github.com/golang/glog"
)

// DefaultRetryInterval is the wait between failed connection attempts.
const DefaultRetryInterval = 2 * time.Second

// Options configures a Transport.
type Options struct {
	BrokerURL string
	// ClientID is used when the URL doesn't specify client-id.
	ClientID  string
	SubTopics []string
	// PresenceTopic, when set, holds the retained Presence payload while
	// connected and is cleared by the broker when the connection is lost.
	PresenceTopic string
	Presence      []byte
}

// Transport is a PacketReadWriter owning its MQTT connection.
type Transport struct {
	*ReadWriter
	Options       Options
	RetryInterval time.Duration
}

// NewTransport creates a Transport.
func NewTransport(o Options) (*Transport, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(o.BrokerURL)
	if err != nil {
		return nil, err
	}
	if opts.ClientID == "" && o.ClientID != "" {
		opts.SetClientID(o.ClientID)
	}
	if o.PresenceTopic != "" {
		opts.SetBinaryWill(topicPrefix+o.PresenceTopic, nil, 1, true)
	}
	t := &Transport{Options: o, RetryInterval: DefaultRetryInterval}
	q := NewQueue(opts, topicPrefix)
	q.OnConnect = func(*Queue) { t.onConnected() }
	t.ReadWriter = NewPacketReadWriter(q, o.SubTopics...)
	return t, nil
}

// Run implements Runnable.
func (t *Transport) Run(ctx context.Context) error {
	for {
		token := t.Queue.Connect()
		token.Wait()
		err := token.Error()
		if err == nil {
			break
		}
		glog.Warningf("connect %s: %v, retry in %v", t.Options.BrokerURL, err, t.RetryInterval)
		select {
		case <-ctx.Done():
			t.ReadWriter.Close()
			return ctx.Err()
		case <-time.After(t.RetryInterval):
		}
	}
	err := t.ReadWriter.Run(ctx)
	if t.Options.PresenceTopic != "" {
		t.Queue.PubWith(t.Options.PresenceTopic, nil, 1, true).WaitTimeout(time.Second)
	}
	t.Queue.Close()
	return err
}

func (t *Transport) onConnected() {
	if t.Options.PresenceTopic != "" {
		t.Queue.PubWith(t.Options.PresenceTopic, t.Options.Presence, 1, true)
	}
}
