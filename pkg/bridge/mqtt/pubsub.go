// Package mqtt carries bridge packets over an MQTT broker.
package mqtt

import (
	"net/url"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/wheel.go/pkg/bridge"
)

// DisconnectQuiesce is the time in milliseconds given to in-flight work
// when the Queue disconnects.
const DisconnectQuiesce = 250

// Handler is the callback when a message is received.
type Handler func(topic string, payload []byte)

// Queue wraps MQTT client. All topics are relative to TopicPrefix.
// Subscriptions survive reconnects: they are renewed when connected.
type Queue struct {
	Client       paho.Client
	TopicPrefix  string
	OnConnect    ConnectHandler
	OnDisconnect ConnectHandler

	subsLock sync.RWMutex
	// subs maps a topic pattern to its subscriptions in order.
	subs map[string][]*Subscription
}

// ConnectHandler is to handle connect/disconnect events.
type ConnectHandler func(*Queue)

// Subscription is one handler of a topic pattern.
type Subscription struct {
	Token paho.Token

	queue   *Queue
	pattern string
	handler Handler
}

// ClientOptionsFromURL creates ClientOptions from URL. The path of the URL
// becomes the topic prefix, e.g. mqtt://localhost:1883/robot/.
// mqtt and mqtts map to tcp and ssl, other schemes (ws, wss) are passed to
// paho as is. The client-id query parameter sets the client ID.
func ClientOptionsFromURL(serverURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, "", err
	}
	scheme := u.Scheme
	switch scheme {
	case "", "mqtt":
		scheme = "tcp"
	case "mqtts":
		scheme = "ssl"
	}

	opts := paho.NewClientOptions().
		AddBroker(scheme + "://" + u.Host).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	if clientID := u.Query().Get("client-id"); clientID != "" {
		opts.SetClientID(clientID)
	}
	return opts, strings.TrimPrefix(u.Path, "/"), nil
}

// NewQueue creates Queue.
func NewQueue(options *paho.ClientOptions, topicPrefix string) *Queue {
	q := &Queue{TopicPrefix: topicPrefix, subs: make(map[string][]*Subscription)}
	options.SetOnConnectHandler(q.OnConnectHandler)
	options.SetConnectionLostHandler(q.ConnectionLostHandler)
	q.Client = paho.NewClient(options)
	return q
}

// NewQueueFromURL creates Queue from URL.
func NewQueueFromURL(brokerURL string) (*Queue, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return NewQueue(opts, topicPrefix), nil
}

// Connect connects the client.
func (q *Queue) Connect() paho.Token {
	return q.Client.Connect()
}

// Close implements io.Closer.
func (q *Queue) Close() error {
	q.Client.Disconnect(DisconnectQuiesce)
	return nil
}

// Sub adds a handler to a topic pattern. The broker subscription is made
// for the first handler of a pattern, right away when connected, otherwise
// on connect.
func (q *Queue) Sub(pattern string, handler Handler) *Subscription {
	sub := &Subscription{queue: q, pattern: pattern, handler: handler}
	q.subsLock.Lock()
	first := len(q.subs[pattern]) == 0
	q.subs[pattern] = append(q.subs[pattern], sub)
	q.subsLock.Unlock()

	sub.Token = &paho.DummyToken{}
	if first && q.Client.IsConnected() {
		glog.V(2).Infof("SUB %q", q.TopicPrefix+pattern)
		sub.Token = q.Client.Subscribe(q.TopicPrefix+pattern, 0, q.dispatch)
	}
	return sub
}

// Pub publishes to a topic.
func (q *Queue) Pub(topic string, payload []byte) paho.Token {
	return q.PubWith(topic, payload, 0, false)
}

// PubWith publishes with QoS and retain settings.
func (q *Queue) PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token {
	return q.Client.Publish(q.TopicPrefix+topic, qos, retain, payload)
}

// Resubscribe subscribes all patterns with handlers.
func (q *Queue) Resubscribe() paho.Token {
	filters := make(map[string]byte)
	q.subsLock.RLock()
	for pattern := range q.subs {
		filters[q.TopicPrefix+pattern] = 0
	}
	q.subsLock.RUnlock()
	if len(filters) == 0 {
		return &paho.DummyToken{}
	}
	for filter := range filters {
		glog.V(2).Infof("SUB %q", filter)
	}
	return q.Client.SubscribeMultiple(filters, q.dispatch)
}

// OnConnectHandler is the default implementation of paho.OnConnectHandler.
func (q *Queue) OnConnectHandler(paho.Client) {
	glog.Info("connected")
	q.Resubscribe()
	if h := q.OnConnect; h != nil {
		h(q)
	}
}

// ConnectionLostHandler is the default implementation of paho.ConnectLostHandler.
func (q *Queue) ConnectionLostHandler(c paho.Client, err error) {
	glog.Warningf("connection lost: %v", err)
	if h := q.OnDisconnect; h != nil {
		h(q)
	}
}

func (q *Queue) dispatch(c paho.Client, msg paho.Message) {
	q.Dispatch(msg.Topic(), msg.Payload())
}

// Dispatch delivers a payload received on the full topic to matching
// subscriptions: handlers of the exact topic first, then wildcard ones.
// Topics outside of TopicPrefix are ignored.
func (q *Queue) Dispatch(fullTopic string, payload []byte) {
	if !strings.HasPrefix(fullTopic, q.TopicPrefix) {
		return
	}
	glog.V(2).Infof("RCV %q", fullTopic)
	topic := fullTopic[len(q.TopicPrefix):]
	q.subsLock.RLock()
	subs := append([]*Subscription(nil), q.subs[topic]...)
	for pattern, lst := range q.subs {
		if pattern != topic && isWildcard(pattern) && bridge.MatchTopic(topic, pattern) {
			subs = append(subs, lst...)
		}
	}
	q.subsLock.RUnlock()
	for _, sub := range subs {
		sub.handler(topic, payload)
	}
}

func isWildcard(pattern string) bool {
	return strings.Contains(pattern, "+") || strings.HasSuffix(pattern, "#")
}

// Close removes the handler. The broker subscription is dropped with the
// last handler of the pattern.
func (s *Subscription) Close() error {
	q := s.queue
	q.subsLock.Lock()
	lst := q.subs[s.pattern]
	for n, sub := range lst {
		if sub == s {
			lst = append(lst[:n:n], lst[n+1:]...)
			break
		}
	}
	last := len(lst) == 0
	if last {
		delete(q.subs, s.pattern)
	} else {
		q.subs[s.pattern] = lst
	}
	q.subsLock.Unlock()
	if !last || !q.Client.IsConnected() {
		return nil
	}
	glog.V(2).Infof("UNSUB %q", s.pattern)
	token := q.Client.Unsubscribe(q.TopicPrefix + s.pattern)
	token.Wait()
	return token.Error()
}
