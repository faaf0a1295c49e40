// Package env sets up the bridge connections of a node.
package env

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/robotalks/wheel.go/pkg/bridge"
	"github.com/robotalks/wheel.go/pkg/bridge/mqtt"
	"github.com/robotalks/wheel.go/pkg/bridge/stream"
	"github.com/robotalks/wheel.go/pkg/bridge/websocket"
	fx "github.com/robotalks/wheel.go/pkg/framework"
)

// Config provides common options to connect the bridge.
type Config struct {
	// NodeID identifies this node, defaults to the machine ID.
	NodeID string

	// BridgeURLs lists the transports, e.g. mqtt://host:port/topic-prefix,
	// tcp://host:port, ws://host:port/path or mem://name for an in-process
	// hub.
	BridgeURLs []string
}

var defaultConfig = Config{
	BridgeURLs: []string{"mqtt://localhost:1883/robot/"},
}

func init() {
	if val := os.Getenv("ROBO_MQTT_URL"); val != "" {
		defaultConfig.BridgeURLs = splitURLs(val)
	}
	if val := os.Getenv("WHEEL_BRIDGE_URL"); val != "" {
		defaultConfig.BridgeURLs = splitURLs(val)
	}
	if val := os.Getenv("WHEEL_NODE_ID"); val != "" {
		defaultConfig.NodeID = val
	}
}

func splitURLs(val string) (urls []string) {
	for _, u := range strings.Split(val, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return
}

type urlsFlag struct {
	urls *[]string
}

func (f urlsFlag) String() string {
	if f.urls == nil {
		return ""
	}
	return strings.Join(*f.urls, ",")
}

func (f urlsFlag) Set(val string) error {
	*f.urls = splitURLs(val)
	return nil
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.NodeID, "node-id", defaultConfig.NodeID, "Node ID, defaults to machine ID.")
	flag.Var(urlsFlag{&defaultConfig.BridgeURLs}, "bridge", "Comma separated bridge URLs.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	conf.BridgeURLs = append([]string(nil), defaultConfig.BridgeURLs...)
	if conf.NodeID == "" {
		conf.NodeID = MachineID()
	}
	return &conf
}

// TransportOptions customizes a transport.
type TransportOptions struct {
	// SubTopics are the inbound topics. Transports without subscription
	// deliver everything and the Bridge filters.
	SubTopics     []string
	PresenceTopic string
	Presence      []byte
}

// NewTransport creates a transport from the URL.
func (c *Config) NewTransport(bridgeURL string, o TransportOptions) (bridge.PacketReadWriter, error) {
	u, err := url.Parse(bridgeURL)
	if err != nil {
		return nil, fmt.Errorf("invalid bridge URL: %v", err)
	}
	switch u.Scheme {
	case "mqtt", "mqtts":
		return mqtt.NewTransport(mqtt.Options{
			BrokerURL:     bridgeURL,
			ClientID:      c.NodeID,
			SubTopics:     o.SubTopics,
			PresenceTopic: o.PresenceTopic,
			Presence:      o.Presence,
		})
	case "tcp":
		return stream.Dial(u.Host)
	case "ws", "wss":
		return websocket.Dial(bridgeURL)
	case "mem":
		name := u.Host
		if name == "" {
			name = u.Opaque
		}
		return bridge.SharedHub(name).Connect(0), nil
	default:
		return nil, fmt.Errorf("unknown bridge URL scheme: %q", u.Scheme)
	}
}

// Env holds the bridges of a node.
type Env struct {
	Config    *Config
	Bridges   []*bridge.Bridge
	Publisher *bridge.Mux
}

// NewEnv connects all bridges, accepting inbound messages on subTopics.
func (c *Config) NewEnv(o TransportOptions) (*Env, error) {
	if len(c.BridgeURLs) == 0 {
		return nil, fmt.Errorf("at least one bridge URL is required")
	}
	env := &Env{Config: c, Publisher: &bridge.Mux{}}
	for _, u := range c.BridgeURLs {
		rw, err := c.NewTransport(u, o)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("create bridge %s error: %v", u, err)
		}
		b := bridge.New(rw, o.SubTopics...)
		env.Bridges = append(env.Bridges, b)
		env.Publisher.Add(b)
	}
	return env, nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv(o TransportOptions) *Env {
	env, err := c.NewEnv(o)
	if err != nil {
		log.Fatalln(err)
	}
	return env
}

// AddToLoop implements LoopAdder.
func (e *Env) AddToLoop(loop *fx.Loop) {
	for _, b := range e.Bridges {
		loop.Add(b)
	}
}

// Close closes all bridges.
func (e *Env) Close() error {
	var errs fx.AggregatedError
	for _, b := range e.Bridges {
		errs.Add(b.Close())
	}
	return errs.Aggregate()
}
