package env

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/wheel.go/pkg/bridge"
	"github.com/robotalks/wheel.go/pkg/bridge/mqtt"
	"github.com/robotalks/wheel.go/pkg/bridge/stream"
)

func TestNewTransport(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	go func() {
		if conn, err := l.Accept(); err == nil {
			conn.Close()
		}
	}()

	conf := &Config{NodeID: "left-1"}
	opts := TransportOptions{SubTopics: []string{"cmd_vel"}, PresenceTopic: "nodes/left"}

	rw, err := conf.NewTransport("mqtt://localhost:1883/robot/", opts)
	require.NoError(t, err)
	tr, ok := rw.(*mqtt.Transport)
	require.True(t, ok)
	require.Equal(t, "left-1", tr.Options.ClientID)
	require.Equal(t, []string{"cmd_vel"}, tr.SubTopics)
	require.Equal(t, "robot/", tr.Queue.TopicPrefix)

	rw, err = conf.NewTransport("tcp://"+l.Addr().String(), opts)
	require.NoError(t, err)
	require.IsType(t, &stream.ReadWriter{}, rw)
	rw.(*stream.ReadWriter).Close()

	_, err = conf.NewTransport("udp://localhost:1", opts)
	require.EqualError(t, err, `unknown bridge URL scheme: "udp"`)
	_, err = conf.NewTransport("://", opts)
	require.Error(t, err)
}

func TestNewMemoryTransport(t *testing.T) {
	conf := &Config{NodeID: "n"}
	connect := func(url string) *bridge.Endpoint {
		rw, err := conf.NewTransport(url, TransportOptions{})
		require.NoError(t, err)
		require.IsType(t, &bridge.Endpoint{}, rw)
		return rw.(*bridge.Endpoint)
	}
	a, b, other := connect("mem://wheels"), connect("mem://wheels"), connect("mem:")
	defer a.Close()
	defer b.Close()

	pkt := &bridge.Packet{Topic: "cmd_vel", Data: []byte{1}}
	require.NoError(t, a.WritePacket(pkt))
	received, err := b.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, pkt, received)

	require.NoError(t, other.Close())
	_, err = other.ReadPacket()
	require.Equal(t, bridge.ErrClosed, err)
}

func TestNewEnv(t *testing.T) {
	conf := &Config{NodeID: "n", BridgeURLs: []string{"mqtt://a:1883/x/", "mqtts://b:8883"}}
	env, err := conf.NewEnv(TransportOptions{SubTopics: []string{"reboot"}})
	require.NoError(t, err)
	require.Len(t, env.Bridges, 2)
	require.Len(t, env.Publisher.Publishers, 2)
	require.Equal(t, []string{"reboot"}, env.Bridges[0].Topics)
	require.NoError(t, env.Close())

	_, err = (&Config{}).NewEnv(TransportOptions{})
	require.Error(t, err)
	_, err = (&Config{BridgeURLs: []string{"mqtt://a", "bad://b"}}).NewEnv(TransportOptions{})
	require.Error(t, err)
}

func TestConfigFlags(t *testing.T) {
	var urls []string
	f := urlsFlag{&urls}
	require.NoError(t, f.Set("mqtt://a/, tcp://b:1,"))
	require.Equal(t, []string{"mqtt://a/", "tcp://b:1"}, urls)
	require.Equal(t, "mqtt://a/,tcp://b:1", f.String())

	conf := NewConfig()
	require.NotEmpty(t, conf.NodeID)
	conf.BridgeURLs[0] = "changed"
	require.NotEqual(t, "changed", Default().BridgeURLs[0])
}
