package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/wheel.go/pkg/bridge"
)

func TestClientOptionsFromURL(t *testing.T) {
	testCases := []struct {
		url      string
		server   string
		prefix   string
		clientID string
		user     string
	}{
		{"mqtt://localhost:1883/robot/", "tcp://localhost:1883", "robot/", "", ""},
		{"mqtt://localhost:1883", "tcp://localhost:1883", "", "", ""},
		{"mqtts://broker:8883/a/b/", "ssl://broker:8883", "a/b/", "", ""},
		{"ws://u:p@broker:9001/?client-id=left", "ws://broker:9001", "", "left", "u"},
	}
	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			opts, prefix, err := ClientOptionsFromURL(tc.url)
			require.NoError(t, err)
			require.Len(t, opts.Servers, 1)
			require.Equal(t, tc.server, opts.Servers[0].String())
			require.Equal(t, tc.prefix, prefix)
			require.Equal(t, tc.clientID, opts.ClientID)
			require.Equal(t, tc.user, opts.Username)
		})
	}
}

func TestQueueDispatch(t *testing.T) {
	q, err := NewQueueFromURL("mqtt://localhost:1883/robot/")
	require.NoError(t, err)

	var got []string
	record := func(name string) Handler {
		return func(topic string, payload []byte) {
			got = append(got, name+":"+topic+":"+string(payload))
		}
	}
	exact := q.Sub("cmd_vel", record("exact"))
	q.Sub("+", record("single"))
	q.Sub("#", record("all"))

	q.Dispatch("robot/cmd_vel", []byte("1"))
	q.Dispatch("other/cmd_vel", []byte("2"))
	q.Dispatch("robot/left_vel", []byte("3"))
	require.Len(t, got, 5)
	require.Equal(t, "exact:cmd_vel:1", got[0])
	require.ElementsMatch(t, []string{"single:cmd_vel:1", "all:cmd_vel:1"}, got[1:3])
	require.ElementsMatch(t, []string{"single:left_vel:3", "all:left_vel:3"}, got[3:])

	got = nil
	require.NoError(t, exact.Close())
	q.Dispatch("robot/cmd_vel", []byte("4"))
	require.ElementsMatch(t, []string{"single:cmd_vel:4", "all:cmd_vel:4"}, got)
}

func TestReadWriter(t *testing.T) {
	q, err := NewQueueFromURL("mqtt://localhost:1883/robot/")
	require.NoError(t, err)
	rw := NewPacketReadWriter(q, "cmd_vel", "reboot")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rw.Run(ctx) }()

	require.Eventually(t, func() bool {
		q.subsLock.RLock()
		defer q.subsLock.RUnlock()
		return len(q.subs) == 2
	}, time.Second, time.Millisecond)
	q.Dispatch("robot/reboot", []byte{1, 2})
	q.Dispatch("robot/imu", []byte{3})
	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, &bridge.Packet{Topic: "reboot", Data: []byte{1, 2}}, pkt)

	// not connected.
	require.Error(t, rw.WritePacket(&bridge.Packet{Topic: "imu"}))

	cancel()
	require.Equal(t, context.Canceled, <-done)
	_, err = rw.ReadPacket()
	require.Equal(t, bridge.ErrClosed, err)
	// late deliveries are ignored after close.
	rw.handleMsg("reboot", nil)
}

func TestReadWriterDropsWhenFull(t *testing.T) {
	q, err := NewQueueFromURL("mqtt://localhost:1883")
	require.NoError(t, err)
	rw := NewPacketReadWriter(q)
	for i := 0; i < DefaultInboundBuffer+3; i++ {
		rw.handleMsg("cmd_vel", []byte{byte(i)})
	}
	require.Len(t, rw.packetCh, DefaultInboundBuffer)
	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{0}, pkt.Data)
}
