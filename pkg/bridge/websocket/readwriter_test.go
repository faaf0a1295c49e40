package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/robotalks/wheel.go/pkg/bridge"
)

func TestReadWriterEcho(t *testing.T) {
	srv := httptest.NewServer(websocket.Handler(func(conn *websocket.Conn) {
		rw := New(conn)
		for {
			pkt, err := rw.ReadPacket()
			if err != nil {
				return
			}
			pkt.Topic = bridge.ReplyTopic(pkt.Topic)
			if rw.WritePacket(pkt) != nil {
				return
			}
		}
	}))
	defer srv.Close()

	rw, err := Dial("ws" + strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, err)
	defer rw.Close()

	require.NoError(t, rw.WritePacket(&bridge.Packet{Topic: "com_check", Data: []byte{0x08, 0x01}}))
	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, &bridge.Packet{Topic: "com_check/reply", Data: []byte{0x08, 0x01}}, pkt)
}
