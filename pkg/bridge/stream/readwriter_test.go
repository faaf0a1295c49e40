package stream

import (
	"bytes"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/wheel.go/pkg/bridge"
)

func TestReadWriterFraming(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	require.NoError(t, rw.WritePacket(&bridge.Packet{Topic: "imu", Data: []byte{1, 2}}))
	require.Equal(t, []byte{7, 0, 0, 0, 3, 0, 'i', 'm', 'u', 1, 2}, buf.Bytes())

	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, &bridge.Packet{Topic: "imu", Data: []byte{1, 2}}, pkt)
	_, err = rw.ReadPacket()
	require.Equal(t, io.EOF, err)
}

func TestReadWriterMalformed(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
		err  error
	}{
		{"truncated", []byte{5, 0, 0, 0, 1}, io.ErrUnexpectedEOF},
		{"no topic length", []byte{1, 0, 0, 0, 1}, io.ErrUnexpectedEOF},
		{"topic overflow", []byte{3, 0, 0, 0, 9, 0, 'a'}, io.ErrUnexpectedEOF},
		{"too large", []byte{0, 0, 0x20, 0}, ErrPacketTooLarge},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(bytes.NewBuffer(tc.data)).ReadPacket()
			require.Equal(t, tc.err, err)
		})
	}
}

func TestReadWriterOverConn(t *testing.T) {
	c1, c2 := net.Pipe()
	a, b := New(c1), New(c2)
	defer a.Close()
	defer b.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.WritePacket(&bridge.Packet{Topic: "cmd_vel", Data: []byte("twist")})
	}()
	pkt, err := b.ReadPacket()
	require.NoError(t, err)
	require.NoError(t, <-errCh)
	require.Equal(t, "cmd_vel", pkt.Topic)
	require.Equal(t, []byte("twist"), pkt.Data)
}
