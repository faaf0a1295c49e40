// Package websocket carries bridge packets as JSON websocket messages.
package websocket

import (
	"golang.org/x/net/websocket"

	"github.com/robotalks/wheel.go/pkg/bridge"
)

// ReadWriter implements PacketReadWriter.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// Dial connects a websocket bridge endpoint.
func Dial(url string) (*ReadWriter, error) {
	conn, err := websocket.Dial(url, "", "http://localhost/")
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (*bridge.Packet, error) {
	var pkt bridge.Packet
	if err := websocket.JSON.Receive((*websocket.Conn)(p), &pkt); err != nil {
		return nil, err
	}
	return &pkt, nil
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt *bridge.Packet) error {
	return websocket.JSON.Send((*websocket.Conn)(p), pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}
