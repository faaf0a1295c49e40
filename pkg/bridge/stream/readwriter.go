// Package stream carries bridge packets over a byte stream.
package stream

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/robotalks/wheel.go/pkg/bridge"
)

// MaxPacketSize limits the size of a packet read from the stream.
const MaxPacketSize = 1 << 20

// ErrPacketTooLarge indicates a packet exceeds MaxPacketSize.
var ErrPacketTooLarge = errors.New("packet too large")

// ReadWriter implements PacketReadWriter.
// Each packet is prefixed by 4-byte (little-endian) indicating the length,
// followed by 2-byte (little-endian) topic length, the topic and the data.
type ReadWriter struct {
	io.ReadWriter

	writeLock sync.Mutex
}

// New creates a ReadWriter with io.ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{ReadWriter: s}
}

// Dial connects a TCP bridge endpoint.
func Dial(address string) (*ReadWriter, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (*bridge.Packet, error) {
	var size uint32
	if err := binary.Read(p, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	if size > MaxPacketSize {
		return nil, ErrPacketTooLarge
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(p, buf); err != nil {
		return nil, err
	}
	if size < 2 {
		return nil, io.ErrUnexpectedEOF
	}
	topicLen := int(binary.LittleEndian.Uint16(buf))
	if 2+topicLen > len(buf) {
		return nil, io.ErrUnexpectedEOF
	}
	return &bridge.Packet{Topic: string(buf[2 : 2+topicLen]), Data: buf[2+topicLen:]}, nil
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt *bridge.Packet) error {
	size := 2 + len(pkt.Topic) + len(pkt.Data)
	if size > MaxPacketSize || len(pkt.Topic) > 0xffff {
		return ErrPacketTooLarge
	}
	buf := make([]byte, 6, 4+size)
	binary.LittleEndian.PutUint32(buf, uint32(size))
	binary.LittleEndian.PutUint16(buf[4:], uint16(len(pkt.Topic)))
	buf = append(buf, pkt.Topic...)
	buf = append(buf, pkt.Data...)
	p.writeLock.Lock()
	defer p.writeLock.Unlock()
	_, err := p.Write(buf)
	return err
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
