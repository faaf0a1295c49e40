// Package bridge exchanges typed messages with other nodes over a topic
// based pub/sub transport.
package bridge

import (
	"strings"
)

// Packet is a payload published on a topic.
type Packet struct {
	Topic string `json:"topic"`
	Data  []byte `json:"data"`
}

// PacketReader reads packets.
type PacketReader interface {
	ReadPacket() (*Packet, error)
}

// PacketWriter writes packets.
type PacketWriter interface {
	WritePacket(*Packet) error
}

// PacketReadWriter reads/writes packets.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// ReplySuffix is appended to a request topic to form the reply topic.
const ReplySuffix = "/reply"

// ReplyTopic returns the topic replies of requests on topic go to.
func ReplyTopic(topic string) string {
	return topic + ReplySuffix
}

// MatchTopic matches topic with pattern. The pattern uses MQTT wildcards:
// "+" matches exactly one level and a trailing "#" matches the rest.
func MatchTopic(topic, pattern string) bool {
	tokensT, tokensP := strings.Split(topic, "/"), strings.Split(pattern, "/")
	for i, token := range tokensP {
		if token == "#" && i+1 == len(tokensP) {
			return true
		}
		if i >= len(tokensT) {
			return false
		}
		if token == "+" {
			continue
		}
		if token != tokensT[i] {
			return false
		}
	}
	return len(tokensP) == len(tokensT)
}
