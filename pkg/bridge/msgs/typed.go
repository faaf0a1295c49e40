// Package msgs defines the messages exchanged with wheel nodes over the
// pub/sub bridge.
//
// Every message travels inside a Typed envelope carrying its type ID and a
// sequence number. Replies reuse the sequence number of the request.
package msgs

import (
	"errors"
	"fmt"

	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/wheel.go/pkg/framework"
)

// TypeID masks
const (
	TypeIDMaskKind  uint32 = 0x80000000
	TypeIDMaskGroup uint32 = 0x7fff0000
	TypeIDMaskID    uint32 = 0x0000ffff
	TypeIDMaskReply uint32 = 0x00008000
)

// Message Kinds
const (
	TypeIDKindCommand uint32 = 0x00000000
	TypeIDKindEvent   uint32 = 0x80000000
)

// Typed wraps a message with type information.
type Typed struct {
	TypeId   uint32 `protobuf:"varint,1,opt,name=type_id,json=typeId,proto3" json:"type_id,omitempty"`
	Sequence uint32 `protobuf:"varint,2,opt,name=sequence,proto3" json:"sequence,omitempty"`
	Message  []byte `protobuf:"bytes,3,opt,name=message,proto3" json:"message,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Typed) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Typed) Reset() { *m = Typed{} }

// String implements proto.Message.
func (m *Typed) String() string { return proto.CompactTextString(m) }

// ErrUnknownType indicates unknown type id.
type ErrUnknownType struct {
	TypeID uint32
}

// Error implements error.
func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown type: %x", e.TypeID)
}

var (
	// ErrNotSerializable indicates the message is not serializable.
	ErrNotSerializable = errors.New("not serializable message")
)

// SerializableMessage can be serialized over the wire.
type SerializableMessage interface {
	fx.Message
	TypeID() uint32
	Serializable() proto.Message
}

// MessageTypes maps type IDs to messages. It's fixed at compile time.
var MessageTypes = map[uint32]SerializableMessage{
	Int32TypeID:           (*Int32)(nil),
	TriggerRequestTypeID:  (*TriggerRequest)(nil),
	TriggerResponseTypeID: (*TriggerResponse)(nil),
	TwistTypeID:           (*Twist)(nil),
	TwistStampedTypeID:    (*TwistStamped)(nil),
	ImuTypeID:             (*Imu)(nil),
}

// TypedFrom creates a Typed from a serializable message.
func TypedFrom(msg fx.Message) (*Typed, error) {
	if s, ok := msg.(SerializableMessage); ok {
		typeID, serializable := s.TypeID(), s.Serializable()
		data, err := proto.Marshal(serializable)
		if err != nil {
			return nil, err
		}
		return &Typed{TypeId: typeID, Message: data}, nil
	}
	return nil, ErrNotSerializable
}

// Decode decodes the envelope into actual message.
func (m *Typed) Decode() (SerializableMessage, error) {
	msgType, ok := MessageTypes[m.TypeId]
	if !ok {
		return nil, &ErrUnknownType{TypeID: m.TypeId}
	}
	msg := msgType.NewMessage().(SerializableMessage)
	if err := proto.Unmarshal(m.Message, msg.Serializable()); err != nil {
		return nil, err
	}
	return msg, nil
}

// Encode encodes the Typed to bytes.
func (m *Typed) Encode() ([]byte, error) {
	return proto.Marshal(m)
}

// Kind gets message kind from type ID.
func (m *Typed) Kind() uint32 {
	return m.TypeId & TypeIDMaskKind
}

// IsEvent determines if the message is an event.
func (m *Typed) IsEvent() bool {
	return m.Kind() == TypeIDKindEvent
}

// IsReply determines if the message replies a request.
func (m *Typed) IsReply() bool {
	return !m.IsEvent() && m.TypeId&TypeIDMaskReply != 0
}

// DecodeTyped decodes bytes into Typed.
func DecodeTyped(data []byte) (*Typed, error) {
	var typed Typed
	if err := proto.Unmarshal(data, &typed); err != nil {
		return nil, err
	}
	return &typed, nil
}
