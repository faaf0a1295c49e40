package msgs

import (
	"time"

	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/wheel.go/pkg/framework"
)

// Time is a timestamp split into seconds and nanoseconds.
type Time struct {
	Sec     int32  `protobuf:"varint,1,opt,name=sec,proto3" json:"sec,omitempty"`
	Nanosec uint32 `protobuf:"varint,2,opt,name=nanosec,proto3" json:"nanosec,omitempty"`
}

// TimeFrom converts time.Time.
func TimeFrom(t time.Time) *Time {
	return &Time{Sec: int32(t.Unix()), Nanosec: uint32(t.Nanosecond())}
}

// Time converts back to time.Time.
func (m *Time) Time() time.Time {
	if m == nil {
		return time.Time{}
	}
	return time.Unix(int64(m.Sec), int64(m.Nanosec))
}

// ProtoMessage implements proto.Message.
func (m *Time) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Time) Reset() { *m = Time{} }

// String implements proto.Message.
func (m *Time) String() string { return proto.CompactTextString(m) }

// Header stamps a message and names its reference frame.
type Header struct {
	Stamp   *Time  `protobuf:"bytes,1,opt,name=stamp,proto3" json:"stamp,omitempty"`
	FrameId string `protobuf:"bytes,2,opt,name=frame_id,json=frameId,proto3" json:"frame_id,omitempty"`
}

// NewHeader creates a Header.
func NewHeader(stamp time.Time, frameID string) *Header {
	return &Header{Stamp: TimeFrom(stamp), FrameId: frameID}
}

// ProtoMessage implements proto.Message.
func (m *Header) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Header) Reset() { *m = Header{} }

// String implements proto.Message.
func (m *Header) String() string { return proto.CompactTextString(m) }

// Vector3 is a 3D vector.
type Vector3 struct {
	X float64 `protobuf:"fixed64,1,opt,name=x,proto3" json:"x,omitempty"`
	Y float64 `protobuf:"fixed64,2,opt,name=y,proto3" json:"y,omitempty"`
	Z float64 `protobuf:"fixed64,3,opt,name=z,proto3" json:"z,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Vector3) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Vector3) Reset() { *m = Vector3{} }

// String implements proto.Message.
func (m *Vector3) String() string { return proto.CompactTextString(m) }

// Quaternion is an orientation.
type Quaternion struct {
	X float64 `protobuf:"fixed64,1,opt,name=x,proto3" json:"x,omitempty"`
	Y float64 `protobuf:"fixed64,2,opt,name=y,proto3" json:"y,omitempty"`
	Z float64 `protobuf:"fixed64,3,opt,name=z,proto3" json:"z,omitempty"`
	W float64 `protobuf:"fixed64,4,opt,name=w,proto3" json:"w,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Quaternion) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Quaternion) Reset() { *m = Quaternion{} }

// String implements proto.Message.
func (m *Quaternion) String() string { return proto.CompactTextString(m) }

// Twist is a velocity command: linear in m/s, angular in rad/s.
type Twist struct {
	Linear  *Vector3 `protobuf:"bytes,1,opt,name=linear,proto3" json:"linear,omitempty"`
	Angular *Vector3 `protobuf:"bytes,2,opt,name=angular,proto3" json:"angular,omitempty"`
}

// NewTwist creates a planar Twist.
func NewTwist(linearX, angularZ float64) *Twist {
	return &Twist{Linear: &Vector3{X: linearX}, Angular: &Vector3{Z: angularZ}}
}

// Planar returns linear.x and angular.z.
func (m *Twist) Planar() (linear, angular float64) {
	if m.Linear != nil {
		linear = m.Linear.X
	}
	if m.Angular != nil {
		angular = m.Angular.Z
	}
	return
}

// NewMessage implements Message.
func (m *Twist) NewMessage() fx.Message { return &Twist{} }

// TypeID implements SerializableMessage.
func (m *Twist) TypeID() uint32 { return TwistTypeID }

// Serializable implements SerializableMessage.
func (m *Twist) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *Twist) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Twist) Reset() { *m = Twist{} }

// String implements proto.Message.
func (m *Twist) String() string { return proto.CompactTextString(m) }

// TwistStamped is the measured wheel velocity event.
type TwistStamped struct {
	Header *Header `protobuf:"bytes,1,opt,name=header,proto3" json:"header,omitempty"`
	Twist  *Twist  `protobuf:"bytes,2,opt,name=twist,proto3" json:"twist,omitempty"`
}

// NewMessage implements Message.
func (m *TwistStamped) NewMessage() fx.Message { return &TwistStamped{} }

// TypeID implements SerializableMessage.
func (m *TwistStamped) TypeID() uint32 { return TwistStampedTypeID }

// Serializable implements SerializableMessage.
func (m *TwistStamped) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *TwistStamped) ProtoMessage() {}

// Reset implements proto.Message.
func (m *TwistStamped) Reset() { *m = TwistStamped{} }

// String implements proto.Message.
func (m *TwistStamped) String() string { return proto.CompactTextString(m) }

// Imu is the inertial telemetry event. Covariances are row-major 3x3
// matrices; a -1 in the first element marks the estimate as unknown.
type Imu struct {
	Header                       *Header     `protobuf:"bytes,1,opt,name=header,proto3" json:"header,omitempty"`
	Orientation                  *Quaternion `protobuf:"bytes,2,opt,name=orientation,proto3" json:"orientation,omitempty"`
	OrientationCovariance        []float64   `protobuf:"fixed64,3,rep,packed,name=orientation_covariance,json=orientationCovariance,proto3" json:"orientation_covariance,omitempty"`
	AngularVelocity              *Vector3    `protobuf:"bytes,4,opt,name=angular_velocity,json=angularVelocity,proto3" json:"angular_velocity,omitempty"`
	AngularVelocityCovariance    []float64   `protobuf:"fixed64,5,rep,packed,name=angular_velocity_covariance,json=angularVelocityCovariance,proto3" json:"angular_velocity_covariance,omitempty"`
	LinearAcceleration           *Vector3    `protobuf:"bytes,6,opt,name=linear_acceleration,json=linearAcceleration,proto3" json:"linear_acceleration,omitempty"`
	LinearAccelerationCovariance []float64   `protobuf:"fixed64,7,rep,packed,name=linear_acceleration_covariance,json=linearAccelerationCovariance,proto3" json:"linear_acceleration_covariance,omitempty"`
}

// NewMessage implements Message.
func (m *Imu) NewMessage() fx.Message { return &Imu{} }

// TypeID implements SerializableMessage.
func (m *Imu) TypeID() uint32 { return ImuTypeID }

// Serializable implements SerializableMessage.
func (m *Imu) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *Imu) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Imu) Reset() { *m = Imu{} }

// String implements proto.Message.
func (m *Imu) String() string { return proto.CompactTextString(m) }

// Int32 carries a single integer, used by the connectivity check.
type Int32 struct {
	Data int32 `protobuf:"varint,1,opt,name=data,proto3" json:"data,omitempty"`
}

// NewMessage implements Message.
func (m *Int32) NewMessage() fx.Message { return &Int32{} }

// TypeID implements SerializableMessage.
func (m *Int32) TypeID() uint32 { return Int32TypeID }

// Serializable implements SerializableMessage.
func (m *Int32) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *Int32) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Int32) Reset() { *m = Int32{} }

// String implements proto.Message.
func (m *Int32) String() string { return proto.CompactTextString(m) }

// TriggerRequest requests an action without arguments.
type TriggerRequest struct {
}

// NewMessage implements Message.
func (m *TriggerRequest) NewMessage() fx.Message { return &TriggerRequest{} }

// TypeID implements SerializableMessage.
func (m *TriggerRequest) TypeID() uint32 { return TriggerRequestTypeID }

// Serializable implements SerializableMessage.
func (m *TriggerRequest) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *TriggerRequest) ProtoMessage() {}

// Reset implements proto.Message.
func (m *TriggerRequest) Reset() { *m = TriggerRequest{} }

// String implements proto.Message.
func (m *TriggerRequest) String() string { return proto.CompactTextString(m) }

// TriggerResponse is the reply of TriggerRequest.
type TriggerResponse struct {
	Success bool   `protobuf:"varint,1,opt,name=success,proto3" json:"success,omitempty"`
	Message string `protobuf:"bytes,2,opt,name=message,proto3" json:"message,omitempty"`
}

// NewMessage implements Message.
func (m *TriggerResponse) NewMessage() fx.Message { return &TriggerResponse{} }

// TypeID implements SerializableMessage.
func (m *TriggerResponse) TypeID() uint32 { return TriggerResponseTypeID }

// Serializable implements SerializableMessage.
func (m *TriggerResponse) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *TriggerResponse) ProtoMessage() {}

// Reset implements proto.Message.
func (m *TriggerResponse) Reset() { *m = TriggerResponse{} }

// String implements proto.Message.
func (m *TriggerResponse) String() string { return proto.CompactTextString(m) }

// TypeID Groups
const (
	GroupStd      uint32 = 0x00000000
	GroupGeometry uint32 = 0x00010000
	GroupSensor   uint32 = 0x00020000
)

// TypeIDs
const (
	Int32TypeID           uint32 = GroupStd | 0x0000
	TriggerRequestTypeID  uint32 = GroupStd | 0x0001
	TriggerResponseTypeID uint32 = TriggerRequestTypeID | TypeIDMaskReply
	TwistTypeID           uint32 = GroupGeometry | 0x0000
	TwistStampedTypeID    uint32 = GroupGeometry | TypeIDKindEvent | 0x0001
	ImuTypeID             uint32 = GroupSensor | TypeIDKindEvent | 0x0000
)
