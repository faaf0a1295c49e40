package drive

import (
	"encoding/binary"
	"fmt"
)

// FrameSize is the fixed size of every frame exchanged with the drive.
const FrameSize = 10

// reservedOffset is the position of the byte that is always 0x00.
const reservedOffset = 4

// Register addresses.
const (
	RegOperationMode  uint16 = 0x7017
	RegEmergencyStop  uint16 = 0x701F
	RegControlWord    uint16 = 0x7019
	RegTargetVelocity uint16 = 0x70B2
	RegActualSpeed    uint16 = 0x7077
)

// Command codes.
const (
	CodeSetup   byte = 0x51
	CodeEnable  byte = 0x52
	CodeSend    byte = 0x54
	CodeRead    byte = 0x52
	CodeReadDEC byte = 0xA0
)

// StatusReadSuccess is the status code of a successful read response.
const StatusReadSuccess byte = 0xA4

// Register values used during initialization.
const (
	SpeedControlMode uint32 = 3
	EStopDisabled    uint32 = 0
	MotorEnabled     uint32 = 0x0F
)

// Frame is a fixed-length checksummed frame.
//
//	[id][code][addrHi][addrLo][0x00][d3][d2][d1][d0][checksum]
//
// The checksum is the sum of the preceding 9 bytes modulo 256.
type Frame [FrameSize]byte

// Encode builds a command frame. The payload is laid out big-endian.
func Encode(deviceID byte, addr uint16, code byte, payload uint32) Frame {
	var f Frame
	f[0], f[1] = deviceID, code
	binary.BigEndian.PutUint16(f[2:4], addr)
	binary.BigEndian.PutUint32(f[5:9], payload)
	f[9] = Checksum(f[:9])
	return f
}

// Checksum sums bytes modulo 256.
func Checksum(b []byte) (sum byte) {
	for _, v := range b {
		sum += v
	}
	return
}

// DeviceID is the first byte.
func (f Frame) DeviceID() byte { return f[0] }

// Code is the command code of a request or status code of a response.
func (f Frame) Code() byte { return f[1] }

// Address is the register address.
func (f Frame) Address() uint16 { return binary.BigEndian.Uint16(f[2:4]) }

// Payload interprets the data bytes in the big-endian request order.
func (f Frame) Payload() uint32 { return binary.BigEndian.Uint32(f[5:9]) }

// ResponsePayload interprets the data bytes in the byte-reversed order
// used by the drive in responses.
func (f Frame) ResponsePayload() int32 { return int32(binary.LittleEndian.Uint32(f[5:9])) }

// Valid verifies the checksum.
func (f Frame) Valid() bool { return Checksum(f[:9]) == f[9] }

// Bytes returns the frame as a slice.
func (f Frame) Bytes() []byte { return f[:] }

// String implements fmt.Stringer.
func (f Frame) String() string {
	return fmt.Sprintf("% X", f[:])
}

// Decode parses a read response. A value is returned only when the frame is
// complete, comes from the expected device with the read success status,
// carries the expected register address and has a valid checksum.
func Decode(raw []byte, deviceID byte, addr uint16) (int32, bool) {
	if len(raw) < FrameSize {
		return 0, false
	}
	var f Frame
	copy(f[:], raw)
	if f.DeviceID() != deviceID || f.Code() != StatusReadSuccess || f.Address() != addr || !f.Valid() {
		return 0, false
	}
	return f.ResponsePayload(), true
}

// SetSpeedCommand builds the frame that sets the target velocity in DEC.
func SetSpeedCommand(deviceID byte, dec int32) Frame {
	return Encode(deviceID, RegTargetVelocity, CodeSend, uint32(dec))
}

// ReadSpeedRequest builds the frame requesting the actual speed in DEC.
func ReadSpeedRequest(deviceID byte) Frame {
	return Encode(deviceID, RegActualSpeed, CodeReadDEC, 0)
}

// InitSequence returns the frames bringing the drive into speed control
// mode: select the mode, release the emergency stop, enable the motor.
func InitSequence(deviceID byte) []Frame {
	return []Frame{
		Encode(deviceID, RegOperationMode, CodeSetup, SpeedControlMode),
		Encode(deviceID, RegEmergencyStop, CodeSetup, EStopDisabled),
		Encode(deviceID, RegControlWord, CodeEnable, MotorEnabled),
	}
}
