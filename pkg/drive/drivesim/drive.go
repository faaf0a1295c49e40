// Package drivesim simulates a motor drive speaking the frame protocol.
package drivesim

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
	"time"

	"github.com/robotalks/wheel.go/pkg/drive"
)

// Drive is the far end of the serial line. Frames written to it are applied
// to its registers, and read requests queue responses to be read back.
type Drive struct {
	DeviceID byte
	// Accel limits the change of speed in DEC per second, 0 for instant.
	Accel float64
	Clock func() time.Time

	lock   sync.Mutex
	cond   *sync.Cond
	parser drive.Parser
	out    []byte
	closed bool

	mode    uint32
	estop   uint32
	control uint32
	ramp    ramp
	frames  []drive.Frame
}

type ramp struct {
	from, to   float64
	start, end time.Time
}

func (r *ramp) at(now time.Time) float64 {
	if !now.Before(r.end) {
		return r.to
	}
	if !now.After(r.start) {
		return r.from
	}
	frac := now.Sub(r.start).Seconds() / r.end.Sub(r.start).Seconds()
	return r.from + (r.to-r.from)*frac
}

// New creates a Drive. The emergency stop is engaged until released.
func New(deviceID byte) *Drive {
	d := &Drive{DeviceID: deviceID, estop: 1, Clock: time.Now}
	d.cond = sync.NewCond(&d.lock)
	return d
}

// Response builds a read response frame as the drive sends it, with the
// payload bytes reversed.
func Response(deviceID byte, addr uint16, value int32) drive.Frame {
	var f drive.Frame
	f[0], f[1] = deviceID, drive.StatusReadSuccess
	binary.BigEndian.PutUint16(f[2:4], addr)
	binary.LittleEndian.PutUint32(f[5:9], uint32(value))
	f[9] = drive.Checksum(f[:9])
	return f
}

// Enabled reports whether the init sequence has been applied.
func (d *Drive) Enabled() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.enabled()
}

func (d *Drive) enabled() bool {
	return d.mode == drive.SpeedControlMode && d.estop == drive.EStopDisabled && d.control == drive.MotorEnabled
}

// Target returns the target speed in DEC.
func (d *Drive) Target() int32 {
	d.lock.Lock()
	defer d.lock.Unlock()
	return int32(d.ramp.to)
}

// ActualSpeed returns the current speed in DEC.
func (d *Drive) ActualSpeed() int32 {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.actualSpeed(d.Clock())
}

func (d *Drive) actualSpeed(now time.Time) int32 {
	if !d.enabled() {
		return 0
	}
	return int32(d.ramp.at(now))
}

// Frames returns all valid frames received.
func (d *Drive) Frames() []drive.Frame {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]drive.Frame(nil), d.frames...)
}

// Write implements io.Writer.
func (d *Drive) Write(p []byte) (int, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.closed {
		return 0, io.ErrClosedPipe
	}
	for _, b := range p {
		if f := d.parser.Parse(b); f != nil {
			d.apply(f)
		}
	}
	return len(p), nil
}

func (d *Drive) apply(f *drive.Frame) {
	d.frames = append(d.frames, *f)
	if f.DeviceID() != d.DeviceID {
		return
	}
	switch f.Address() {
	case drive.RegOperationMode:
		if f.Code() == drive.CodeSetup {
			d.mode = f.Payload()
		}
	case drive.RegEmergencyStop:
		if f.Code() == drive.CodeSetup {
			d.estop = f.Payload()
		}
	case drive.RegControlWord:
		if f.Code() == drive.CodeEnable {
			d.control = f.Payload()
		}
	case drive.RegTargetVelocity:
		if f.Code() == drive.CodeSend {
			d.setTarget(float64(int32(f.Payload())))
		}
	case drive.RegActualSpeed:
		if f.Code() == drive.CodeReadDEC || f.Code() == drive.CodeRead {
			resp := Response(d.DeviceID, drive.RegActualSpeed, d.actualSpeed(d.Clock()))
			d.out = append(d.out, resp[:]...)
			d.cond.Broadcast()
		}
	}
}

func (d *Drive) setTarget(target float64) {
	now := d.Clock()
	current := d.ramp.at(now)
	d.ramp = ramp{from: current, to: target, start: now, end: now}
	if d.Accel > 0 {
		secs := math.Abs(target-current) / d.Accel
		d.ramp.end = now.Add(time.Duration(secs * float64(time.Second)))
	}
}

// Read implements io.Reader. It blocks until a response is available.
func (d *Drive) Read(p []byte) (int, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	for len(d.out) == 0 && !d.closed {
		d.cond.Wait()
	}
	if len(d.out) == 0 {
		return 0, io.EOF
	}
	n := copy(p, d.out)
	d.out = d.out[n:]
	return n, nil
}

// Close implements io.Closer.
func (d *Drive) Close() error {
	d.lock.Lock()
	d.closed = true
	d.cond.Broadcast()
	d.lock.Unlock()
	return nil
}
