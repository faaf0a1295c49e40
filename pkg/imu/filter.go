package imu

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"
)

// Defaults.
const (
	DefaultBeta               = 0.1
	DefaultCalibrationSamples = 500
	DefaultCalibrationDelay   = 2 * time.Millisecond
)

// State is the state of the Filter.
type State int

// States.
const (
	Uninitialized State = iota
	Calibrating
	Streaming
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Calibrating:
		return "calibrating"
	case Streaming:
		return "streaming"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Offsets are the biases removed from raw samples.
type Offsets struct {
	Accel Vector
	Gyro  Vector
	Mag   Vector
}

// Calibrator averages samples taken at rest with the sensor level.
type Calibrator struct {
	Samples int

	count int
	magN  int
	accel Vector
	gyro  Vector
	mag   Vector
}

// Add accumulates a sample.
func (c *Calibrator) Add(s Sample) {
	for i := range c.accel {
		c.accel[i] += s.Accel[i]
		c.gyro[i] += s.Gyro[i]
	}
	if s.HasMag {
		for i := range c.mag {
			c.mag[i] += s.Mag[i]
		}
		c.magN++
	}
	c.count++
}

// Count returns the number of accumulated samples.
func (c *Calibrator) Count() int {
	return c.count
}

// Done reports whether enough samples are accumulated.
func (c *Calibrator) Done() bool {
	return c.count >= c.Samples
}

// Offsets computes the means. Gravity is removed from the vertical axis.
func (c *Calibrator) Offsets() (o Offsets) {
	if c.count == 0 {
		return
	}
	o.Accel = c.accel.Scale(1 / float64(c.count))
	o.Accel[Z]--
	o.Gyro = c.gyro.Scale(1 / float64(c.count))
	if c.magN > 0 {
		o.Mag = c.mag.Scale(1 / float64(c.magN))
	}
	return
}

// Filter removes calibrated biases from raw samples and smooths them with
// a first-order low pass filter:
//
//	filtered += Beta * (raw - offset - filtered)
//
// It is not safe for concurrent use.
type Filter struct {
	Source Source
	Beta   float64

	state    State
	offsets  Offsets
	filtered Sample
	calib    Calibrator
	misses   uint64
}

// NewFilter creates a Filter.
func NewFilter(src Source) *Filter {
	return &Filter{Source: src, Beta: DefaultBeta}
}

// State returns the current state.
func (f *Filter) State() State {
	return f.state
}

// Offsets returns the calibrated offsets.
func (f *Filter) Offsets() Offsets {
	return f.offsets
}

// Misses returns the number of failed sensor reads in Update.
func (f *Filter) Misses() uint64 {
	return f.misses
}

// SetOffsets uses known offsets and starts streaming without calibration.
func (f *Filter) SetOffsets(o Offsets) {
	f.offsets, f.filtered, f.state = o, Sample{}, Streaming
}

// BeginCalibration discards previous offsets and starts accumulating.
func (f *Filter) BeginCalibration(samples int) {
	if samples <= 0 {
		samples = DefaultCalibrationSamples
	}
	f.calib = Calibrator{Samples: samples}
	f.state = Calibrating
}

// StepCalibration reads up to n samples and reports whether calibration
// completed. It allows calibration to be spread across several passes.
// A read failure aborts calibration.
func (f *Filter) StepCalibration(n int) (bool, error) {
	if f.state != Calibrating {
		return f.state == Streaming, nil
	}
	for i := 0; i < n && !f.calib.Done(); i++ {
		s, err := f.Source.ReadSample()
		if err != nil {
			f.state = Uninitialized
			return false, fmt.Errorf("calibration sample %d: %v", f.calib.Count(), err)
		}
		f.calib.Add(s)
	}
	if !f.calib.Done() {
		return false, nil
	}
	f.SetOffsets(f.calib.Offsets())
	glog.Infof("IMU calibrated with %d samples: accel %v gyro %v", f.calib.Count(), f.offsets.Accel, f.offsets.Gyro)
	return true, nil
}

// Calibrate samples the sensor at rest, waiting delay between samples, and
// blocks until done. It must be run before the control loop starts.
func (f *Filter) Calibrate(ctx context.Context, samples int, delay time.Duration) error {
	f.BeginCalibration(samples)
	for {
		done, err := f.StepCalibration(1)
		if err != nil || done {
			return err
		}
		if delay <= 0 {
			if err := ctx.Err(); err != nil {
				f.state = Uninitialized
				return err
			}
			continue
		}
		select {
		case <-ctx.Done():
			f.state = Uninitialized
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// Update reads one sample and feeds it into the filter. A failed read is
// not an error: the filtered state simply stays as is.
func (f *Filter) Update() bool {
	if f.state != Streaming {
		return false
	}
	s, err := f.Source.ReadSample()
	if err != nil {
		f.misses++
		glog.V(1).Infof("IMU read error: %v", err)
		return false
	}
	beta := f.Beta
	accel, gyro := s.Accel.Sub(f.offsets.Accel), s.Gyro.Sub(f.offsets.Gyro)
	for i := range accel {
		f.filtered.Accel[i] += beta * (accel[i] - f.filtered.Accel[i])
		f.filtered.Gyro[i] += beta * (gyro[i] - f.filtered.Gyro[i])
	}
	if s.HasMag {
		mag := s.Mag.Sub(f.offsets.Mag)
		for i := range mag {
			f.filtered.Mag[i] += beta * (mag[i] - f.filtered.Mag[i])
		}
		f.filtered.HasMag = true
	}
	return true
}

// Data returns the filtered sample.
func (f *Filter) Data() Sample {
	return f.filtered
}
