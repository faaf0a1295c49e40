// Package imu calibrates and filters inertial sensor samples.
package imu

import (
	"math"
	"math/rand"
	"sync"
)

// Unit conversions to SI.
const (
	Gravity  = 9.81
	DegToRad = math.Pi / 180
)

// Vector is a 3-axis value.
type Vector [3]float64

// Axes.
const (
	X = iota
	Y
	Z
)

// Sub returns v-o.
func (v Vector) Sub(o Vector) Vector {
	return Vector{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Scale returns v*k.
func (v Vector) Scale(k float64) Vector {
	return Vector{v[0] * k, v[1] * k, v[2] * k}
}

// Sample is one reading: acceleration in g, angular rate in deg/s,
// magnetic field in sensor units when HasMag is set.
type Sample struct {
	Accel  Vector
	Gyro   Vector
	Mag    Vector
	HasMag bool
}

// SI returns acceleration in m/s² and angular rate in rad/s.
func (s Sample) SI() (accel, gyro Vector) {
	return s.Accel.Scale(Gravity), s.Gyro.Scale(DegToRad)
}

// Source provides raw samples.
type Source interface {
	ReadSample() (Sample, error)
}

// SourceFunc is the func form of Source.
type SourceFunc func() (Sample, error)

// ReadSample implements Source.
func (f SourceFunc) ReadSample() (Sample, error) {
	return f()
}

// Stationary simulates a level sensor at rest: 1g on the vertical axis plus
// constant biases and optional gaussian noise.
type Stationary struct {
	AccelBias Vector
	GyroBias  Vector
	Noise     float64

	lock sync.Mutex
	rnd  *rand.Rand
}

// NewStationary creates a Stationary source with a fixed seed.
func NewStationary(accelBias, gyroBias Vector, noise float64) *Stationary {
	return &Stationary{
		AccelBias: accelBias,
		GyroBias:  gyroBias,
		Noise:     noise,
		rnd:       rand.New(rand.NewSource(1)),
	}
}

// ReadSample implements Source.
func (s *Stationary) ReadSample() (Sample, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	smp := Sample{Accel: s.AccelBias, Gyro: s.GyroBias}
	smp.Accel[Z]++
	if s.Noise > 0 && s.rnd != nil {
		for i := range smp.Accel {
			smp.Accel[i] += s.rnd.NormFloat64() * s.Noise
			smp.Gyro[i] += s.rnd.NormFloat64() * s.Noise
		}
	}
	return smp, nil
}
