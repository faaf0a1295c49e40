package imu

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func constant(s Sample) Source {
	return SourceFunc(func() (Sample, error) { return s, nil })
}

func TestFilterConvergence(t *testing.T) {
	r := Sample{Accel: Vector{0.3, -0.2, 1.0}, Gyro: Vector{10, -20, 30}}
	f := NewFilter(constant(r))
	f.SetOffsets(Offsets{})

	iterations := int(math.Ceil(math.Log(0.01) / math.Log(1-DefaultBeta)))
	require.Equal(t, 44, iterations)

	within := func(s Sample) bool {
		for i := range s.Accel {
			if math.Abs(s.Accel[i]-r.Accel[i]) > 0.01*math.Abs(r.Accel[i]) ||
				math.Abs(s.Gyro[i]-r.Gyro[i]) > 0.01*math.Abs(r.Gyro[i]) {
				return false
			}
		}
		return true
	}
	for i := 1; i < iterations; i++ {
		require.True(t, f.Update())
	}
	require.False(t, within(f.Data()), "converged before %d iterations", iterations)
	require.True(t, f.Update())
	require.True(t, within(f.Data()))
}

func TestFilterSmoothing(t *testing.T) {
	f := NewFilter(constant(Sample{Accel: Vector{1, 0, 0}}))
	f.SetOffsets(Offsets{})
	require.True(t, f.Update())
	require.InDelta(t, 0.1, f.Data().Accel[X], 1e-12)
	require.True(t, f.Update())
	require.InDelta(t, 0.19, f.Data().Accel[X], 1e-12)
}

func TestCalibrate(t *testing.T) {
	bias := Sample{Accel: Vector{0.02, -0.03, 1.05}, Gyro: Vector{0.5, -1.5, 2.5}}
	var reads int
	f := NewFilter(SourceFunc(func() (Sample, error) {
		reads++
		return bias, nil
	}))
	require.Equal(t, Uninitialized, f.State())
	require.NoError(t, f.Calibrate(context.Background(), DefaultCalibrationSamples, 0))
	require.Equal(t, Streaming, f.State())
	require.Equal(t, DefaultCalibrationSamples, reads)

	o := f.Offsets()
	require.InDelta(t, 0.02, o.Accel[X], 1e-9)
	require.InDelta(t, -0.03, o.Accel[Y], 1e-9)
	require.InDelta(t, 0.05, o.Accel[Z], 1e-9)
	for i := range o.Gyro {
		require.InDelta(t, bias.Gyro[i], o.Gyro[i], 1e-9)
	}

	// biases are removed from the stream.
	for i := 0; i < 300; i++ {
		require.True(t, f.Update())
	}
	d := f.Data()
	require.InDelta(t, 0, d.Accel[X], 1e-6)
	require.InDelta(t, 1, d.Accel[Z], 1e-6)
	require.InDelta(t, 0, d.Gyro[Z], 1e-6)
}

func TestCalibrateStationary(t *testing.T) {
	src := NewStationary(Vector{0.01, 0.02, 0.03}, Vector{1, 2, 3}, 0.001)
	f := NewFilter(src)
	require.NoError(t, f.Calibrate(context.Background(), 500, 0))
	o := f.Offsets()
	require.InDelta(t, 0.03, o.Accel[Z], 1e-3)
	require.InDelta(t, 2, o.Gyro[Y], 1e-3)
}

func TestStepCalibration(t *testing.T) {
	f := NewFilter(constant(Sample{Accel: Vector{0, 0, 1}}))
	f.BeginCalibration(10)
	require.Equal(t, Calibrating, f.State())
	require.False(t, f.Update())

	done, err := f.StepCalibration(4)
	require.NoError(t, err)
	require.False(t, done)
	done, err = f.StepCalibration(4)
	require.NoError(t, err)
	require.False(t, done)
	done, err = f.StepCalibration(4)
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, Streaming, f.State())
	require.Equal(t, Offsets{}, f.Offsets())
}

func TestCalibrateFailure(t *testing.T) {
	f := NewFilter(SourceFunc(func() (Sample, error) {
		return Sample{}, errors.New("bus error")
	}))
	require.Error(t, f.Calibrate(context.Background(), 10, 0))
	require.Equal(t, Uninitialized, f.State())
}

func TestCalibrateCanceled(t *testing.T) {
	f := NewFilter(constant(Sample{}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Equal(t, context.Canceled, f.Calibrate(ctx, 10, 0))
	require.Equal(t, Uninitialized, f.State())
}

func TestUpdateReadFailure(t *testing.T) {
	fail := false
	f := NewFilter(SourceFunc(func() (Sample, error) {
		if fail {
			return Sample{}, errors.New("timeout")
		}
		return Sample{Gyro: Vector{1, 1, 1}}, nil
	}))
	require.False(t, f.Update(), "not streaming yet")
	f.SetOffsets(Offsets{})
	require.True(t, f.Update())
	before := f.Data()

	fail = true
	require.False(t, f.Update())
	require.Equal(t, before, f.Data())
	require.Equal(t, uint64(1), f.Misses())
}

func TestMagnetometer(t *testing.T) {
	f := NewFilter(constant(Sample{Accel: Vector{0, 0, 1}, Mag: Vector{30, 40, 50}, HasMag: true}))
	require.NoError(t, f.Calibrate(context.Background(), 5, 0))
	mag := f.Offsets().Mag
	require.InDelta(t, 30, mag[X], 1e-9)
	require.InDelta(t, 50, mag[Z], 1e-9)
	require.True(t, f.Update())
	require.True(t, f.Data().HasMag)
	require.InDelta(t, 0, f.Data().Mag[Y], 1e-9)
}

func TestSI(t *testing.T) {
	accel, gyro := Sample{Accel: Vector{0, 0, 1}, Gyro: Vector{180, 0, -90}}.SI()
	require.InDelta(t, 9.81, accel[Z], 1e-12)
	require.InDelta(t, math.Pi, gyro[X], 1e-12)
	require.InDelta(t, -math.Pi/2, gyro[Z], 1e-12)
}
