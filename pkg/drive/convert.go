package drive

import "math"

// DEC unit scaling of the drive: encoder counts per revolution, quadrature
// multiplier and the gear ratio divisor.
const (
	EncoderCounts = 512
	Quadrature    = 4096
	GearDivisor   = 1875
)

// Default geometry.
const (
	DefaultWheelRadius = 0.055
	DefaultWheelTrack  = 0.202
	DefaultScaleFactor = 1000
)

// Converter maps linear wheel speed (m/s) to and from DEC.
//
// ScaleFactor keeps the fixed-point circumference in integer range on the
// device. It cancels out in FromDEC and only exists to reproduce the
// rounding of the drive firmware.
type Converter struct {
	WheelRadius float64
	ScaleFactor float64
}

// NewConverter creates a Converter with the default scale factor.
func NewConverter(wheelRadius float64) Converter {
	return Converter{WheelRadius: wheelRadius, ScaleFactor: DefaultScaleFactor}
}

func (c Converter) scale() float64 {
	if c.ScaleFactor > 0 {
		return c.ScaleFactor
	}
	return DefaultScaleFactor
}

// Circumference is the scaled distance per minute at 1 rpm.
func (c Converter) Circumference() float64 {
	return c.WheelRadius * 2 * math.Pi / 60 * c.scale()
}

// ToDEC converts m/s into DEC, truncating toward zero. Speeds beyond the
// int32 range saturate and NaN is 0.
func (c Converter) ToDEC(velocity float64) int32 {
	rpm := velocity * 60 / (2 * math.Pi * c.WheelRadius)
	dec := rpm * EncoderCounts * Quadrature / GearDivisor
	switch {
	case math.IsNaN(dec):
		return 0
	case dec >= math.MaxInt32:
		return math.MaxInt32
	case dec <= math.MinInt32:
		return math.MinInt32
	}
	return int32(dec)
}

// FromDEC converts DEC into m/s. RPM is computed with integer division so
// speeds are quantized to whole rpm like the forward direction truncates.
func (c Converter) FromDEC(dec int32) float64 {
	rpm := int64(dec) * GearDivisor / (EncoderCounts * Quadrature)
	return float64(rpm) * c.Circumference() / c.scale()
}

// Resolution is the speed of one rpm in m/s, the quantization step of FromDEC.
func (c Converter) Resolution() float64 {
	return c.Circumference() / c.scale()
}

// Differential decomposes a body velocity into the speed of one wheel.
// Side selects the sign of the rotational term, Polarity accounts for the
// mounting direction of the motor.
type Differential struct {
	Track    float64
	Side     float64
	Polarity float64
}

// WheelSpeed returns Polarity*(linear + Side*Track/2*angular).
func (d Differential) WheelSpeed(linear, angular float64) float64 {
	return d.Polarity * (linear + d.Side*d.Track/2*angular)
}
