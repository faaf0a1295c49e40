// Package wheel runs one wheel of a differential-drive robot: it applies
// velocity commands to the drive, publishes wheel and inertial telemetry,
// and restarts the node when the command link goes silent.
package wheel

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robotalks/wheel.go/pkg/drive"
	fx "github.com/robotalks/wheel.go/pkg/framework"
	"github.com/robotalks/wheel.go/pkg/imu"
)

// Role describes how a wheel is mounted.
type Role struct {
	Name string
	// Side is +1 for the left wheel, -1 for the right one.
	Side float64
	// Polarity is the sign applied to the wheel speed so that positive
	// linear velocity drives the robot forward.
	Polarity float64
	// IMU tells whether the inertial sensor is on this node by default.
	IMU bool
}

// Roles are the known wheel roles.
var Roles = map[string]Role{
	"left":  {Name: "left", Side: 1, Polarity: -1, IMU: true},
	"right": {Name: "right", Side: -1, Polarity: 1, IMU: false},
}

// Drive modes.
const (
	DriveSerial = "serial"
	DriveSim    = "sim"
)

// IMU modes.
const (
	IMUAuto    = "auto"
	IMUOff     = "off"
	IMUSim     = "sim"
	IMUMPU6886 = "mpu6886"
)

// Config is the configuration of a wheel node.
type Config struct {
	Role     string
	DeviceID uint

	Drive    string
	Port     string
	BaudRate int

	Period          time.Duration
	LivenessTimeout time.Duration
	LivenessMode    string
	CommandDelay    time.Duration
	ReplyTimeout    time.Duration
	RebootGrace     time.Duration

	WheelRadius float64
	WheelTrack  float64

	IMU                string
	IMUFrameID         string
	I2CBus             string
	I2CAddr            uint
	CalibrationSamples int
	CalibrationDelay   time.Duration
	FilterBeta         float64

	envErrs fx.AggregatedError
}

var defaultConfig = Config{
	Role:     "left",
	DeviceID: 1,

	Drive:    DriveSerial,
	Port:     "/dev/ttyUSB0",
	BaudRate: drive.DefaultBaudRate,

	Period:          fx.DefaultPeriod,
	LivenessTimeout: DefaultLivenessTimeout,
	LivenessMode:    Rearm.String(),
	CommandDelay:    100 * time.Millisecond,
	ReplyTimeout:    fx.DefaultPeriod,
	RebootGrace:     5 * time.Second,

	WheelRadius: drive.DefaultWheelRadius,
	WheelTrack:  drive.DefaultWheelTrack,

	IMU:                IMUAuto,
	IMUFrameID:         "imu",
	I2CAddr:            imu.DefaultMPU6886Addr,
	CalibrationSamples: imu.DefaultCalibrationSamples,
	CalibrationDelay:   imu.DefaultCalibrationDelay,
	FilterBeta:         imu.DefaultBeta,
}

func init() {
	defaultConfig.LoadEnv(os.Getenv)
}

// LoadEnv overrides the config with WHEEL_* variables. Invalid values are
// kept aside and reported by Validate.
func (c *Config) LoadEnv(getenv func(string) string) {
	str := func(name string, v *string) {
		if val := getenv(name); val != "" {
			*v = val
		}
	}
	dur := func(name string, v *time.Duration) {
		if val := getenv(name); val != "" {
			d, err := time.ParseDuration(val)
			if err != nil {
				c.envErrs.Add(fmt.Errorf("%s: %v", name, err))
				return
			}
			*v = d
		}
	}
	num := func(name string, v *float64) {
		if val := getenv(name); val != "" {
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				c.envErrs.Add(fmt.Errorf("%s: %v", name, err))
				return
			}
			*v = f
		}
	}
	uintVal := func(name string, v *uint) {
		if val := getenv(name); val != "" {
			n, err := strconv.ParseUint(val, 0, 32)
			if err != nil {
				c.envErrs.Add(fmt.Errorf("%s: %v", name, err))
				return
			}
			*v = uint(n)
		}
	}
	intVal := func(name string, v *int) {
		if val := getenv(name); val != "" {
			n, err := strconv.Atoi(val)
			if err != nil {
				c.envErrs.Add(fmt.Errorf("%s: %v", name, err))
				return
			}
			*v = n
		}
	}

	str("WHEEL_ROLE", &c.Role)
	uintVal("WHEEL_DEVICE_ID", &c.DeviceID)
	str("WHEEL_DRIVE", &c.Drive)
	str("WHEEL_PORT", &c.Port)
	intVal("WHEEL_BAUD", &c.BaudRate)
	dur("WHEEL_PERIOD", &c.Period)
	dur("WHEEL_LIVENESS_TIMEOUT", &c.LivenessTimeout)
	str("WHEEL_LIVENESS_MODE", &c.LivenessMode)
	dur("WHEEL_COMMAND_DELAY", &c.CommandDelay)
	dur("WHEEL_REPLY_TIMEOUT", &c.ReplyTimeout)
	dur("WHEEL_REBOOT_GRACE", &c.RebootGrace)
	num("WHEEL_RADIUS", &c.WheelRadius)
	num("WHEEL_TRACK", &c.WheelTrack)
	str("WHEEL_IMU", &c.IMU)
	str("WHEEL_IMU_FRAME_ID", &c.IMUFrameID)
	str("WHEEL_I2C_BUS", &c.I2CBus)
	uintVal("WHEEL_I2C_ADDR", &c.I2CAddr)
	intVal("WHEEL_CALIB_SAMPLES", &c.CalibrationSamples)
	dur("WHEEL_CALIB_DELAY", &c.CalibrationDelay)
	num("WHEEL_FILTER_BETA", &c.FilterBeta)
}

// RegisterFlags registers command line flags.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Role, "role", c.Role, "Wheel role: left or right.")
	fs.UintVar(&c.DeviceID, "device-id", c.DeviceID, "Drive device ID.")
	fs.StringVar(&c.Drive, "drive", c.Drive, "Drive: serial or sim.")
	fs.StringVar(&c.Port, "port", c.Port, "Serial port of the drive.")
	fs.IntVar(&c.BaudRate, "baud", c.BaudRate, "Serial baud rate.")
	fs.DurationVar(&c.Period, "period", c.Period, "Tick period.")
	fs.DurationVar(&c.LivenessTimeout, "liveness-timeout", c.LivenessTimeout, "Silence before restart.")
	fs.StringVar(&c.LivenessMode, "liveness-mode", c.LivenessMode, "Liveness mode: rearm or first-command.")
	fs.DurationVar(&c.CommandDelay, "command-delay", c.CommandDelay, "Delay between drive init commands.")
	fs.DurationVar(&c.ReplyTimeout, "reply-timeout", c.ReplyTimeout, "Drive read reply timeout.")
	fs.DurationVar(&c.RebootGrace, "reboot-grace", c.RebootGrace, "Delay between reboot reply and restart.")
	fs.Float64Var(&c.WheelRadius, "wheel-radius", c.WheelRadius, "Wheel radius in meters.")
	fs.Float64Var(&c.WheelTrack, "wheel-track", c.WheelTrack, "Distance between wheels in meters.")
	fs.StringVar(&c.IMU, "imu", c.IMU, "IMU: auto, off, sim or mpu6886.")
	fs.StringVar(&c.IMUFrameID, "imu-frame-id", c.IMUFrameID, "Frame ID of inertial telemetry.")
	fs.StringVar(&c.I2CBus, "i2c-bus", c.I2CBus, "I2C bus of the IMU, empty for the first one.")
	fs.UintVar(&c.I2CAddr, "i2c-addr", c.I2CAddr, "I2C address of the IMU.")
	fs.IntVar(&c.CalibrationSamples, "calib-samples", c.CalibrationSamples, "IMU calibration samples.")
	fs.DurationVar(&c.CalibrationDelay, "calib-delay", c.CalibrationDelay, "Delay between calibration samples.")
	fs.Float64Var(&c.FilterBeta, "filter-beta", c.FilterBeta, "IMU low pass filter coefficient.")
}

// SetupFlags sets command line flags.
func SetupFlags() {
	defaultConfig.RegisterFlags(flag.CommandLine)
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Validate checks the config.
func (c *Config) Validate() error {
	errs := fx.AggregatedError{Errors: append([]error(nil), c.envErrs.Errors...)}
	if _, err := c.RoleInfo(); err != nil {
		errs.Add(err)
	}
	if c.DeviceID > 0xff {
		errs.Add(fmt.Errorf("invalid device ID %d", c.DeviceID))
	}
	if c.Drive != DriveSerial && c.Drive != DriveSim {
		errs.Add(fmt.Errorf("unknown drive %q", c.Drive))
	}
	if _, err := ParseLivenessMode(c.LivenessMode); err != nil {
		errs.Add(err)
	}
	switch c.IMU {
	case IMUAuto, IMUOff, IMUSim, IMUMPU6886:
	default:
		errs.Add(fmt.Errorf("unknown IMU %q", c.IMU))
	}
	if c.Period <= 0 {
		errs.Add(fmt.Errorf("period must be positive"))
	}
	if c.LivenessTimeout <= 0 {
		errs.Add(fmt.Errorf("liveness timeout must be positive"))
	}
	if c.WheelRadius <= 0 {
		errs.Add(fmt.Errorf("wheel radius must be positive"))
	}
	if c.FilterBeta <= 0 || c.FilterBeta > 1 {
		errs.Add(fmt.Errorf("filter beta must be in (0, 1]"))
	}
	return errs.Aggregate()
}

// RoleInfo looks up the configured role.
func (c *Config) RoleInfo() (Role, error) {
	role, ok := Roles[c.Role]
	if !ok {
		return role, fmt.Errorf("unknown role %q", c.Role)
	}
	return role, nil
}

// IMUEnabled tells whether this node publishes inertial telemetry.
func (c *Config) IMUEnabled() bool {
	switch c.IMU {
	case IMUOff:
		return false
	case IMUAuto:
		role, err := c.RoleInfo()
		return err == nil && role.IMU
	}
	return true
}

// Converter creates the VelocityConverter.
func (c *Config) Converter() drive.Converter {
	return drive.NewConverter(c.WheelRadius)
}

// Differential creates the wheel speed decomposition of the role.
func (c *Config) Differential() drive.Differential {
	role, _ := c.RoleInfo()
	return drive.Differential{Track: c.WheelTrack, Side: role.Side, Polarity: role.Polarity}
}

// Topics returns the topics of the role.
func (c *Config) Topics() Topics {
	return DefaultTopics(c.Role)
}

// Topics are the topic names used by a node.
type Topics struct {
	CmdVel   string
	ComCheck string
	Reboot   string
	Vel      string
	IMU      string
	Presence string
}

// DefaultTopics returns the topics of a role.
func DefaultTopics(role string) Topics {
	return Topics{
		CmdVel:   "cmd_vel",
		ComCheck: "com_check",
		Reboot:   "reboot",
		Vel:      role + "_vel",
		IMU:      "imu",
		Presence: "nodes/" + role,
	}
}

// Inbound lists the topics a node subscribes.
func (t Topics) Inbound() []string {
	return []string{t.CmdVel, t.ComCheck, t.Reboot}
}
