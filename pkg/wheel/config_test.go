package wheel

import (
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadEnv(t *testing.T) {
	env := map[string]string{
		"WHEEL_ROLE":             "right",
		"WHEEL_DEVICE_ID":        "0x02",
		"WHEEL_DRIVE":            "sim",
		"WHEEL_LIVENESS_TIMEOUT": "2s",
		"WHEEL_LIVENESS_MODE":    "first-command",
		"WHEEL_RADIUS":           "0.06",
		"WHEEL_IMU":              "sim",
		"WHEEL_CALIB_SAMPLES":    "10",
	}
	conf := testConfig("left")
	conf.LoadEnv(func(name string) string { return env[name] })
	require.NoError(t, conf.Validate())
	require.Equal(t, "right", conf.Role)
	require.Equal(t, uint(2), conf.DeviceID)
	require.Equal(t, DriveSim, conf.Drive)
	require.Equal(t, 2*time.Second, conf.LivenessTimeout)
	require.Equal(t, "first-command", conf.LivenessMode)
	require.Equal(t, 0.06, conf.WheelRadius)
	require.Equal(t, 10, conf.CalibrationSamples)
	require.True(t, conf.IMUEnabled())
	require.Equal(t, 20*time.Millisecond, conf.Period)
}

func TestLoadEnvInvalid(t *testing.T) {
	env := map[string]string{
		"WHEEL_PERIOD": "fast",
		"WHEEL_RADIUS": "big",
	}
	conf := testConfig("left")
	conf.LoadEnv(func(name string) string { return env[name] })
	err := conf.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "WHEEL_PERIOD")
	require.Contains(t, err.Error(), "WHEEL_RADIUS")
	require.Equal(t, 20*time.Millisecond, conf.Period)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*Config)
	}{
		{"role", func(c *Config) { c.Role = "front" }},
		{"device", func(c *Config) { c.DeviceID = 256 }},
		{"drive", func(c *Config) { c.Drive = "can" }},
		{"liveness mode", func(c *Config) { c.LivenessMode = "never" }},
		{"imu", func(c *Config) { c.IMU = "bno055" }},
		{"period", func(c *Config) { c.Period = 0 }},
		{"liveness timeout", func(c *Config) { c.LivenessTimeout = -time.Second }},
		{"radius", func(c *Config) { c.WheelRadius = 0 }},
		{"beta", func(c *Config) { c.FilterBeta = 1.5 }},
	}
	require.NoError(t, testConfig("left").Validate())
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conf := testConfig("left")
			tc.modify(conf)
			require.Error(t, conf.Validate())
		})
	}
}

func TestIMUEnabled(t *testing.T) {
	testCases := []struct {
		role    string
		imu     string
		enabled bool
	}{
		{"left", IMUAuto, true},
		{"right", IMUAuto, false},
		{"left", IMUOff, false},
		{"right", IMUSim, true},
		{"right", IMUMPU6886, true},
		{"front", IMUAuto, false},
	}
	for _, tc := range testCases {
		t.Run(tc.role+"/"+tc.imu, func(t *testing.T) {
			conf := testConfig(tc.role)
			conf.IMU = tc.imu
			require.Equal(t, tc.enabled, conf.IMUEnabled())
		})
	}
}

func TestRoleGeometry(t *testing.T) {
	left, right := testConfig("left"), testConfig("right")
	// driving forward spins the motors in opposite directions.
	require.InDelta(t, -0.5, left.Differential().WheelSpeed(0.5, 0), 1e-12)
	require.InDelta(t, 0.5, right.Differential().WheelSpeed(0.5, 0), 1e-12)
	// turning left slows down the left wheel.
	require.InDelta(t, -(0.5 + 0.101), left.Differential().WheelSpeed(0.5, 1), 1e-12)
	require.InDelta(t, 0.5-0.101, right.Differential().WheelSpeed(0.5, 1), 1e-12)

	require.Equal(t, Topics{
		CmdVel:   "cmd_vel",
		ComCheck: "com_check",
		Reboot:   "reboot",
		Vel:      "right_vel",
		IMU:      "imu",
		Presence: "nodes/right",
	}, right.Topics())
	require.Equal(t, []string{"cmd_vel", "com_check", "reboot"}, right.Topics().Inbound())
}

func TestRegisterFlags(t *testing.T) {
	conf := testConfig("left")
	fs := flag.NewFlagSet("wheeld", flag.ContinueOnError)
	conf.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-role", "right", "-period", "50ms", "-imu", "off", "-device-id", "3"}))
	require.Equal(t, "right", conf.Role)
	require.Equal(t, 50*time.Millisecond, conf.Period)
	require.Equal(t, IMUOff, conf.IMU)
	require.Equal(t, uint(3), conf.DeviceID)
	require.Equal(t, DriveSim, conf.Drive)
}

func TestNewConfigCopiesDefault(t *testing.T) {
	conf := NewConfig()
	conf.Role = "changed"
	require.NotEqual(t, "changed", Default().Role)
}
