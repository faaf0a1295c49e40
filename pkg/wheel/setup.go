package wheel

import (
	"context"
	"io"

	"github.com/golang/glog"

	"github.com/robotalks/wheel.go/pkg/drive"
	"github.com/robotalks/wheel.go/pkg/drive/drivesim"
	"github.com/robotalks/wheel.go/pkg/imu"
)

// SimDriveAccel is the acceleration of the simulated drive in DEC/s.
const SimDriveAccel = 200000

// Biases of the simulated IMU.
var (
	SimAccelBias = imu.Vector{0.01, -0.02, 0.03}
	SimGyroBias  = imu.Vector{0.5, -0.3, 0.2}
)

// SimIMUNoise is the standard deviation of the simulated IMU noise.
const SimIMUNoise = 0.002

// OpenDrive opens the link to the drive.
func OpenDrive(conf *Config) (*drive.Link, error) {
	if conf.Drive == DriveSim {
		sim := drivesim.New(byte(conf.DeviceID))
		sim.Accel = SimDriveAccel
		glog.Info("using simulated drive")
		return drive.NewLink(sim), nil
	}
	return drive.OpenPort(drive.PortOptions{Path: conf.Port, BaudRate: conf.BaudRate})
}

// InitDrive runs the startup sequence of the drive.
func InitDrive(ctx context.Context, conf *Config, s drive.Sender) error {
	return drive.Init(ctx, s, byte(conf.DeviceID), conf.CommandDelay)
}

// OpenIMU opens the IMU source. It returns a nil source when the node has
// no IMU. The closer is nil if the source needs no cleanup.
func OpenIMU(conf *Config) (imu.Source, io.Closer, error) {
	if !conf.IMUEnabled() {
		return nil, nil, nil
	}
	if conf.IMU == IMUSim {
		glog.Info("using simulated IMU")
		return imu.NewStationary(SimAccelBias, SimGyroBias, SimIMUNoise), nil, nil
	}
	m, err := imu.OpenMPU6886(conf.I2CBus, uint16(conf.I2CAddr))
	if err != nil {
		return nil, nil, err
	}
	return m, m, nil
}

// CalibrateIMU creates the filter and calibrates it. It blocks and must run
// before the loop starts.
func CalibrateIMU(ctx context.Context, conf *Config, src imu.Source) (*imu.Filter, error) {
	f := imu.NewFilter(src)
	f.Beta = conf.FilterBeta
	glog.Infof("calibrating IMU with %d samples, keep the robot still", conf.CalibrationSamples)
	if err := f.Calibrate(ctx, conf.CalibrationSamples, conf.CalibrationDelay); err != nil {
		return nil, err
	}
	return f, nil
}
