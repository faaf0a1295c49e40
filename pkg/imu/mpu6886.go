package imu

import (
	"encoding/binary"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// MPU6886 registers.
const (
	mpuRegSampleRateDiv = 0x19
	mpuRegConfig        = 0x1A
	mpuRegGyroConfig    = 0x1B
	mpuRegAccelConfig   = 0x1C
	mpuRegAccelXOutH    = 0x3B
	mpuRegPwrMgmt1      = 0x6B
	mpuRegWhoAmI        = 0x75

	mpuWhoAmI = 0x19

	// ±8g and ±2000dps full scale.
	mpuAccelFS8G     = 0x10
	mpuGyroFS2000DPS = 0x18
	mpuAccelScale    = 8.0 / 32768
	mpuGyroScale     = 2000.0 / 32768
)

// DefaultMPU6886Addr is the I2C address of the MPU6886.
const DefaultMPU6886Addr = 0x68

// MPU6886 reads the 6-axis IMU over I2C.
type MPU6886 struct {
	dev *i2c.Dev
	bus i2c.BusCloser
}

// OpenMPU6886 opens the I2C bus (empty name for the first available) and
// configures the sensor.
func OpenMPU6886(busName string, addr uint16) (*MPU6886, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph init: %v", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open I2C bus %q: %v", busName, err)
	}
	m := &MPU6886{dev: &i2c.Dev{Addr: addr, Bus: bus}, bus: bus}
	if err := m.setup(); err != nil {
		bus.Close()
		return nil, err
	}
	return m, nil
}

func (m *MPU6886) setup() error {
	var id [1]byte
	if err := m.dev.Tx([]byte{mpuRegWhoAmI}, id[:]); err != nil {
		return fmt.Errorf("MPU6886 WHO_AM_I: %v", err)
	}
	if id[0] != mpuWhoAmI {
		return fmt.Errorf("MPU6886 unexpected WHO_AM_I 0x%02x", id[0])
	}
	for _, w := range [][]byte{
		{mpuRegPwrMgmt1, 0x00},
		{mpuRegPwrMgmt1, 0x80},
		{mpuRegPwrMgmt1, 0x01},
		{mpuRegAccelConfig, mpuAccelFS8G},
		{mpuRegGyroConfig, mpuGyroFS2000DPS},
		{mpuRegConfig, 0x01},
		{mpuRegSampleRateDiv, 0x05},
	} {
		if err := m.dev.Tx(w, nil); err != nil {
			return fmt.Errorf("MPU6886 write 0x%02x: %v", w[0], err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

// ReadSample implements Source.
func (m *MPU6886) ReadSample() (s Sample, err error) {
	var buf [14]byte
	if err = m.dev.Tx([]byte{mpuRegAccelXOutH}, buf[:]); err != nil {
		return
	}
	for i := 0; i < 3; i++ {
		s.Accel[i] = float64(int16(binary.BigEndian.Uint16(buf[i*2:]))) * mpuAccelScale
		s.Gyro[i] = float64(int16(binary.BigEndian.Uint16(buf[8+i*2:]))) * mpuGyroScale
	}
	return
}

// Close implements io.Closer.
func (m *MPU6886) Close() error {
	return m.bus.Close()
}
