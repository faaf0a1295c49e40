package drive

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate is the line speed of the drive.
const DefaultBaudRate = 115200

// PortOptions describes the serial line to the drive.
type PortOptions struct {
	Path     string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
	// ReadTimeout makes Read return with no data when the line stays silent.
	// Zero means Read blocks.
	ReadTimeout time.Duration
}

// Normalize validates the options and applies defaults (115200 8N1).
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o
	if opts.Path == "" {
		return opts, fmt.Errorf("serial port path is required")
	}
	if opts.BaudRate <= 0 {
		opts.BaudRate = DefaultBaudRate
	}
	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}
	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}
	switch parity := strings.TrimSpace(strings.ToUpper(opts.Parity)); parity {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}
	if opts.ReadTimeout < 0 {
		opts.ReadTimeout = 0
	}
	return opts, nil
}

// SerialMode converts the options into serial.Mode.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}
	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}
	return mode, nil
}

// OpenPort opens the serial port and wraps it into a Link.
func OpenPort(o PortOptions) (*Link, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(opts.Path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v", opts.Path, err)
	}
	link := NewLink(port)
	if opts.ReadTimeout > 0 {
		if err := port.SetReadTimeout(opts.ReadTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("set read timeout on %s: %v", opts.Path, err)
		}
		link.ReadTimeout = true
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("reset %s: %v", opts.Path, err)
	}
	return link, nil
}
