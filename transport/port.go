package transport

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// SerialConfig describes a serial port connection.
type SerialConfig struct {
	// Port is the device name, e.g. /dev/ttyACM0 or COM3
	Port string

	// BaudRate defaults to 115200
	BaudRate int

	// ReadTimeout bounds each Receive call; zero blocks forever
	ReadTimeout time.Duration

	// LineLength is the maximum number of base64 characters per line
	LineLength int
}

// OpenSerial opens a serial port and wraps it with SMP console framing.
func OpenSerial(cfg SerialConfig) (*Serial, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("serial port name is required")
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}

	port, err := serial.Open(cfg.Port, &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}

	if cfg.ReadTimeout > 0 {
		if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("set read timeout on %s: %w", cfg.Port, err)
		}
	}

	// Drop anything the device printed before we opened the port.
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("reset input buffer on %s: %w", cfg.Port, err)
	}

	return NewSerial(port, cfg.LineLength), nil
}
