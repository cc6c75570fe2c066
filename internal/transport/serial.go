package transport

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

type SerialConfig struct {
	Path        string
	Baud        int
	ReadTimeout time.Duration
}

// SerialPort reports a timed-out empty read as ErrReadTimeout.
type SerialPort struct {
	port io.ReadWriteCloser
	path string
}

// OpenSerial opens path at 8N1 with the configured baud rate.
func OpenSerial(cfg SerialConfig) (*SerialPort, error) {
	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", cfg.Path, err)
	}
	if cfg.ReadTimeout > 0 {
		if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("set serial read timeout %s: %w", cfg.Path, err)
		}
	}
	log.Info().Str("path", cfg.Path).Int("baud", cfg.Baud).Msg("transport: serial open")
	return &SerialPort{port: port, path: cfg.Path}, nil
}

func (s *SerialPort) Read(b []byte) (int, error) {
	n, err := s.port.Read(b)
	if n == 0 && err == nil && len(b) > 0 {
		return 0, fmt.Errorf("%w: %s", ErrReadTimeout, s.path)
	}
	return n, err
}

func (s *SerialPort) Write(b []byte) (int, error) {
	return s.port.Write(b)
}

func (s *SerialPort) Close() error {
	return s.port.Close()
}

// ListSerialPorts returns the serial device paths present on this host.
func ListSerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
