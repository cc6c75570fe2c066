// Package transport owns byte-stream adapters that feed the frame parser.
//
// Ownership boundary:
// - serial ports (go.bug.st/serial)
// - TCP streams (NTRIP casters, ser2net bridges, receiver simulators)
// - recorded capture files
//
// Every adapter is an io.ReadWriteCloser. Read timeouts surface as errors
// so a parser blocked on a silent receiver returns instead of spinning.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/ubxctl/internal/config"
	"github.com/rs/zerolog/log"
)

var ErrReadTimeout = errors.New("transport: read timeout")

// Open dispatches on the configured transport kind.
func Open(ctx context.Context, cfg config.Transport) (io.ReadWriteCloser, error) {
	if err := config.ValidateTransport(cfg); err != nil {
		return nil, fmt.Errorf("open transport: %w", err)
	}
	log.Debug().Str("kind", cfg.Kind).Str("path", cfg.Path).Str("addr", cfg.Addr).Msg("transport: opening")
	var (
		rw  io.ReadWriteCloser
		err error
	)
	switch cfg.Kind {
	case config.KindSerial:
		rw, err = OpenSerial(SerialConfig{Path: cfg.Path, Baud: cfg.Baud, ReadTimeout: cfg.ReadTimeout})
	case config.KindTCP:
		rw, err = DialTCP(ctx, TCPConfig{Addr: cfg.Addr, DialTimeout: cfg.DialTimeout, ReadTimeout: cfg.ReadTimeout})
	default:
		rw, err = OpenFile(cfg.Path)
	}
	if err != nil {
		return nil, err
	}
	return rw, nil
}

// OpenFile opens a recorded capture for reading. Writes fail.
func OpenFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture %s: %w", path, err)
	}
	return f, nil
}
