// Package device binds one transport to one frame parser.
//
// Ownership boundary:
// - loading definitions and opening the configured transport
// - receive/transfer calls with metrics and logging
//
// A Device is synchronous: callers loop on Receive themselves. It is not
// safe for concurrent Receive calls; Transfer may run alongside Receive.
package device

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/danmuck/ubxctl/internal/config"
	"github.com/danmuck/ubxctl/internal/observability"
	"github.com/danmuck/ubxctl/internal/protocol/frame"
	"github.com/danmuck/ubxctl/internal/protocol/schema"
	"github.com/danmuck/ubxctl/internal/transport"
	"github.com/rs/zerolog/log"
)

type Device struct {
	name   string
	rw     io.ReadWriteCloser
	parser *frame.Parser
	src    *countingSource

	scanLimit int
	writeMu   sync.Mutex
}

type Option func(*Device)

// WithName labels the device in logs.
func WithName(name string) Option {
	return func(d *Device) {
		d.name = name
	}
}

func WithScanLimit(n int) Option {
	return func(d *Device) {
		d.scanLimit = n
	}
}

func New(rw io.ReadWriteCloser, p *frame.Parser, opts ...Option) *Device {
	d := &Device{
		name:      "ubx",
		rw:        rw,
		parser:    p,
		scanLimit: frame.DefaultScanLimit,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.src = &countingSource{Source: frame.NewStreamSource(rw, frame.WithScanLimit(d.scanLimit))}
	return d
}

// Open loads the configured definitions, builds the parser and opens the transport.
func Open(ctx context.Context, cfg config.Config) (*Device, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("open device: %w", err)
	}
	classes, err := schema.LoadFiles(cfg.Definitions...)
	if err != nil {
		return nil, fmt.Errorf("open device: %w", err)
	}
	parser, err := frame.NewParser(classes, frame.WithDrainUnknown(cfg.Parser.DrainUnknown))
	if err != nil {
		return nil, fmt.Errorf("open device: %w", err)
	}
	rw, err := transport.Open(ctx, cfg.Transport)
	if err != nil {
		return nil, fmt.Errorf("open device: %w", err)
	}
	name := cfg.Transport.Path
	if cfg.Transport.Kind == config.KindTCP {
		name = cfg.Transport.Addr
	}
	log.Info().Str("device", name).Int("classes", len(classes)).Msg("device: open")
	return New(rw, parser, WithName(name), WithScanLimit(cfg.Parser.ScanLimit)), nil
}

func (d *Device) Name() string          { return d.name }
func (d *Device) Parser() *frame.Parser { return d.parser }

// Receive reads the next frame from the transport.
func (d *Device) Receive() (frame.Message, error) {
	d.src.n = 0
	msg, err := d.parser.ReceiveFrom(d.src)
	observability.RecordFrame(observability.DirectionRX, msg.Class, msg.Name, err, d.src.n)
	if err != nil {
		log.Debug().Err(err).Str("device", d.name).Int("bytes", d.src.n).Msg("device: receive failed")
		return frame.Message{}, err
	}
	return msg, nil
}

// Prepare returns a default-populated message ready to edit and transfer.
func (d *Device) Prepare(class, message string) (frame.Message, error) {
	return d.parser.PrepareMessage(class, message)
}

func (d *Device) Transfer(m frame.Message) error {
	w := &countingWriter{w: d.rw}
	d.writeMu.Lock()
	err := d.parser.TransferTo(m, w)
	d.writeMu.Unlock()
	if err != nil {
		err = fmt.Errorf("device %s: transfer: %w", d.name, err)
	}
	observability.RecordFrame(observability.DirectionTX, m.Class, m.Name, err, w.n)
	if err != nil {
		return err
	}
	log.Debug().Str("device", d.name).Str("class", m.Class).Str("message", m.Name).Int("bytes", w.n).Msg("device: transferred")
	return nil
}

func (d *Device) Close() error {
	log.Info().Str("device", d.name).Msg("device: close")
	return d.rw.Close()
}

// countingSource tallies bytes pulled from the transport during one receive.
type countingSource struct {
	frame.Source
	n int
}

func (c *countingSource) ReadUntil(terminator []byte) ([]byte, error) {
	b, err := c.Source.ReadUntil(terminator)
	c.n += len(b)
	return b, err
}

func (c *countingSource) ReadN(n int) ([]byte, error) {
	b, err := c.Source.ReadN(n)
	c.n += len(b)
	return b, err
}

// countingWriter tallies bytes accepted by the transport during one transfer.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += n
	return n, err
}
