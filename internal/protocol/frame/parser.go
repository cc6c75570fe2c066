package frame

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/danmuck/ubxctl/internal/protocol/layout"
	"github.com/rs/zerolog/log"
)

// Message is one decoded or to-be-sent frame addressed by names.
type Message struct {
	Class  string
	Name   string
	Fields layout.Record
}

// Parser owns a class registry and converts between frames and Messages.
// It keeps no per-frame state, so one Parser may serve many sources.
type Parser struct {
	mu           sync.RWMutex
	classes      map[uint8]*layout.Class
	drainUnknown bool
}

type Option func(*Parser)

// WithDrainUnknown controls whether the declared payload and checksum of
// an unregistered frame are consumed before returning. Default true.
func WithDrainUnknown(v bool) Option {
	return func(p *Parser) {
		p.drainUnknown = v
	}
}

func NewParser(classes []*layout.Class, opts ...Option) (*Parser, error) {
	p := &Parser{
		classes:      make(map[uint8]*layout.Class, len(classes)),
		drainUnknown: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.Register(classes...); err != nil {
		return nil, err
	}
	return p, nil
}

// Register adds classes, replacing any class with the same id. Class names
// must stay unique across ids; on conflict nothing is registered.
func (p *Parser) Register(classes ...*layout.Class) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := maps.Clone(p.classes)
	for _, c := range classes {
		if c == nil {
			continue
		}
		next[c.ID()] = c
	}
	owners := make(map[string]uint8, len(next))
	for id, c := range next {
		if other, dup := owners[c.Name()]; dup {
			return fmt.Errorf("%w: %s at 0x%02x and 0x%02x", ErrDuplicateName, c.Name(), min(id, other), max(id, other))
		}
		owners[c.Name()] = id
	}
	p.classes = next
	return nil
}

func (p *Parser) Class(id uint8) (*layout.Class, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.classes[id]
	return c, ok
}

func (p *Parser) ClassByName(name string) (*layout.Class, bool) {
	name = strings.ToUpper(name)
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, c := range p.classes {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// Classes lists registered classes by ascending id.
func (p *Parser) Classes() []*layout.Class {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*layout.Class, 0, len(p.classes))
	for _, c := range p.classes {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *layout.Class) int {
		return int(a.ID()) - int(b.ID())
	})
	return out
}

func (p *Parser) lookup(h Header) (*layout.Class, *layout.Message, error) {
	cls, ok := p.Class(h.Class)
	if !ok {
		return nil, nil, &ProtocolError{Class: h.Class, Message: h.ID}
	}
	msg, err := cls.Get(h.ID)
	if err != nil {
		return nil, nil, &ProtocolError{Class: h.Class, Message: h.ID, UnknownMessage: true}
	}
	return cls, msg, nil
}

func (p *Parser) resolve(className, msgName string) (*layout.Class, *layout.Message, error) {
	cls, ok := p.ClassByName(className)
	if !ok {
		return nil, nil, fmt.Errorf("%w: class %q", ErrNotRegistered, className)
	}
	msg, ok := cls.ByName(msgName)
	if !ok {
		return nil, nil, fmt.Errorf("%w: message %q in class %s", ErrNotRegistered, msgName, cls.Name())
	}
	return cls, msg, nil
}

// ReceiveFrom reads exactly one frame from src. Bytes ahead of the prefix
// are discarded. On error the source is left wherever reading stopped,
// except that unregistered frames are drained when configured to.
func (p *Parser) ReceiveFrom(src Source) (Message, error) {
	scanned, err := scan(src)
	if err != nil {
		return Message{}, err
	}
	if skipped := scanned - len(Prefix); skipped > 0 {
		log.Debug().Int("skipped", skipped).Msg("frame: resynchronized on prefix")
	}

	head, err := readN(src, StageHeader, HeaderLen)
	if err != nil {
		return Message{}, err
	}
	h, _ := DecodeHeader(head)

	cls, msg, err := p.lookup(h)
	if err != nil {
		p.drain(src, int(h.Length)+ChecksumLen)
		return Message{}, err
	}

	payload, err := readN(src, StagePayload, int(h.Length))
	if err != nil {
		return Message{}, err
	}
	sum, err := readN(src, StageChecksum, ChecksumLen)
	if err != nil {
		return Message{}, err
	}

	body := make([]byte, 0, HeaderLen+len(payload))
	body = append(append(body, head...), payload...)
	computed := Checksum(body)
	received := [2]byte{sum[0], sum[1]}
	if computed != received {
		return Message{}, &ChecksumError{Computed: computed, Received: received}
	}

	name, fields, err := msg.Decode(payload)
	if err != nil {
		return Message{}, err
	}
	log.Trace().
		Str("class", cls.Name()).
		Str("message", name).
		Int("length", len(payload)).
		Msg("frame: received")
	return Message{Class: cls.Name(), Name: name, Fields: fields}, nil
}

func scan(src Source) (int, error) {
	scanned := 0
	for {
		chunk, err := src.ReadUntil(Prefix[:])
		scanned += len(chunk)
		if bytes.HasSuffix(chunk, Prefix[:]) {
			return scanned, nil
		}
		if err == nil && len(chunk) == 0 {
			err = io.ErrNoProgress
		}
		if err != nil {
			return scanned, &ReadError{Stage: StageScan, Got: scanned, Err: err}
		}
	}
}

func readN(src Source, stage Stage, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	b, err := src.ReadN(n)
	if len(b) < n {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, &ReadError{Stage: stage, Want: n, Got: len(b), Err: err}
	}
	return b[:n], nil
}

func (p *Parser) drain(src Source, n int) {
	if !p.drainUnknown {
		return
	}
	if _, err := readN(src, StageDrain, n); err != nil {
		log.Warn().Err(err).Int("bytes", n).Msg("frame: drain after unsupported frame failed")
	}
}

// PrepareMessage returns a fully populated default Message for a
// registered class and message name.
func (p *Parser) PrepareMessage(className, msgName string) (Message, error) {
	cls, msg, err := p.resolve(className, msgName)
	if err != nil {
		return Message{}, err
	}
	return Message{Class: cls.Name(), Name: msg.Name(), Fields: msg.Default()}, nil
}

// Pack encodes m as a complete frame.
func (p *Parser) Pack(m Message) ([]byte, error) {
	cls, msg, payload, err := p.encode(m)
	if err != nil {
		return nil, err
	}
	return Encode(cls.ID(), msg.ID(), payload)
}

// TransferTo packs m and writes it to w in a single Write call.
func (p *Parser) TransferTo(m Message, w io.Writer) error {
	cls, msg, payload, err := p.encode(m)
	if err != nil {
		return err
	}
	if err := WriteFrame(w, cls.ID(), msg.ID(), payload); err != nil {
		return fmt.Errorf("frame: write %s-%s: %w", cls.Name(), msg.Name(), err)
	}
	log.Trace().
		Str("class", cls.Name()).
		Str("message", msg.Name()).
		Int("bytes", len(Prefix)+HeaderLen+len(payload)+ChecksumLen).
		Msg("frame: transferred")
	return nil
}

func (p *Parser) encode(m Message) (*layout.Class, *layout.Message, []byte, error) {
	cls, msg, err := p.resolve(m.Class, m.Name)
	if err != nil {
		return nil, nil, nil, err
	}
	payload, err := msg.Encode(m.Fields)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("frame: pack %s-%s: %w", cls.Name(), msg.Name(), err)
	}
	return cls, msg, payload, nil
}

// IsProtocol reports whether err came from a header naming an unregistered class or message.
func IsProtocol(err error) bool {
	return errors.Is(err, ErrUnknownClass) || errors.Is(err, ErrUnknownMessage)
}
