package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/ubxctl/internal/protocol/layout"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Format selects the document syntax.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// Field kinds. An empty kind is inferred from the entry's contents.
const (
	KindScalar = "scalar"
	KindPad    = "pad"
	KindBits   = "bits"
	KindBlock  = "block"
)

// Document is one definitions file.
type Document struct {
	Classes []ClassDoc `toml:"class" yaml:"class"`
}

type ClassDoc struct {
	ID       *int         `toml:"id" yaml:"id"`
	Name     string       `toml:"name" yaml:"name"`
	Messages []MessageDoc `toml:"message" yaml:"message"`
}

type MessageDoc struct {
	ID     *int       `toml:"id" yaml:"id"`
	Name   string     `toml:"name" yaml:"name"`
	Fields []FieldDoc `toml:"fields" yaml:"fields"`
}

type FieldDoc struct {
	Kind   string     `toml:"kind" yaml:"kind"`
	Name   string     `toml:"name" yaml:"name"`
	Type   string     `toml:"type" yaml:"type"`
	Repeat int        `toml:"repeat" yaml:"repeat"`
	Flags  []FlagDoc  `toml:"flags" yaml:"flags"`
	Fields []FieldDoc `toml:"fields" yaml:"fields"`
}

type FlagDoc struct {
	Name  string `toml:"name" yaml:"name"`
	Start int    `toml:"start" yaml:"start"`
	Stop  int    `toml:"stop" yaml:"stop"`
}

type ValidationError struct {
	Class   string
	Message string
	Field   string
	Reason  string
	Err     error
}

func (e ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("schema:")
	if e.Class != "" {
		fmt.Fprintf(&b, " class=%s", e.Class)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, " message=%s", e.Message)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field=%s", e.Field)
	}
	fmt.Fprintf(&b, ": %s", e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

// FormatFor maps a file extension to a document format.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("schema: unsupported definitions file %q", path)
	}
}

// Decode reads a document without building layouts. Unknown keys are rejected.
func Decode(data []byte, format Format) (Document, error) {
	var doc Document
	switch format {
	case FormatTOML:
		meta, err := toml.Decode(string(data), &doc)
		if err != nil {
			return Document{}, fmt.Errorf("schema: decode toml: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Document{}, fmt.Errorf("schema: unknown toml key %q", undecoded[0].String())
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return Document{}, fmt.Errorf("schema: decode yaml: %w", err)
		}
	default:
		return Document{}, fmt.Errorf("schema: unsupported format %q", format)
	}
	return doc, nil
}

// Parse decodes a document and builds its classes.
func Parse(data []byte, format Format) ([]*layout.Class, error) {
	log.Debug().Msgf("schema.Parse format=%s bytes=%d", format, len(data))
	doc, err := Decode(data, format)
	if err != nil {
		log.Error().Err(err).Msg("schema.Parse decode failed")
		return nil, err
	}
	return Build(doc)
}

func LoadFile(path string) ([]*layout.Class, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	classes, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("schema: %s: %w", path, err)
	}
	log.Info().Msgf("schema.LoadFile ok path=%s classes=%d", path, len(classes))
	return classes, nil
}

// LoadFiles loads every file in order. A class id seen again must carry the
// same name and adds its messages to the first definition; later message ids
// replace earlier ones.
func LoadFiles(paths ...string) ([]*layout.Class, error) {
	var docs []Document
	for _, path := range paths {
		format, err := FormatFor(path)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("schema: read %s: %w", path, err)
		}
		doc, err := Decode(data, format)
		if err != nil {
			return nil, fmt.Errorf("schema: %s: %w", path, err)
		}
		docs = append(docs, doc)
	}
	var merged Document
	for _, doc := range docs {
		merged.Classes = append(merged.Classes, doc.Classes...)
	}
	return Build(merged)
}

// Build validates a document and converts it into layout classes.
func Build(doc Document) ([]*layout.Class, error) {
	var out []*layout.Class
	byID := map[int]*layout.Class{}
	for i, cd := range doc.Classes {
		label := cd.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}
		if cd.ID == nil {
			return nil, ValidationError{Class: label, Reason: "missing id"}
		}
		messages := make([]*layout.Message, 0, len(cd.Messages))
		for j, md := range cd.Messages {
			m, err := buildMessage(md, j)
			if err != nil {
				var ve ValidationError
				if errors.As(err, &ve) {
					ve.Class = label
					return nil, ve
				}
				return nil, ValidationError{Class: label, Reason: "invalid message", Err: err}
			}
			messages = append(messages, m)
		}
		if existing, ok := byID[*cd.ID]; ok {
			if name := strings.ToUpper(strings.TrimSpace(cd.Name)); name != existing.Name() {
				return nil, ValidationError{
					Class:  label,
					Reason: fmt.Sprintf("class id 0x%02x already defined as %s", *cd.ID, existing.Name()),
				}
			}
			if err := existing.Register(messages...); err != nil {
				return nil, ValidationError{Class: label, Reason: "invalid class", Err: err}
			}
			continue
		}
		cls, err := layout.NewClass(*cd.ID, cd.Name, messages...)
		if err != nil {
			log.Error().Err(err).Msgf("schema.Build invalid class=%s", label)
			return nil, ValidationError{Class: label, Reason: "invalid class", Err: err}
		}
		byID[*cd.ID] = cls
		out = append(out, cls)
	}
	log.Debug().Msgf("schema.Build ok classes=%d", len(out))
	return out, nil
}

func buildMessage(md MessageDoc, index int) (*layout.Message, error) {
	label := md.Name
	if label == "" {
		label = fmt.Sprintf("#%d", index)
	}
	if md.ID == nil {
		return nil, ValidationError{Message: label, Reason: "missing id"}
	}
	fields, err := buildFields(md.Fields, false)
	if err != nil {
		var ve ValidationError
		if errors.As(err, &ve) {
			ve.Message = label
			return nil, ve
		}
		return nil, err
	}
	m, err := layout.NewMessage(*md.ID, md.Name, fields...)
	if err != nil {
		return nil, ValidationError{Message: label, Reason: "invalid message", Err: err}
	}
	return m, nil
}

func buildFields(docs []FieldDoc, inBlock bool) ([]layout.Field, error) {
	out := make([]layout.Field, 0, len(docs))
	for i, fd := range docs {
		f, err := buildField(fd, inBlock)
		if err != nil {
			var ve ValidationError
			if errors.As(err, &ve) {
				return nil, ve
			}
			label := fd.Name
			if label == "" {
				label = fmt.Sprintf("#%d", i)
			}
			return nil, ValidationError{Field: label, Reason: "invalid " + kindOf(fd), Err: err}
		}
		out = append(out, f)
	}
	return out, nil
}

func kindOf(fd FieldDoc) string {
	if fd.Kind != "" {
		return strings.ToLower(fd.Kind)
	}
	switch {
	case len(fd.Fields) > 0:
		return KindBlock
	case len(fd.Flags) > 0:
		return KindBits
	case fd.Name == "":
		return KindPad
	default:
		return KindScalar
	}
}

func buildField(fd FieldDoc, inBlock bool) (layout.Field, error) {
	repeat := fd.Repeat
	if repeat == 0 {
		repeat = 1
	}
	kind := kindOf(fd)
	if fd.Repeat != 0 && (kind == KindBits || kind == KindBlock) {
		return nil, fmt.Errorf("%w: repeat is only valid on scalar and pad fields", layout.ErrInvalidRepeat)
	}
	switch kind {
	case KindScalar:
		return layout.NewArray(fd.Name, fd.Type, repeat)
	case KindPad:
		return layout.NewPad(repeat)
	case KindBits:
		flags := make([]layout.Flag, 0, len(fd.Flags))
		for _, fl := range fd.Flags {
			f, err := layout.NewFlag(fl.Name, fl.Start, fl.Stop)
			if err != nil {
				return nil, err
			}
			flags = append(flags, f)
		}
		code := fd.Type
		if code == "" {
			code = "X1"
		}
		return layout.NewBitField(fd.Name, code, flags...)
	case KindBlock:
		if inBlock {
			return nil, layout.ErrNestedBlock
		}
		inner, err := buildFields(fd.Fields, true)
		if err != nil {
			var ve ValidationError
			if errors.As(err, &ve) {
				ve.Field = fd.Name + "." + ve.Field
				return nil, ve
			}
			return nil, err
		}
		return layout.NewRepeatedBlock(fd.Name, inner...)
	default:
		return nil, fmt.Errorf("unknown field kind %q", kind)
	}
}
