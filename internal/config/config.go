package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Transport kinds.
const (
	KindSerial = "serial"
	KindTCP    = "tcp"
	KindFile   = "file"
)

type Config struct {
	Definitions []string
	Transport   Transport
	Parser      Parser
}

type Transport struct {
	Kind        string
	Path        string
	Baud        int
	Addr        string
	ReadTimeout time.Duration
	DialTimeout time.Duration
}

type Parser struct {
	ScanLimit    int
	DrainUnknown bool
}

// config.toml key mapping to runtime settings.
type fileConfig struct {
	Definitions []string      `toml:"definitions"`
	Transport   fileTransport `toml:"transport"`
	Parser      fileParser    `toml:"parser"`
}

type fileTransport struct {
	Kind        string `toml:"kind"`
	Path        string `toml:"path"`
	Baud        int    `toml:"baud"`
	Addr        string `toml:"addr"`
	ReadTimeout string `toml:"read_timeout"`
	DialTimeout string `toml:"dial_timeout"`
}

type fileParser struct {
	ScanLimit    int  `toml:"scan_limit"`
	DrainUnknown bool `toml:"drain_unknown"`
}

func Default() Config {
	return Config{
		Transport: Transport{
			Kind:        KindSerial,
			Path:        "/dev/ttyACM0",
			Baud:        38400,
			ReadTimeout: time.Second,
			DialTimeout: 5 * time.Second,
		},
		Parser: Parser{
			ScanLimit:    4096,
			DrainUnknown: true,
		},
	}
}

// Load overlays config.toml onto Default. Definition paths are resolved
// relative to the config file.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("definitions") {
		base := filepath.Dir(path)
		cfg.Definitions = make([]string, 0, len(raw.Definitions))
		for _, def := range raw.Definitions {
			def = strings.TrimSpace(def)
			if !filepath.IsAbs(def) {
				def = filepath.Join(base, def)
			}
			cfg.Definitions = append(cfg.Definitions, def)
		}
	}
	if meta.IsDefined("transport", "kind") {
		cfg.Transport.Kind = strings.ToLower(strings.TrimSpace(raw.Transport.Kind))
	}
	if meta.IsDefined("transport", "path") {
		cfg.Transport.Path = strings.TrimSpace(raw.Transport.Path)
	}
	if meta.IsDefined("transport", "baud") {
		cfg.Transport.Baud = raw.Transport.Baud
	}
	if meta.IsDefined("transport", "addr") {
		cfg.Transport.Addr = strings.TrimSpace(raw.Transport.Addr)
	}
	if meta.IsDefined("transport", "read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Transport.ReadTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("load config: transport.read_timeout: %w", err)
		}
		cfg.Transport.ReadTimeout = d
	}
	if meta.IsDefined("transport", "dial_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Transport.DialTimeout))
		if err != nil {
			return Config{}, fmt.Errorf("load config: transport.dial_timeout: %w", err)
		}
		cfg.Transport.DialTimeout = d
	}
	if meta.IsDefined("parser", "scan_limit") {
		cfg.Parser.ScanLimit = raw.Parser.ScanLimit
	}
	if meta.IsDefined("parser", "drain_unknown") {
		cfg.Parser.DrainUnknown = raw.Parser.DrainUnknown
	}

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if len(cfg.Definitions) == 0 {
		return fmt.Errorf("config missing definitions")
	}
	for i, def := range cfg.Definitions {
		if strings.TrimSpace(def) == "" {
			return fmt.Errorf("definitions[%d] is empty", i)
		}
	}
	if err := ValidateTransport(cfg.Transport); err != nil {
		return fmt.Errorf("transport invalid: %w", err)
	}
	if cfg.Parser.ScanLimit < 0 {
		return fmt.Errorf("parser scan_limit must not be negative")
	}
	return nil
}

func ValidateTransport(t Transport) error {
	switch t.Kind {
	case KindSerial:
		if strings.TrimSpace(t.Path) == "" {
			return fmt.Errorf("serial transport missing path")
		}
		if t.Baud <= 0 {
			return fmt.Errorf("serial transport baud must be positive")
		}
	case KindTCP:
		if strings.TrimSpace(t.Addr) == "" {
			return fmt.Errorf("tcp transport missing addr")
		}
	case KindFile:
		if strings.TrimSpace(t.Path) == "" {
			return fmt.Errorf("file transport missing path")
		}
	default:
		return fmt.Errorf("unknown transport kind %q", t.Kind)
	}
	if t.ReadTimeout < 0 || t.DialTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}
