package config

import (
	"fmt"
	"os"

	gotoml "github.com/pelletier/go-toml/v2"
)

// Encode renders cfg in the config.toml key layout.
func Encode(cfg Config) ([]byte, error) {
	raw := fileConfig{
		Definitions: cfg.Definitions,
		Transport: fileTransport{
			Kind:        cfg.Transport.Kind,
			Path:        cfg.Transport.Path,
			Baud:        cfg.Transport.Baud,
			Addr:        cfg.Transport.Addr,
			ReadTimeout: cfg.Transport.ReadTimeout.String(),
			DialTimeout: cfg.Transport.DialTimeout.String(),
		},
		Parser: fileParser{
			ScanLimit:    cfg.Parser.ScanLimit,
			DrainUnknown: cfg.Parser.DrainUnknown,
		},
	}
	if raw.Definitions == nil {
		raw.Definitions = []string{}
	}
	out, err := gotoml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return out, nil
}

// Template is Default with the given definition files.
func Template(definitions ...string) ([]byte, error) {
	cfg := Default()
	cfg.Definitions = definitions
	return Encode(cfg)
}

func WriteTemplate(path string, overwrite bool, definitions ...string) error {
	template, err := Template(definitions...)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, template, 0o600)
}
