// Package config loads appleble settings from a TOML file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/mikoaf/appleble/continuity"
)

type Config struct {
	Adapter     string
	Listen      string
	MinInterval time.Duration
	MaxInterval time.Duration
	Timeout     time.Duration
	TokenDigest string
	AddressTool string
	LogLevel    string
}

func Default() Config {
	return Config{
		Adapter:     "hci0",
		Listen:      "localhost:9000",
		MinInterval: continuity.DefaultMinInterval,
		MaxInterval: continuity.DefaultMaxInterval,
		TokenDigest: "sha256",
		AddressTool: "btmgmt",
		LogLevel:    "info",
	}
}

type fileConfig struct {
	Adapter     string `toml:"adapter"`
	Listen      string `toml:"listen"`
	MinInterval string `toml:"min_interval"`
	MaxInterval string `toml:"max_interval"`
	Timeout     string `toml:"timeout"`
	TokenDigest string `toml:"token_digest"`
	AddressTool string `toml:"address_tool"`
	LogLevel    string `toml:"log_level"`
}

// Load reads path over the defaults. Keys absent from the file keep their
// default value.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return apply(Default(), raw, meta)
}

// Parse is Load for in-memory TOML.
func Parse(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return apply(Default(), raw, meta)
}

func apply(cfg Config, raw fileConfig, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("adapter") {
		if v := strings.TrimSpace(raw.Adapter); v != "" {
			cfg.Adapter = v
		}
	}
	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"min_interval", raw.MinInterval, &cfg.MinInterval},
		{"max_interval", raw.MaxInterval, &cfg.MaxInterval},
		{"timeout", raw.Timeout, &cfg.Timeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if meta.IsDefined("token_digest") {
		cfg.TokenDigest = strings.TrimSpace(raw.TokenDigest)
	}
	if meta.IsDefined("address_tool") {
		cfg.AddressTool = strings.TrimSpace(raw.AddressTool)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	return cfg, cfg.Validate()
}

// MaxTimeout is the longest broadcast timeout BlueZ accepts.
const MaxTimeout = 65535 * time.Second

func (c Config) Validate() error {
	if c.MinInterval <= 0 || c.MaxInterval <= 0 {
		return fmt.Errorf("config: intervals must be positive")
	}
	if c.MinInterval > c.MaxInterval {
		return fmt.Errorf("config: min_interval %s exceeds max_interval %s", c.MinInterval, c.MaxInterval)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("config: negative timeout %s", c.Timeout)
	}
	// BlueZ takes the advertising timeout as whole seconds in a uint16.
	if c.Timeout%time.Second != 0 || c.Timeout > MaxTimeout {
		return fmt.Errorf("config: timeout %s must be whole seconds up to %s", c.Timeout, MaxTimeout)
	}
	if _, err := continuity.TokenFuncByName(c.TokenDigest); err != nil {
		return err
	}
	return nil
}

// Tokens returns the configured token digest.
func (c Config) Tokens() continuity.TokenFunc {
	fn, err := continuity.TokenFuncByName(c.TokenDigest)
	if err != nil {
		return continuity.SHA256Token
	}
	return fn
}

// AdvertiserOptions maps the broadcast settings onto advertiser options.
func (c Config) AdvertiserOptions() []continuity.Option {
	return []continuity.Option{
		continuity.WithInterval(c.MinInterval, c.MaxInterval),
		continuity.WithTimeout(c.Timeout),
	}
}
