package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/samber/lo"

	"github.com/tinyland-inc/efbridge/pkg/bus"
	"github.com/tinyland-inc/efbridge/pkg/channels"
	"github.com/tinyland-inc/efbridge/pkg/logger"
	"github.com/tinyland-inc/efbridge/pkg/message"
	"github.com/tinyland-inc/efbridge/pkg/utils"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so allow_from can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	// Try []string first
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	// Try []interface{} to handle mixed types
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Channels []ChannelConfig `json:"channels"`
	Envelope EnvelopeConfig  `json:"envelope"`
	Bus      BusConfig       `json:"bus"`
	Log      LogConfig       `json:"log"`
}

// ChannelConfig declares one channel instance. Role is "Master" or "Slave".
// Input and Output name the NDJSON streams of the channel; empty means
// stdin and stdout.
type ChannelConfig struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Glyph     string              `json:"glyph,omitempty"`
	Role      string              `json:"role"`
	Enabled   bool                `json:"enabled"`
	AllowFrom FlexibleStringSlice `json:"allow_from,omitempty"`
	Input     string              `json:"input,omitempty"`
	Output    string              `json:"output,omitempty"`
}

type EnvelopeConfig struct {
	MaxTargetDepth int `env:"EFBRIDGE_ENVELOPE_MAX_TARGET_DEPTH" json:"max_target_depth"`
}

type BusConfig struct {
	BufferSize int `env:"EFBRIDGE_BUS_BUFFER_SIZE" json:"buffer_size"`
}

type LogConfig struct {
	Level string `env:"EFBRIDGE_LOG_LEVEL" json:"level"`
	Color bool   `env:"EFBRIDGE_LOG_COLOR" json:"color"`
}

func DefaultConfig() *Config {
	return &Config{
		Channels: []ChannelConfig{
			{
				ID:      "master.terminal",
				Name:    "Terminal",
				Glyph:   "⌨",
				Role:    string(channels.RoleMaster),
				Enabled: true,
			},
		},
		Envelope: EnvelopeConfig{MaxTargetDepth: message.DefaultMaxTargetDepth},
		Bus:      BusConfig{BufferSize: bus.DefaultBufferSize},
		Log:      LogConfig{Level: "info", Color: true},
	}
}

// LoadConfig reads path over DefaultConfig, applies a .env file found next to
// it and EFBRIDGE_* environment overrides, then validates the result. A
// missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		// Go's JSON decoder reuses existing slice elements, so channel
		// entries absent from the file would inherit fields from the
		// default list. Drop the defaults when the file declares channels.
		var tmp Config
		if err := json.Unmarshal(data, &tmp); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if len(tmp.Channels) > 0 {
			cfg.Channels = nil
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := LoadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv exports the variables of each existing file. Variables already
// set in the environment win; missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate reports every problem in the config at once.
func (c *Config) Validate() error {
	var errs []error

	seen := make(map[string]bool, len(c.Channels))
	masters := 0
	for i, ch := range c.Channels {
		if err := utils.ValidateIdentifier(ch.ID); err != nil {
			errs = append(errs, fmt.Errorf("channels[%d].id: %w", i, err))
		} else if seen[ch.ID] {
			errs = append(errs, fmt.Errorf("channels[%d].id: duplicate id %q", i, ch.ID))
		}
		seen[ch.ID] = true

		role, err := channels.ParseRole(ch.Role)
		if err != nil {
			errs = append(errs, fmt.Errorf("channels[%d].role: %w", i, err))
		}
		if role == channels.RoleMaster && ch.Enabled {
			masters++
		}
	}
	if masters > 1 {
		errs = append(errs, fmt.Errorf("channels: %d enabled master channels, at most one allowed", masters))
	}

	if c.Envelope.MaxTargetDepth < 1 {
		errs = append(errs, errors.New("envelope.max_target_depth must be at least 1"))
	}
	if c.Bus.BufferSize < 1 {
		errs = append(errs, errors.New("bus.buffer_size must be at least 1"))
	}
	if _, ok := logger.LookupLevel(c.Log.Level); !ok {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}

	return errors.Join(errs...)
}

// EnabledChannels returns the enabled channel entries in file order.
func (c *Config) EnabledChannels() []ChannelConfig {
	return lo.Filter(c.Channels, func(ch ChannelConfig, _ int) bool { return ch.Enabled })
}

// EnvelopeOptions translates the envelope section into construction options.
func (c *Config) EnvelopeOptions() []message.Option {
	return []message.Option{message.WithMaxTargetDepth(c.Envelope.MaxTargetDepth)}
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}

// ResolvePath expands a leading "~" in a user supplied config path.
func ResolvePath(path string) string {
	return expandHome(path)
}
