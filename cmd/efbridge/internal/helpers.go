package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"runtime"

	"github.com/tinyland-inc/efbridge/pkg/bus"
	"github.com/tinyland-inc/efbridge/pkg/channels"
	"github.com/tinyland-inc/efbridge/pkg/config"
	"github.com/tinyland-inc/efbridge/pkg/logger"
	"github.com/tinyland-inc/efbridge/pkg/message"
)

const Logo = "🌉"

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

// ConfigFlag holds the root --config flag.
var ConfigFlag string

func GetConfigPath() string {
	if ConfigFlag != "" {
		return config.ResolvePath(ConfigFlag)
	}
	if p := os.Getenv("EFBRIDGE_CONFIG"); p != "" {
		return config.ResolvePath(p)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".efbridge", "config.json")
}

// LoadConfig loads the config and applies its log section.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(GetConfigPath())
	if err != nil {
		return nil, err
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.SetOutput(os.Stderr, cfg.Log.Color)
	return cfg, nil
}

// OpenInput opens path for reading; "" and "-" mean stdin.
func OpenInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

// ReadEnvelopes decodes consecutive JSON documents from r, so both NDJSON
// and a single indented envelope are accepted. A syntax error ends the
// sequence since the stream cannot be resynchronised.
func ReadEnvelopes(r io.Reader, opts ...message.Option) iter.Seq2[*message.Envelope, error] {
	return func(yield func(*message.Envelope, error) bool) {
		dec := json.NewDecoder(r)
		for {
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				if !errors.Is(err, io.EOF) {
					yield(nil, fmt.Errorf("read envelope: %w", err))
				}
				return
			}
			if !yield(message.Decode(raw, opts...)) {
				return
			}
		}
	}
}

// NewChannel builds the stdio adapter for a configured channel.
func NewChannel(
	cc config.ChannelConfig,
	mb *bus.MessageBus,
	r io.Reader,
	w io.Writer,
	opts ...message.Option,
) (*channels.StdioChannel, error) {
	role, err := channels.ParseRole(cc.Role)
	if err != nil {
		return nil, err
	}
	return channels.NewStdioChannel(cc.ID, cc.Name, cc.Glyph, role, mb, r, w, cc.AllowFrom,
		channels.WithEnvelopeOptions(opts...))
}

// OpenStreams opens the NDJSON streams of a configured channel. Empty paths
// fall back to stdin and stdout, which only one channel may use.
func OpenStreams(cc config.ChannelConfig) (io.ReadCloser, io.WriteCloser, error) {
	var (
		r io.ReadCloser  = os.Stdin
		w io.WriteCloser = os.Stdout
	)
	if cc.Input != "" {
		f, err := os.Open(config.ResolvePath(cc.Input))
		if err != nil {
			return nil, nil, fmt.Errorf("channel %s input: %w", cc.ID, err)
		}
		r = f
	}
	if cc.Output != "" {
		f, err := os.OpenFile(config.ResolvePath(cc.Output), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			r.Close()
			return nil, nil, fmt.Errorf("channel %s output: %w", cc.ID, err)
		}
		w = f
	}
	return r, w, nil
}

// FormatVersion returns the version string with optional git commit
func FormatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

// FormatBuildInfo returns build time and go version info
func FormatBuildInfo() (string, string) {
	build := buildTime
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	return build, goVer
}

// GetVersion returns the version string
func GetVersion() string {
	return version
}
