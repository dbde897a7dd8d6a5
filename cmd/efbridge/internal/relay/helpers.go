package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tinyland-inc/efbridge/cmd/efbridge/internal"
	"github.com/tinyland-inc/efbridge/pkg/bus"
	"github.com/tinyland-inc/efbridge/pkg/channels"
	"github.com/tinyland-inc/efbridge/pkg/config"
	"github.com/tinyland-inc/efbridge/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

func relayCmd(parent context.Context, debug bool) error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if debug {
		logger.SetLevel(logger.DEBUG)
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	mb := bus.NewMessageBus(cfg.Bus.BufferSize)
	defer mb.Close()

	manager, closers, err := buildManager(cfg, mb, internal.OpenStreams)
	defer closeAll(closers)
	if err != nil {
		return err
	}

	return run(ctx, manager)
}

type streamOpener func(config.ChannelConfig) (io.ReadCloser, io.WriteCloser, error)

// buildManager registers one stdio channel per enabled config entry. The
// returned closers must be closed even when an error is returned.
func buildManager(cfg *config.Config, mb *bus.MessageBus, open streamOpener) (*channels.Manager, []io.Closer, error) {
	manager := channels.NewManager(mb)
	var (
		closers   []io.Closer
		usesStdio bool
	)

	for _, cc := range cfg.EnabledChannels() {
		if cc.Input == "" || cc.Output == "" {
			if usesStdio {
				return nil, closers, fmt.Errorf("channel %s: only one channel may use stdin/stdout", cc.ID)
			}
			usesStdio = true
		}

		r, w, err := open(cc)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, r, w)

		ch, err := internal.NewChannel(cc, mb, r, w, cfg.EnvelopeOptions()...)
		if err != nil {
			return nil, closers, err
		}
		if err := manager.Register(ch); err != nil {
			return nil, closers, err
		}
	}

	if _, ok := manager.Master(); !ok {
		return nil, closers, errors.New("no enabled master channel configured")
	}
	return manager, closers, nil
}

func run(ctx context.Context, manager *channels.Manager) error {
	if err := manager.StartAll(ctx); err != nil {
		return err
	}
	logger.InfoCF("relay", "Relay started", map[string]any{
		"channels": len(manager.Channels()),
	})

	err := manager.Run(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if stopErr := manager.StopAll(stopCtx); stopErr != nil {
		logger.WarnCF("relay", "Channel shutdown failed", map[string]any{"error": stopErr.Error()})
	}
	logger.InfoC("relay", "Relay stopped")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		if c == os.Stdin || c == os.Stdout {
			continue
		}
		c.Close()
	}
}
