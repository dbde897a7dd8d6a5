package channels

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/tinyland-inc/efbridge/pkg/bus"
	"github.com/tinyland-inc/efbridge/pkg/logger"
	"github.com/tinyland-inc/efbridge/pkg/message"
)

// Manager owns the registered channels, pumps their Poll sequences into the
// bus and routes envelopes between the master and the slaves.
type Manager struct {
	bus *bus.MessageBus

	mu       sync.RWMutex
	channels map[string]Channel
	order    []string
	master   string
	// chat uid -> id of the slave that last produced it
	routes map[string]string

	pumps sync.WaitGroup
}

func NewManager(mb *bus.MessageBus) *Manager {
	return &Manager{
		bus:      mb,
		channels: make(map[string]Channel),
		routes:   make(map[string]string),
	}
}

// Register adds a channel. Ids must be unique and at most one channel may
// have the Master role.
func (m *Manager) Register(ch Channel) error {
	d := ch.Descriptor()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.channels[d.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateChannel, d.ID())
	}
	if d.Role() == RoleMaster {
		if m.master != "" {
			return fmt.Errorf("%w: %s (have %s)", ErrMasterExists, d.ID(), m.master)
		}
		m.master = d.ID()
	}
	m.channels[d.ID()] = ch
	m.order = append(m.order, d.ID())

	logger.DebugCF("channels", "Channel registered", map[string]any{
		"channel": d.ID(),
		"role":    string(d.Role()),
	})
	return nil
}

func (m *Manager) Get(id string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[id]
	return ch, ok
}

// Channels returns the registered channels in registration order.
func (m *Manager) Channels() []Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lo.Map(m.order, func(id string, _ int) Channel { return m.channels[id] })
}

func (m *Manager) Master() (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.master == "" {
		return nil, false
	}
	return m.channels[m.master], true
}

// StartAll starts every channel and begins pumping its Poll sequence into
// the bus. The first start failure aborts; channels already started keep
// running until StopAll.
func (m *Manager) StartAll(ctx context.Context) error {
	for _, ch := range m.Channels() {
		id := ch.Descriptor().ID()
		if err := ch.Start(ctx); err != nil {
			return fmt.Errorf("start channel %s: %w", id, err)
		}
		logger.InfoCF("channels", "Channel started", map[string]any{"channel": id})

		m.pumps.Add(1)
		go func() {
			defer m.pumps.Done()
			m.pump(ctx, ch)
		}()
	}
	return nil
}

func (m *Manager) pump(ctx context.Context, ch Channel) {
	id := ch.Descriptor().ID()
	for e, err := range ch.Poll(ctx) {
		if err != nil {
			if errors.Is(err, ErrNotImplemented) {
				logger.DebugCF("channels", "Channel does not poll", map[string]any{"channel": id})
				return
			}
			if ctx.Err() != nil {
				return
			}
			logger.WarnCF("channels", "Poll failed", map[string]any{
				"channel": id,
				"error":   err.Error(),
			})
			continue
		}
		if err := m.bus.PublishInbound(ctx, bus.InboundMessage{Channel: id, Envelope: e}); err != nil {
			logger.DebugCF("channels", "Inbound publish stopped", map[string]any{
				"channel": id,
				"error":   err.Error(),
			})
			return
		}
	}
}

// Route picks the channel an inbound envelope should be delivered to.
// Slave envelopes go to the master and teach the manager which slave owns
// the origin chat. Master envelopes go to the slave that owns the
// destination chat.
func (m *Manager) Route(in bus.InboundMessage) (string, error) {
	if in.Envelope == nil {
		return "", errors.New("inbound message has no envelope")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.channels[in.Channel]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownChannel, in.Channel)
	}

	if src.Descriptor().Role() == RoleSlave {
		m.routes[in.Envelope.Origin().UID] = in.Channel
		if m.master == "" {
			return "", errors.New("no master channel registered")
		}
		return m.master, nil
	}

	chat := in.Envelope.Destination().UID
	dst, ok := m.routes[chat]
	if !ok {
		return "", fmt.Errorf("no slave channel knows chat %q", chat)
	}
	return dst, nil
}

// Run routes inbound envelopes and dispatches outbound ones until ctx is done
// or the bus is closed.
func (m *Manager) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.dispatch(ctx)
	}()
	defer wg.Wait()

	for {
		in, ok := m.bus.ConsumeInbound(ctx)
		if !ok {
			return ctx.Err()
		}
		dst, err := m.Route(in)
		if err != nil {
			logger.WarnCF("channels", "Dropping unroutable envelope", map[string]any{
				"channel": in.Channel,
				"uid":     envelopeUID(in.Envelope),
				"error":   err.Error(),
			})
			continue
		}
		if err := m.bus.PublishOutbound(ctx, bus.OutboundMessage{Channel: dst, Envelope: in.Envelope}); err != nil {
			return nil
		}
	}
}

func (m *Manager) dispatch(ctx context.Context) {
	for {
		out, ok := m.bus.SubscribeOutbound(ctx)
		if !ok {
			return
		}
		ch, ok := m.Get(out.Channel)
		if !ok {
			logger.WarnCF("channels", "Outbound for unknown channel", map[string]any{"channel": out.Channel})
			continue
		}
		res, err := ch.Send(ctx, out.Envelope)
		if err != nil {
			logger.ErrorCF("channels", "Send failed", map[string]any{
				"channel": out.Channel,
				"uid":     envelopeUID(out.Envelope),
				"error":   err.Error(),
			})
			continue
		}
		logger.DebugCF("channels", "Envelope delivered", map[string]any{
			"channel": out.Channel,
			"uid":     res.EnvelopeUID,
			"id":      res.ID,
		})
	}
}

// StopAll stops every channel and waits for the poll pumps to exit, or until
// ctx is done. A pump blocked in a read its channel cannot interrupt is left
// behind and ctx.Err() is reported.
func (m *Manager) StopAll(ctx context.Context) error {
	var errs []error
	for _, ch := range m.Channels() {
		if err := ch.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop channel %s: %w", ch.Descriptor().ID(), err))
		}
	}

	done := make(chan struct{})
	go func() {
		m.pumps.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.WarnC("channels", "Poll pumps still running after stop deadline")
		errs = append(errs, fmt.Errorf("wait for poll pumps: %w", ctx.Err()))
	}
	return errors.Join(errs...)
}

func envelopeUID(e *message.Envelope) string {
	if e == nil {
		return ""
	}
	return e.UID()
}
