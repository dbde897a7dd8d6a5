package channels

import (
	"context"
	"iter"
	"strings"
	"sync/atomic"

	"github.com/tinyland-inc/efbridge/pkg/bus"
	"github.com/tinyland-inc/efbridge/pkg/logger"
	"github.com/tinyland-inc/efbridge/pkg/message"
)

// BaseChannelOption is a functional option for configuring a BaseChannel.
type BaseChannelOption func(*BaseChannel)

// WithEnvelopeOptions sets the options passed to message.New for every
// envelope the channel constructs.
func WithEnvelopeOptions(opts ...message.Option) BaseChannelOption {
	return func(c *BaseChannel) { c.envelopeOpts = append(c.envelopeOpts, opts...) }
}

// BaseChannel carries the state every adapter shares and stubs the platform
// operations.
type BaseChannel struct {
	descriptor   *Descriptor
	bus          *bus.MessageBus
	running      atomic.Bool
	allowList    []string
	envelopeOpts []message.Option
}

func NewBaseChannel(
	descriptor *Descriptor,
	bus *bus.MessageBus,
	allowList []string,
	opts ...BaseChannelOption,
) *BaseChannel {
	bc := &BaseChannel{
		descriptor: descriptor,
		bus:        bus,
		allowList:  allowList,
	}
	for _, opt := range opts {
		opt(bc)
	}
	return bc
}

func (c *BaseChannel) Descriptor() *Descriptor {
	return c.descriptor
}

func (c *BaseChannel) Start(ctx context.Context) error {
	c.SetRunning(true)
	return nil
}

func (c *BaseChannel) Stop(ctx context.Context) error {
	c.SetRunning(false)
	return nil
}

func (c *BaseChannel) Send(ctx context.Context, e *message.Envelope) (DeliveryResult, error) {
	return DeliveryResult{}, ErrNotImplemented
}

func (c *BaseChannel) Poll(ctx context.Context) iter.Seq2[*message.Envelope, error] {
	return func(yield func(*message.Envelope, error) bool) {
		yield(nil, ErrNotImplemented)
	}
}

func (c *BaseChannel) ListChats(ctx context.Context) ([]Chat, error) {
	return nil, ErrNotImplemented
}

func (c *BaseChannel) ListGroupMembers(ctx context.Context, groupID string) ([]message.Party, error) {
	return nil, ErrNotImplemented
}

func (c *BaseChannel) IsRunning() bool {
	return c.running.Load()
}

func (c *BaseChannel) SetRunning(running bool) {
	c.running.Store(running)
}

// EnvelopeOptions returns the construction options configured for this
// channel.
func (c *BaseChannel) EnvelopeOptions() []message.Option {
	return c.envelopeOpts
}

func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowList) == 0 {
		return true
	}

	// Extract parts from compound senderID like "123456|username"
	idPart := senderID
	userPart := ""
	if idx := strings.Index(senderID, "|"); idx > 0 {
		idPart = senderID[:idx]
		userPart = senderID[idx+1:]
	}

	for _, allowed := range c.allowList {
		// Strip leading "@" from allowed value for username matching
		trimmed := strings.TrimPrefix(allowed, "@")
		allowedID := trimmed
		allowedUser := ""
		if idx := strings.Index(trimmed, "|"); idx > 0 {
			allowedID = trimmed[:idx]
			allowedUser = trimmed[idx+1:]
		}

		if senderID == allowed ||
			idPart == allowed ||
			senderID == trimmed ||
			idPart == trimmed ||
			idPart == allowedID ||
			(allowedUser != "" && senderID == allowedUser) ||
			(userPart != "" && (userPart == allowed || userPart == trimmed || userPart == allowedUser)) {
			return true
		}
	}

	return false
}

// SenderID renders a party in the "uid|name" form IsAllowed understands.
func SenderID(p message.Party) string {
	if p.Name == "" {
		return p.UID
	}
	return p.UID + "|" + p.Name
}

// Envelope builds an envelope stamped with this channel's descriptor.
func (c *BaseChannel) Envelope(f message.Fields) (*message.Envelope, error) {
	return message.New(c.descriptor, f, c.envelopeOpts...)
}

// HandleMessage builds an envelope from platform fields and publishes it to
// the bus. Senders outside the allow list are dropped silently. The author
// checked is the group member for group messages and the origin otherwise.
func (c *BaseChannel) HandleMessage(ctx context.Context, f message.Fields) error {
	sender := f.Origin
	if f.Member != nil {
		sender = *f.Member
	}
	if !c.IsAllowed(SenderID(sender)) {
		logger.DebugCF("channels", "Sender not allowed", map[string]any{
			"channel": c.descriptor.ID(),
			"sender":  sender.UID,
		})
		return nil
	}

	e, err := c.Envelope(f)
	if err != nil {
		return err
	}
	return c.bus.PublishInbound(ctx, bus.InboundMessage{
		Channel:  c.descriptor.ID(),
		Envelope: e,
	})
}
