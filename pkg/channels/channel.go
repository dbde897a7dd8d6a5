package channels

import (
	"context"
	"iter"

	"github.com/tinyland-inc/efbridge/pkg/message"
)

// Channel is the contract every platform adapter fulfils. Adapters embed
// *BaseChannel and override what their platform supports; the rest fails
// with ErrNotImplemented.
type Channel interface {
	Descriptor() *Descriptor
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	// Send delivers an envelope to the platform.
	Send(ctx context.Context, e *message.Envelope) (DeliveryResult, error)
	// Poll yields incoming envelopes until ctx is done or the source is
	// exhausted. Each call starts a fresh sequence.
	Poll(ctx context.Context) iter.Seq2[*message.Envelope, error]
	ListChats(ctx context.Context) ([]Chat, error)
	ListGroupMembers(ctx context.Context, groupID string) ([]message.Party, error)
	IsRunning() bool
	IsAllowed(senderID string) bool
}

// DeliveryResult acknowledges a sent envelope.
type DeliveryResult struct {
	// ID is the platform's id for the delivered message.
	ID          string
	Channel     string
	EnvelopeUID string
}

// Chat is a conversation known to a channel.
type Chat struct {
	message.Party
	Group bool
}
