package bus

import "github.com/tinyland-inc/efbridge/pkg/message"

// InboundMessage is an envelope a channel produced, tagged with the id of
// that channel.
type InboundMessage struct {
	Channel  string
	Envelope *message.Envelope
}

// OutboundMessage is an envelope routed to the channel that must deliver it.
type OutboundMessage struct {
	Channel  string
	Envelope *message.Envelope
}
