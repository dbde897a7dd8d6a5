package channels

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/tinyland-inc/efbridge/pkg/bus"
	"github.com/tinyland-inc/efbridge/pkg/logger"
	"github.com/tinyland-inc/efbridge/pkg/message"
)

// maxLineSize bounds one NDJSON envelope line.
const maxLineSize = 1 << 20

// StdioChannel exchanges newline-delimited JSON envelopes over a reader and
// a writer. It serves as a reference adapter and as the relay's local end.
type StdioChannel struct {
	*BaseChannel

	reader io.Reader

	// One scanner per channel so input buffered by an abandoned Poll is
	// seen by the next one.
	smu     sync.Mutex
	scanner *bufio.Scanner
	line    int

	wmu    sync.Mutex
	writer io.Writer

	cmu     sync.RWMutex
	chats   []Chat
	members map[string][]message.Party

	received atomic.Int64
	sent     atomic.Int64
	rejected atomic.Int64
}

// NewStdioChannel creates the channel and its descriptor, which exposes the
// "ping" and "stats" capabilities.
func NewStdioChannel(
	id, name, glyph string,
	role Role,
	mb *bus.MessageBus,
	r io.Reader,
	w io.Writer,
	allowList []string,
	opts ...BaseChannelOption,
) (*StdioChannel, error) {
	c := &StdioChannel{
		reader:  r,
		scanner: bufio.NewScanner(r),
		writer:  w,
		members: make(map[string][]message.Party),
	}
	c.scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	d, err := NewDescriptor(id, name, glyph, role,
		WithCapability("ping", c.ping),
		WithCapability("stats", c.stats),
	)
	if err != nil {
		return nil, err
	}
	c.BaseChannel = NewBaseChannel(d, mb, allowList, opts...)
	return c, nil
}

// Stop marks the channel stopped and closes the reader when it is closable,
// which releases a Poll blocked on input.
func (c *StdioChannel) Stop(ctx context.Context) error {
	c.SetRunning(false)
	if closer, ok := c.reader.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Poll reads one envelope per line. Blank lines are skipped; lines that fail
// to decode are yielded as errors and reading continues. Every envelope is
// restamped with this channel's identity. A later Poll resumes after the
// last line the previous one consumed; concurrent Polls are serialised.
func (c *StdioChannel) Poll(ctx context.Context) iter.Seq2[*message.Envelope, error] {
	return func(yield func(*message.Envelope, error) bool) {
		c.smu.Lock()
		defer c.smu.Unlock()
		scanner := c.scanner

		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}
			c.line++
			line := c.line
			data := bytes.TrimSpace(scanner.Bytes())
			if len(data) == 0 {
				continue
			}

			e, err := c.decode(data)
			if err != nil {
				c.rejected.Add(1)
				if !yield(nil, fmt.Errorf("%s line %d: %w", c.Descriptor().ID(), line, err)) {
					return
				}
				continue
			}

			sender := e.Origin()
			if m, ok := e.Member(); ok {
				sender = m
			}
			if !c.IsAllowed(SenderID(sender)) {
				logger.DebugCF("stdio", "Sender not allowed", map[string]any{
					"channel": c.Descriptor().ID(),
					"sender":  sender.UID,
				})
				continue
			}

			c.remember(e)
			c.received.Add(1)
			if !yield(e, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			yield(nil, fmt.Errorf("%s read: %w", c.Descriptor().ID(), err))
		}
	}
}

func (c *StdioChannel) decode(data []byte) (*message.Envelope, error) {
	e, err := message.Decode(data, c.EnvelopeOptions()...)
	if err != nil {
		return nil, err
	}
	return c.Envelope(e.Fields())
}

// Send writes the envelope as one JSON line.
func (c *StdioChannel) Send(ctx context.Context, e *message.Envelope) (DeliveryResult, error) {
	if err := ctx.Err(); err != nil {
		return DeliveryResult{}, err
	}
	data, err := message.Encode(e)
	if err != nil {
		return DeliveryResult{}, err
	}
	data = append(data, '\n')

	c.wmu.Lock()
	_, err = c.writer.Write(data)
	c.wmu.Unlock()
	if err != nil {
		return DeliveryResult{}, fmt.Errorf("%s write: %w", c.Descriptor().ID(), err)
	}

	c.sent.Add(1)
	return DeliveryResult{
		ID:          uuid.NewString(),
		Channel:     c.Descriptor().ID(),
		EnvelopeUID: e.UID(),
	}, nil
}

// ListChats returns the chats seen by Poll, in order of first appearance.
func (c *StdioChannel) ListChats(ctx context.Context) ([]Chat, error) {
	c.cmu.RLock()
	defer c.cmu.RUnlock()
	out := make([]Chat, len(c.chats))
	copy(out, c.chats)
	return out, nil
}

// ListGroupMembers returns the members seen posting in a group chat.
func (c *StdioChannel) ListGroupMembers(ctx context.Context, groupID string) ([]message.Party, error) {
	c.cmu.RLock()
	defer c.cmu.RUnlock()
	members, ok := c.members[groupID]
	if !ok {
		return nil, fmt.Errorf("%s: unknown group %q", c.Descriptor().ID(), groupID)
	}
	out := make([]message.Party, len(members))
	copy(out, members)
	return out, nil
}

func (c *StdioChannel) remember(e *message.Envelope) {
	origin := e.Origin()
	member, isGroup := e.Member()

	c.cmu.Lock()
	defer c.cmu.Unlock()

	known := false
	for _, chat := range c.chats {
		if chat.UID == origin.UID {
			known = true
			break
		}
	}
	if !known {
		c.chats = append(c.chats, Chat{Party: origin, Group: isGroup})
	}
	if !isGroup {
		return
	}
	for _, p := range c.members[origin.UID] {
		if p.UID == member.UID {
			return
		}
	}
	c.members[origin.UID] = append(c.members[origin.UID], member)
}

func (c *StdioChannel) ping(ctx context.Context, param string) (string, error) {
	if param == "" {
		return "pong", nil
	}
	return "pong " + param, nil
}

type stdioStats struct {
	Received int64 `json:"received"`
	Sent     int64 `json:"sent"`
	Rejected int64 `json:"rejected"`
	Chats    int   `json:"chats"`
}

func (c *StdioChannel) stats(ctx context.Context, _ string) (string, error) {
	c.cmu.RLock()
	chats := len(c.chats)
	c.cmu.RUnlock()

	data, err := json.Marshal(stdioStats{
		Received: c.received.Load(),
		Sent:     c.sent.Load(),
		Rejected: c.rejected.Load(),
		Chats:    chats,
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
