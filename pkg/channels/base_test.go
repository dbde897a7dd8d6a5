package channels

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/efbridge/pkg/bus"
	"github.com/tinyland-inc/efbridge/pkg/message"
)

func newTestBase(t *testing.T, id string, role Role, mb *bus.MessageBus, allow []string) *BaseChannel {
	t.Helper()
	d, err := NewDescriptor(id, id, "", role)
	require.NoError(t, err)
	return NewBaseChannel(d, mb, allow)
}

func userFields(uid, from, to string) message.Fields {
	return message.Fields{
		UID:         uid,
		Type:        message.TypeText,
		Source:      message.SourceUser,
		Origin:      message.Party{Name: from, UID: from},
		Destination: message.Party{Name: to, UID: to},
		Text:        "hello",
	}
}

func TestBaseChannel_StubsAreNotImplemented(t *testing.T) {
	c := newTestBase(t, "stub", RoleSlave, bus.NewMessageBus(1), nil)
	ctx := context.Background()

	_, err := c.Send(ctx, nil)
	assert.ErrorIs(t, err, ErrNotImplemented)

	_, err = c.ListChats(ctx)
	assert.ErrorIs(t, err, ErrNotImplemented)

	_, err = c.ListGroupMembers(ctx, "g1")
	assert.ErrorIs(t, err, ErrNotImplemented)

	var polled []error
	for e, err := range c.Poll(ctx) {
		assert.Nil(t, e)
		polled = append(polled, err)
	}
	require.Len(t, polled, 1)
	assert.ErrorIs(t, polled[0], ErrNotImplemented)
}

func TestBaseChannel_StartStop(t *testing.T) {
	c := newTestBase(t, "stub", RoleSlave, bus.NewMessageBus(1), nil)
	assert.False(t, c.IsRunning())
	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.IsRunning())
	require.NoError(t, c.Stop(context.Background()))
	assert.False(t, c.IsRunning())
}

func TestBaseChannel_IsAllowed(t *testing.T) {
	tests := []struct {
		name      string
		allowList []string
		senderID  string
		want      bool
	}{
		{"empty allow list", nil, "anyone", true},
		{"exact id", []string{"123"}, "123", true},
		{"compound sender matches id", []string{"123"}, "123|alice", true},
		{"compound sender matches @user", []string{"@alice"}, "123|alice", true},
		{"compound allow entry", []string{"123|alice"}, "123", true},
		{"no match", []string{"456"}, "123|alice", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestBase(t, "stub", RoleSlave, bus.NewMessageBus(1), tt.allowList)
			assert.Equal(t, tt.want, c.IsAllowed(tt.senderID))
		})
	}
}

func TestBaseChannel_HandleMessagePublishesStampedEnvelope(t *testing.T) {
	mb := bus.NewMessageBus(4)
	c := newTestBase(t, "slave.irc", RoleSlave, mb, []string{"alice"})
	ctx := context.Background()

	require.NoError(t, c.HandleMessage(ctx, userFields("m1", "alice", "bob")))

	in, ok := mb.ConsumeInbound(ctx)
	require.True(t, ok)
	assert.Equal(t, "slave.irc", in.Channel)
	ch, ok := in.Envelope.Channel()
	require.True(t, ok)
	assert.Equal(t, "slave.irc", ch.ID)
}

func TestBaseChannel_HandleMessageDropsDisallowedSender(t *testing.T) {
	mb := bus.NewMessageBus(4)
	c := newTestBase(t, "slave.irc", RoleSlave, mb, []string{"alice"})

	require.NoError(t, c.HandleMessage(context.Background(), userFields("m1", "mallory", "bob")))

	in, _ := mb.Pending()
	assert.Zero(t, in)
}

func TestBaseChannel_HandleMessageChecksGroupMember(t *testing.T) {
	mb := bus.NewMessageBus(4)
	c := newTestBase(t, "slave.irc", RoleSlave, mb, []string{"alice"})

	f := userFields("m1", "room", "bob")
	f.Source = message.SourceGroup
	f.Member = &message.Party{Name: "alice", UID: "alice"}
	require.NoError(t, c.HandleMessage(context.Background(), f))

	in, _ := mb.Pending()
	assert.Equal(t, 1, in)
}

func TestBaseChannel_HandleMessageRejectsInvalidFields(t *testing.T) {
	mb := bus.NewMessageBus(4)
	c := newTestBase(t, "slave.irc", RoleSlave, mb, nil)

	f := userFields("", "alice", "bob")
	err := c.HandleMessage(context.Background(), f)
	assert.ErrorIs(t, err, message.ErrValidation)

	in, _ := mb.Pending()
	assert.Zero(t, in)
}

func TestBaseChannel_EnvelopeOptions(t *testing.T) {
	d, err := NewDescriptor("slave.irc", "IRC", "", RoleSlave)
	require.NoError(t, err)
	c := NewBaseChannel(d, bus.NewMessageBus(1), nil, WithEnvelopeOptions(message.WithMaxTargetDepth(1)))

	first, err := c.Envelope(userFields("m1", "alice", "bob"))
	require.NoError(t, err)
	f := userFields("m2", "alice", "bob")
	target := message.MessageTarget(first)
	f.Target = &target
	second, err := c.Envelope(f)
	require.NoError(t, err)

	f = userFields("m3", "alice", "bob")
	target = message.MessageTarget(second)
	f.Target = &target
	_, err = c.Envelope(f)
	assert.ErrorIs(t, err, message.ErrValidation)
}

func TestSenderID(t *testing.T) {
	assert.Equal(t, "u1|alice", SenderID(message.Party{UID: "u1", Name: "alice"}))
	assert.Equal(t, "u1", SenderID(message.Party{UID: "u1"}))
}
