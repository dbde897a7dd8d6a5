package channels

import (
	"bytes"
	"context"
	"io"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/efbridge/pkg/bus"
	"github.com/tinyland-inc/efbridge/pkg/message"
)

type fakeChannel struct {
	*BaseChannel
	inbox     []*message.Envelope
	delivered chan *message.Envelope
}

func newFakeChannel(t *testing.T, id string, role Role, mb *bus.MessageBus, inbox ...*message.Envelope) *fakeChannel {
	return &fakeChannel{
		BaseChannel: newTestBase(t, id, role, mb, nil),
		inbox:       inbox,
		delivered:   make(chan *message.Envelope, 8),
	}
}

func (f *fakeChannel) Poll(ctx context.Context) iter.Seq2[*message.Envelope, error] {
	return func(yield func(*message.Envelope, error) bool) {
		for _, e := range f.inbox {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (f *fakeChannel) Send(ctx context.Context, e *message.Envelope) (DeliveryResult, error) {
	f.delivered <- e
	return DeliveryResult{ID: "sent-" + e.UID(), Channel: f.Descriptor().ID(), EnvelopeUID: e.UID()}, nil
}

func mustFields(t *testing.T, f message.Fields) *message.Envelope {
	t.Helper()
	e, err := message.New(nil, f)
	require.NoError(t, err)
	return e
}

func receive(t *testing.T, ch <-chan *message.Envelope) *message.Envelope {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
		return nil
	}
}

func TestManager_Register(t *testing.T) {
	mb := bus.NewMessageBus(1)
	m := NewManager(mb)

	require.NoError(t, m.Register(newFakeChannel(t, "master", RoleMaster, mb)))
	require.NoError(t, m.Register(newFakeChannel(t, "slave.a", RoleSlave, mb)))
	require.NoError(t, m.Register(newFakeChannel(t, "slave.b", RoleSlave, mb)))

	assert.ErrorIs(t, m.Register(newFakeChannel(t, "slave.a", RoleSlave, mb)), ErrDuplicateChannel)
	assert.ErrorIs(t, m.Register(newFakeChannel(t, "master2", RoleMaster, mb)), ErrMasterExists)

	ids := make([]string, 0, 3)
	for _, ch := range m.Channels() {
		ids = append(ids, ch.Descriptor().ID())
	}
	assert.Equal(t, []string{"master", "slave.a", "slave.b"}, ids)

	master, ok := m.Master()
	require.True(t, ok)
	assert.Equal(t, "master", master.Descriptor().ID())
}

func TestManager_Route(t *testing.T) {
	mb := bus.NewMessageBus(1)
	m := NewManager(mb)
	require.NoError(t, m.Register(newFakeChannel(t, "master", RoleMaster, mb)))
	require.NoError(t, m.Register(newFakeChannel(t, "slave.a", RoleSlave, mb)))
	require.NoError(t, m.Register(newFakeChannel(t, "slave.b", RoleSlave, mb)))

	fromB := mustFields(t, userFields("m1", "carol", "me"))
	dst, err := m.Route(bus.InboundMessage{Channel: "slave.b", Envelope: fromB})
	require.NoError(t, err)
	assert.Equal(t, "master", dst)

	reply := mustFields(t, userFields("m2", "me", "carol"))
	dst, err = m.Route(bus.InboundMessage{Channel: "master", Envelope: reply})
	require.NoError(t, err)
	assert.Equal(t, "slave.b", dst)

	unknown := mustFields(t, userFields("m3", "me", "dave"))
	_, err = m.Route(bus.InboundMessage{Channel: "master", Envelope: unknown})
	assert.Error(t, err)

	_, err = m.Route(bus.InboundMessage{Channel: "nope", Envelope: unknown})
	assert.ErrorIs(t, err, ErrUnknownChannel)
}

func TestManager_RouteWithoutMaster(t *testing.T) {
	mb := bus.NewMessageBus(1)
	m := NewManager(mb)
	require.NoError(t, m.Register(newFakeChannel(t, "slave.a", RoleSlave, mb)))

	_, err := m.Route(bus.InboundMessage{Channel: "slave.a", Envelope: mustFields(t, userFields("m1", "a", "b"))})
	assert.Error(t, err)
}

func TestManager_RunRelaysBothWays(t *testing.T) {
	mb := bus.NewMessageBus(8)
	m := NewManager(mb)

	master := newFakeChannel(t, "master", RoleMaster, mb)
	slave := newFakeChannel(t, "slave.a", RoleSlave, mb, mustFields(t, userFields("m1", "carol", "me")))
	require.NoError(t, m.Register(master))
	require.NoError(t, m.Register(slave))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, m.StartAll(ctx))
	runErr := make(chan error, 1)
	go func() { runErr <- m.Run(ctx) }()

	got := receive(t, master.delivered)
	assert.Equal(t, "m1", got.UID())

	reply := mustFields(t, userFields("m2", "me", "carol"))
	require.NoError(t, mb.PublishInbound(ctx, bus.InboundMessage{Channel: "master", Envelope: reply}))

	got = receive(t, slave.delivered)
	assert.Equal(t, "m2", got.UID())

	cancel()
	select {
	case err := <-runErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	require.NoError(t, m.StopAll(context.Background()))
	assert.False(t, master.IsRunning())
	assert.False(t, slave.IsRunning())
}

// stuckReader blocks every Read until release is closed and has no Close.
type stuckReader struct{ release chan struct{} }

func (r stuckReader) Read([]byte) (int, error) {
	<-r.release
	return 0, io.EOF
}

func TestManager_StopAllHonoursDeadline(t *testing.T) {
	mb := bus.NewMessageBus(1)
	m := NewManager(mb)

	in := stuckReader{release: make(chan struct{})}
	t.Cleanup(func() { close(in.release) })
	ch, err := NewStdioChannel("master", "Master", "", RoleMaster, mb, in, &bytes.Buffer{}, nil)
	require.NoError(t, err)
	require.NoError(t, m.Register(ch))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.StartAll(ctx))
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer stopCancel()

	stopped := make(chan error, 1)
	go func() { stopped <- m.StopAll(stopCtx) }()

	select {
	case err := <-stopped:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("StopAll ignored its deadline")
	}
	assert.False(t, ch.IsRunning())
}
