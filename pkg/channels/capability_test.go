package channels

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constHandle(out string) Handle {
	return func(context.Context, string) (string, error) { return out, nil }
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	calls := 0
	export := func(_ context.Context, param string) (string, error) {
		calls++
		return "exported " + param, nil
	}
	require.NoError(t, r.Register("exportHistory", export))

	h, ok := r.Lookup("exportHistory")
	require.True(t, ok)
	out, err := h(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "exported chat-1", out)
	assert.Equal(t, 1, calls)

	h, ok = r.Lookup("missing")
	assert.False(t, ok)
	assert.Nil(t, h)

	_, ok = r.Lookup("exporthistory")
	assert.False(t, ok, "lookup is case-sensitive")
}

func TestRegistry_OverwriteKeepsOneEntryInPlace(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("a", constHandle("a1")))
	require.NoError(t, r.Register("b", constHandle("b")))
	require.NoError(t, r.Register("a", constHandle("a2")))

	assert.Equal(t, []string{"a", "b"}, r.List())
	assert.Equal(t, 2, r.Len())

	out, err := r.Invoke(context.Background(), "a", "")
	require.NoError(t, err)
	assert.Equal(t, "a2", out)
}

func TestRegistry_RejectsBadRegistrations(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register("", constHandle("x")))
	assert.Error(t, r.Register("export history", constHandle("x")))
	assert.Error(t, r.Register("../x", constHandle("x")))
	assert.Error(t, r.Register("nil", nil))
	assert.Empty(t, r.List())
}

func TestRegistry_CapabilitiesIsACopy(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("ping", constHandle("pong")))

	caps := r.Capabilities()
	require.Len(t, caps, 1)
	caps["evil"] = constHandle("x")
	delete(caps, "ping")

	_, ok := r.Lookup("ping")
	assert.True(t, ok)
	_, ok = r.Lookup("evil")
	assert.False(t, ok)
}

func TestRegistry_InvokeMissing(t *testing.T) {
	_, err := NewRegistry().Invoke(context.Background(), "missing", "")
	assert.ErrorIs(t, err, ErrCapabilityNotFound)
}

func TestRegistry_ConcurrentUse(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = r.Register("cap", constHandle("x"))
		}()
		go func() {
			defer wg.Done()
			r.Lookup("cap")
			r.List()
		}()
	}
	wg.Wait()
	assert.Equal(t, []string{"cap"}, r.List())
}
