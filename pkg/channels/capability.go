package channels

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/tinyland-inc/efbridge/pkg/logger"
	"github.com/tinyland-inc/efbridge/pkg/utils"
)

// Handle is an extra function a channel exposes beyond the base contract.
// It takes one free-form parameter and returns a human-readable result.
type Handle func(ctx context.Context, param string) (string, error)

// Registry maps capability names to handles. Names are case-sensitive and
// List keeps the order of first registration.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	handles map[string]Handle
}

func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]Handle)}
}

// Register adds a capability. Registering an existing name replaces its
// handle in place.
func (r *Registry) Register(name string, h Handle) error {
	if err := utils.ValidateIdentifier(name); err != nil {
		return fmt.Errorf("capability name: %w", err)
	}
	if h == nil {
		return errors.New("capability " + name + ": nil handle")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handles[name]; exists {
		logger.DebugCF("channels", "Capability overwritten", map[string]any{
			"capability": name,
		})
	} else {
		r.order = append(r.order, name)
	}
	r.handles[name] = h
	return nil
}

// Lookup finds a capability by exact name. A miss is not an error.
func (r *Registry) Lookup(name string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[name]
	return h, ok
}

// List returns the capability names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Capabilities returns a copy of the full name-to-handle mapping.
func (r *Registry) Capabilities() map[string]Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Assign(r.handles)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Invoke looks up name and calls it with param.
func (r *Registry) Invoke(ctx context.Context, name, param string) (string, error) {
	h, ok := r.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrCapabilityNotFound, name)
	}
	return h(ctx, param)
}
