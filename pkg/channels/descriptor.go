package channels

import (
	"fmt"

	"github.com/tinyland-inc/efbridge/pkg/message"
	"github.com/tinyland-inc/efbridge/pkg/utils"
)

// Role tells whether a channel faces the operator (Master) or a remote
// platform (Slave).
type Role string

const (
	RoleMaster Role = "Master"
	RoleSlave  Role = "Slave"
)

// ParseRole accepts exactly "Master" or "Slave".
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleMaster, RoleSlave:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// Descriptor is the identity and capability table of one channel instance.
// Identity fields are fixed at construction; capabilities can still be
// registered during adapter setup.
type Descriptor struct {
	id    string
	name  string
	glyph string
	role  Role
	caps  *Registry
}

// DescriptorOption configures a Descriptor in NewDescriptor.
type DescriptorOption func(*Descriptor) error

// WithCapability registers a named capability on the new descriptor.
func WithCapability(name string, h Handle) DescriptorOption {
	return func(d *Descriptor) error {
		return d.caps.Register(name, h)
	}
}

func NewDescriptor(id, name, glyph string, role Role, opts ...DescriptorOption) (*Descriptor, error) {
	if err := utils.ValidateIdentifier(id); err != nil {
		return nil, fmt.Errorf("channel id: %w", err)
	}
	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}
	d := &Descriptor{
		id:    id,
		name:  name,
		glyph: glyph,
		role:  role,
		caps:  NewRegistry(),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, fmt.Errorf("channel %s: %w", id, err)
		}
	}
	return d, nil
}

func (d *Descriptor) ID() string    { return d.id }
func (d *Descriptor) Name() string  { return d.name }
func (d *Descriptor) Glyph() string { return d.glyph }
func (d *Descriptor) Role() Role    { return d.role }

// Capabilities is the live registry of this channel.
func (d *Descriptor) Capabilities() *Registry { return d.caps }

// Identity returns the snapshot stamped on envelopes. A nil descriptor has
// the zero identity, which envelopes treat as no channel.
func (d *Descriptor) Identity() message.ChannelIdentity {
	if d == nil {
		return message.ChannelIdentity{}
	}
	return message.ChannelIdentity{ID: d.id, Name: d.name, Glyph: d.glyph}
}

func (d *Descriptor) String() string {
	if d.glyph == "" {
		return d.name + " (" + d.id + ")"
	}
	return d.glyph + " " + d.name + " (" + d.id + ")"
}
