package message

// Party is a named participant: a user, a group, or a member of a group.
// UID is stable per identity within its channel.
type Party struct {
	Name  string `json:"name"`
	Alias string `json:"alias"`
	UID   string `json:"uid"  validate:"required"`
}

// DisplayName prefers the alias when one is set.
func (p Party) DisplayName() string {
	if p.Alias != "" {
		return p.Alias
	}
	return p.Name
}

// ChannelIdentity is the by-value snapshot of a channel descriptor that an
// envelope carries.
type ChannelIdentity struct {
	ID    string
	Name  string
	Glyph string
}

// Identity lets a bare snapshot stand in for its descriptor, e.g. when
// deriving a new envelope from an existing one.
func (c ChannelIdentity) Identity() ChannelIdentity { return c }

// Identifier is implemented by anything that can stamp an envelope with a
// channel identity, typically *channels.Descriptor.
type Identifier interface {
	Identity() ChannelIdentity
}
