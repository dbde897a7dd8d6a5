package message

import "github.com/google/uuid"

// DefaultMaxTargetDepth bounds how many envelopes may be chained through
// Message reply targets.
const DefaultMaxTargetDepth = 8

// Fields is the unvalidated field bag New turns into an Envelope.
// Nil pointers mean absent.
type Fields struct {
	UID         string
	Type        MsgType
	Source      Source
	Origin      Party
	Destination Party
	Member      *Party
	Target      *Target
	Text        string
	URL         *string
	File        *File
	MIME        *string
	Attributes  Attributes
}

// Envelope is the canonical, platform-neutral representation of one message.
// It has no mutators; derive a new one through Fields and New.
type Envelope struct {
	uid         string
	msgType     MsgType
	source      Source
	origin      Party
	destination Party
	member      *Party
	target      *Target
	text        string
	url         *string
	file        *File
	mime        *string
	attributes  Attributes
	channel     *ChannelIdentity

	depth int
}

// Option tunes construction.
type Option func(*options)

type options struct {
	maxTargetDepth int
}

// WithMaxTargetDepth overrides DefaultMaxTargetDepth. Values below 1 are
// ignored.
func WithMaxTargetDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxTargetDepth = n
		}
	}
}

// NewUID returns a random uid for channels whose platform has no message ids.
func NewUID() string {
	return uuid.NewString()
}

// New validates f and returns the envelope, stamped with a copy of ch's
// identity when ch is non-nil. On failure the returned error is a
// *ValidationError listing every violation and no envelope is returned.
func New(ch Identifier, f Fields, opts ...Option) (*Envelope, error) {
	return build(ch, f, nil, opts...)
}

func build(ch Identifier, f Fields, pre violations, opts ...Option) (*Envelope, error) {
	o := options{maxTargetDepth: DefaultMaxTargetDepth}
	for _, opt := range opts {
		opt(&o)
	}

	f = f.clone()
	vs := pre
	validateFields(&vs, f, o)
	if err := vs.err(); err != nil {
		return nil, err
	}

	e := &Envelope{
		uid:         f.UID,
		msgType:     f.Type,
		source:      f.Source,
		origin:      f.Origin,
		destination: f.Destination,
		member:      f.Member,
		target:      f.Target,
		text:        f.Text,
		url:         f.URL,
		file:        f.File,
		mime:        f.MIME,
		attributes:  f.Attributes,
	}
	if f.Target != nil {
		e.depth = f.Target.depth()
	}
	if ch != nil {
		if id := ch.Identity(); id != (ChannelIdentity{}) {
			e.channel = &id
		}
	}
	return e, nil
}

func (e *Envelope) UID() string { return e.uid }
func (e *Envelope) Type() MsgType { return e.msgType }
func (e *Envelope) Source() Source { return e.source }
func (e *Envelope) Origin() Party { return e.origin }
func (e *Envelope) Destination() Party { return e.destination }
func (e *Envelope) Text() string { return e.text }

// Member is the author inside a group; present only for Group envelopes.
func (e *Envelope) Member() (Party, bool) {
	if e.member == nil {
		return Party{}, false
	}
	return *e.member, true
}

func (e *Envelope) Target() (Target, bool) {
	if e.target == nil {
		return Target{}, false
	}
	return *e.target, true
}

func (e *Envelope) URL() (string, bool) { return deref(e.url) }

func (e *Envelope) MIME() (string, bool) { return deref(e.mime) }

func (e *Envelope) File() (File, bool) {
	if e.file == nil {
		return File{}, false
	}
	return *e.file, true
}

// Attributes returns a copy of the type-specific payload, or nil.
func (e *Envelope) Attributes() Attributes {
	if e.attributes == nil {
		return nil
	}
	return e.attributes.clone()
}

// Channel returns the identity snapshot of the producing channel.
func (e *Envelope) Channel() (ChannelIdentity, bool) {
	if e.channel == nil {
		return ChannelIdentity{}, false
	}
	return *e.channel, true
}

// Depth is the length of the Message reply chain below this envelope.
func (e *Envelope) Depth() int { return e.depth }

// Fields returns a deep copy of the envelope's fields, ready to be edited
// and passed back to New.
func (e *Envelope) Fields() Fields {
	f := Fields{
		UID:         e.uid,
		Type:        e.msgType,
		Source:      e.source,
		Origin:      e.origin,
		Destination: e.destination,
		Member:      e.member,
		Target:      e.target,
		Text:        e.text,
		URL:         e.url,
		File:        e.file,
		MIME:        e.mime,
		Attributes:  e.attributes,
	}
	return f.clone()
}

// WithTarget derives a new envelope that differs only by its target.
func (e *Envelope) WithTarget(t Target, opts ...Option) (*Envelope, error) {
	f := e.Fields()
	f.Target = &t
	var ch Identifier
	if e.channel != nil {
		ch = *e.channel
	}
	return New(ch, f, opts...)
}

func (f Fields) clone() Fields {
	if f.Member != nil {
		m := *f.Member
		f.Member = &m
	}
	if f.Target != nil {
		t := *f.Target
		f.Target = &t
	}
	if f.File != nil {
		file := *f.File
		f.File = &file
	}
	f.URL = cloneString(f.URL)
	f.MIME = cloneString(f.MIME)
	f.Attributes = normalizeAttributes(f.Attributes)
	return f
}

// normalizeAttributes turns pointer payloads into detached values and nil
// pointers into absence.
func normalizeAttributes(a Attributes) Attributes {
	switch v := a.(type) {
	case nil:
		return nil
	case *LinkAttributes:
		if v == nil {
			return nil
		}
	case *MediaAttributes:
		if v == nil {
			return nil
		}
	case *LocationAttributes:
		if v == nil {
			return nil
		}
	case *CommandAttributes:
		if v == nil {
			return nil
		}
	}
	return a.clone()
}

func deref(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}
