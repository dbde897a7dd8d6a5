package message

import "iter"

// Target is the reply or mention context of an envelope. It is a tagged
// union; build it with MemberTarget, MessageTarget or SubstitutionTarget.
// The zero Target has no variant and fails validation.
type Target struct {
	kind    TargetType
	member  Party
	message *Envelope
	subs    Substitutions
}

// MemberTarget addresses one named participant.
func MemberTarget(p Party) Target {
	return Target{kind: TargetMember, member: p}
}

// MessageTarget marks a direct reply to a prior, already constructed envelope.
func MessageTarget(e *Envelope) Target {
	return Target{kind: TargetMessage, message: e}
}

// SubstitutionTarget maps in-text mention tokens to the parties they refer to.
func SubstitutionTarget(s Substitutions) Target {
	return Target{kind: TargetSubstitution, subs: s}
}

func (t Target) Type() TargetType { return t.kind }

// Member returns the addressed party of a Member target.
func (t Target) Member() (Party, bool) {
	return t.member, t.kind == TargetMember
}

// Message returns the replied-to envelope of a Message target.
func (t Target) Message() (*Envelope, bool) {
	return t.message, t.kind == TargetMessage && t.message != nil
}

// Substitutions returns the mention mapping of a Substitution target.
func (t Target) Substitutions() (Substitutions, bool) {
	return t.subs, t.kind == TargetSubstitution
}

// depth is the number of envelopes reachable through Message targets.
func (t Target) depth() int {
	if t.kind != TargetMessage || t.message == nil {
		return 0
	}
	return 1 + t.message.depth
}

// Mention is one entry of a Substitution mapping.
type Mention struct {
	Token string
	Party Party
}

// Substitutions is an ordered, read-only mapping from mention text
// (e.g. "@alice") to a Party. Order is insertion order.
type Substitutions struct {
	entries []Mention
}

// NewSubstitutions keeps the given order. Duplicate or empty tokens are not
// rejected here; envelope construction reports them.
func NewSubstitutions(mentions ...Mention) Substitutions {
	entries := make([]Mention, len(mentions))
	copy(entries, mentions)
	return Substitutions{entries: entries}
}

func (s Substitutions) Len() int { return len(s.entries) }

// Keys returns the mention tokens in order.
func (s Substitutions) Keys() []string {
	keys := make([]string, len(s.entries))
	for i, m := range s.entries {
		keys[i] = m.Token
	}
	return keys
}

// Lookup finds the party for an exact token.
func (s Substitutions) Lookup(token string) (Party, bool) {
	for _, m := range s.entries {
		if m.Token == token {
			return m.Party, true
		}
	}
	return Party{}, false
}

// All iterates token/party pairs in order.
func (s Substitutions) All() iter.Seq2[string, Party] {
	return func(yield func(string, Party) bool) {
		for _, m := range s.entries {
			if !yield(m.Token, m.Party) {
				return
			}
		}
	}
}

// Mentions returns a copy of the entries.
func (s Substitutions) Mentions() []Mention {
	out := make([]Mention, len(s.entries))
	copy(out, s.entries)
	return out
}
