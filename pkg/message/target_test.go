package message

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstitutionTarget_KeepsMentionOrder(t *testing.T) {
	f := textFields()
	f.Text = "hi @a and @b"
	f.Target = lo.ToPtr(SubstitutionTarget(NewSubstitutions(
		Mention{Token: "@a", Party: alice},
		Mention{Token: "@b", Party: bob},
	)))

	e, err := New(nil, f)
	require.NoError(t, err)

	target, ok := e.Target()
	require.True(t, ok)
	assert.Equal(t, TargetSubstitution, target.Type())

	subs, ok := target.Substitutions()
	require.True(t, ok)
	assert.Equal(t, []string{"@a", "@b"}, subs.Keys())

	p, ok := subs.Lookup("@b")
	require.True(t, ok)
	assert.Equal(t, bob, p)

	var walked []string
	for token, party := range subs.All() {
		walked = append(walked, token+"="+party.UID)
	}
	assert.Equal(t, []string{"@a=u1", "@b=u2"}, walked)
}

func TestSubstitutionTarget_TokensMissingFromTextAreTolerated(t *testing.T) {
	f := textFields()
	f.Text = "hi"
	f.Target = lo.ToPtr(SubstitutionTarget(NewSubstitutions(
		Mention{Token: "@a", Party: alice},
		Mention{Token: "@b", Party: bob},
	)))

	_, err := New(nil, f)
	assert.NoError(t, err)
}

func TestSubstitutionTarget_Violations(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		mentions []Mention
		field    string
	}{
		{
			name: "out of text order",
			text: "@b then @a",
			mentions: []Mention{
				{Token: "@a", Party: alice},
				{Token: "@b", Party: bob},
			},
			field: "target.target[1]",
		},
		{
			name: "prefix token out of text order",
			text: "hi @ab then @a",
			mentions: []Mention{
				{Token: "@a", Party: alice},
				{Token: "@ab", Party: bob},
			},
			field: "target.target[1]",
		},
		{
			name:     "empty token",
			text:     "hi",
			mentions: []Mention{{Token: "", Party: alice}},
			field:    "target.target[0]",
		},
		{
			name: "duplicate token",
			text: "@a",
			mentions: []Mention{
				{Token: "@a", Party: alice},
				{Token: "@a", Party: alice},
			},
			field: "target.target[1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := textFields()
			f.Text = tt.text
			f.Target = lo.ToPtr(SubstitutionTarget(NewSubstitutions(tt.mentions...)))

			ve := requireViolations(t, newErr(f))
			assert.True(t, ve.Has(InvariantSubstitutionKeys))
			assert.NotEmpty(t, ve.Field(tt.field), ve.Error())
		})
	}
}

func TestSubstitutionTarget_PrefixTokensInTextOrder(t *testing.T) {
	f := textFields()
	f.Text = "hi @a then @ab"
	f.Target = lo.ToPtr(SubstitutionTarget(NewSubstitutions(
		Mention{Token: "@a", Party: alice},
		Mention{Token: "@ab", Party: bob},
	)))

	_, err := New(nil, f)
	assert.NoError(t, err)

	f.Text = "hi @ab only"
	_, err = New(nil, f)
	assert.NoError(t, err, "@a inside @ab is not an occurrence of @a")
}

func TestSubstitutionTarget_MentionedPartyNeedsUID(t *testing.T) {
	f := textFields()
	f.Target = lo.ToPtr(SubstitutionTarget(NewSubstitutions(
		Mention{Token: "@ghost", Party: Party{Name: "ghost"}},
	)))

	ve := requireViolations(t, newErr(f))
	assert.True(t, ve.Has(InvariantTargetShape))
	assert.NotEmpty(t, ve.Field("target.target[0].uid"))
}

func TestNewSubstitutions_CopiesInput(t *testing.T) {
	mentions := []Mention{{Token: "@a", Party: alice}}
	subs := NewSubstitutions(mentions...)
	mentions[0].Token = "@changed"

	assert.Equal(t, []string{"@a"}, subs.Keys())

	out := subs.Mentions()
	out[0].Token = "@changed"
	assert.Equal(t, []string{"@a"}, subs.Keys())
}

func TestTarget_Accessors(t *testing.T) {
	member := MemberTarget(carol)
	p, ok := member.Member()
	assert.True(t, ok)
	assert.Equal(t, carol, p)
	_, ok = member.Message()
	assert.False(t, ok)
	_, ok = member.Substitutions()
	assert.False(t, ok)

	prior, err := New(nil, textFields())
	require.NoError(t, err)
	reply := MessageTarget(prior)
	got, ok := reply.Message()
	assert.True(t, ok)
	assert.Same(t, prior, got)
	_, ok = reply.Member()
	assert.False(t, ok)

	var zero Target
	assert.Equal(t, TargetType(""), zero.Type())
}
