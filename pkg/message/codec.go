package message

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Wire form. Optional fields are pointers so that absence survives a round
// trip distinct from the empty string.
type wireEnvelope struct {
	UID          string          `json:"uid"`
	Type         MsgType         `json:"type"`
	Source       Source          `json:"source"`
	Origin       Party           `json:"origin"`
	Destination  Party           `json:"destination"`
	Member       *Party          `json:"member,omitempty"`
	Target       *wireTarget     `json:"target,omitempty"`
	Text         *string         `json:"text"`
	URL          *string         `json:"url,omitempty"`
	File         *File           `json:"file,omitempty"`
	MIME         *string         `json:"mime,omitempty"`
	Attributes   json.RawMessage `json:"attributes,omitempty"`
	ChannelID    *string         `json:"channel_id,omitempty"`
	ChannelName  *string         `json:"channel_name,omitempty"`
	ChannelGlyph *string         `json:"channel_glyph,omitempty"`
}

type wireTarget struct {
	TargetType TargetType      `json:"target_type"`
	Target     json.RawMessage `json:"target"`
}

// Encode serializes an envelope to its JSON wire form.
func Encode(e *Envelope) ([]byte, error) {
	return json.Marshal(e)
}

func (e *Envelope) MarshalJSON() ([]byte, error) {
	text := e.text
	w := wireEnvelope{
		UID:         e.uid,
		Type:        e.msgType,
		Source:      e.source,
		Origin:      e.origin,
		Destination: e.destination,
		Member:      e.member,
		Text:        &text,
		URL:         e.url,
		File:        e.file,
		MIME:        e.mime,
	}
	if e.target != nil {
		wt, err := encodeTarget(*e.target)
		if err != nil {
			return nil, err
		}
		w.Target = wt
	}
	if e.attributes != nil {
		raw, err := json.Marshal(e.attributes)
		if err != nil {
			return nil, fmt.Errorf("encode attributes: %w", err)
		}
		w.Attributes = raw
	}
	if e.channel != nil {
		w.ChannelID = &e.channel.ID
		w.ChannelName = &e.channel.Name
		w.ChannelGlyph = &e.channel.Glyph
	}
	return json.Marshal(w)
}

func encodeTarget(t Target) (*wireTarget, error) {
	var payload any
	switch t.kind {
	case TargetMember:
		payload = t.member
	case TargetMessage:
		payload = t.message
	case TargetSubstitution:
		payload = t.subs
	default:
		return nil, errors.New("encode target: no variant set")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s target: %w", t.kind, err)
	}
	return &wireTarget{TargetType: t.kind, Target: raw}, nil
}

// MarshalJSON writes the mapping as a JSON object, keys in mapping order.
func (s Substitutions) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range s.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.Token)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.Party)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Decode parses the JSON wire form and constructs the envelope through the
// same validation as New. Malformed JSON yields a plain error; well-formed
// input that breaks an invariant yields a *ValidationError.
func Decode(data []byte, opts ...Option) (*Envelope, error) {
	o := options{maxTargetDepth: DefaultMaxTargetDepth}
	for _, opt := range opts {
		opt(&o)
	}
	return decodeEnvelope(data, 0, o, opts)
}

func decodeEnvelope(data []byte, level int, o options, opts []Option) (*Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var pre violations
	f := Fields{
		UID:         w.UID,
		Type:        w.Type,
		Source:      w.Source,
		Origin:      w.Origin,
		Destination: w.Destination,
		Member:      w.Member,
		URL:         w.URL,
		File:        w.File,
		MIME:        w.MIME,
	}
	if w.Text == nil {
		pre.add(InvariantRequired, "text", "is required")
	} else {
		f.Text = *w.Text
	}

	if w.Target != nil {
		t, vs, err := decodeTarget(*w.Target, level, o, opts)
		if err != nil {
			return nil, err
		}
		pre = append(pre, vs...)
		if len(vs) == 0 {
			f.Target = &t
		}
	}

	if len(w.Attributes) > 0 && !bytes.Equal(w.Attributes, []byte("null")) {
		a, err := decodeAttributes(w.Type, w.Attributes)
		if err != nil {
			pre.add(InvariantAttributesShape, "attributes", err.Error())
		}
		f.Attributes = a
	}

	var ch Identifier
	if w.ChannelID != nil {
		id := ChannelIdentity{ID: *w.ChannelID}
		if w.ChannelName != nil {
			id.Name = *w.ChannelName
		}
		if w.ChannelGlyph != nil {
			id.Glyph = *w.ChannelGlyph
		}
		ch = id
	}
	return build(ch, f, pre, opts...)
}

func decodeTarget(w wireTarget, level int, o options, opts []Option) (Target, violations, error) {
	var vs violations
	switch w.TargetType {
	case TargetMember:
		var p Party
		if err := json.Unmarshal(w.Target, &p); err != nil {
			vs.add(InvariantTargetShape, "target.target", "Member target must be a party: "+err.Error())
			return Target{}, vs, nil
		}
		return MemberTarget(p), nil, nil

	case TargetMessage:
		if level+1 > o.maxTargetDepth {
			vs.add(InvariantTargetDepth, "target.target",
				fmt.Sprintf("reply chain deeper than limit %d", o.maxTargetDepth))
			return Target{}, vs, nil
		}
		if len(w.Target) == 0 || bytes.Equal(w.Target, []byte("null")) {
			vs.add(InvariantTargetShape, "target.target", "Message target needs an envelope")
			return Target{}, vs, nil
		}
		nested, err := decodeEnvelope(w.Target, level+1, o, opts)
		if err != nil {
			var ve *ValidationError
			if !errors.As(err, &ve) {
				return Target{}, nil, err
			}
			for _, v := range ve.Violations {
				v.Field = "target.target." + v.Field
				vs = append(vs, v)
			}
			return Target{}, vs, nil
		}
		return MessageTarget(nested), nil, nil

	case TargetSubstitution:
		subs, err := decodeSubstitutions(w.Target)
		if err != nil {
			vs.add(InvariantTargetShape, "target.target", err.Error())
			return Target{}, vs, nil
		}
		return SubstitutionTarget(subs), nil, nil

	case "":
		vs.add(InvariantTargetShape, "target.target_type", "is required")
	default:
		vs.add(InvariantTargetShape, "target.target_type", fmt.Sprintf("unknown target type %q", w.TargetType))
	}
	return Target{}, vs, nil
}

// decodeSubstitutions streams the object so that key order and duplicate
// keys survive; encoding/json would fold both into a map.
func decodeSubstitutions(raw json.RawMessage) (Substitutions, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return Substitutions{}, fmt.Errorf("substitution target: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Substitutions{}, errors.New("substitution target must be a JSON object")
	}

	var mentions []Mention
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Substitutions{}, fmt.Errorf("substitution target: %w", err)
		}
		token, _ := tok.(string)
		var p Party
		if err := dec.Decode(&p); err != nil {
			return Substitutions{}, fmt.Errorf("substitution target %q: %w", token, err)
		}
		mentions = append(mentions, Mention{Token: token, Party: p})
	}
	if _, err := dec.Token(); err != nil {
		return Substitutions{}, fmt.Errorf("substitution target: %w", err)
	}
	return NewSubstitutions(mentions...), nil
}

func decodeAttributes(t MsgType, raw json.RawMessage) (Attributes, error) {
	kind, ok := attributeKinds[t]
	if !ok {
		return nil, fmt.Errorf("%s messages carry no attributes", t)
	}
	var (
		a   Attributes
		err error
	)
	switch kind {
	case kindLink:
		var v LinkAttributes
		err = json.Unmarshal(raw, &v)
		a = v
	case kindMedia:
		var v MediaAttributes
		err = json.Unmarshal(raw, &v)
		a = v
	case kindLocation:
		var v LocationAttributes
		err = json.Unmarshal(raw, &v)
		a = v
	case kindCommand:
		var v CommandAttributes
		err = json.Unmarshal(raw, &v)
		a = v
	}
	if err != nil {
		return nil, fmt.Errorf("%s attributes: %w", kind, err)
	}
	return a, nil
}
