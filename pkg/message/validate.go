package message

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report wire names ("description"), not Go names ("Description").
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateFields(vs *violations, f Fields, o options) {
	if f.UID == "" {
		vs.add(InvariantRequired, "uid", "is required")
	}
	switch {
	case f.Type == "":
		vs.add(InvariantRequired, "type", "is required")
	case !f.Type.Valid():
		vs.add(InvariantRequired, "type", fmt.Sprintf("unknown message type %q", f.Type))
	}
	switch {
	case f.Source == "":
		vs.add(InvariantRequired, "source", "is required")
	case !f.Source.Valid():
		vs.add(InvariantRequired, "source", fmt.Sprintf("unknown source %q", f.Source))
	}
	structViolations(vs, InvariantRequired, "origin", f.Origin)
	structViolations(vs, InvariantRequired, "destination", f.Destination)

	switch {
	case f.Source == SourceGroup && f.Member == nil:
		vs.add(InvariantMemberIffGroup, "member", "is required when source is Group")
	case f.Source != SourceGroup && f.Member != nil:
		vs.add(InvariantMemberIffGroup, "member", "must be absent unless source is Group")
	}
	if f.Member != nil {
		structViolations(vs, InvariantRequired, "member", *f.Member)
	}

	if f.Target != nil {
		validateTarget(vs, *f.Target, f.Text, o)
	}
	validateMedia(vs, f)
	validateAttributes(vs, f)
}

func validateTarget(vs *violations, t Target, text string, o options) {
	switch t.kind {
	case TargetMember:
		structViolations(vs, InvariantTargetShape, "target.target", t.member)
	case TargetMessage:
		if t.message == nil {
			vs.add(InvariantTargetShape, "target.target", "Message target needs an envelope")
			return
		}
		if d := t.depth(); d > o.maxTargetDepth {
			vs.add(InvariantTargetDepth, "target.target",
				fmt.Sprintf("reply chain depth %d exceeds limit %d", d, o.maxTargetDepth))
		}
	case TargetSubstitution:
		validateSubstitutions(vs, t.subs, text)
	default:
		vs.add(InvariantTargetShape, "target.target_type", "is required")
	}
}

// validateSubstitutions checks that tokens are non-empty and unique, and that
// tokens found in text appear there in mapping order.
func validateSubstitutions(vs *violations, s Substitutions, text string) {
	if s.Len() == 0 {
		vs.add(InvariantTargetShape, "target.target", "Substitution target needs at least one mention")
		return
	}
	seen := make(map[string]bool, s.Len())
	tokens := s.Keys()
	last := -1
	for i, m := range s.entries {
		field := fmt.Sprintf("target.target[%d]", i)
		if m.Token == "" {
			vs.add(InvariantSubstitutionKeys, field, "mention token is empty")
			continue
		}
		if seen[m.Token] {
			vs.add(InvariantSubstitutionKeys, field, fmt.Sprintf("duplicate mention token %q", m.Token))
			continue
		}
		seen[m.Token] = true
		structViolations(vs, InvariantTargetShape, field, m.Party)

		idx := tokenIndex(text, m.Token, tokens)
		if idx < 0 {
			continue
		}
		if idx < last {
			vs.add(InvariantSubstitutionKeys, field,
				fmt.Sprintf("mention %q appears in text before the preceding mention", m.Token))
			continue
		}
		last = idx
	}
}

// tokenIndex returns the first position of tok in text that is not part of
// an occurrence of a longer token, or -1.
func tokenIndex(text, tok string, tokens []string) int {
	for from := 0; from < len(text); {
		i := strings.Index(text[from:], tok)
		if i < 0 {
			return -1
		}
		i += from
		if !insideLongerToken(text, i, tok, tokens) {
			return i
		}
		from = i + 1
	}
	return -1
}

func insideLongerToken(text string, at int, tok string, tokens []string) bool {
	for _, long := range tokens {
		if len(long) <= len(tok) {
			continue
		}
		for k := 0; k+len(tok) <= len(long); k++ {
			if long[k:k+len(tok)] != tok {
				continue
			}
			start := at - k
			if start >= 0 && start+len(long) <= len(text) && text[start:start+len(long)] == long {
				return true
			}
		}
	}
	return false
}

func validateMedia(vs *violations, f Fields) {
	hasURL, hasFile, hasMIME := f.URL != nil, f.File != nil, f.MIME != nil

	switch {
	case f.Type.isMedia():
		if hasURL || hasFile || hasMIME {
			if !hasMIME {
				vs.add(InvariantMediaFields, "mime", "is required when url or file is present")
			}
			if !hasURL && !hasFile {
				vs.add(InvariantMediaFields, "url", "url or file is required when mime is present")
			}
		}
		if hasFile && f.File.Path == "" {
			vs.add(InvariantMediaFields, "file.path", "is required")
		}
	case f.Type == TypeLink:
		if hasFile {
			vs.add(InvariantMediaFields, "file", "must be absent for Link messages")
		}
		if hasMIME {
			vs.add(InvariantMediaFields, "mime", "must be absent for Link messages")
		}
	case f.Type == TypeUnsupported || !f.Type.Valid():
		// unconstrained
	default:
		for _, present := range []struct {
			field string
			ok    bool
		}{{"url", hasURL}, {"file", hasFile}, {"mime", hasMIME}} {
			if present.ok {
				vs.add(InvariantMediaFields, present.field, fmt.Sprintf("must be absent for %s messages", f.Type))
			}
		}
	}
}

func validateAttributes(vs *violations, f Fields) {
	if f.Attributes == nil || !f.Type.Valid() {
		return
	}
	want, ok := attributeKinds[f.Type]
	if !ok {
		vs.add(InvariantAttributesShape, "attributes", fmt.Sprintf("%s messages carry no attributes", f.Type))
		return
	}
	if got := f.Attributes.Kind(); got != want {
		vs.add(InvariantAttributesShape, "attributes",
			fmt.Sprintf("%s attributes do not fit %s messages, want %s", got, f.Type, want))
		return
	}
	structViolations(vs, InvariantAttributesShape, "attributes", f.Attributes)

	if m, ok := f.Attributes.(MediaAttributes); ok && (m.URL == nil) == (m.Path == nil) {
		vs.add(InvariantAttributesShape, "attributes.url", "exactly one of url and path must be set")
	}
}

// structViolations runs the validate tags of s and reports each failure
// under prefix.
func structViolations(vs *violations, inv Invariant, prefix string, s any) {
	err := validate.Struct(s)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		vs.add(inv, prefix, err.Error())
		return
	}
	for _, fe := range fieldErrs {
		vs.add(inv, prefix+"."+fe.Field(), describeFieldError(fe))
	}
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}
