package message

import (
	"errors"
	"strings"
)

// ErrValidation matches any *ValidationError with errors.Is.
var ErrValidation = errors.New("envelope validation failed")

// Invariant names the rule a Violation breaks.
type Invariant string

const (
	InvariantRequired         Invariant = "required-field"
	InvariantMemberIffGroup   Invariant = "member-iff-group"
	InvariantTargetShape      Invariant = "target-shape"
	InvariantTargetDepth      Invariant = "target-depth"
	InvariantSubstitutionKeys Invariant = "substitution-keys"
	InvariantAttributesShape  Invariant = "attributes-shape"
	InvariantMediaFields      Invariant = "media-fields"
)

// Violation is one broken rule, located by a dotted field path.
type Violation struct {
	Invariant Invariant
	Field     string
	Message   string
}

func (v Violation) String() string {
	return string(v.Invariant) + ": " + v.Field + ": " + v.Message
}

// ValidationError lists every violation found while constructing an
// envelope, never only the first.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return ErrValidation.Error() + ":\n  - " + strings.Join(parts, "\n  - ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Has reports whether any violation breaks the given invariant.
func (e *ValidationError) Has(inv Invariant) bool {
	for _, v := range e.Violations {
		if v.Invariant == inv {
			return true
		}
	}
	return false
}

// Field returns the violations located at exactly this field path.
func (e *ValidationError) Field(path string) []Violation {
	var out []Violation
	for _, v := range e.Violations {
		if v.Field == path {
			out = append(out, v)
		}
	}
	return out
}

type violations []Violation

func (vs *violations) add(inv Invariant, field, msg string) {
	*vs = append(*vs, Violation{Invariant: inv, Field: field, Message: msg})
}

func (vs violations) err() error {
	if len(vs) == 0 {
		return nil
	}
	return &ValidationError{Violations: vs}
}
