package utils

import (
	"errors"
	"strings"
	"unicode"
)

// ValidateIdentifier validates that a channel id or capability name is non-empty
// and contains no whitespace, path separators ("/", "\\") or "..". Channel ids
// end up in routing keys and config paths, so both must stay single tokens.
func ValidateIdentifier(identifier string) error {
	if identifier == "" {
		return errors.New("identifier is required and must be a non-empty string")
	}
	if strings.IndexFunc(identifier, unicode.IsSpace) >= 0 {
		return errors.New("identifier must not contain whitespace")
	}
	if strings.ContainsAny(identifier, "/\\") || strings.Contains(identifier, "..") {
		return errors.New("identifier must not contain path separators or '..'")
	}
	return nil
}
