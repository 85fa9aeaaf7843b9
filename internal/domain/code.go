package domain

import "regexp"

var codePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Code identifies an integration, trigger, action or closure. Codes are
// uppercase, start with a letter, and may contain digits and underscores.
type Code string

func NewCode(raw string) (Code, error) {
	if raw == "" {
		return "", NewValidationError("code", "must not be empty")
	}
	if !codePattern.MatchString(raw) {
		return "", NewValidationError("code", "must match ^[A-Z][A-Z0-9_]*$")
	}
	return Code(raw), nil
}

func (c Code) String() string { return string(c) }

// ClosureCode follows the same format rules as Code but names a closure
// step. Kept as its own type so a closure cannot be registered under an
// action's code by accident.
type ClosureCode string

func NewClosureCode(raw string) (ClosureCode, error) {
	c, err := NewCode(raw)
	if err != nil {
		return "", NewValidationError("closure_code", "must match ^[A-Z][A-Z0-9_]*$")
	}
	return ClosureCode(c), nil
}

func (c ClosureCode) String() string { return string(c) }
