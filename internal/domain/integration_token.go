package domain

import "strings"

// IntegrationToken is one {{decorator:CODE}} placeholder lifted out of a
// sentence template. The decorator is the display text shown before a
// value exists; it may be empty ({{CODE}} form).
type IntegrationToken struct {
	Decorator string `json:"decorator,omitempty"`
	Code      Code   `json:"code"`
}

// ParseIntegrationToken parses the inner text of a {{ }} placeholder.
// The code is everything after the last colon so decorators may
// themselves contain colons.
func ParseIntegrationToken(inner string) (IntegrationToken, error) {
	if inner == "" {
		return IntegrationToken{}, NewValidationError("token", "empty placeholder")
	}
	decorator := ""
	codePart := inner
	if idx := strings.LastIndex(inner, ":"); idx >= 0 {
		decorator = inner[:idx]
		codePart = inner[idx+1:]
	}
	code, err := NewCode(codePart)
	if err != nil {
		return IntegrationToken{}, NewValidationError("token", "code "+codePart+" must match ^[A-Z][A-Z0-9_]*$")
	}
	return IntegrationToken{Decorator: decorator, Code: code}, nil
}

// Raw reconstructs the {{decorator:code}} source form.
func (t IntegrationToken) Raw() string {
	if t.Decorator == "" {
		return "{{" + t.Code.String() + "}}"
	}
	return "{{" + t.Decorator + ":" + t.Code.String() + "}}"
}
