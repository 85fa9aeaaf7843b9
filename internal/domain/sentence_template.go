package domain

import "strings"

// SentenceTemplate is the step sentence with {{ }} token placeholders,
// e.g. "Send a message to {{a channel:CHANNEL}}". Delimiters must be
// balanced and placeholders must not nest.
type SentenceTemplate string

func NewSentenceTemplate(raw string) (SentenceTemplate, error) {
	if strings.TrimSpace(raw) == "" {
		return "", NewValidationError("sentence", "must not be empty")
	}
	depth := 0
	rest := raw
	for {
		open := strings.Index(rest, "{{")
		closing := strings.Index(rest, "}}")
		if open == -1 && closing == -1 {
			break
		}
		if closing == -1 || (open != -1 && open < closing) {
			if depth > 0 {
				return "", NewValidationError("sentence", "nested {{ placeholder")
			}
			depth++
			rest = rest[open+2:]
			continue
		}
		if depth == 0 {
			return "", NewValidationError("sentence", "unbalanced }} delimiter")
		}
		depth--
		rest = rest[closing+2:]
	}
	if depth != 0 {
		return "", NewValidationError("sentence", "unbalanced {{ delimiter")
	}
	return SentenceTemplate(raw), nil
}

func (s SentenceTemplate) String() string { return string(s) }
