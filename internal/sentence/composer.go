// Package sentence renders step sentence templates. Compose must stay
// byte-for-byte compatible with the frontend renderer: same span markup,
// same attribute order, same escaping.
package sentence

import (
	"html"
	"strings"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
)

type PartKind int

const (
	PartLiteral PartKind = iota
	PartToken
)

type Part struct {
	Kind    PartKind
	Literal string
	Token   domain.IntegrationToken
}

// Tokenize splits a template on {{ / }} delimiters. The template is
// assumed balanced (NewSentenceTemplate enforces that); empty
// placeholders and malformed codes are rejected here.
func Tokenize(tpl domain.SentenceTemplate) ([]Part, error) {
	var parts []Part
	rest := tpl.String()
	for {
		open := strings.Index(rest, "{{")
		if open == -1 {
			if rest != "" {
				parts = append(parts, Part{Kind: PartLiteral, Literal: rest})
			}
			return parts, nil
		}
		if open > 0 {
			parts = append(parts, Part{Kind: PartLiteral, Literal: rest[:open]})
		}
		rest = rest[open+2:]
		closing := strings.Index(rest, "}}")
		if closing == -1 {
			return nil, domain.NewValidationError("sentence", "unbalanced {{ delimiter")
		}
		tok, err := domain.ParseIntegrationToken(rest[:closing])
		if err != nil {
			return nil, err
		}
		parts = append(parts, Part{Kind: PartToken, Token: tok})
		rest = rest[closing+2:]
	}
}

// FieldValue carries a field's raw and display values into composition.
type FieldValue struct {
	Value    string
	Readable string
}

// resolve picks the display text for a token: readable value, then raw
// value, then the decorator, then the bare code. These tie-breaks match
// the frontend and must not be reordered.
func resolve(tok domain.IntegrationToken, fields map[string]FieldValue) string {
	if fv, ok := fields[tok.Code.String()]; ok {
		if fv.Readable != "" {
			return fv.Readable
		}
		if fv.Value != "" {
			return fv.Value
		}
	}
	if tok.Decorator != "" {
		return tok.Decorator
	}
	return tok.Code.String()
}

// Compose renders the template to the HTML the recipe builder shows.
// Unknown codes fall back to decorator text; composition never fails on
// missing values.
func Compose(tpl domain.SentenceTemplate, fields map[string]FieldValue) (string, error) {
	parts, err := Tokenize(tpl)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Kind == PartLiteral {
			b.WriteString(html.EscapeString(p.Literal))
			continue
		}
		b.WriteString(`<span class="item-title__token" data-token-id="`)
		b.WriteString(p.Token.Code.String())
		b.WriteString(`">`)
		b.WriteString(html.EscapeString(resolve(p.Token, fields)))
		b.WriteString(`</span>`)
	}
	return b.String(), nil
}

// ComposePlain renders with the same value resolution but no markup.
// Used for backup sentences and run logs.
func ComposePlain(tpl domain.SentenceTemplate, fields map[string]FieldValue) (string, error) {
	parts, err := Tokenize(tpl)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Kind == PartLiteral {
			b.WriteString(p.Literal)
			continue
		}
		b.WriteString(resolve(p.Token, fields))
	}
	return b.String(), nil
}
