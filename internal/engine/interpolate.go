package engine

import (
	"regexp"
	"strings"

	"github.com/flowsmith/flowsmith-backend/internal/fields"
)

var tokenPattern = regexp.MustCompile(`\{\{(?:[^{}]*:)?([A-Z][A-Z0-9_]*)\}\}`)

// interpolate substitutes {{CODE}} and {{decorator:CODE}} occurrences in
// a configured value with the run's token context. Raw values win over
// readable ones here: interpolated text feeds adapters, not the UI.
// Unknown codes are left as-is so a misconfigured step fails visibly.
func interpolate(value string, ctx map[string]fields.FieldValue) string {
	if !strings.Contains(value, "{{") {
		return value
	}
	return tokenPattern.ReplaceAllStringFunc(value, func(match string) string {
		sub := tokenPattern.FindStringSubmatch(match)
		code := sub[1]
		fv, ok := ctx[code]
		if !ok {
			return match
		}
		if fv.Value != "" {
			return fv.Value
		}
		return fv.Readable
	})
}

// interpolateAll applies interpolate to every value of a step's meta.
func interpolateAll(meta map[string]fields.FieldValue, ctx map[string]fields.FieldValue) map[string]fields.FieldValue {
	out := make(map[string]fields.FieldValue, len(meta))
	for code, fv := range meta {
		out[code] = fields.FieldValue{
			Value:    interpolate(fv.Value, ctx),
			Readable: interpolate(fv.Readable, ctx),
		}
	}
	return out
}
