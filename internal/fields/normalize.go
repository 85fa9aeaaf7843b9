// Package fields converts between the flat CODE / CODE_readable map the
// builder submits and the nested form the engine and loop filters use.
package fields

import "strings"

const readableSuffix = "_readable"

type FieldValue struct {
	Value    string `json:"value"`
	Readable string `json:"readable,omitempty"`
}

// Normalize pairs CODE and CODE_readable keys into one entry per code.
// Single pass; key order does not matter. A readable key with no raw
// counterpart still produces an entry. A key that is exactly
// "_readable" is treated as a raw key, not a suffix.
func Normalize(flat map[string]string) map[string]FieldValue {
	out := make(map[string]FieldValue, len(flat))
	for k, v := range flat {
		if code, ok := readableCode(k); ok {
			fv := out[code]
			fv.Readable = v
			out[code] = fv
			continue
		}
		fv := out[k]
		fv.Value = v
		out[k] = fv
	}
	return out
}

// Flatten is the inverse of Normalize. Entries with both values empty
// are dropped.
func Flatten(nested map[string]FieldValue) map[string]string {
	out := make(map[string]string, len(nested)*2)
	for code, fv := range nested {
		if fv.Value == "" && fv.Readable == "" {
			continue
		}
		if fv.Value != "" {
			out[code] = fv.Value
		}
		if fv.Readable != "" {
			out[code+readableSuffix] = fv.Readable
		}
	}
	return out
}

func readableCode(key string) (string, bool) {
	if !strings.HasSuffix(key, readableSuffix) {
		return "", false
	}
	code := strings.TrimSuffix(key, readableSuffix)
	if code == "" {
		return "", false
	}
	return code, true
}
