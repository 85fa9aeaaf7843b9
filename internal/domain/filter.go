package domain

// Filter is the value object behind a loop filter: which integration's
// filter applies, its configured fields, and a human-readable backup
// sentence used when token values cannot be resolved.
type Filter struct {
	IntegrationCode Code    `json:"integration_code"`
	FilterCode      Code    `json:"filter_code"`
	Fields          []Field `json:"fields,omitempty"`
	BackupSentence  string  `json:"backup_sentence"`
}

func NewFilter(integrationCode, filterCode, backupSentence string, fields []Field) (Filter, error) {
	ic, err := NewCode(integrationCode)
	if err != nil {
		return Filter{}, NewValidationError("filter", "integration code: "+err.Error())
	}
	fc, err := NewCode(filterCode)
	if err != nil {
		return Filter{}, NewValidationError("filter", "filter code: "+err.Error())
	}
	if backupSentence == "" {
		return Filter{}, NewValidationError("filter", "backup sentence must not be empty")
	}
	return Filter{
		IntegrationCode: ic,
		FilterCode:      fc,
		Fields:          fields,
		BackupSentence:  backupSentence,
	}, nil
}

func (f Filter) ToMap() map[string]any {
	fields := make([]any, 0, len(f.Fields))
	for _, fl := range f.Fields {
		fields = append(fields, fl.ToMap())
	}
	return map[string]any{
		"integration_code": f.IntegrationCode.String(),
		"filter_code":      f.FilterCode.String(),
		"fields":           fields,
		"backup_sentence":  f.BackupSentence,
	}
}

func FilterFromMap(m map[string]any) (Filter, error) {
	var fields []Field
	if raw, ok := m["fields"].([]any); ok {
		for _, item := range raw {
			fm, ok := item.(map[string]any)
			if !ok {
				return Filter{}, NewValidationError("filter", "malformed field entry")
			}
			f, err := FieldFromMap(fm)
			if err != nil {
				return Filter{}, err
			}
			fields = append(fields, f)
		}
	}
	return NewFilter(
		stringAt(m, "integration_code"),
		stringAt(m, "filter_code"),
		stringAt(m, "backup_sentence"),
		fields,
	)
}
