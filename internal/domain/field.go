package domain

type FieldInputType string

const (
	FieldText     FieldInputType = "text"
	FieldInt      FieldInputType = "int"
	FieldSelect   FieldInputType = "select"
	FieldEmail    FieldInputType = "email"
	FieldURL      FieldInputType = "url"
	FieldCheckbox FieldInputType = "checkbox"
	FieldRepeater FieldInputType = "repeater"
)

type FieldOption struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// Field is one configurable input on a trigger, action or loop filter.
type Field struct {
	Code      Code           `json:"code"`
	InputType FieldInputType `json:"input_type"`
	Label     string         `json:"label"`
	Required  bool           `json:"required,omitempty"`
	Options   []FieldOption  `json:"options,omitempty"`
}

func NewField(code, inputType, label string, options []FieldOption) (Field, error) {
	c, err := NewCode(code)
	if err != nil {
		return Field{}, err
	}
	it := FieldInputType(inputType)
	switch it {
	case FieldText, FieldInt, FieldSelect, FieldEmail, FieldURL, FieldCheckbox, FieldRepeater:
	default:
		return Field{}, NewValidationError("field", "unknown input type "+inputType)
	}
	if label == "" {
		return Field{}, NewValidationError("field", "label must not be empty")
	}
	if it == FieldSelect && len(options) == 0 {
		return Field{}, NewValidationError("field", "select requires at least one option")
	}
	return Field{Code: c, InputType: it, Label: label, Options: options}, nil
}

func (f Field) ToMap() map[string]any {
	m := map[string]any{
		"code":       f.Code.String(),
		"input_type": string(f.InputType),
		"label":      f.Label,
	}
	if f.Required {
		m["required"] = true
	}
	if len(f.Options) > 0 {
		opts := make([]any, 0, len(f.Options))
		for _, o := range f.Options {
			opts = append(opts, map[string]any{"value": o.Value, "text": o.Text})
		}
		m["options"] = opts
	}
	return m
}

func FieldFromMap(m map[string]any) (Field, error) {
	get := func(k string) string {
		if v, ok := m[k].(string); ok {
			return v
		}
		return ""
	}
	var options []FieldOption
	if raw, ok := m["options"].([]any); ok {
		for _, item := range raw {
			om, ok := item.(map[string]any)
			if !ok {
				return Field{}, NewValidationError("field", "malformed option")
			}
			options = append(options, FieldOption{
				Value: stringAt(om, "value"),
				Text:  stringAt(om, "text"),
			})
		}
	}
	f, err := NewField(get("code"), get("input_type"), get("label"), options)
	if err != nil {
		return Field{}, err
	}
	if req, ok := m["required"].(bool); ok {
		f.Required = req
	}
	return f, nil
}

func stringAt(m map[string]any, k string) string {
	if v, ok := m[k].(string); ok {
		return v
	}
	return ""
}
