package domain

import "testing"

func TestNewCode(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "simple", raw: "SLACK", wantErr: false},
		{name: "with_digits_and_underscore", raw: "SEND_MESSAGE_2", wantErr: false},
		{name: "rejects_lowercase", raw: "slack", wantErr: true},
		{name: "rejects_mixed_case", raw: "SendMessage", wantErr: true},
		{name: "rejects_empty", raw: "", wantErr: true},
		{name: "rejects_leading_digit", raw: "2FA_CODE", wantErr: true},
		{name: "rejects_leading_underscore", raw: "_CODE", wantErr: true},
		{name: "rejects_space", raw: "SEND MESSAGE", wantErr: true},
		{name: "rejects_hyphen", raw: "SEND-MESSAGE", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewCode(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("NewCode(%q) expected error, got %q", tc.raw, got)
				}
				if !IsValidationError(err) {
					t.Fatalf("NewCode(%q) error is not a ValidationError: %v", tc.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewCode(%q) unexpected error: %v", tc.raw, err)
			}
			if got.String() != tc.raw {
				t.Fatalf("NewCode(%q)=%q", tc.raw, got)
			}
		})
	}
}

func TestNewClosureCodeRejectsLowercase(t *testing.T) {
	if _, err := NewClosureCode("redirect"); err == nil {
		t.Fatal("expected lowercase closure code to be rejected")
	}
	if _, err := NewClosureCode("REDIRECT"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
