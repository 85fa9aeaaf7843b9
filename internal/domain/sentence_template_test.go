package domain

import "testing"

func TestNewSentenceTemplate(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "plain", raw: "A user logs in", wantErr: false},
		{name: "single_token", raw: "Send {{a message:MESSAGE}} to Slack", wantErr: false},
		{name: "two_tokens", raw: "Send {{a message:MESSAGE}} to {{a channel:CHANNEL}}", wantErr: false},
		{name: "empty", raw: "", wantErr: true},
		{name: "whitespace_only", raw: "   ", wantErr: true},
		{name: "unclosed", raw: "Send {{a message:MESSAGE to Slack", wantErr: true},
		{name: "unopened", raw: "Send a message:MESSAGE}} to Slack", wantErr: true},
		{name: "nested", raw: "Send {{outer {{inner:CODE}}}}", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSentenceTemplate(tc.raw)
			if tc.wantErr && err == nil {
				t.Fatalf("NewSentenceTemplate(%q) expected error", tc.raw)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("NewSentenceTemplate(%q) unexpected error: %v", tc.raw, err)
			}
		})
	}
}

func TestParseIntegrationToken(t *testing.T) {
	cases := []struct {
		name          string
		inner         string
		wantDecorator string
		wantCode      string
		wantErr       bool
	}{
		{name: "decorated", inner: "a channel:CHANNEL", wantDecorator: "a channel", wantCode: "CHANNEL"},
		{name: "bare_code", inner: "CHANNEL", wantDecorator: "", wantCode: "CHANNEL"},
		{name: "decorator_with_colon", inner: "time (hh:mm):START_TIME", wantDecorator: "time (hh:mm)", wantCode: "START_TIME"},
		{name: "empty", inner: "", wantErr: true},
		{name: "lowercase_code", inner: "a channel:channel", wantErr: true},
		{name: "missing_code", inner: "a channel:", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tok, err := ParseIntegrationToken(tc.inner)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseIntegrationToken(%q) expected error, got %+v", tc.inner, tok)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseIntegrationToken(%q) unexpected error: %v", tc.inner, err)
			}
			if tok.Decorator != tc.wantDecorator || tok.Code.String() != tc.wantCode {
				t.Fatalf("ParseIntegrationToken(%q)=%+v", tc.inner, tok)
			}
		})
	}
}
