package integrations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flowsmith/flowsmith-backend/internal/fields"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	r := NewRegistry()
	if err := RegisterBuiltins(r, log, nil); err != nil {
		t.Fatalf("RegisterBuiltins: %v", err)
	}
	return r
}

func TestRegistryDuplicateRejected(t *testing.T) {
	r := testRegistry(t)
	err := r.Register(Integration{Code: "WEBHOOK", Name: "dup"})
	if err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestRegistryListSorted(t *testing.T) {
	r := testRegistry(t)
	list := r.List()
	if len(list) != 3 {
		t.Fatalf("want 3 builtins, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Code >= list[i].Code {
			t.Fatalf("list not sorted: %s before %s", list[i-1].Code, list[i].Code)
		}
	}
}

func TestRegistryLookups(t *testing.T) {
	r := testRegistry(t)
	if _, ok := r.Action("WEBHOOK", "SEND_WEBHOOK"); !ok {
		t.Fatal("SEND_WEBHOOK not found")
	}
	if _, ok := r.Trigger("LOGGER", "EVENT_LOGGED"); !ok {
		t.Fatal("EVENT_LOGGED not found")
	}
	if _, ok := r.Closure("FLOWSMITH", "REDIRECT"); !ok {
		t.Fatal("REDIRECT not found")
	}
	if f, ok := r.Filter("LOGGER", "VALUE_MATCHES"); !ok || f.BackupSentence == "" {
		t.Fatal("VALUE_MATCHES filter not found")
	}
	if _, ok := r.Filter("LOGGER", "NOPE"); ok {
		t.Fatal("unknown filter should not resolve")
	}
	if _, ok := r.Action("WEBHOOK", "NOPE"); ok {
		t.Fatal("unknown action should not resolve")
	}
	if _, ok := r.Action("NOPE", "SEND_WEBHOOK"); ok {
		t.Fatal("unknown integration should not resolve")
	}
}

func TestWebhookAction(t *testing.T) {
	var gotBody string
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		buf := make([]byte, 1024)
		n, _ := req.Body.Read(buf)
		gotBody = string(buf[:n])
		gotContentType = req.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := testRegistry(t)
	def, ok := r.Action("WEBHOOK", "SEND_WEBHOOK")
	if !ok {
		t.Fatal("SEND_WEBHOOK not found")
	}
	call := Call{Fields: map[string]fields.FieldValue{
		"WEBHOOK_URL":  {Value: srv.URL},
		"WEBHOOK_BODY": {Value: `{"ok":true}`},
	}}
	if err := def.Handler.Execute(context.Background(), call); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if gotBody != `{"ok":true}` {
		t.Fatalf("body=%q", gotBody)
	}
	if gotContentType != "application/json" {
		t.Fatalf("content type=%q", gotContentType)
	}
}

func TestWebhookActionErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := testRegistry(t)
	def, _ := r.Action("WEBHOOK", "SEND_WEBHOOK")
	call := Call{Fields: map[string]fields.FieldValue{"WEBHOOK_URL": {Value: srv.URL}}}
	if err := def.Handler.Execute(context.Background(), call); err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestRedirectClosure(t *testing.T) {
	r := testRegistry(t)
	def, _ := r.Closure("FLOWSMITH", "REDIRECT")
	res, err := def.Handler.Execute(context.Background(), Call{Fields: map[string]fields.FieldValue{
		"REDIRECT_URL": {Value: "https://example.com/thanks"},
	}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.RedirectURL != "https://example.com/thanks" {
		t.Fatalf("redirect=%q", res.RedirectURL)
	}
	if _, err := def.Handler.Execute(context.Background(), Call{Fields: map[string]fields.FieldValue{}}); err == nil {
		t.Fatal("expected error when REDIRECT_URL unset")
	}
}
