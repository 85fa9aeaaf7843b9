package services

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/integrations"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
)

// newTestDB opens a per-test in-memory SQLite database with the recipe
// tables created by hand. The production DDL carries Postgres defaults
// SQLite cannot parse, so tests set IDs explicitly.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	schema := []string{
		`CREATE TABLE recipe (
			id TEXT PRIMARY KEY,
			owner_user_id TEXT,
			title TEXT,
			status TEXT,
			recipe_type TEXT,
			times_per_user INTEGER DEFAULT 0,
			notes TEXT,
			created_at DATETIME,
			updated_at DATETIME,
			deleted_at DATETIME
		)`,
		`CREATE TABLE recipe_step (
			id TEXT PRIMARY KEY,
			recipe_id TEXT,
			kind TEXT,
			integration_code TEXT,
			step_code TEXT,
			sentence_template TEXT,
			readable_sentence TEXT,
			meta TEXT,
			background BOOLEAN DEFAULT FALSE,
			position INTEGER DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME,
			deleted_at DATETIME
		)`,
		`CREATE TABLE recipe_block (
			id TEXT PRIMARY KEY,
			recipe_id TEXT,
			kind TEXT,
			config TEXT,
			filters TEXT,
			position INTEGER DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME,
			deleted_at DATETIME
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func mustTemplate(t *testing.T, raw string) domain.SentenceTemplate {
	t.Helper()
	tpl, err := domain.NewSentenceTemplate(raw)
	if err != nil {
		t.Fatalf("NewSentenceTemplate(%q): %v", raw, err)
	}
	return tpl
}

// testRegistry registers a small fixed catalog the service tests share:
// a form trigger with a select field, a slack action that supports
// background dispatch, a log action that does not, and a redirect
// closure.
func testRegistry(t *testing.T) *integrations.Registry {
	t.Helper()
	registry := integrations.NewRegistry()

	formID, err := domain.NewField("FORM_ID", "select", "Form", []domain.FieldOption{
		{Value: "101", Text: "Contact form"},
		{Value: "102", Text: "Signup form"},
	})
	if err != nil {
		t.Fatalf("NewField FORM_ID: %v", err)
	}
	formID.Required = true

	message, err := domain.NewField("MESSAGE", "text", "Message", nil)
	if err != nil {
		t.Fatalf("NewField MESSAGE: %v", err)
	}
	message.Required = true

	retries, err := domain.NewField("RETRIES", "int", "Retries", nil)
	if err != nil {
		t.Fatalf("NewField RETRIES: %v", err)
	}

	if err := registry.Register(integrations.Integration{
		Code: "FORMS",
		Name: "Forms",
		Triggers: map[domain.Code]integrations.TriggerDef{
			"FORM_SUBMITTED": {
				Code:     "FORM_SUBMITTED",
				Sentence: mustTemplate(t, "{{a form:FORM_ID}} is submitted"),
				Fields:   []domain.Field{formID},
			},
		},
	}); err != nil {
		t.Fatalf("register FORMS: %v", err)
	}

	if err := registry.Register(integrations.Integration{
		Code: "SLACK",
		Name: "Slack",
		Actions: map[domain.Code]integrations.ActionDef{
			"SEND_MESSAGE": {
				Code:               "SEND_MESSAGE",
				Sentence:           mustTemplate(t, "Send {{a message:MESSAGE}} to Slack"),
				Fields:             []domain.Field{message, retries},
				SupportsBackground: true,
			},
			"LOG": {
				Code:     "LOG",
				Sentence: mustTemplate(t, "Write {{a message:MESSAGE}} to the log"),
				Fields:   []domain.Field{message},
			},
		},
		Closures: map[domain.ClosureCode]integrations.ClosureDef{
			"REDIRECT": {
				Code:     "REDIRECT",
				Sentence: mustTemplate(t, "Redirect the user to {{a URL:REDIRECT_URL}}"),
			},
		},
	}); err != nil {
		t.Fatalf("register SLACK: %v", err)
	}
	return registry
}
