package repos

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
)

// newTestDB opens a per-test in-memory SQLite database and creates the
// schema by hand: the production DDL carries Postgres defaults that
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
		`CREATE TABLE "user" (
			id TEXT PRIMARY KEY,
			email TEXT UNIQUE,
			password TEXT,
			display_name TEXT,
			capabilities TEXT,
			created_at DATETIME,
			updated_at DATETIME,
			deleted_at DATETIME
		)`,
		`CREATE TABLE user_token (
			id TEXT PRIMARY KEY,
			user_id TEXT,
			token TEXT UNIQUE,
			expires_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
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
		`CREATE TABLE recipe_run (
			id TEXT PRIMARY KEY,
			recipe_id TEXT,
			run_user_id TEXT,
			status TEXT,
			token_ctx TEXT,
			redirect_url TEXT,
			started_at DATETIME,
			completed_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME,
			deleted_at DATETIME
		)`,
		`CREATE TABLE step_run (
			id TEXT PRIMARY KEY,
			run_id TEXT,
			step_id TEXT,
			status TEXT,
			message TEXT,
			sentence TEXT,
			started_at DATETIME,
			completed_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE connected_account (
			id TEXT PRIMARY KEY,
			owner_user_id TEXT,
			integration_code TEXT,
			label TEXT,
			credentials TEXT,
			connected_at DATETIME,
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
