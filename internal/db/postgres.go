package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/platform/envutil"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	host := envutil.String("POSTGRES_HOST", "localhost")
	port := envutil.String("POSTGRES_PORT", "5432")
	user := envutil.String("POSTGRES_USER", "postgres")
	password := envutil.String("POSTGRES_PASSWORD", "")
	name := envutil.String("POSTGRES_NAME", "flowsmith")
	sslmode := envutil.String("POSTGRES_SSLMODE", "disable")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, password, host, port, name, sslmode)

	serviceLog.Info("Connecting to Postgres...", "host", host, "db", name)
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		serviceLog.Error("Failed to enable uuid-ossp extension", "error", err)
		return nil, fmt.Errorf("enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&domain.User{},
		&domain.UserToken{},
		&domain.Recipe{},
		&domain.RecipeStep{},
		&domain.RecipeBlock{},
		&domain.RecipeRun{},
		&domain.StepRun{},
		&domain.ConnectedAccount{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	s.log.Info("Configuring foreign key relationships for postgres tables...")
	fks := []struct {
		table, name, sql string
	}{
		{"user_token", "fk_user_token_user_id", `ALTER TABLE "user_token" ADD CONSTRAINT "fk_user_token_user_id" FOREIGN KEY ("user_id") REFERENCES "user"("id") ON DELETE CASCADE`},
		{"recipe_step", "fk_recipe_step_recipe_id", `ALTER TABLE "recipe_step" ADD CONSTRAINT "fk_recipe_step_recipe_id" FOREIGN KEY ("recipe_id") REFERENCES "recipe"("id") ON DELETE CASCADE`},
		{"recipe_block", "fk_recipe_block_recipe_id", `ALTER TABLE "recipe_block" ADD CONSTRAINT "fk_recipe_block_recipe_id" FOREIGN KEY ("recipe_id") REFERENCES "recipe"("id") ON DELETE CASCADE`},
		{"recipe_run", "fk_recipe_run_recipe_id", `ALTER TABLE "recipe_run" ADD CONSTRAINT "fk_recipe_run_recipe_id" FOREIGN KEY ("recipe_id") REFERENCES "recipe"("id") ON DELETE CASCADE`},
		{"step_run", "fk_step_run_run_id", `ALTER TABLE "step_run" ADD CONSTRAINT "fk_step_run_run_id" FOREIGN KEY ("run_id") REFERENCES "recipe_run"("id") ON DELETE CASCADE`},
		{"connected_account", "fk_connected_account_owner", `ALTER TABLE "connected_account" ADD CONSTRAINT "fk_connected_account_owner" FOREIGN KEY ("owner_user_id") REFERENCES "user"("id") ON DELETE CASCADE`},
	}
	for _, fk := range fks {
		if s.db.Migrator().HasConstraint(fk.table, fk.name) {
			continue
		}
		if err := s.db.Exec(fk.sql).Error; err != nil {
			return fmt.Errorf("add %s: %w", fk.name, err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
