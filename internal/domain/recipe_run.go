package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RunStatus string

const (
	RunInProgress          RunStatus = "in-progress"
	RunCompleted           RunStatus = "completed"
	RunCompletedWithErrors RunStatus = "completed-with-errors"
	RunSkipped             RunStatus = "skipped"
	RunFailed              RunStatus = "failed"
)

// RecipeRun records one execution of a recipe against a trigger event.
type RecipeRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RecipeID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"recipe_id"`
	RunUserID   *uuid.UUID     `gorm:"type:uuid;index" json:"run_user_id,omitempty"`
	Status      string         `gorm:"column:status;not null;index" json:"status"`
	TokenCtx    datatypes.JSON `gorm:"column:token_ctx;type:jsonb" json:"token_ctx"`
	RedirectURL string         `gorm:"column:redirect_url" json:"redirect_url,omitempty"`
	StepRuns    []StepRun      `gorm:"foreignKey:RunID" json:"step_runs,omitempty"`
	StartedAt   time.Time      `gorm:"not null;default:now();index" json:"started_at"`
	CompletedAt *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (RecipeRun) TableName() string { return "recipe_run" }

// StepRun records one step's outcome inside a recipe run.
type StepRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RunID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"run_id"`
	StepID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"step_id"`
	Status      string         `gorm:"column:status;not null;index" json:"status"`
	Message     string         `gorm:"column:message" json:"message,omitempty"`
	Sentence    string         `gorm:"column:sentence" json:"sentence,omitempty"`
	StartedAt   time.Time      `gorm:"not null;default:now()" json:"started_at"`
	CompletedAt *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (StepRun) TableName() string { return "step_run" }
