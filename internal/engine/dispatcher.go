package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/flowsmith/flowsmith-backend/internal/fields"
)

// BackgroundJob is one action handed off for out-of-band execution.
type BackgroundJob struct {
	RunID           uuid.UUID                    `json:"run_id"`
	StepRunID       uuid.UUID                    `json:"step_run_id"`
	IntegrationCode string                       `json:"integration_code"`
	ActionCode      string                       `json:"action_code"`
	OwnerUserID     uuid.UUID                    `json:"owner_user_id"`
	Fields          map[string]fields.FieldValue `json:"fields"`
	Delay           time.Duration                `json:"delay"`
}

// BackgroundDispatcher hands background actions to external scheduling
// infrastructure. The engine never schedules work itself.
type BackgroundDispatcher interface {
	Dispatch(ctx context.Context, job BackgroundJob) error
}
