package actionrun

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"

	"github.com/flowsmith/flowsmith-backend/internal/engine"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
)

type Activities struct {
	Log      *logger.Logger
	Executor *engine.JobExecutor
}

func (a *Activities) Execute(ctx context.Context, job engine.BackgroundJob) error {
	if a == nil || a.Executor == nil {
		return fmt.Errorf("actionrun: activity not configured")
	}
	activity.RecordHeartbeat(ctx)
	if a.Log != nil {
		a.Log.Info("Executing background action",
			"run_id", job.RunID, "step_run_id", job.StepRunID,
			"integration", job.IntegrationCode, "action", job.ActionCode)
	}
	return a.Executor.Execute(ctx, job)
}
