package actionrun

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/flowsmith/flowsmith-backend/internal/engine"
)

// Workflow runs one background action. A delay step upstream of the action
// becomes a durable timer here, so restarts never lose a pending delay.
func Workflow(ctx workflow.Context, job engine.BackgroundJob) error {
	if job.Delay > 0 {
		if err := workflow.Sleep(ctx, job.Delay); err != nil {
			return err
		}
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		HeartbeatTimeout:    30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	})

	return workflow.ExecuteActivity(ctx, ActivityExecute, job).Get(ctx, nil)
}
