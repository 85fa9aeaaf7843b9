package temporalx

import (
	"context"
	"fmt"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/flowsmith/flowsmith-backend/internal/engine"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
	"github.com/flowsmith/flowsmith-backend/internal/temporalx/actionrun"
)

// Dispatcher starts one action_run workflow per background action.
// The step-run UUID keys the workflow ID so duplicate dispatches of the
// same step run are rejected by Temporal rather than run twice.
type Dispatcher struct {
	log       *logger.Logger
	tc        temporalsdkclient.Client
	taskQueue string
}

func NewDispatcher(log *logger.Logger, tc temporalsdkclient.Client) (*Dispatcher, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	cfg := LoadConfig()
	return &Dispatcher{
		log:       log.With("component", "TemporalDispatcher"),
		tc:        tc,
		taskQueue: cfg.TaskQueue,
	}, nil
}

func (d *Dispatcher) Dispatch(ctx context.Context, job engine.BackgroundJob) error {
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:        "action-run-" + job.StepRunID.String(),
		TaskQueue: d.taskQueue,
	}
	run, err := d.tc.ExecuteWorkflow(ctx, opts, actionrun.WorkflowName, job)
	if err != nil {
		return fmt.Errorf("start action workflow: %w", err)
	}
	d.log.Info("Dispatched background action",
		"workflow_id", run.GetID(), "run_id", job.RunID,
		"integration", job.IntegrationCode, "action", job.ActionCode, "delay", job.Delay)
	return nil
}

var _ engine.BackgroundDispatcher = (*Dispatcher)(nil)
