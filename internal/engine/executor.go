package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowsmith/flowsmith-backend/internal/clients/redisx"
	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/integrations"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
	"github.com/flowsmith/flowsmith-backend/internal/repos"
)

// JobExecutor runs a dispatched background action, closes out its step
// run, and finalizes the parent run once no step runs remain open.
// Shared by the local worker and the Temporal activity. bus is optional.
type JobExecutor struct {
	log      *logger.Logger
	registry *integrations.Registry
	runs     repos.RecipeRunRepo
	accounts repos.ConnectedAccountRepo
	bus      redisx.RunBus
}

func NewJobExecutor(baseLog *logger.Logger, registry *integrations.Registry, runs repos.RecipeRunRepo, accounts repos.ConnectedAccountRepo, bus redisx.RunBus) *JobExecutor {
	return &JobExecutor{
		log:      baseLog.With("component", "JobExecutor"),
		registry: registry,
		runs:     runs,
		accounts: accounts,
		bus:      bus,
	}
}

// Execute assumes any start delay has already elapsed (the scheduler
// owns timing). Adapter failures mark the step completed-with-errors
// and are not returned as errors: a vendor failure is a step outcome,
// not a job failure to retry.
func (x *JobExecutor) Execute(ctx context.Context, job BackgroundJob) error {
	stepRun, err := x.runs.GetStepRunByID(ctx, nil, job.StepRunID)
	if err != nil {
		return fmt.Errorf("load step run %s: %w", job.StepRunID, err)
	}
	if stepRun.Status != string(domain.RunInProgress) {
		x.log.Warn("step run already finished", "step_run_id", stepRun.ID, "status", stepRun.Status)
		return nil
	}

	def, ok := x.registry.Action(domain.Code(job.IntegrationCode), domain.Code(job.ActionCode))
	if !ok {
		return x.completeStepRun(ctx, stepRun, string(domain.RunCompletedWithErrors), fmt.Sprintf("unknown action %s/%s", job.IntegrationCode, job.ActionCode))
	}

	var account *domain.ConnectedAccount
	if x.accounts != nil {
		if a, err := x.accounts.GetByIntegration(ctx, nil, job.OwnerUserID, job.IntegrationCode); err == nil {
			account = a
		}
	}

	if err := def.Handler.Execute(ctx, integrations.Call{Fields: job.Fields, Account: account}); err != nil {
		x.log.Warn("background action completed with errors", "step_run_id", stepRun.ID, "error", err)
		return x.completeStepRun(ctx, stepRun, string(domain.RunCompletedWithErrors), err.Error())
	}
	return x.completeStepRun(ctx, stepRun, string(domain.RunCompleted), "")
}

func (x *JobExecutor) completeStepRun(ctx context.Context, stepRun *domain.StepRun, status, message string) error {
	now := time.Now()
	stepRun.Status = status
	stepRun.Message = message
	stepRun.CompletedAt = &now
	if _, err := x.runs.UpdateStepRun(ctx, nil, stepRun); err != nil {
		return err
	}
	return x.maybeFinalizeRun(ctx, stepRun.RunID)
}

// maybeFinalizeRun closes the parent run once every step run has
// finished. Two workers racing here write the same final status, so the
// double update is harmless.
func (x *JobExecutor) maybeFinalizeRun(ctx context.Context, runID uuid.UUID) error {
	run, err := x.runs.GetByID(ctx, nil, runID)
	if err != nil {
		return fmt.Errorf("load run %s: %w", runID, err)
	}
	if run.Status != string(domain.RunInProgress) {
		return nil
	}
	status := string(domain.RunCompleted)
	for i := range run.StepRuns {
		switch run.StepRuns[i].Status {
		case string(domain.RunInProgress):
			return nil
		case string(domain.RunCompletedWithErrors), string(domain.RunFailed):
			status = string(domain.RunCompletedWithErrors)
		}
	}
	now := time.Now()
	run.Status = status
	run.CompletedAt = &now
	if _, err := x.runs.Update(ctx, nil, run); err != nil {
		return err
	}
	x.log.Info("run finalized by worker", "run_id", run.ID, "status", status)
	if x.bus != nil {
		ev := redisx.RunEvent{
			Type:     redisx.RunEventCompleted,
			RecipeID: run.RecipeID,
			RunID:    run.ID,
			Status:   status,
		}
		if run.RunUserID != nil {
			ev.UserID = *run.RunUserID
		}
		if err := x.bus.Publish(ctx, ev); err != nil {
			x.log.Warn("run event publish failed", "run_id", run.ID, "error", err)
		}
	}
	return nil
}
