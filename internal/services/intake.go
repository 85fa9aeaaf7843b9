package services

import (
	"context"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"github.com/flowsmith/flowsmith-backend/internal/clients/redisx"
	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/engine"
	"github.com/flowsmith/flowsmith-backend/internal/integrations"
	"github.com/flowsmith/flowsmith-backend/internal/platform/apierr"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
	"github.com/flowsmith/flowsmith-backend/internal/repos"
)

// IntakeService receives trigger events and fans them out to every live
// recipe whose trigger matches. One run record per matched recipe.
type IntakeService interface {
	HandleEvent(ctx context.Context, evt engine.TriggerEvent) ([]*domain.RecipeRun, error)
}

type intakeService struct {
	db       *gorm.DB
	log      *logger.Logger
	recipes  repos.RecipeRepo
	registry *integrations.Registry
	engine   *engine.Engine
	bus      redisx.RunBus
}

func NewIntakeService(
	db *gorm.DB,
	log *logger.Logger,
	recipes repos.RecipeRepo,
	registry *integrations.Registry,
	eng *engine.Engine,
	bus redisx.RunBus,
) IntakeService {
	return &intakeService{
		db:       db,
		log:      log.With("service", "IntakeService"),
		recipes:  recipes,
		registry: registry,
		engine:   eng,
		bus:      bus,
	}
}

func (is *intakeService) HandleEvent(ctx context.Context, evt engine.TriggerEvent) ([]*domain.RecipeRun, error) {
	if _, ok := is.registry.Trigger(domain.Code(evt.IntegrationCode), domain.Code(evt.TriggerCode)); !ok {
		return nil, apierr.New(http.StatusUnprocessableEntity, "unknown_trigger",
			fmt.Errorf("trigger %s/%s is not registered", evt.IntegrationCode, evt.TriggerCode))
	}

	candidates, err := is.recipes.ListLiveByTrigger(ctx, nil, evt.IntegrationCode, evt.TriggerCode)
	if err != nil {
		return nil, fmt.Errorf("list live recipes: %w", err)
	}

	var runs []*domain.RecipeRun
	for _, recipe := range candidates {
		if !engine.Matches(recipe, evt) {
			continue
		}
		run, err := is.engine.Execute(ctx, nil, recipe, evt)
		if err != nil {
			is.log.Error("Recipe execution failed", "recipe_id", recipe.ID, "error", err)
			continue
		}
		runs = append(runs, run)
		is.publish(ctx, recipe, run)
	}
	is.log.Info("Handled trigger event",
		"integration", evt.IntegrationCode, "trigger", evt.TriggerCode,
		"matched", len(runs))
	return runs, nil
}

func (is *intakeService) publish(ctx context.Context, recipe *domain.Recipe, run *domain.RecipeRun) {
	if is.bus == nil {
		return
	}
	ev := redisx.RunEvent{
		Type:     runEventType(run.Status),
		RecipeID: recipe.ID,
		RunID:    run.ID,
		Status:   run.Status,
	}
	if run.RunUserID != nil {
		ev.UserID = *run.RunUserID
	}
	if err := is.bus.Publish(ctx, ev); err != nil {
		is.log.Warn("Run event publish failed", "run_id", run.ID, "error", err)
	}
}

// runEventType maps a run's status at intake return to the bus event
// type. A run still in progress has background steps pending; the
// stream sees it start now and complete when the worker finalizes it.
func runEventType(status string) string {
	switch status {
	case string(domain.RunSkipped):
		return redisx.RunEventSkipped
	case string(domain.RunInProgress):
		return redisx.RunEventStarted
	default:
		return redisx.RunEventCompleted
	}
}
