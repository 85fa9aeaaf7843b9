package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/platform/apierr"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
	"github.com/flowsmith/flowsmith-backend/internal/repos"
)

type RunService interface {
	Get(ctx context.Context, ownerID, runID uuid.UUID) (*domain.RecipeRun, error)
	ListByRecipe(ctx context.Context, ownerID, recipeID uuid.UUID, limit int) ([]*domain.RecipeRun, error)
}

type runService struct {
	log     *logger.Logger
	recipes repos.RecipeRepo
	runs    repos.RecipeRunRepo
}

func NewRunService(log *logger.Logger, recipes repos.RecipeRepo, runs repos.RecipeRunRepo) RunService {
	return &runService{
		log:     log.With("service", "RunService"),
		recipes: recipes,
		runs:    runs,
	}
}

func (rs *runService) Get(ctx context.Context, ownerID, runID uuid.UUID) (*domain.RecipeRun, error) {
	run, err := rs.runs.GetByID(ctx, nil, runID)
	if err != nil {
		return nil, apierr.New(http.StatusNotFound, "run_not_found", fmt.Errorf("run %s not found", runID))
	}
	if err := rs.checkOwner(ctx, ownerID, run.RecipeID); err != nil {
		return nil, err
	}
	return run, nil
}

func (rs *runService) ListByRecipe(ctx context.Context, ownerID, recipeID uuid.UUID, limit int) ([]*domain.RecipeRun, error) {
	if err := rs.checkOwner(ctx, ownerID, recipeID); err != nil {
		return nil, err
	}
	return rs.runs.ListByRecipe(ctx, nil, recipeID, limit)
}

func (rs *runService) checkOwner(ctx context.Context, ownerID, recipeID uuid.UUID) error {
	recipe, err := rs.recipes.GetByID(ctx, nil, recipeID)
	if err != nil {
		return apierr.New(http.StatusNotFound, "recipe_not_found", fmt.Errorf("recipe %s not found", recipeID))
	}
	if recipe.OwnerUserID != ownerID {
		return apierr.New(http.StatusForbidden, "not_owner", fmt.Errorf("recipe belongs to another user"))
	}
	return nil
}
