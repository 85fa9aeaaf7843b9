package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/integrations"
	"github.com/flowsmith/flowsmith-backend/internal/platform/apierr"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
	"github.com/flowsmith/flowsmith-backend/internal/repos"
)

type RecipeService interface {
	Create(ctx context.Context, ownerID uuid.UUID, title string, recipeType domain.RecipeType) (*domain.Recipe, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*domain.Recipe, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]*domain.Recipe, error)
	Update(ctx context.Context, ownerID uuid.UUID, recipe *domain.Recipe) (*domain.Recipe, error)
	SetStatus(ctx context.Context, ownerID, id uuid.UUID, status domain.RecipeStatus) (*domain.Recipe, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

type recipeService struct {
	db       *gorm.DB
	log      *logger.Logger
	recipes  repos.RecipeRepo
	registry *integrations.Registry
}

func NewRecipeService(db *gorm.DB, log *logger.Logger, recipes repos.RecipeRepo, registry *integrations.Registry) RecipeService {
	return &recipeService{
		db:       db,
		log:      log.With("service", "RecipeService"),
		recipes:  recipes,
		registry: registry,
	}
}

func (rs *recipeService) Create(ctx context.Context, ownerID uuid.UUID, title string, recipeType domain.RecipeType) (*domain.Recipe, error) {
	if title == "" {
		return nil, apierr.New(http.StatusBadRequest, "missing_title", fmt.Errorf("recipe title required"))
	}
	if recipeType == "" {
		recipeType = domain.RecipeUser
	}
	if recipeType != domain.RecipeUser && recipeType != domain.RecipeAnonymous {
		return nil, apierr.New(http.StatusBadRequest, "invalid_type", fmt.Errorf("unknown recipe type %q", recipeType))
	}
	recipe := &domain.Recipe{
		ID:          uuid.New(),
		OwnerUserID: ownerID,
		Title:       title,
		Status:      string(domain.RecipeDraft),
		RecipeType:  string(recipeType),
	}
	created, err := rs.recipes.Create(ctx, nil, recipe)
	if err != nil {
		return nil, fmt.Errorf("create recipe: %w", err)
	}
	rs.log.Info("Created recipe", "recipe_id", created.ID, "owner", ownerID)
	return created, nil
}

func (rs *recipeService) Get(ctx context.Context, ownerID, id uuid.UUID) (*domain.Recipe, error) {
	recipe, err := rs.recipes.GetByIDWithChildren(ctx, nil, id)
	if err != nil {
		return nil, apierr.New(http.StatusNotFound, "recipe_not_found", fmt.Errorf("recipe %s not found", id))
	}
	if recipe.OwnerUserID != ownerID {
		return nil, apierr.New(http.StatusForbidden, "not_owner", fmt.Errorf("recipe belongs to another user"))
	}
	return recipe, nil
}

func (rs *recipeService) List(ctx context.Context, ownerID uuid.UUID) ([]*domain.Recipe, error) {
	return rs.recipes.ListByOwner(ctx, nil, ownerID)
}

func (rs *recipeService) Update(ctx context.Context, ownerID uuid.UUID, recipe *domain.Recipe) (*domain.Recipe, error) {
	existing, err := rs.Get(ctx, ownerID, recipe.ID)
	if err != nil {
		return nil, err
	}
	if recipe.Title != "" {
		existing.Title = recipe.Title
	}
	existing.Notes = recipe.Notes
	if recipe.TimesPerUser >= 0 {
		existing.TimesPerUser = recipe.TimesPerUser
	}
	if recipe.RecipeType != "" {
		if domain.RecipeType(recipe.RecipeType) != domain.RecipeUser && domain.RecipeType(recipe.RecipeType) != domain.RecipeAnonymous {
			return nil, apierr.New(http.StatusBadRequest, "invalid_type", fmt.Errorf("unknown recipe type %q", recipe.RecipeType))
		}
		existing.RecipeType = recipe.RecipeType
	}
	// Steps and blocks are managed through their own endpoints.
	existing.Steps = nil
	existing.Blocks = nil
	return rs.recipes.Update(ctx, nil, existing)
}

// SetStatus publishes or unpublishes a recipe. Going live requires a
// trigger step, at least one action step, and every step code known to
// the registry.
func (rs *recipeService) SetStatus(ctx context.Context, ownerID, id uuid.UUID, status domain.RecipeStatus) (*domain.Recipe, error) {
	if status != domain.RecipeDraft && status != domain.RecipeLive {
		return nil, apierr.New(http.StatusBadRequest, "invalid_status", fmt.Errorf("unknown status %q", status))
	}
	recipe, err := rs.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if status == domain.RecipeLive {
		if err := rs.validateLive(recipe); err != nil {
			return nil, err
		}
	}
	recipe.Status = string(status)
	recipe.Steps = nil
	recipe.Blocks = nil
	updated, err := rs.recipes.Update(ctx, nil, recipe)
	if err != nil {
		return nil, fmt.Errorf("update recipe status: %w", err)
	}
	rs.log.Info("Recipe status changed", "recipe_id", id, "status", status)
	return updated, nil
}

func (rs *recipeService) validateLive(recipe *domain.Recipe) error {
	var triggers, actions int
	for i := range recipe.Steps {
		step := &recipe.Steps[i]
		switch domain.StepKind(step.Kind) {
		case domain.StepTrigger:
			triggers++
			if _, ok := rs.registry.Trigger(domain.Code(step.IntegrationCode), domain.Code(step.StepCode)); !ok {
				return apierr.New(http.StatusUnprocessableEntity, "unknown_trigger",
					fmt.Errorf("trigger %s/%s is not registered", step.IntegrationCode, step.StepCode))
			}
		case domain.StepAction:
			actions++
			if _, ok := rs.registry.Action(domain.Code(step.IntegrationCode), domain.Code(step.StepCode)); !ok {
				return apierr.New(http.StatusUnprocessableEntity, "unknown_action",
					fmt.Errorf("action %s/%s is not registered", step.IntegrationCode, step.StepCode))
			}
		case domain.StepClosure:
			if _, ok := rs.registry.Closure(domain.Code(step.IntegrationCode), domain.ClosureCode(step.StepCode)); !ok {
				return apierr.New(http.StatusUnprocessableEntity, "unknown_closure",
					fmt.Errorf("closure %s/%s is not registered", step.IntegrationCode, step.StepCode))
			}
		}
	}
	if triggers != 1 {
		return apierr.New(http.StatusUnprocessableEntity, "needs_trigger",
			fmt.Errorf("a live recipe needs exactly one trigger, has %d", triggers))
	}
	if actions == 0 {
		return apierr.New(http.StatusUnprocessableEntity, "needs_action",
			fmt.Errorf("a live recipe needs at least one action"))
	}
	return nil
}

func (rs *recipeService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if _, err := rs.Get(ctx, ownerID, id); err != nil {
		return err
	}
	return rs.recipes.Delete(ctx, nil, id)
}
