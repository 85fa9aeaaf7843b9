package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
)

type RecipeRepo interface {
	Create(ctx context.Context, tx *gorm.DB, recipe *domain.Recipe) (*domain.Recipe, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Recipe, error)
	GetByIDWithChildren(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Recipe, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*domain.Recipe, error)
	ListLiveByTrigger(ctx context.Context, tx *gorm.DB, integrationCode, triggerCode string) ([]*domain.Recipe, error)
	Update(ctx context.Context, tx *gorm.DB, recipe *domain.Recipe) (*domain.Recipe, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type recipeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecipeRepo(db *gorm.DB, baseLog *logger.Logger) RecipeRepo {
	return &recipeRepo{db: db, log: baseLog.With("repo", "RecipeRepo")}
}

func (rr *recipeRepo) Create(ctx context.Context, tx *gorm.DB, recipe *domain.Recipe) (*domain.Recipe, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	if err := transaction.WithContext(ctx).Create(recipe).Error; err != nil {
		return nil, err
	}
	return recipe, nil
}

func (rr *recipeRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Recipe, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var result domain.Recipe
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (rr *recipeRepo) GetByIDWithChildren(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Recipe, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var result domain.Recipe
	if err := transaction.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Blocks", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (rr *recipeRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*domain.Recipe, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var results []*domain.Recipe
	if err := transaction.WithContext(ctx).
		Where("owner_user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *recipeRepo) ListLiveByTrigger(ctx context.Context, tx *gorm.DB, integrationCode, triggerCode string) ([]*domain.Recipe, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var results []*domain.Recipe
	if err := transaction.WithContext(ctx).
		Joins("JOIN recipe_step ON recipe_step.recipe_id = recipe.id").
		Where("recipe.status = ?", string(domain.RecipeLive)).
		Where("recipe_step.kind = ?", string(domain.StepTrigger)).
		Where("recipe_step.integration_code = ?", integrationCode).
		Where("recipe_step.step_code = ?", triggerCode).
		Where("recipe_step.deleted_at IS NULL").
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Blocks", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *recipeRepo) Update(ctx context.Context, tx *gorm.DB, recipe *domain.Recipe) (*domain.Recipe, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	if err := transaction.WithContext(ctx).Save(recipe).Error; err != nil {
		return nil, err
	}
	return recipe, nil
}

func (rr *recipeRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.Recipe{}).Error
}
