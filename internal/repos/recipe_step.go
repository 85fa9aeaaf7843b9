package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
)

type RecipeStepRepo interface {
	Create(ctx context.Context, tx *gorm.DB, step *domain.RecipeStep) (*domain.RecipeStep, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.RecipeStep, error)
	ListByRecipe(ctx context.Context, tx *gorm.DB, recipeID uuid.UUID) ([]*domain.RecipeStep, error)
	Update(ctx context.Context, tx *gorm.DB, step *domain.RecipeStep) (*domain.RecipeStep, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type recipeStepRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecipeStepRepo(db *gorm.DB, baseLog *logger.Logger) RecipeStepRepo {
	return &recipeStepRepo{db: db, log: baseLog.With("repo", "RecipeStepRepo")}
}

func (sr *recipeStepRepo) Create(ctx context.Context, tx *gorm.DB, step *domain.RecipeStep) (*domain.RecipeStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	if err := transaction.WithContext(ctx).Create(step).Error; err != nil {
		return nil, err
	}
	return step, nil
}

func (sr *recipeStepRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.RecipeStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var result domain.RecipeStep
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (sr *recipeStepRepo) ListByRecipe(ctx context.Context, tx *gorm.DB, recipeID uuid.UUID) ([]*domain.RecipeStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var results []*domain.RecipeStep
	if err := transaction.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *recipeStepRepo) Update(ctx context.Context, tx *gorm.DB, step *domain.RecipeStep) (*domain.RecipeStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	if err := transaction.WithContext(ctx).Save(step).Error; err != nil {
		return nil, err
	}
	return step, nil
}

func (sr *recipeStepRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.RecipeStep{}).Error
}
