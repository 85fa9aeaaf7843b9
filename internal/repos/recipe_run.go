package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
)

type RecipeRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, run *domain.RecipeRun) (*domain.RecipeRun, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.RecipeRun, error)
	ListByRecipe(ctx context.Context, tx *gorm.DB, recipeID uuid.UUID, limit int) ([]*domain.RecipeRun, error)
	Update(ctx context.Context, tx *gorm.DB, run *domain.RecipeRun) (*domain.RecipeRun, error)
	CountCompletedForUser(ctx context.Context, tx *gorm.DB, recipeID, userID uuid.UUID) (int64, error)
	CreateStepRun(ctx context.Context, tx *gorm.DB, stepRun *domain.StepRun) (*domain.StepRun, error)
	GetStepRunByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.StepRun, error)
	UpdateStepRun(ctx context.Context, tx *gorm.DB, stepRun *domain.StepRun) (*domain.StepRun, error)
}

type recipeRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecipeRunRepo(db *gorm.DB, baseLog *logger.Logger) RecipeRunRepo {
	return &recipeRunRepo{db: db, log: baseLog.With("repo", "RecipeRunRepo")}
}

func (rr *recipeRunRepo) Create(ctx context.Context, tx *gorm.DB, run *domain.RecipeRun) (*domain.RecipeRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	if err := transaction.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (rr *recipeRunRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.RecipeRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var result domain.RecipeRun
	if err := transaction.WithContext(ctx).
		Preload("StepRuns").
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (rr *recipeRunRepo) ListByRecipe(ctx context.Context, tx *gorm.DB, recipeID uuid.UUID, limit int) ([]*domain.RecipeRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var results []*domain.RecipeRun
	if err := transaction.WithContext(ctx).
		Preload("StepRuns").
		Where("recipe_id = ?", recipeID).
		Order("started_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *recipeRunRepo) Update(ctx context.Context, tx *gorm.DB, run *domain.RecipeRun) (*domain.RecipeRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	if err := transaction.WithContext(ctx).Save(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// CountCompletedForUser backs the times-per-user limit on user recipes.
func (rr *recipeRunRepo) CountCompletedForUser(ctx context.Context, tx *gorm.DB, recipeID, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&domain.RecipeRun{}).
		Where("recipe_id = ?", recipeID).
		Where("run_user_id = ?", userID).
		Where("status IN ?", []string{string(domain.RunCompleted), string(domain.RunCompletedWithErrors)}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (rr *recipeRunRepo) CreateStepRun(ctx context.Context, tx *gorm.DB, stepRun *domain.StepRun) (*domain.StepRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	if err := transaction.WithContext(ctx).Create(stepRun).Error; err != nil {
		return nil, err
	}
	return stepRun, nil
}

func (rr *recipeRunRepo) GetStepRunByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.StepRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var result domain.StepRun
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (rr *recipeRunRepo) UpdateStepRun(ctx context.Context, tx *gorm.DB, stepRun *domain.StepRun) (*domain.StepRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	if err := transaction.WithContext(ctx).Save(stepRun).Error; err != nil {
		return nil, err
	}
	return stepRun, nil
}
