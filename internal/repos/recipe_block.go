package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
)

type RecipeBlockRepo interface {
	Create(ctx context.Context, tx *gorm.DB, block *domain.RecipeBlock) (*domain.RecipeBlock, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.RecipeBlock, error)
	ListByRecipe(ctx context.Context, tx *gorm.DB, recipeID uuid.UUID) ([]*domain.RecipeBlock, error)
	Update(ctx context.Context, tx *gorm.DB, block *domain.RecipeBlock) (*domain.RecipeBlock, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type recipeBlockRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecipeBlockRepo(db *gorm.DB, baseLog *logger.Logger) RecipeBlockRepo {
	return &recipeBlockRepo{db: db, log: baseLog.With("repo", "RecipeBlockRepo")}
}

func (br *recipeBlockRepo) Create(ctx context.Context, tx *gorm.DB, block *domain.RecipeBlock) (*domain.RecipeBlock, error) {
	transaction := tx
	if transaction == nil {
		transaction = br.db
	}
	if err := transaction.WithContext(ctx).Create(block).Error; err != nil {
		return nil, err
	}
	return block, nil
}

func (br *recipeBlockRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.RecipeBlock, error) {
	transaction := tx
	if transaction == nil {
		transaction = br.db
	}
	var result domain.RecipeBlock
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (br *recipeBlockRepo) ListByRecipe(ctx context.Context, tx *gorm.DB, recipeID uuid.UUID) ([]*domain.RecipeBlock, error) {
	transaction := tx
	if transaction == nil {
		transaction = br.db
	}
	var results []*domain.RecipeBlock
	if err := transaction.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (br *recipeBlockRepo) Update(ctx context.Context, tx *gorm.DB, block *domain.RecipeBlock) (*domain.RecipeBlock, error) {
	transaction := tx
	if transaction == nil {
		transaction = br.db
	}
	if err := transaction.WithContext(ctx).Save(block).Error; err != nil {
		return nil, err
	}
	return block, nil
}

func (br *recipeBlockRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = br.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.RecipeBlock{}).Error
}
