package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
)

type ConnectedAccountRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, account *domain.ConnectedAccount) (*domain.ConnectedAccount, error)
	GetByIntegration(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, integrationCode string) (*domain.ConnectedAccount, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*domain.ConnectedAccount, error)
	Delete(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, integrationCode string) error
}

type connectedAccountRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConnectedAccountRepo(db *gorm.DB, baseLog *logger.Logger) ConnectedAccountRepo {
	return &connectedAccountRepo{db: db, log: baseLog.With("repo", "ConnectedAccountRepo")}
}

func (ar *connectedAccountRepo) Upsert(ctx context.Context, tx *gorm.DB, account *domain.ConnectedAccount) (*domain.ConnectedAccount, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	existing, err := ar.GetByIntegration(ctx, transaction, account.OwnerUserID, account.IntegrationCode)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		existing.Label = account.Label
		existing.Credentials = account.Credentials
		existing.ConnectedAt = account.ConnectedAt
		if err := transaction.WithContext(ctx).Save(existing).Error; err != nil {
			return nil, err
		}
		return existing, nil
	}
	if err := transaction.WithContext(ctx).Create(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

func (ar *connectedAccountRepo) GetByIntegration(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, integrationCode string) (*domain.ConnectedAccount, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var result domain.ConnectedAccount
	if err := transaction.WithContext(ctx).
		Where("owner_user_id = ?", ownerID).
		Where("integration_code = ?", integrationCode).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (ar *connectedAccountRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*domain.ConnectedAccount, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var results []*domain.ConnectedAccount
	if err := transaction.WithContext(ctx).
		Where("owner_user_id = ?", ownerID).
		Order("integration_code ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ar *connectedAccountRepo) Delete(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, integrationCode string) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	return transaction.WithContext(ctx).
		Where("owner_user_id = ?", ownerID).
		Where("integration_code = ?", integrationCode).
		Delete(&domain.ConnectedAccount{}).Error
}
