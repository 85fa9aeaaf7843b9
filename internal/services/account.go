package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/integrations"
	"github.com/flowsmith/flowsmith-backend/internal/platform/apierr"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
	"github.com/flowsmith/flowsmith-backend/internal/repos"
	"github.com/flowsmith/flowsmith-backend/internal/scopetag"
)

type AccountService interface {
	Connect(ctx context.Context, userID uuid.UUID, integrationCode, label string, credentials map[string]string) (*domain.ConnectedAccount, error)
	Disconnect(ctx context.Context, userID uuid.UUID, integrationCode string) error
	List(ctx context.Context, userID uuid.UUID) ([]*domain.ConnectedAccount, error)
}

type accountService struct {
	log      *logger.Logger
	accounts repos.ConnectedAccountRepo
	registry *integrations.Registry
	cache    *scopetag.Cache
}

func NewAccountService(log *logger.Logger, accounts repos.ConnectedAccountRepo, registry *integrations.Registry, cache *scopetag.Cache) AccountService {
	return &accountService{
		log:      log.With("service", "AccountService"),
		accounts: accounts,
		registry: registry,
		cache:    cache,
	}
}

func (as *accountService) Connect(ctx context.Context, userID uuid.UUID, integrationCode, label string, credentials map[string]string) (*domain.ConnectedAccount, error) {
	if _, ok := as.registry.Get(domain.Code(integrationCode)); !ok {
		return nil, apierr.New(http.StatusNotFound, "integration_not_found", fmt.Errorf("integration %s not found", integrationCode))
	}
	creds, err := json.Marshal(credentials)
	if err != nil {
		return nil, fmt.Errorf("encode credentials: %w", err)
	}
	account, err := as.accounts.Upsert(ctx, nil, &domain.ConnectedAccount{
		ID:              uuid.New(),
		OwnerUserID:     userID,
		IntegrationCode: integrationCode,
		Label:           label,
		Credentials:     creds,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert connected account: %w", err)
	}
	as.invalidate(ctx, integrationCode)
	as.log.Info("Connected account", "user_id", userID, "integration", integrationCode)
	return account, nil
}

func (as *accountService) Disconnect(ctx context.Context, userID uuid.UUID, integrationCode string) error {
	if _, err := as.accounts.GetByIntegration(ctx, nil, userID, integrationCode); err != nil {
		return apierr.New(http.StatusNotFound, "account_not_found", fmt.Errorf("no connected account for %s", integrationCode))
	}
	if err := as.accounts.Delete(ctx, nil, userID, integrationCode); err != nil {
		return fmt.Errorf("delete connected account: %w", err)
	}
	as.invalidate(ctx, integrationCode)
	as.log.Info("Disconnected account", "user_id", userID, "integration", integrationCode)
	return nil
}

func (as *accountService) List(ctx context.Context, userID uuid.UUID) ([]*domain.ConnectedAccount, error) {
	return as.accounts.ListByOwner(ctx, nil, userID)
}

// Connection changes flip the account resolver's answer, so cached
// scope tags for the integration must go.
func (as *accountService) invalidate(ctx context.Context, integrationCode string) {
	if as.cache == nil {
		return
	}
	if err := as.cache.Invalidate(ctx, integrationCode); err != nil {
		as.log.Warn("Scope tag invalidation failed", "integration", integrationCode, "error", err)
	}
}
