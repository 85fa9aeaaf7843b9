package services

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/google/uuid"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/integrations"
	"github.com/flowsmith/flowsmith-backend/internal/platform/apierr"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
	"github.com/flowsmith/flowsmith-backend/internal/repos"
	"github.com/flowsmith/flowsmith-backend/internal/scopetag"
)

// IntegrationView is one catalog entry: the integration metadata plus
// the availability badge resolved for the requesting user.
type IntegrationView struct {
	Code         string                `json:"code"`
	Name         string                `json:"name"`
	ScopeTag     domain.ScopeTag       `json:"scope_tag"`
	Cta          *domain.DependencyCta `json:"cta,omitempty"`
	Dependencies []domain.Dependency   `json:"dependencies,omitempty"`
	Filters      []domain.Filter       `json:"filters,omitempty"`
}

type IntegrationService interface {
	List(ctx context.Context, userID uuid.UUID) ([]IntegrationView, error)
	Get(ctx context.Context, userID uuid.UUID, code string) (*IntegrationView, error)
}

// SitePlan describes the deployment-wide license and companion plugin
// state the dependency resolvers judge against.
type SitePlan struct {
	Plan    domain.LicensePlan
	Plugins map[string]scopetag.PluginState
}

type integrationService struct {
	log      *logger.Logger
	registry *integrations.Registry
	cache    *scopetag.Cache
	accounts repos.ConnectedAccountRepo
	site     SitePlan
}

func NewIntegrationService(
	log *logger.Logger,
	registry *integrations.Registry,
	cache *scopetag.Cache,
	accounts repos.ConnectedAccountRepo,
	site SitePlan,
) IntegrationService {
	return &integrationService{
		log:      log.With("service", "IntegrationService"),
		registry: registry,
		cache:    cache,
		accounts: accounts,
		site:     site,
	}
}

func (is *integrationService) List(ctx context.Context, userID uuid.UUID) ([]IntegrationView, error) {
	state, err := is.siteState(ctx, userID)
	if err != nil {
		return nil, err
	}
	all := is.registry.List()
	views := make([]IntegrationView, 0, len(all))
	for _, in := range all {
		view, err := is.view(ctx, in, state)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (is *integrationService) Get(ctx context.Context, userID uuid.UUID, code string) (*IntegrationView, error) {
	in, ok := is.registry.Get(domain.Code(code))
	if !ok {
		return nil, apierr.New(http.StatusNotFound, "integration_not_found", fmt.Errorf("integration %s not found", code))
	}
	state, err := is.siteState(ctx, userID)
	if err != nil {
		return nil, err
	}
	view, err := is.view(ctx, in, state)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (is *integrationService) view(ctx context.Context, in integrations.Integration, state scopetag.SiteState) (IntegrationView, error) {
	res, err := is.cache.Resolve(ctx, scopetag.Request{
		Integration: in.Code,
		Deps:        in.Dependencies,
		Site:        state,
	})
	if err != nil {
		return IntegrationView{}, fmt.Errorf("resolve scope tag for %s: %w", in.Code, err)
	}
	var filters []domain.Filter
	if len(in.Filters) > 0 {
		codes := make([]string, 0, len(in.Filters))
		for code := range in.Filters {
			codes = append(codes, code.String())
		}
		sort.Strings(codes)
		for _, code := range codes {
			filters = append(filters, in.Filters[domain.Code(code)])
		}
	}
	return IntegrationView{
		Code:         in.Code.String(),
		Name:         in.Name,
		ScopeTag:     res.Tag,
		Cta:          res.Cta,
		Dependencies: in.Dependencies,
		Filters:      filters,
	}, nil
}

func (is *integrationService) siteState(ctx context.Context, userID uuid.UUID) (scopetag.SiteState, error) {
	connected := map[string]bool{}
	if userID != uuid.Nil {
		accounts, err := is.accounts.ListByOwner(ctx, nil, userID)
		if err != nil {
			return scopetag.SiteState{}, fmt.Errorf("list connected accounts: %w", err)
		}
		for _, a := range accounts {
			connected[a.IntegrationCode] = true
		}
	}
	return scopetag.SiteState{
		Plan:              is.site.Plan,
		Plugins:           is.site.Plugins,
		ConnectedAccounts: connected,
	}, nil
}
