// Package integrations holds the registry of integration descriptors
// and the built-in adapters that ship with the server.
package integrations

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/fields"
)

// Call is everything an adapter gets: the step's resolved field values
// and the connected account for its integration, when one exists.
type Call struct {
	Fields  map[string]fields.FieldValue
	Account *domain.ConnectedAccount
}

type ActionHandler interface {
	Execute(ctx context.Context, call Call) error
}

type ActionHandlerFunc func(ctx context.Context, call Call) error

func (f ActionHandlerFunc) Execute(ctx context.Context, call Call) error { return f(ctx, call) }

// ClosureResult is what a closure hands back to the run response.
type ClosureResult struct {
	RedirectURL string
}

type ClosureHandler interface {
	Execute(ctx context.Context, call Call) (ClosureResult, error)
}

type ClosureHandlerFunc func(ctx context.Context, call Call) (ClosureResult, error)

func (f ClosureHandlerFunc) Execute(ctx context.Context, call Call) (ClosureResult, error) {
	return f(ctx, call)
}

type TriggerDef struct {
	Code     domain.Code
	Sentence domain.SentenceTemplate
	Fields   []domain.Field
}

type ActionDef struct {
	Code               domain.Code
	Sentence           domain.SentenceTemplate
	Fields             []domain.Field
	SupportsBackground bool
	Handler            ActionHandler
}

type ClosureDef struct {
	Code     domain.ClosureCode
	Sentence domain.SentenceTemplate
	Handler  ClosureHandler
}

// Integration is one connectable service: its metadata, dependency
// declarations, and the steps and loop filters it contributes.
type Integration struct {
	Code         domain.Code
	Name         string
	Dependencies []domain.Dependency
	Triggers     map[domain.Code]TriggerDef
	Actions      map[domain.Code]ActionDef
	Closures     map[domain.ClosureCode]ClosureDef
	Filters      map[domain.Code]domain.Filter
}

type Registry struct {
	mu           sync.RWMutex
	integrations map[domain.Code]Integration
}

func NewRegistry() *Registry {
	return &Registry{integrations: make(map[domain.Code]Integration)}
}

func (r *Registry) Register(in Integration) error {
	if in.Code == "" {
		return fmt.Errorf("integration code is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.integrations[in.Code]; exists {
		return fmt.Errorf("integration already registered for code=%s", in.Code)
	}
	r.integrations[in.Code] = in
	return nil
}

func (r *Registry) Get(code domain.Code) (Integration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	in, ok := r.integrations[code]
	return in, ok
}

// List returns integrations sorted by code for stable API output.
func (r *Registry) List() []Integration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Integration, 0, len(r.integrations))
	for _, in := range r.integrations {
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (r *Registry) Trigger(integration, trigger domain.Code) (TriggerDef, bool) {
	in, ok := r.Get(integration)
	if !ok {
		return TriggerDef{}, false
	}
	def, ok := in.Triggers[trigger]
	return def, ok
}

func (r *Registry) Action(integration, action domain.Code) (ActionDef, bool) {
	in, ok := r.Get(integration)
	if !ok {
		return ActionDef{}, false
	}
	def, ok := in.Actions[action]
	return def, ok
}

func (r *Registry) Closure(integration domain.Code, closure domain.ClosureCode) (ClosureDef, bool) {
	in, ok := r.Get(integration)
	if !ok {
		return ClosureDef{}, false
	}
	def, ok := in.Closures[closure]
	return def, ok
}

func (r *Registry) Filter(integration, filter domain.Code) (domain.Filter, bool) {
	in, ok := r.Get(integration)
	if !ok {
		return domain.Filter{}, false
	}
	def, ok := in.Filters[filter]
	return def, ok
}
