package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/flowsmith/flowsmith-backend/internal/engine"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
)

// JobTypeActionExecute is the only built-in job type today; retries and
// cleanup jobs would register alongside it.
const JobTypeActionExecute = "action_execute"

// Job is one unit of queued work.
type Job struct {
	Type   string
	Action engine.BackgroundJob
}

// Context is what a handler gets to run with.
type Context struct {
	Ctx context.Context
	Job Job
	Log *logger.Logger
}

type Handler interface {
	Type() string
	Run(ctx *Context) error
}

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	t := h.Type()
	if t == "" {
		return fmt.Errorf("handler Type() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[t]; exists {
		return fmt.Errorf("handler already registered for job_type=%s", t)
	}
	r.handlers[t] = h
	return nil
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}
