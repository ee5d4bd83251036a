package approval

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/harvestline/backend/internal/platform/adminreq"
	"github.com/harvestline/backend/internal/uow"
)

// ActionHandler re-runs a gated action from its stored payload.
//
// Execute is called inside the approval's unit of work and must perform every
// business effect of the original action through tx. approverID is the admin
// approving the request.
type ActionHandler interface {
	Action() adminreq.Action
	Execute(ctx context.Context, tx uow.UnitOfWork, req *adminreq.Request, approverID uuid.UUID) error
}

// Registry maps approval actions to their handlers
type Registry struct {
	handlers map[adminreq.Action]ActionHandler
	mu       sync.RWMutex
}

// NewRegistry creates an empty handler registry
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[adminreq.Action]ActionHandler),
	}
}

// Register registers a handler; each action may have exactly one
func (r *Registry) Register(h ActionHandler) error {
	if h == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	action := h.Action()
	switch action {
	case adminreq.ActionWalletAdjustment, adminreq.ActionDistributePayouts:
	default:
		return fmt.Errorf("invalid approval action: %s", action)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[action]; exists {
		return fmt.Errorf("handler for action '%s' already registered", action)
	}

	r.handlers[action] = h
	return nil
}

// Get retrieves the handler for an action
func (r *Registry) Get(action adminreq.Action) (ActionHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, exists := r.handlers[action]
	if !exists {
		return nil, ErrNoHandler.Explain("no handler registered for approval action: %s", action)
	}
	return h, nil
}

// Actions returns all registered actions
func (r *Registry) Actions() []adminreq.Action {
	r.mu.RLock()
	defer r.mu.RUnlock()

	actions := make([]adminreq.Action, 0, len(r.handlers))
	for a := range r.handlers {
		actions = append(actions, a)
	}
	return actions
}
