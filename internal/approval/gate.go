// Package approval implements the two-person approval gate for high-risk
// admin actions.
package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harvestline/backend/internal/platform/adminreq"
	"github.com/harvestline/backend/internal/platform/audit"
	"github.com/harvestline/backend/internal/platform/user"
	apperrors "github.com/harvestline/backend/internal/shared/errors"
	"github.com/harvestline/backend/internal/uow"
	"github.com/harvestline/backend/pkg/logger"
)

// Recorder receives approval lifecycle events
type Recorder interface {
	Approval(action, event string)
}

// Gate persists pending requests and executes them once a second admin approves
type Gate struct {
	runner   uow.Runner
	store    adminreq.Store
	registry *Registry
	recorder Recorder
	logger   *logger.Logger
	now      func() time.Time
}

// NewGate creates a gate. store is used for reads outside a unit of work.
func NewGate(runner uow.Runner, store adminreq.Store, registry *Registry, recorder Recorder, log *logger.Logger) *Gate {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Gate{
		runner:   runner,
		store:    store,
		registry: registry,
		recorder: recorder,
		logger:   logger.OrDiscard(log).WithComponent("approval"),
		now:      time.Now,
	}
}

// Registry returns the action handler registry
func (g *Gate) Registry() *Registry {
	return g.registry
}

// RequiresApproval reports whether magnitude is at or above threshold
func RequiresApproval(magnitude, threshold decimal.Decimal) bool {
	return magnitude.Abs().GreaterThanOrEqual(threshold)
}

// Submission describes an action to hold for approval
type Submission struct {
	Action      adminreq.Action
	EntityType  string
	EntityID    uuid.UUID
	RequestedBy uuid.UUID
	Payload     adminreq.Payload
}

// Submit persists a PENDING request inside the caller's unit of work
func (g *Gate) Submit(ctx context.Context, tx uow.UnitOfWork, s Submission) (*adminreq.Request, error) {
	if err := s.Payload.Validate(s.Action); err != nil {
		return nil, err
	}
	if _, err := g.registry.Get(s.Action); err != nil {
		return nil, err
	}

	now := g.now().UTC()
	req := &adminreq.Request{
		ID:          uuid.New(),
		Action:      s.Action,
		Status:      adminreq.StatusPending,
		EntityType:  s.EntityType,
		EntityID:    s.EntityID,
		RequestedBy: s.RequestedBy,
		Payload:     s.Payload,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.Approvals().Create(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create approval request: %w", err)
	}

	reqID := req.ID
	if err := tx.Audit().Append(ctx, audit.New(s.RequestedBy, audit.ActionApprovalRequested, audit.EntityApprovalRequest, req.ID, audit.Changes{
		ApprovalRequestID: &reqID,
		StatusTo:          string(adminreq.StatusPending),
		Reason:            string(s.Action),
	})); err != nil {
		return nil, fmt.Errorf("failed to audit approval request: %w", err)
	}

	g.record(s.Action, "requested")
	g.logger.WithContext(ctx).Info("approval requested",
		"request_id", req.ID,
		"action", req.Action,
		"requested_by", req.RequestedBy,
	)
	return req, nil
}

// Approve executes the request's action and marks it APPROVED in one unit of
// work. If the action fails, nothing is written and the request stays PENDING.
func (g *Gate) Approve(ctx context.Context, approverID, requestID uuid.UUID) (*adminreq.Request, error) {
	var decided *adminreq.Request

	err := g.runner.WithinTx(ctx, func(ctx context.Context, tx uow.UnitOfWork) error {
		req, err := g.lockPending(ctx, tx, approverID, requestID)
		if err != nil {
			return err
		}
		if req.RequestedBy == approverID {
			return ErrSelfApprovalForbidden
		}

		handler, err := g.registry.Get(req.Action)
		if err != nil {
			return err
		}
		if err := handler.Execute(ctx, tx, req, approverID); err != nil {
			return actionFailed(err)
		}

		decided, err = g.decide(ctx, tx, req, adminreq.StatusApproved, approverID, audit.ActionApprovalApproved)
		return err
	})
	if err != nil {
		g.logger.WithContext(ctx).WithError(err).Warn("approval not applied", "request_id", requestID, "approver", approverID)
		return nil, err
	}

	g.record(decided.Action, "approved")
	g.logger.WithContext(ctx).Info("approval granted", "request_id", requestID, "approver", approverID)
	return decided, nil
}

// Reject marks the request REJECTED without any business effect. The
// requesting admin may withdraw their own request this way.
func (g *Gate) Reject(ctx context.Context, actorID, requestID uuid.UUID) (*adminreq.Request, error) {
	var decided *adminreq.Request

	err := g.runner.WithinTx(ctx, func(ctx context.Context, tx uow.UnitOfWork) error {
		req, err := g.lockPending(ctx, tx, actorID, requestID)
		if err != nil {
			return err
		}
		decided, err = g.decide(ctx, tx, req, adminreq.StatusRejected, actorID, audit.ActionApprovalRejected)
		return err
	})
	if err != nil {
		return nil, err
	}

	g.record(decided.Action, "rejected")
	g.logger.WithContext(ctx).Info("approval rejected", "request_id", requestID, "actor", actorID)
	return decided, nil
}

// Get retrieves a request by ID
func (g *Gate) Get(ctx context.Context, id uuid.UUID) (*adminreq.Request, error) {
	return g.store.GetByID(ctx, id)
}

// ListPending lists requests awaiting a decision, oldest first
func (g *Gate) ListPending(ctx context.Context, limit int) ([]*adminreq.Request, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	status := adminreq.StatusPending
	return g.store.List(ctx, adminreq.Filter{Status: &status, Limit: limit})
}

func (g *Gate) lockPending(ctx context.Context, tx uow.UnitOfWork, actorID, requestID uuid.UUID) (*adminreq.Request, error) {
	if _, err := user.RequireAdmin(ctx, tx.Users(), actorID); err != nil {
		return nil, err
	}

	req, err := tx.Approvals().GetForUpdate(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != adminreq.StatusPending {
		return nil, ErrAlreadyDecided.Explain("approval request is already %s", req.Status)
	}
	return req, nil
}

func (g *Gate) decide(ctx context.Context, tx uow.UnitOfWork, req *adminreq.Request, status adminreq.Status, actorID uuid.UUID, action audit.Action) (*adminreq.Request, error) {
	now := g.now().UTC()
	if err := tx.Approvals().Decide(ctx, req.ID, status, actorID, now); err != nil {
		return nil, fmt.Errorf("failed to record approval decision: %w", err)
	}

	reqID := req.ID
	if err := tx.Audit().Append(ctx, audit.New(actorID, action, audit.EntityApprovalRequest, req.ID, audit.Changes{
		ApprovalRequestID: &reqID,
		StatusFrom:        string(adminreq.StatusPending),
		StatusTo:          string(status),
		Reason:            string(req.Action),
	})); err != nil {
		return nil, fmt.Errorf("failed to audit approval decision: %w", err)
	}

	req.Status = status
	req.DecidedBy = &actorID
	req.DecidedAt = &now
	req.UpdatedAt = now
	return req, nil
}

func (g *Gate) record(action adminreq.Action, event string) {
	if g.recorder != nil {
		g.recorder.Approval(string(action), event)
	}
}

// actionFailed reports a business rejection of the re-executed action as an
// approval-state error, keeping the cause for errors.Is. Infrastructure
// failures pass through unchanged.
func actionFailed(err error) error {
	appErr := apperrors.GetAppError(err)
	if appErr == nil || appErr.Kind == apperrors.KindInternal {
		return err
	}
	return ErrActionFailed.Wrap(err).Explain("%s; request left pending", appErr.Message)
}
