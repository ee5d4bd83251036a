package settlement

import (
	"context"

	"github.com/google/uuid"

	"github.com/harvestline/backend/internal/platform/adminreq"
	"github.com/harvestline/backend/internal/uow"
)

// distributeHandler re-runs an approved payout distribution
type distributeHandler struct {
	engine *Engine
}

func (h *distributeHandler) Action() adminreq.Action {
	return adminreq.ActionDistributePayouts
}

func (h *distributeHandler) Execute(ctx context.Context, tx uow.UnitOfWork, req *adminreq.Request, approverID uuid.UUID) error {
	if err := req.Payload.Validate(req.Action); err != nil {
		return err
	}
	reqID := req.ID
	_, err := h.engine.distribute(ctx, tx, *req.Payload.DistributePayouts, req.RequestedBy, approverID, "", &reqID)
	return err
}
