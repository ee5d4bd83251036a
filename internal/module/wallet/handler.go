package wallet

import (
	"context"

	"github.com/google/uuid"

	"github.com/harvestline/backend/internal/platform/adminreq"
	"github.com/harvestline/backend/internal/uow"
)

// adjustmentHandler re-runs an approved wallet adjustment
type adjustmentHandler struct {
	svc *Service
}

func (h *adjustmentHandler) Action() adminreq.Action {
	return adminreq.ActionWalletAdjustment
}

func (h *adjustmentHandler) Execute(ctx context.Context, tx uow.UnitOfWork, req *adminreq.Request, approverID uuid.UUID) error {
	if err := req.Payload.Validate(req.Action); err != nil {
		return err
	}
	p := req.Payload.WalletAdjustment
	reqID := req.ID

	_, err := h.svc.adjust(ctx, tx, req.RequestedBy, approverID, p.TargetUserID, p.Amount, p.Reason, "", &reqID)
	return err
}
