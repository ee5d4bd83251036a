package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/harvestline/backend/internal/platform/adminreq"
)

type approvalStore struct{ v view }

func copyRequest(r *adminreq.Request) *adminreq.Request {
	c := *r
	if r.Payload.WalletAdjustment != nil {
		wa := *r.Payload.WalletAdjustment
		c.Payload.WalletAdjustment = &wa
	}
	if r.Payload.DistributePayouts != nil {
		dp := *r.Payload.DistributePayouts
		c.Payload.DistributePayouts = &dp
	}
	return &c
}

func (s approvalStore) Create(_ context.Context, r *adminreq.Request) error {
	st, release := s.v.acquire()
	defer release()

	st.approvals[r.ID] = copyRequest(r)
	st.approvalSeq = append(st.approvalSeq, r.ID)
	return nil
}

func (s approvalStore) GetByID(_ context.Context, id uuid.UUID) (*adminreq.Request, error) {
	st, release := s.v.acquire()
	defer release()

	r, ok := st.approvals[id]
	if !ok {
		return nil, adminreq.ErrRequestNotFound
	}
	return copyRequest(r), nil
}

func (s approvalStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*adminreq.Request, error) {
	return s.GetByID(ctx, id)
}

func (s approvalStore) Decide(_ context.Context, id uuid.UUID, status adminreq.Status, decidedBy uuid.UUID, at time.Time) error {
	st, release := s.v.acquire()
	defer release()

	r, ok := st.approvals[id]
	if !ok || r.Status != adminreq.StatusPending {
		return adminreq.ErrRequestNotFound.Explain("no pending approval request %s", id)
	}
	next := copyRequest(r)
	next.Status = status
	next.DecidedBy = &decidedBy
	next.DecidedAt = &at
	next.UpdatedAt = at
	st.approvals[id] = next
	return nil
}

func (s approvalStore) List(_ context.Context, filter adminreq.Filter) ([]*adminreq.Request, error) {
	st, release := s.v.acquire()
	defer release()

	var out []*adminreq.Request
	for _, id := range st.approvalSeq {
		r := st.approvals[id]
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		if filter.Action != nil && r.Action != *filter.Action {
			continue
		}
		out = append(out, copyRequest(r))
	}
	return paginate(out, 0, filter.Limit), nil
}
