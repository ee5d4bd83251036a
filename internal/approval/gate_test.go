package approval_test

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestline/backend/internal/app"
	"github.com/harvestline/backend/internal/approval"
	"github.com/harvestline/backend/internal/module/wallet"
	"github.com/harvestline/backend/internal/platform/adminreq"
	"github.com/harvestline/backend/internal/platform/audit"
	"github.com/harvestline/backend/internal/platform/user"
	apperrors "github.com/harvestline/backend/internal/shared/errors"
	"github.com/harvestline/backend/testutil/fixture"
)

func requestAdjustment(t *testing.T, f *fixture.Fixture, actor, target uuid.UUID, amount string) uuid.UUID {
	t.Helper()
	res, err := f.App.Wallet.AdjustWallet(f.Ctx, wallet.AdjustInput{
		ActorID:      actor,
		TargetUserID: target,
		Amount:       f.Dollars(amount),
		Reason:       "reconciliation with bank statement",
	})
	require.NoError(t, err)
	require.True(t, res.RequiresApproval)
	require.NotNil(t, res.ApprovalRequestID)
	assert.Nil(t, res.TransactionID)
	return *res.ApprovalRequestID
}

func auditActions(t *testing.T, f *fixture.Fixture, requestID uuid.UUID) []audit.Action {
	t.Helper()
	records, err := f.DB.Audit().List(f.Ctx, audit.Filter{EntityType: audit.EntityApprovalRequest, EntityID: &requestID})
	require.NoError(t, err)
	actions := make([]audit.Action, 0, len(records))
	for _, r := range records {
		actions = append(actions, r.Action)
	}
	return actions
}

// =============================================================================
// Approve
// =============================================================================

func TestGate_LargeAdjustmentNeedsSecondAdmin(t *testing.T) {
	f := fixture.New(t, app.Options{})
	requester, approver, target := f.Admin(), f.Admin(), f.Investor()

	requestID := requestAdjustment(t, f, requester, target, "1000000")
	assert.True(t, f.Balance(target).IsZero())

	pending, err := f.App.Approvals.ListPending(f.Ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, requestID, pending[0].ID)
	assert.Equal(t, adminreq.ActionWalletAdjustment, pending[0].Action)
	require.NotNil(t, pending[0].Payload.WalletAdjustment)
	assert.True(t, pending[0].Payload.WalletAdjustment.Amount.Equal(f.Dollars("1000000")))

	_, err = f.App.Approvals.Approve(f.Ctx, requester, requestID)
	assert.ErrorIs(t, err, approval.ErrSelfApprovalForbidden)
	assert.Equal(t, apperrors.KindApprovalState, apperrors.KindOf(err))
	assert.True(t, f.Balance(target).IsZero())

	decided, err := f.App.Approvals.Approve(f.Ctx, approver, requestID)
	require.NoError(t, err)
	assert.Equal(t, adminreq.StatusApproved, decided.Status)
	require.NotNil(t, decided.DecidedBy)
	assert.Equal(t, approver, *decided.DecidedBy)
	assert.NotNil(t, decided.DecidedAt)

	assert.True(t, f.Balance(target).Equal(f.Dollars("1000000")))
	assert.Equal(t, []audit.Action{audit.ActionApprovalApproved, audit.ActionApprovalRequested}, auditActions(t, f, requestID))

	stored, err := f.App.Approvals.Get(f.Ctx, requestID)
	require.NoError(t, err)
	assert.Equal(t, adminreq.StatusApproved, stored.Status)

	pending, err = f.App.Approvals.ListPending(f.Ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
	f.RequireConsistent(target)
}

func TestGate_ApproveTwice(t *testing.T) {
	f := fixture.New(t, app.Options{})
	requester, approver, other, target := f.Admin(), f.Admin(), f.Admin(), f.Investor()
	requestID := requestAdjustment(t, f, requester, target, "25000")

	_, err := f.App.Approvals.Approve(f.Ctx, approver, requestID)
	require.NoError(t, err)

	_, err = f.App.Approvals.Approve(f.Ctx, other, requestID)
	assert.ErrorIs(t, err, approval.ErrAlreadyDecided)
	assert.True(t, f.Balance(target).Equal(f.Dollars("25000")))
}

func TestGate_ConcurrentApprovalsApplyOnce(t *testing.T) {
	f := fixture.New(t, app.Options{})
	requester, target := f.Admin(), f.Investor()
	requestID := requestAdjustment(t, f, requester, target, "50000")

	approvers := make([]uuid.UUID, 8)
	for i := range approvers {
		approvers[i] = f.Admin()
	}

	var wg sync.WaitGroup
	errs := make([]error, len(approvers))
	for i, id := range approvers {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = f.App.Approvals.Approve(f.Ctx, id, requestID)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, approval.ErrAlreadyDecided)
	}
	assert.Equal(t, 1, succeeded)
	assert.True(t, f.Balance(target).Equal(f.Dollars("50000")))
}

func TestGate_ApproverMustBeAdmin(t *testing.T) {
	f := fixture.New(t, app.Options{})
	requester, target := f.Admin(), f.Investor()
	auditor := f.UserWith(user.Flags{Role: user.RoleAuditor, KYCStatus: user.KYCApproved})
	requestID := requestAdjustment(t, f, requester, target, "20000")

	_, err := f.App.Approvals.Approve(f.Ctx, auditor, requestID)
	assert.ErrorIs(t, err, user.ErrNotAdmin)

	_, err = f.App.Approvals.Approve(f.Ctx, target, requestID)
	assert.ErrorIs(t, err, user.ErrNotAdmin)

	stored, err := f.App.Approvals.Get(f.Ctx, requestID)
	require.NoError(t, err)
	assert.Equal(t, adminreq.StatusPending, stored.Status)
}

func TestGate_UnknownRequest(t *testing.T) {
	f := fixture.New(t, app.Options{})
	_, err := f.App.Approvals.Approve(f.Ctx, f.Admin(), uuid.New())
	assert.ErrorIs(t, err, adminreq.ErrRequestNotFound)
}

func TestGate_ActionInvalidAtApprovalStaysPending(t *testing.T) {
	f := fixture.New(t, app.Options{})
	requester, approver, target := f.Admin(), f.Admin(), f.Investor()
	f.Fund(target, "20000")

	requestID := requestAdjustment(t, f, requester, target, "-15000")

	// The balance drops below the correction before anyone approves it
	_, err := f.App.Wallet.Withdraw(f.Ctx, wallet.WithdrawInput{UserID: target, Amount: f.Dollars("10000")})
	require.NoError(t, err)

	_, err = f.App.Approvals.Approve(f.Ctx, approver, requestID)
	assert.ErrorIs(t, err, approval.ErrActionFailed)
	assert.ErrorIs(t, err, wallet.ErrNegativeBalance)

	stored, err := f.App.Approvals.Get(f.Ctx, requestID)
	require.NoError(t, err)
	assert.Equal(t, adminreq.StatusPending, stored.Status)
	assert.Nil(t, stored.DecidedBy)
	assert.True(t, f.Balance(target).Equal(f.Dollars("10000")))
	assert.Equal(t, []audit.Action{audit.ActionApprovalRequested}, auditActions(t, f, requestID))

	// It can still be rejected once investigated
	_, err = f.App.Approvals.Reject(f.Ctx, approver, requestID)
	require.NoError(t, err)
}

// =============================================================================
// Reject
// =============================================================================

func TestGate_RejectHasNoBusinessEffect(t *testing.T) {
	f := fixture.New(t, app.Options{})
	requester, approver, target := f.Admin(), f.Admin(), f.Investor()
	requestID := requestAdjustment(t, f, requester, target, "30000")

	decided, err := f.App.Approvals.Reject(f.Ctx, approver, requestID)
	require.NoError(t, err)
	assert.Equal(t, adminreq.StatusRejected, decided.Status)
	assert.True(t, f.Balance(target).IsZero())
	assert.Equal(t, []audit.Action{audit.ActionApprovalRejected, audit.ActionApprovalRequested}, auditActions(t, f, requestID))

	_, err = f.App.Approvals.Approve(f.Ctx, approver, requestID)
	assert.ErrorIs(t, err, approval.ErrAlreadyDecided)
	assert.True(t, f.Balance(target).IsZero())
}

func TestGate_RequesterMayWithdrawOwnRequest(t *testing.T) {
	f := fixture.New(t, app.Options{})
	requester, target := f.Admin(), f.Investor()
	requestID := requestAdjustment(t, f, requester, target, "30000")

	decided, err := f.App.Approvals.Reject(f.Ctx, requester, requestID)
	require.NoError(t, err)
	assert.Equal(t, adminreq.StatusRejected, decided.Status)
}

func TestGate_BelowThresholdAppliesImmediately(t *testing.T) {
	f := fixture.New(t, app.Options{WalletAdjustmentThreshold: decimal.NewFromInt(10000)})
	admin, target := f.Admin(), f.Investor()

	res, err := f.App.Wallet.AdjustWallet(f.Ctx, wallet.AdjustInput{
		ActorID:      admin,
		TargetUserID: target,
		Amount:       f.Dollars("9999.99"),
		Reason:       "goodwill credit",
	})
	require.NoError(t, err)
	assert.False(t, res.RequiresApproval)
	require.NotNil(t, res.NewBalance)
	assert.True(t, res.NewBalance.Equal(f.Dollars("9999.99")))

	pending, err := f.App.Approvals.ListPending(f.Ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
