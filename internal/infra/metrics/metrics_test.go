package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	r := New()

	r.EntryWritten("DEPOSIT")
	r.EntryWritten("DEPOSIT")
	r.Idempotency("wallet.deposit", OutcomeReplayed)
	r.Approval("WALLET_ADJUSTMENT", "requested")
	r.PayoutDistributed()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.ledgerEntries.WithLabelValues("DEPOSIT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.idempotentRequests.WithLabelValues("wallet.deposit", OutcomeReplayed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.approvalEvents.WithLabelValues("WALLET_ADJUSTMENT", "requested")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.payoutsDistributed))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder

	assert.NotPanics(t, func() {
		r.EntryWritten("DEPOSIT")
		r.Idempotency("s", OutcomeExecuted)
		r.Approval("a", "approved")
		r.PayoutDistributed()
		r.ObserveOperation("op", time.Now(), errors.New("x"))
	})
	assert.Nil(t, r.Registry())
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.ObserveOperation("deposit", time.Now(), nil)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "harvestline_core_operation_duration_seconds")
}
