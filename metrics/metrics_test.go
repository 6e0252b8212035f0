package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoveryRequestsCounter(t *testing.T) {
	before := testutil.ToFloat64(RecoveryRequests.WithLabelValues(OutcomeRecovered))
	RecoveryRequests.WithLabelValues(OutcomeRecovered).Inc()
	after := testutil.ToFloat64(RecoveryRequests.WithLabelValues(OutcomeRecovered))

	assert.Equal(t, before+1, after)
}

func TestHandlerServesRegistry(t *testing.T) {
	CombinationsEvaluated.Add(10)
	ActiveSessions.Set(2)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "recovery_combinations_evaluated_total")
	assert.Contains(t, string(body), "sessions_active 2")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewExportsBuildInfo(t *testing.T) {
	_, err := New("share-recovery-backend", "127.0.0.1:0")
	require.NoError(t, err)

	count := testutil.CollectAndCount(buildInfo, "build_info")
	assert.GreaterOrEqual(t, count, 1)
}
