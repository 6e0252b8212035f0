package httpserver

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/share-recovery-backend/api"
	"github.com/ruteri/share-recovery-backend/api/recoveryhandler"
	"github.com/ruteri/share-recovery-backend/recovery"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := recoveryhandler.NewHandler(recovery.NewDetector(logger, 2), nil, nil, recoveryhandler.DefaultLimits(), logger)
	srv, err := New(&api.HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      logger,
		DrainDuration:            10 * time.Millisecond,
		GracefulShutdownDuration: time.Second,
	}, handler)
	require.NoError(t, err, "Failed to create server")

	ts := httptest.NewServer(srv.getRouter())
	t.Cleanup(ts.Close)
	return srv, ts
}

func getStatus(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_HealthEndpoints(t *testing.T) {
	_, ts := newTestServer(t)

	code, body := getStatus(t, ts.URL+"/livez")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"alive"}`, body)

	code, body = getStatus(t, ts.URL+"/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ready"}`, body)
}

func TestServer_DrainUndrain(t *testing.T) {
	_, ts := newTestServer(t)

	code, body := getStatus(t, ts.URL+"/drain")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"draining"}`, body)

	code, _ = getStatus(t, ts.URL+"/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	// Draining twice reports the current state rather than flipping it.
	code, body = getStatus(t, ts.URL+"/drain")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"already draining"}`, body)

	code, body = getStatus(t, ts.URL+"/undrain")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ready"}`, body)

	code, _ = getStatus(t, ts.URL+"/readyz")
	assert.Equal(t, http.StatusOK, code)
}

func TestServer_MountsRecoveryRoutes(t *testing.T) {
	_, ts := newTestServer(t)

	reqBody := `{"k": 2, "shares": [{"id": "A", "x": "1", "y": "8"}, {"id": "B", "x": "2", "y": "11"}]}`
	resp, err := http.Post(ts.URL+"/api/v1/recover", "application/json", strings.NewReader(reqBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result api.RecoverResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "5", result.Secret)
	assert.ElementsMatch(t, []string{"A", "B"}, result.InlierIDs)
}
