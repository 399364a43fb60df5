package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/platform/health"
	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) authsdk.HealthResponse {
	t.Helper()
	var resp authsdk.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestLivez(t *testing.T) {
	p := health.Probe{Start: time.Now().Add(-90 * time.Second), Version: "v1.2.3"}

	rec := httptest.NewRecorder()
	p.Livez()(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	resp := decode(t, rec)
	require.Equal(t, health.StatusOK, resp.Status)
	require.Equal(t, "v1.2.3", resp.Version)
	require.Equal(t, "1m30s", resp.Uptime)
	require.Nil(t, resp.Checks)
}

func TestReadyz(t *testing.T) {
	p := health.Probe{Start: time.Now(), Version: "test"}
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     map[string]health.Check
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name:       "all ok",
			checks:     map[string]health.Check{"database": ok, "keys": ok},
			wantCode:   http.StatusOK,
			wantStatus: health.StatusOK,
			wantChecks: map[string]string{"database": "ok", "keys": "ok"},
		},
		{
			name:       "one failing",
			checks:     map[string]health.Check{"database": down, "keys": ok},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: health.StatusDegraded,
			wantChecks: map[string]string{"database": "error: connection refused", "keys": "ok"},
		},
		{
			name:       "no checks",
			checks:     nil,
			wantCode:   http.StatusOK,
			wantStatus: health.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			p.Readyz(tt.checks)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			require.Equal(t, tt.wantCode, rec.Code)

			resp := decode(t, rec)
			require.Equal(t, tt.wantStatus, resp.Status)
			if tt.wantChecks == nil {
				require.Empty(t, resp.Checks)
				return
			}
			require.Equal(t, tt.wantChecks, resp.Checks)
		})
	}
}

func TestReadyz_PassesRequestContext(t *testing.T) {
	p := health.Probe{Start: time.Now()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	p.Readyz(map[string]health.Check{"db": func(ctx context.Context) error { return ctx.Err() }})(
		rec, httptest.NewRequestWithContext(ctx, http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "error: context canceled", decode(t, rec).Checks["db"])
}
