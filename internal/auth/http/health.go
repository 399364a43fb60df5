package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/tollgate/internal/auth/store"
	"github.com/aussiebroadwan/tollgate/internal/platform/health"
	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
)

// LivezHandler godoc
//
//	@Summary		Liveness Check Endpoint
//	@Description	Liveness probe returning status, uptime and version. Always 200 while the process is serving.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(probe health.Probe) http.HandlerFunc {
	return probe.Livez()
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe that pings the database and checks that signing keys are loaded
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(probe health.Probe, st store.Store, keys *jwtx.KeySet) http.HandlerFunc {
	return probe.Readyz(map[string]health.Check{
		"database": st.Ping,
		"keys": func(context.Context) error {
			if !keys.IsReady() {
				return errors.New("no keys loaded")
			}
			return nil
		},
	})
}
