// Package health serves the /livez and /readyz probes shared by the auth
// service and the gateway.
package health

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/authsdk"
	"github.com/aussiebroadwan/tollgate/pkg/httpx"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// Probe carries what both probes report about the process.
type Probe struct {
	Start   time.Time
	Version string
}

func (p Probe) response(status string) authsdk.HealthResponse {
	return authsdk.HealthResponse{
		Status:  status,
		Uptime:  time.Since(p.Start).Truncate(time.Second).String(),
		Version: p.Version,
	}
}

// Livez always answers 200 while the process is serving.
func (p Probe) Livez() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, p.response(StatusOK))
	}
}

// Readyz runs every check and answers 503 "degraded" if any fails. Each
// check's result is reported under its name.
func (p Probe) Readyz(checks map[string]Check) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	slices.Sort(names)

	return func(w http.ResponseWriter, r *http.Request) {
		resp := p.response(StatusOK)
		resp.Checks = make(map[string]string, len(names))
		code := http.StatusOK

		for _, name := range names {
			if err := checks[name](r.Context()); err != nil {
				resp.Checks[name] = "error: " + err.Error()
				resp.Status = StatusDegraded
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = StatusOK
		}

		httpx.WriteJSON(w, code, resp)
	}
}
