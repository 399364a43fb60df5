package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tollgate/internal/auth/store"
)

// Housekeeper deletes expired refresh tokens so the table does not grow
// without bound. Revoked but unexpired rows are kept: replaying one must
// still revoke its family.
type Housekeeper struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// OnSweep, when set, is called with the number of rows each sweep removed.
	OnSweep func(deleted int64)
}

// NewHousekeeper returns a Housekeeper sweeping every interval, or hourly
// when interval is not positive.
func NewHousekeeper(st store.Store, logger *slog.Logger, interval time.Duration) *Housekeeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Housekeeper{Store: st, Logger: logger, Interval: interval}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
// It always returns nil so it can sit in an errgroup next to the server.
func (h *Housekeeper) Run(ctx context.Context) error {
	h.Logger.Info("housekeeping started", "interval", h.Interval)
	defer h.Logger.Info("housekeeping stopped")

	t := time.NewTicker(h.Interval)
	defer t.Stop()

	for {
		h.Sweep(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// Sweep deletes expired refresh tokens once and returns how many went.
func (h *Housekeeper) Sweep(ctx context.Context) int64 {
	n, err := h.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, time.Now())
	if err != nil {
		if ctx.Err() == nil {
			h.Logger.Error("sweep stale refresh tokens", "error", err)
		}
		return 0
	}

	h.Logger.Debug("swept stale refresh tokens", "deleted", n)
	if h.OnSweep != nil {
		h.OnSweep(n)
	}
	return n
}
