package controllers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wecr8/damp-backend/api/responses"
	"github.com/wecr8/damp-backend/pkg/config"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/logger"
)

const readinessTimeout = 3 * time.Second

// Pinger is any dependency that can report liveness of its connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// ReadinessCheck names one dependency probed by /health/ready.
type ReadinessCheck struct {
	Name   string
	Pinger Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Damp-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every configured dependency in parallel and reports 503
// with the per-check outcome when any of them fails.
func HealthReady(cfg *config.Config, checks []ReadinessCheck, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Damp-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		var (
			mu      sync.Mutex
			results = make(map[string]string, len(checks))
		)
		g, gctx := errgroup.WithContext(ctx)
		for _, check := range checks {
			if check.Pinger == nil {
				continue
			}
			g.Go(func() error {
				err := check.Pinger.Ping(gctx)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					results[check.Name] = "unavailable"
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, check.Name+" unavailable")
				}
				results[check.Name] = "ok"
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			logg.Warn(logg.WithField(r.Context(), "checks", results), "readiness check failed")
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "service not ready").WithDetails(map[string]any{"checks": results}))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": results})
	}
}
