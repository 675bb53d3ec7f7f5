package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/yaverhq/yaver/config"
	"github.com/yaverhq/yaver/errors"
	"github.com/yaverhq/yaver/health"
	"github.com/yaverhq/yaver/logging"
	"github.com/yaverhq/yaver/observability"
)

// startOps serves the session's operational endpoints (health, readiness,
// liveness, Prometheus exposition) on the configured metrics port for as
// long as the session runs, and registers everything it starts on sm for
// graceful teardown in reverse order.
func startOps(cfg *config.Config, sess *session, sm *errors.ShutdownManager) {
	log := logging.GetLogger().WithName("cmd.ops")

	sm.RegisterFunc("tracer", observability.ShutdownTracer)

	if cfg.Health.Enabled && cfg.Health.Interval > 0 {
		sess.checker.StartBackground(cfg.Health.Interval)
		sm.RegisterFunc("health-poller", func(ctx context.Context) error {
			sess.checker.StopBackground()
			return nil
		})
	}

	if !cfg.Observability.Metrics.Enabled {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", sess.checker.Handler())
	mux.Handle("/livez", sess.checker.LivenessHandler())
	mux.Handle("/readyz", sess.checker.ReadinessHandler())
	if sess.metrics != nil {
		mux.Handle(cfg.Observability.Metrics.Path, sess.metrics.Handler())
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Observability.Metrics.Port),
		Handler: mux,
	}

	errCh := errors.GoWithError(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	go func() {
		if err := <-errCh; err != nil {
			log.Warn(context.Background(), "ops server stopped", logging.F("error", err.Error()))
		}
	}()

	sm.RegisterFunc("ops-server", srv.Shutdown)
	log.Info(context.Background(), "serving ops endpoints", logging.F("addr", srv.Addr))
}

// reportHealth logs any component the background poller last saw in a
// non-healthy state, so a session that limped along on a degraded forge
// says so on the way out.
func reportHealth(sess *session) {
	log := logging.GetLogger().WithName("cmd.ops")
	for name, res := range sess.checker.GetLastResults() {
		if res.Status != health.StatusHealthy {
			log.Warn(context.Background(), "component ended session non-healthy",
				logging.F("component", name), logging.F("status", string(res.Status)), logging.F("message", res.Message))
		}
	}
}
