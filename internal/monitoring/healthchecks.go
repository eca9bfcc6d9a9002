package monitoring

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

const HEALTHCHECK_INTERVAL = 15 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

// MonitorHealth pings target every interval and stores the result in healthy
// until ctx is cancelled. State changes are logged once.
func MonitorHealth(ctx context.Context, name string, target Pinger, healthy *atomic.Bool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, interval/2)
			err := target.Ping(pingCtx)
			cancel()

			isHealthy := err == nil
			if was := healthy.Swap(isHealthy); was != isHealthy {
				if isHealthy {
					slog.Info("[HealthCheck] Dependency recovered", slog.String("name", name))
				} else {
					slog.Warn("[HealthCheck] Dependency is unhealthy",
						slog.String("name", name),
						slog.String("error", err.Error()))
				}
			}
		}
	}
}
