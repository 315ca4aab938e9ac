package response

import (
	"context"
	"math/rand"
	"time"

	"github.com/mockforge/mockforge/internal/configsrc"
)

// simulateDelay schedules the configured artificial latency without
// blocking a worker thread on a bare time.Sleep: it waits on a timer
// that ctx cancellation can interrupt early (spec.md §4.5 point 1,
// §5 "performance-simulation timer" as a cancellable suspension
// point).
func simulateDelay(ctx context.Context, cfg configsrc.PerformanceConfig) error {
	d := cfg.Delay(rand.Intn)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
