package security

import (
	"context"
	"time"
)

// RunSweeper prunes detector state on a fixed interval until ctx is
// done. Call from main. Each tick is independent; the loop itself never
// exits on a bad iteration.
func RunSweeper(ctx context.Context, e *Enforcer, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			e.Spam.Sweep(now)
			e.Raid.Sweep(now)
		}
	}
}
