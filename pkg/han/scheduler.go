package han

import (
	"context"
	"time"
)

// Run calls Poll on every pollable once per interval, sequentially, on the
// calling goroutine, until ctx is cancelled. This mirrors the cooperative
// setup/loop model of the meter firmware: a poll step always runs to
// completion before the next one starts.
func Run(ctx context.Context, interval time.Duration, pollables ...Pollable) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, p := range pollables {
				p.Poll()
			}
		}
	}
}
