package reveal

import (
	"context"
	"log/slog"
	"time"
)

// runSweep evicts expired sessions from every namespace on a fixed
// interval until ctx is done. The ticker's lifecycle is tied to the
// coordinator's Run so no timer leaks across restarts or tests.
func (c *Coordinator) runSweep(ctx context.Context) error {
	ticker := time.NewTicker(c.opts.SweepInterval)
	defer ticker.Stop()

	c.logger.Debug("expiry sweep started",
		slog.Duration("interval", c.opts.SweepInterval),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.sweepOnce()
		}
	}
}

// sweepOnce evicts expired sessions in all namespaces, broadcasting an
// Expiry event per evicted path so UI subtrees outside the store
// subscription can show "locked again". Eviction is delegated to the
// store, which re-checks expiry under its own lock — a session renewed
// while the sweep runs (a reveal landing mid-sweep, or a change handler
// re-setting state) stays put.
func (c *Coordinator) sweepOnce() {
	now := c.nowFunc()

	for _, store := range c.registry.Stores() {
		for _, path := range store.EvictExpired(now) {
			c.notifier.publish(Expiry{Namespace: store.Namespace(), Path: path})

			c.logger.Debug("swept expired session",
				slog.String("namespace", store.Namespace()),
				slog.String("path", path),
			)
		}
	}
}
