package reveal

import (
	"context"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// redialDelay spaces out reconnects when the revocation feed drops.
const redialDelay = 5 * time.Second

// Revocation is a server-pushed notice that a session has been revoked
// and must be dropped immediately rather than waiting for the sweep.
type Revocation struct {
	Namespace string `json:"namespace"`
	Path      string `json:"path"`
}

// runRevocationFeed maintains a websocket subscription to server-pushed
// session revocations until ctx is done. A dropped connection is redialed;
// each revocation clears the cached session and broadcasts an Expiry event
// so the UI reacts the same way it does to a timer eviction.
func (c *Coordinator) runRevocationFeed(ctx context.Context, url string) error {
	for {
		if err := c.consumeRevocations(ctx, url); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			c.logger.Warn("revocation feed disconnected, redialing",
				slog.String("url", url),
				slog.String("error", err.Error()),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(redialDelay):
		}
	}
}

// consumeRevocations dials the feed and applies revocations until the
// connection fails or ctx is done.
func (c *Coordinator) consumeRevocations(ctx context.Context, url string) error {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	c.logger.Debug("revocation feed connected", slog.String("url", url))

	for {
		var rev Revocation
		if err := wsjson.Read(ctx, conn, &rev); err != nil {
			return err
		}

		c.applyRevocation(rev)
	}
}

// applyRevocation drops the revoked session and notifies listeners.
func (c *Coordinator) applyRevocation(rev Revocation) {
	if rev.Namespace == "" {
		return
	}

	c.registry.Store(rev.Namespace).ClearSession(rev.Path)
	c.notifier.publish(Expiry{Namespace: rev.Namespace, Path: rev.Path})

	c.logger.Info("session revoked by server",
		slog.String("namespace", rev.Namespace),
		slog.String("path", rev.Path),
	)
}
