package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/drivevault/internal/reveal"
)

// newWatchCmd runs the coordinator's background loops in the foreground:
// the expiry sweep, the revocation feed, and the sign-out watcher.
// Expired or revoked sessions are announced as they happen.
func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the expiry sweep and revocation feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			cancel := a.view.OnExpiry(func(e reveal.Expiry) {
				display := e.Path
				if display == "" {
					display = "/"
				}

				fmt.Printf("locked again: %s (%s)\n", display, e.Namespace)
			})
			defer cancel()

			g, ctx := errgroup.WithContext(ctx)

			g.Go(func() error { return a.coord.Run(ctx) })

			if a.auth != nil {
				g.Go(func() error { return a.auth.Run(ctx) })
			}

			statusf("Watching for session expiry (Ctrl-C to stop)\n")

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			return nil
		},
	}
}
