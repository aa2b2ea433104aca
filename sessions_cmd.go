package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// newSessionsCmd lists cached sessions across all configured namespaces.
func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List cached folder sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if flagJSON {
				out := make(map[string]map[string]int64)
				for _, store := range a.registry.Stores() {
					paths := make(map[string]int64)
					for path, sess := range store.AllSessions() {
						paths[path] = sess.ExpiresAt
					}

					out[store.Namespace()] = paths
				}

				return json.NewEncoder(os.Stdout).Encode(out)
			}

			var rows [][]string

			now := time.Now()
			for _, store := range a.registry.Stores() {
				for path, sess := range store.AllSessions() {
					state := "valid"
					if !sess.ValidAt(now) {
						state = "expired"
					}

					display := path
					if display == "" {
						display = "/"
					}

					rows = append(rows, []string{
						store.Namespace(),
						display,
						formatTime(time.Unix(sess.ExpiresAt, 0)),
						state,
					})
				}
			}

			if len(rows) == 0 {
				statusf("No cached sessions\n")
				return nil
			}

			printTable(os.Stdout, []string{"NAMESPACE", "PATH", "EXPIRES", "STATE"}, rows)

			return nil
		},
	}
}

// newClearCmd drops one cached session, or all of them.
func newClearCmd() *cobra.Command {
	var flagAll bool

	cmd := &cobra.Command{
		Use:   "clear [path]",
		Short: "Drop cached folder sessions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			switch {
			case flagAll:
				a.view.ClearAllSessions()
				statusf("Cleared all sessions\n")
			case len(args) == 1:
				a.view.ClearSession(flagNamespace, args[0])
				statusf("Cleared session for %s\n", args[0])
			default:
				return fmt.Errorf("provide a path or --all")
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&flagAll, "all", false, "clear every namespace")

	return cmd
}
