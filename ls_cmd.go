package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/drivevault/internal/revealapi"
)

// newLsCmd lists a directory, attaching the cached session token when the
// path (or an ancestor) has been revealed.
func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <path>",
		Short: "List a directory, using the cached session token if present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			path := args[0]
			token := a.view.HiddenSessionToken(flagNamespace, path)

			entries, err := a.api.List(cmd.Context(), path, token)
			if err != nil {
				if errors.Is(err, revealapi.ErrForbidden) && token == "" {
					return fmt.Errorf("%s is locked — run 'drivevault reveal %s' first", path, path)
				}

				return err
			}

			if flagJSON {
				return json.NewEncoder(os.Stdout).Encode(entries)
			}

			var rows [][]string

			for _, e := range entries {
				kind := "file"
				if e.Folder {
					kind = "dir"
				}

				if e.Hidden {
					kind += " (hidden)"
				}

				rows = append(rows, []string{
					e.Name,
					kind,
					formatSize(e.Size),
					formatTime(time.Unix(e.Modified, 0)),
				})
			}

			if len(rows) == 0 {
				statusf("Empty directory\n")
				return nil
			}

			printTable(os.Stdout, []string{"NAME", "TYPE", "SIZE", "MODIFIED"}, rows)

			return nil
		},
	}
}
