package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/drivevault/internal/reveal"
)

// newRevealCmd unlocks a hidden folder and caches its session token.
func newRevealCmd() *cobra.Command {
	var flagPassphrase string

	cmd := &cobra.Command{
		Use:   "reveal <path>",
		Short: "Unlock a hidden folder with its passphrase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			path := args[0]

			prompt := a.view.PromptReveal(flagNamespace, reveal.PromptRequest{Path: path})
			statusf("Unlocking %s\n", prompt.DisplayName)

			passphrase := flagPassphrase
			if passphrase == "" {
				passphrase, err = readPassphrase()
				if err != nil {
					return err
				}
			}

			token, err := a.view.RevealFolder(cmd.Context(), flagNamespace, path, passphrase)
			if err != nil {
				// Surface the prompt's human-readable error when present.
				if p := a.view.ActivePrompt(flagNamespace); p != nil && p.LastError != "" {
					return fmt.Errorf("%s", p.LastError)
				}

				return err
			}

			sessions := a.registry.Store(flagNamespace).AllSessions()

			if flagJSON {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"path":  prompt.Path,
					"token": token,
				})
			}

			if sess, ok := sessions[prompt.Path]; ok {
				statusf("Unlocked %s until %s\n", prompt.DisplayName, formatTime(time.Unix(sess.ExpiresAt, 0)))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&flagPassphrase, "passphrase", "", "folder passphrase (prompted when omitted)")

	return cmd
}

// newHideCmd re-locks a folder behind its passphrase.
func newHideCmd() *cobra.Command {
	var flagPassphrase string

	cmd := &cobra.Command{
		Use:   "hide <path>",
		Short: "Re-lock a folder behind its passphrase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			passphrase := flagPassphrase
			if passphrase == "" {
				passphrase, err = readPassphrase()
				if err != nil {
					return err
				}
			}

			if err := a.view.HideFolder(cmd.Context(), flagNamespace, args[0], passphrase); err != nil {
				return err
			}

			statusf("Folder hidden\n")

			return nil
		},
	}

	cmd.Flags().StringVar(&flagPassphrase, "passphrase", "", "folder passphrase (prompted when omitted)")

	return cmd
}

// readPassphrase reads one line from stdin.
func readPassphrase() (string, error) {
	fmt.Fprint(os.Stderr, "Passphrase: ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}
