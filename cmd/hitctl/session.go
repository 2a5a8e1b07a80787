package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/georgfedermann/hit2assext"
	"github.com/georgfedermann/hit2assext/internal/presentation/tui"
	"github.com/georgfedermann/hit2assext/pkg/config"
	"github.com/georgfedermann/hit2assext/pkg/ports"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newSessionCmd() *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect archived session snapshots",
		Long: `List, inspect, and remove snapshots of reaped or removed sessions held by the configured sink.
Only the file and redis sinks outlive the serving process, so only they can be inspected here.`,
	}

	sessionLsCmd := &cobra.Command{
		Use:   "ls",
		Short: "List archived sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := getStore(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			ids, err := store.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("error listing sessions: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "No archived sessions found.")
				return nil
			}

			sort.Strings(ids)
			profile := termenv.NewOutput(out).Profile
			fmt.Fprintln(out, "Archived Sessions:")
			for _, id := range ids {
				snap, err := store.Load(cmd.Context(), id)
				if err != nil {
					fmt.Fprintf(out, "- %s (unreadable: %v)\n", id, err)
					continue
				}
				fmt.Fprintln(out, tui.SessionLine(profile, snap))
			}
			return nil
		},
	}

	sessionInspectCmd := &cobra.Command{
		Use:   "inspect <session-id>",
		Short: "Show the archived snapshot of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := args[0]
			store, closeStore, err := getStore(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			snap, err := store.Load(cmd.Context(), sessionID)
			if err != nil {
				return fmt.Errorf("error loading session '%s': %w", sessionID, err)
			}

			out := cmd.OutOrStdout()
			asJSON, _ := cmd.Flags().GetBool("json")
			if asJSON || !isTerminal(out) {
				data, err := json.MarshalIndent(snap, "", "  ")
				if err != nil {
					return fmt.Errorf("error marshaling snapshot: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			render, err := tui.NewRenderer()
			if err != nil {
				return err
			}
			rendered, err := render(tui.SnapshotMarkdown(snap))
			if err != nil {
				return err
			}
			fmt.Fprint(out, rendered)
			return nil
		},
	}
	sessionInspectCmd.Flags().Bool("json", false, "Print JSON even on a terminal")

	sessionRmCmd := &cobra.Command{
		Use:   "rm <session-id>...",
		Short: "Remove one or more archived sessions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := getStore(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			out := cmd.OutOrStdout()
			var errs []error
			for _, sessionID := range args {
				if err := store.Delete(cmd.Context(), sessionID); err != nil {
					errs = append(errs, fmt.Errorf("error removing '%s': %w", sessionID, err))
					continue
				}
				fmt.Fprintf(out, "Removed session '%s'\n", sessionID)
			}
			return errors.Join(errs...)
		},
	}

	sessionCmd.AddCommand(sessionLsCmd, sessionInspectCmd, sessionRmCmd)
	return sessionCmd
}

// getStore opens the configured snapshot sink. The returned func releases it.
func getStore(cmd *cobra.Command) (ports.SnapshotStore, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	// A memory sink lives in the serving process; a new process would only see an empty one.
	if cfg.Sink.Backend == config.SinkMemory {
		return nil, nil, errors.New("the memory sink cannot be inspected from another process (use file or redis)")
	}

	store, closer, err := hit2assext.NewSink(cfg.Sink)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, errors.New("no snapshot sink configured (set sink.backend to memory, file or redis)")
	}

	release := func() {}
	if closer != nil {
		release = func() { _ = closer.Close() }
	}
	return store, release, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
