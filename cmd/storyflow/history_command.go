package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"storyflow/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit    int
		states   []string
		clearAll bool
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openJournal(cfg)
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("task journal is disabled (journal.enabled = false)")
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if clearAll {
				lock, err := ctx.acquireLock(cfg)
				if err != nil {
					return err
				}
				defer lock.Unlock() //nolint:errcheck
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d finished or failed tasks\n", removed)
				return nil
			}

			filter, err := parseStates(states)
			if err != nil {
				return err
			}
			entries, err := store.List(cmd.Context(), limit, filter...)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, historyJSON(entries))
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No tasks recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistory(entries, time.Now()))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of tasks to show (0 for all)")
	cmd.Flags().StringSliceVar(&states, "state", nil, "Filter by state (tracking, finished, failed)")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Remove finished and failed tasks")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print entries as JSON")
	return cmd
}

func parseStates(values []string) ([]journal.State, error) {
	states := make([]journal.State, 0, len(values))
	for _, value := range values {
		state := journal.State(strings.ToLower(strings.TrimSpace(value)))
		switch state {
		case journal.StateTracking, journal.StateFinished, journal.StateFailed:
			states = append(states, state)
		default:
			return nil, fmt.Errorf("unknown state %q (use tracking, finished, or failed)", value)
		}
	}
	return states, nil
}

type historyEntry struct {
	TaskID       string     `json:"taskId"`
	Kind         string     `json:"kind"`
	SubjectID    string     `json:"subjectId"`
	SessionID    string     `json:"sessionId,omitempty"`
	State        string     `json:"state"`
	Progress     int        `json:"progress"`
	Message      string     `json:"message,omitempty"`
	ErrorKind    string     `json:"errorKind,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	ResourceURL  string     `json:"resourceUrl,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
}

func historyJSON(entries []journal.Entry) []historyEntry {
	out := make([]historyEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntry{
			TaskID:       e.TaskID,
			Kind:         e.Kind.String(),
			SubjectID:    e.SubjectID,
			SessionID:    e.SessionID,
			State:        string(e.State),
			Progress:     e.Progress,
			Message:      e.Message,
			ErrorKind:    e.ErrorKind,
			ErrorMessage: e.ErrorMessage,
			ResourceURL:  e.ResourceURL,
			CreatedAt:    e.CreatedAt,
			FinishedAt:   e.FinishedAt,
		})
	}
	return out
}
