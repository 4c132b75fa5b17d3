package main

import (
	"fmt"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"storyflow/internal/journal"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration, run lock, and journal summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			lines := make([]string, 0, 16)

			lines = append(lines, renderSectionHeader("Storyflow", colorize)...)
			configMsg := ctx.configPath
			if !ctx.configSeen {
				configMsg += " (not found, using defaults)"
			}
			lines = append(lines,
				renderStatusLine("Config", statusInfo, configMsg, colorize),
				renderStatusLine("Task service", statusInfo, cfg.Remote.BaseURL, colorize),
				renderStatusLine("Poll interval", statusInfo, cfg.PollInterval().String(), colorize),
				renderStatusLine("Default style", statusInfo, cfg.Workflow.DefaultStyle, colorize),
			)

			running, err := runInProgress(cfg.LockPath())
			switch {
			case err != nil:
				lines = append(lines, renderStatusLine("Run", statusWarn, err.Error(), colorize))
			case running:
				lines = append(lines, renderStatusLine("Run", statusOK, "in progress", colorize))
			default:
				lines = append(lines, renderStatusLine("Run", statusInfo, "idle", colorize))
			}

			if cfg.Notifications.NtfyTopic != "" {
				lines = append(lines, renderStatusLine("Notifications", statusOK, cfg.Notifications.NtfyTopic, colorize))
			} else {
				lines = append(lines, renderStatusLine("Notifications", statusWarn, "ntfy topic not configured", colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Journal", colorize)...)
			store, err := ctx.openJournal(cfg)
			switch {
			case err != nil:
				lines = append(lines, renderStatusLine("Journal", statusError, err.Error(), colorize))
			case store == nil:
				lines = append(lines, renderStatusLine("Journal", statusWarn, "disabled", colorize))
			default:
				defer store.Close()
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					lines = append(lines, renderStatusLine("Journal", statusError, err.Error(), colorize))
					break
				}
				lines = append(lines,
					renderStatusLine("Path", statusInfo, store.Path(), colorize),
					renderStatusLine("Tracking", statusInfo, fmt.Sprint(stats[journal.StateTracking]), colorize),
					renderStatusLine("Finished", statusOK, fmt.Sprint(stats[journal.StateFinished]), colorize),
				)
				failedKind := statusInfo
				if stats[journal.StateFailed] > 0 {
					failedKind = statusWarn
				}
				lines = append(lines, renderStatusLine("Failed", failedKind, fmt.Sprint(stats[journal.StateFailed]), colorize))
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}
}

// runInProgress tests the run lock without holding it.
func runInProgress(path string) (bool, error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("check run lock: %w", err)
	}
	if !ok {
		return true, nil
	}
	return false, lock.Unlock()
}
