package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"storyflow/internal/workflow"
)

func newCompileCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "compile [project-id]",
		Short: "Compile a project into a video",
		Long:  "Compile a project into a video. Without a project id the most recent storyboard in history is used.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID := ""
			if len(args) == 1 {
				projectID = strings.TrimSpace(args[0])
			}
			if projectID == "" {
				resolved, err := ctx.latestProjectFromHistory(cmd.Context())
				if err != nil {
					return err
				}
				projectID = resolved
				fmt.Fprintf(cmd.OutOrStdout(), "Compiling most recent project %s\n", projectID)
			}
			listener := newConsoleListener(cmd.OutOrStdout(), goalVideo, projectID)
			return ctx.runWorkflow(cmd, listener, timeout, func(runCtx context.Context, m *workflow.Manager) error {
				return m.CompileVideo(runCtx, projectID)
			})
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", defaultWaitTimeout, "Maximum time to wait for the video")
	return cmd
}

func (c *commandContext) latestProjectFromHistory(ctx context.Context) (string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	store, err := c.openJournal(cfg)
	if err != nil {
		return "", err
	}
	if store != nil {
		defer store.Close()
	}
	return latestProject(ctx, store)
}
