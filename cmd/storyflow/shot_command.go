package main

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"storyflow/internal/workflow"
)

func newShotCommand(ctx *commandContext) *cobra.Command {
	var (
		prompt  string
		style   string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "shot <shot-id>",
		Short: "Regenerate the image of one shot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shotID := strings.TrimSpace(args[0])
			listener := newConsoleListener(cmd.OutOrStdout(), goalShot, shotID)
			return ctx.runWorkflow(cmd, listener, timeout, func(runCtx context.Context, m *workflow.Manager) error {
				return m.RegenerateShot(runCtx, shotID, prompt, style)
			})
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Image prompt for the regenerated shot")
	cmd.Flags().StringVarP(&style, "style", "s", "", "Visual style (defaults to workflow.default_style)")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultWaitTimeout, "Maximum time to wait for the image")
	return cmd
}
