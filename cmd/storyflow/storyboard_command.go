package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"storyflow/internal/workflow"
)

func newStoryboardCommand(ctx *commandContext) *cobra.Command {
	var (
		textFlag string
		fileFlag string
		style    string
		jsonOut  bool
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "storyboard [story text]",
		Short: "Generate a storyboard from story text",
		Long: "Create a project from story text, wait for the storyboard text stage, " +
			"and print the resulting shot list.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readStoryText(cmd.InOrStdin(), textFlag, fileFlag, args)
			if err != nil {
				return err
			}
			listener := newConsoleListener(cmd.OutOrStdout(), goalStoryboard, "")
			listener.jsonOut = jsonOut
			return ctx.runWorkflow(cmd, listener, timeout, func(runCtx context.Context, m *workflow.Manager) error {
				return m.GenerateStoryboard(runCtx, text, style)
			})
		},
	}

	cmd.Flags().StringVarP(&textFlag, "text", "t", "", "Story text")
	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Read story text from a file (- for stdin)")
	cmd.Flags().StringVarP(&style, "style", "s", "", "Visual style (defaults to workflow.default_style)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the storyboard as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultWaitTimeout, "Maximum time to wait for the storyboard")
	cmd.MarkFlagsMutuallyExclusive("text", "file")
	return cmd
}

func readStoryText(stdin io.Reader, textFlag, fileFlag string, args []string) (string, error) {
	var text string
	switch {
	case strings.TrimSpace(textFlag) != "":
		text = textFlag
	case fileFlag == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read story from stdin: %w", err)
		}
		text = string(data)
	case strings.TrimSpace(fileFlag) != "":
		data, err := os.ReadFile(fileFlag)
		if err != nil {
			return "", fmt.Errorf("read story file: %w", err)
		}
		text = string(data)
	default:
		text = strings.Join(args, " ")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("story text is required (use --text, --file, or pass it as an argument)")
	}
	return text, nil
}
