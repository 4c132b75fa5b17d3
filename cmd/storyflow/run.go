package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"storyflow/internal/journal"
	"storyflow/internal/logging"
	"storyflow/internal/remote"
	"storyflow/internal/workflow"
)

const defaultWaitTimeout = 30 * time.Minute

// runWorkflow starts a manager for one trigger and blocks until listener
// observes the outcome, the timeout expires, or the user interrupts.
func (c *commandContext) runWorkflow(cmd *cobra.Command, listener *consoleListener, timeout time.Duration, trigger func(context.Context, *workflow.Manager) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.newLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	lock, err := c.acquireLock(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release lock", logging.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []workflow.ManagerOption{}
	store, err := c.openJournal(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		if n, err := store.MarkAbandoned(ctx); err != nil {
			logger.Warn("could not mark abandoned tasks", logging.Error(err))
		} else if n > 0 {
			logger.Info("marked abandoned tasks", logging.Int64("count", n))
		}
		opts = append(opts, workflow.WithJournal(store))
	}

	client := remote.NewFromConfig(cfg)
	manager := workflow.NewManager(cfg, client, listener, logger, opts...)
	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}
	defer manager.Stop()

	if err := trigger(ctx, manager); err != nil {
		return err
	}

	if timeout <= 0 {
		timeout = defaultWaitTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-listener.Done():
		return listener.Err()
	case <-timer.C:
		return fmt.Errorf("gave up waiting after %s; the task keeps running remotely", timeout)
	case <-ctx.Done():
		return context.Canceled
	}
}

// latestProject returns the most recent project whose storyboard was built.
// Projects whose shot list could not be fetched are never recorded.
func latestProject(ctx context.Context, store *journal.Store) (string, error) {
	if store == nil {
		return "", errors.New("project id is required when the task journal is disabled")
	}
	projectID, err := store.LatestStoryboard(ctx)
	if err != nil {
		return "", err
	}
	if projectID == "" {
		return "", errors.New("no storyboard found in history; pass a project id")
	}
	return projectID, nil
}
