package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"storyflow/internal/config"
	"storyflow/internal/journal"
	"storyflow/internal/logging"
)

type commandContext struct {
	configFlag *string
	envFlag    *string
	verbose    *bool

	envOnce sync.Once

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error
}

func newCommandContext(configFlag, envFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		envFlag:    envFlag,
		verbose:    verbose,
	}
}

// loadEnv applies the dotenv file before config normalization reads
// STORYFLOW_* variables. Variables already set in the environment win.
func (c *commandContext) loadEnv(warn io.Writer) {
	c.envOnce.Do(func() {
		if c.envFlag == nil {
			return
		}
		path := strings.TrimSpace(*c.envFlag)
		if path == "" {
			return
		}
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(warn, "warning: could not load %s: %v\n", path, err)
		}
	})
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

// newLogger writes to the log file under paths.log_dir, mirrored to stderr
// with --verbose so command output on stdout stays readable.
func (c *commandContext) newLogger(cfg *config.Config) (*slog.Logger, error) {
	logPath := filepath.Join(cfg.Paths.LogDir, "storyflow.log")
	outputs := []string{logPath}
	if c.verbose != nil && *c.verbose {
		outputs = append(outputs, "stderr")
	}
	return logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      outputs,
		ErrorOutputPaths: outputs,
	})
}

// openJournal returns nil without error when the journal is disabled.
func (c *commandContext) openJournal(cfg *config.Config) (*journal.Store, error) {
	if !cfg.Journal.Enabled {
		return nil, nil
	}
	store, err := journal.Open(cfg.JournalPath())
	if err != nil {
		return nil, fmt.Errorf("open task journal: %w", err)
	}
	return store, nil
}

// acquireLock prevents two foreground runs from sharing the journal.
func (c *commandContext) acquireLock(cfg *config.Config) (*flock.Flock, error) {
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another storyflow run is active (lock %s)", cfg.LockPath())
	}
	return lock, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
