package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"storyflow/internal/config"
	"storyflow/internal/logging"
	"storyflow/internal/notifications"
	"storyflow/internal/registry"
	"storyflow/internal/router"
	"storyflow/internal/scheduler"
	"storyflow/internal/stage"
)

const eventBuffer = 64

// Manager coordinates remote task tracking and result routing.
type Manager struct {
	cfg      *config.Config
	remote   RemoteAPI
	listener Listener
	logger   *slog.Logger
	notifier notifications.Service
	journal  Journal

	registry  *registry.Registry
	scheduler *scheduler.Scheduler
	router    *router.Router
	events    chan router.Event
	interval  time.Duration

	// sampler is only touched by the event loop.
	sampler *logging.ProgressSampler

	mu        sync.RWMutex
	running   bool
	runID     string
	startedAt time.Time
	runCtx    context.Context
	cancel    context.CancelFunc
	loopWG    sync.WaitGroup
	requestWG sync.WaitGroup
	session   router.Session
	lastErr   string
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	notifier     notifications.Service
	journal      Journal
	pollInterval time.Duration
	handlers     *stage.Set
}

// WithNotifier overrides the notification service built from config.
func WithNotifier(notifier notifications.Service) ManagerOption {
	return func(o *managerOptions) { o.notifier = notifier }
}

// WithJournal records task lifecycle transitions.
func WithJournal(journal Journal) ManagerOption {
	return func(o *managerOptions) { o.journal = journal }
}

// WithPollInterval overrides workflow.poll_interval (used in tests).
func WithPollInterval(interval time.Duration) ManagerOption {
	return func(o *managerOptions) { o.pollInterval = interval }
}

// WithHandlers replaces the standard stage handlers.
func WithHandlers(handlers stage.Set) ManagerOption {
	return func(o *managerOptions) { o.handlers = &handlers }
}

// NewManager constructs a workflow manager. listener may be nil.
func NewManager(cfg *config.Config, remote RemoteAPI, listener Listener, logger *slog.Logger, opts ...ManagerOption) *Manager {
	options := &managerOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if listener == nil {
		listener = noopListener{}
	}
	notifier := options.notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	interval := options.pollInterval
	if interval <= 0 {
		interval = cfg.PollInterval()
	}
	handlers := stage.NewSet(cfg.Remote.ResourceBaseURL)
	if options.handlers != nil {
		handlers = *options.handlers
	}

	m := &Manager{
		cfg:      cfg,
		remote:   remote,
		listener: listener,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		notifier: notifier,
		journal:  options.journal,
		router:   router.New(handlers, cfg.Remote.ResourceBaseURL),
		events:   make(chan router.Event, eventBuffer),
		interval: interval,
		sampler:  logging.NewProgressSampler(10),
	}
	m.scheduler = scheduler.New(m, interval, logger)
	m.registry = registry.New(m.scheduler)
	m.scheduler.SetSource(m.registry)
	return m
}
