package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"storyflow/internal/logging"
	"storyflow/internal/router"
	"storyflow/internal/services"
	"storyflow/internal/stage"
	"storyflow/internal/task"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.remote == nil {
		m.mu.Unlock()
		return services.Wrap(services.ErrConfiguration, "workflow", "start", "remote API not configured", nil)
	}

	m.runID = uuid.NewString()
	m.startedAt = time.Now().UTC()
	runCtx, cancel := context.WithCancel(services.WithSessionID(ctx, m.runID))
	m.runCtx = runCtx
	m.cancel = cancel
	m.running = true
	m.loopWG.Add(1)
	m.mu.Unlock()

	m.scheduler.Start(runCtx)
	go m.runLoop(runCtx)

	logging.WithContext(runCtx, m.logger).Info("workflow started",
		logging.String(logging.FieldEventType, "workflow_started"),
		logging.Duration("poll_interval", m.interval),
	)
	return nil
}

// Stop terminates background processing and waits for in-flight requests,
// the scheduler, and the event loop to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.scheduler.Stop()
	m.requestWG.Wait()
	m.loopWG.Wait()
	m.logger.Info("workflow stopped", logging.String(logging.FieldEventType, "workflow_stopped"))
}

func (m *Manager) runLoop(ctx context.Context) {
	defer m.loopWG.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-m.events:
			m.handleEvent(ctx, ev)
		}
	}
}

func (m *Manager) handleEvent(ctx context.Context, ev router.Event) {
	decision := m.router.Route(ev, m.registry, m.currentSession())
	if decision.Empty() {
		if ev.Kind == router.RequestPoll {
			m.logger.Debug("dropped outcome for untracked task",
				logging.String(logging.FieldTaskID, ev.TaskID),
				logging.String(logging.FieldEventType, "poll_outcome_dropped"),
			)
		}
		return
	}
	m.apply(ctx, decision)
}

// apply carries out a routing decision. Unregistration happens first so a
// finished stage can never be polled again once its follow-on work starts.
func (m *Manager) apply(ctx context.Context, decision router.Decision) {
	removed := make([]task.Descriptor, 0, len(decision.Unregister))
	for _, id := range decision.Unregister {
		if d, ok := m.registry.Unregister(id); ok {
			removed = append(removed, d)
		}
		m.sampler.Forget(id)
	}

	if decision.Session != nil {
		session := *decision.Session
		session.ID = uuid.NewString()
		m.mu.Lock()
		m.session = session
		m.mu.Unlock()
		m.logger.Info("storyboard session started",
			logging.String(logging.FieldSubjectID, session.ProjectID),
			logging.String("storyboard_session", session.ID),
			logging.Int("shot_tasks", len(session.ShotTaskIDs)),
			logging.String(logging.FieldEventType, "session_started"),
		)
	}

	notes := decision.Notifications
	for _, d := range decision.Register {
		if err := m.registry.Register(d); err != nil {
			notes = append(notes, stage.OrchestrationFailed{
				Scope:     stage.ScopeGeneric,
				TaskID:    d.TaskID,
				Kind:      d.Kind,
				SubjectID: d.SubjectID,
				Err:       services.Wrap(services.ErrValidation, "workflow", "register task", "", err),
			})
			continue
		}
		m.onRegistered(ctx, d)
	}

	m.recordTerminal(ctx, removed, notes)

	for _, n := range notes {
		m.deliver(ctx, n)
	}

	for _, req := range decision.Requests {
		switch r := req.(type) {
		case stage.FetchShotList:
			m.fetchShotList(ctx, r.ProjectID)
		}
	}
}

func (m *Manager) onRegistered(ctx context.Context, d task.Descriptor) {
	logger := logging.WithContext(services.WithTaskID(ctx, d.TaskID), m.logger)
	logger.Info("tracking task",
		logging.String(logging.FieldTaskKind, d.Kind.String()),
		logging.String(logging.FieldSubjectID, d.SubjectID),
		logging.Int("tracked", m.registry.Len()),
		logging.String(logging.FieldEventType, "task_registered"),
	)
	if m.journal == nil {
		return
	}
	if err := m.journal.RecordRegistered(ctx, d, m.currentSession().ID); err != nil {
		m.journalWarning(logger, err)
	}
}

// recordTerminal journals the end state of every task the decision removed.
func (m *Manager) recordTerminal(ctx context.Context, removed []task.Descriptor, notes []stage.Notification) {
	for _, d := range removed {
		logger := logging.WithContext(services.WithTaskID(ctx, d.TaskID), m.logger)
		var (
			failure     error
			resourceURL string
		)
		for _, n := range notes {
			switch n := n.(type) {
			case stage.OrchestrationFailed:
				if n.TaskID == d.TaskID {
					failure = n.Err
				}
			case stage.ShotImageReady:
				if d.Kind == task.KindShot && n.ShotID == d.SubjectID {
					resourceURL = n.URL
				}
			case stage.CompilationProgress:
				if d.Kind == task.KindVideo && n.SubjectID == d.SubjectID {
					resourceURL = n.ResourceURL
				}
			}
		}

		elapsed := time.Since(d.RegisteredAt).Round(time.Millisecond)
		if failure != nil {
			logger.Info("task ended with failure",
				logging.String(logging.FieldTaskKind, d.Kind.String()),
				logging.Duration("elapsed", elapsed),
				logging.String("error_kind", services.Kind(failure)),
				logging.String(logging.FieldEventType, "task_failed"),
			)
		} else {
			logger.Info("task finished",
				logging.String(logging.FieldTaskKind, d.Kind.String()),
				logging.Duration("elapsed", elapsed),
				logging.String(logging.FieldEventType, "task_finished"),
			)
		}

		if m.journal == nil {
			continue
		}
		var err error
		if failure != nil {
			err = m.journal.RecordFailed(ctx, d.TaskID, failure)
		} else {
			err = m.journal.RecordFinished(ctx, d.TaskID, resourceURL)
		}
		if err != nil {
			m.journalWarning(logger, err)
		}
	}
}

func (m *Manager) journalWarning(logger *slog.Logger, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	logging.WarnWithContext(logger, "task journal write failed; history may be incomplete", "journal_write_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the journal database under paths.state_dir"),
	)
}

func (m *Manager) currentSession() router.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}
