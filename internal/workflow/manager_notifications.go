package workflow

import (
	"context"
	"errors"

	"storyflow/internal/logging"
	"storyflow/internal/notifications"
	"storyflow/internal/services"
	"storyflow/internal/stage"
)

// deliver hands one notification to the listener, the journal and ntfy.
func (m *Manager) deliver(ctx context.Context, n stage.Notification) {
	switch n := n.(type) {
	case stage.StoryboardReady:
		board := n.Storyboard
		m.logger.Info("storyboard ready",
			logging.String(logging.FieldSubjectID, board.ID),
			logging.Int("shots", len(board.Shots)),
			logging.String(logging.FieldEventType, "storyboard_ready"),
		)
		if m.journal != nil {
			if err := m.journal.RecordStoryboard(ctx, board.ID, board.Title, len(board.Shots)); err != nil {
				m.journalWarning(m.logger, err)
			}
		}
		m.listener.StoryboardReady(ctx, board)
		m.publish(ctx, notifications.EventStoryboardReady, notifications.Payload{
			"projectID": board.ID,
			"title":     board.Title,
			"shots":     len(board.Shots),
		})

	case stage.ShotImageReady:
		m.logger.Info("shot image ready",
			logging.String(logging.FieldSubjectID, n.ShotID),
			logging.String("url", n.URL),
			logging.String(logging.FieldEventType, "shot_image_ready"),
		)
		m.listener.ShotImageReady(ctx, n.ShotID, n.URL)

	case stage.CompilationProgress:
		m.listener.CompilationProgress(ctx, n.SubjectID, n.Percent)
		if n.Percent < 100 || n.ResourceURL == "" {
			return
		}
		m.logger.Info("video ready",
			logging.String(logging.FieldSubjectID, n.SubjectID),
			logging.String("url", n.ResourceURL),
			logging.String(logging.FieldEventType, "video_ready"),
		)
		if vl, ok := m.listener.(VideoListener); ok {
			vl.VideoReady(ctx, n.SubjectID, n.ResourceURL)
		}
		m.publish(ctx, notifications.EventCompilationComplete, notifications.Payload{
			"projectID": n.SubjectID,
			"url":       n.ResourceURL,
		})

	case stage.TaskProgress:
		m.onTaskProgress(ctx, n)

	case stage.OrchestrationFailed:
		m.onFailure(ctx, n)
	}
}

func (m *Manager) onTaskProgress(ctx context.Context, p stage.TaskProgress) {
	if m.sampler.ShouldLog(p.TaskID, float64(p.Percent), string(p.Status)) {
		m.logger.Info("task progress",
			logging.String(logging.FieldTaskID, p.TaskID),
			logging.String(logging.FieldTaskKind, p.Kind.String()),
			logging.String(logging.FieldSubjectID, p.SubjectID),
			logging.Int("percent", p.Percent),
			logging.String("message", p.Message),
			logging.String(logging.FieldEventType, "task_progress"),
		)
		if m.journal != nil {
			if err := m.journal.RecordProgress(ctx, p.TaskID, p.Percent, p.Message); err != nil {
				m.journalWarning(m.logger, err)
			}
		}
	}
	if pl, ok := m.listener.(TaskProgressListener); ok {
		pl.TaskProgress(ctx, p)
	}
}

func (m *Manager) onFailure(ctx context.Context, f stage.OrchestrationFailed) {
	message := f.Message()
	m.mu.Lock()
	m.lastErr = message
	m.mu.Unlock()

	attrs := []logging.Attr{
		logging.String("scope", string(f.Scope)),
		logging.String("error_kind", services.Kind(f.Err)),
		logging.Error(f.Err),
	}
	if f.TaskID != "" {
		attrs = append(attrs, logging.String(logging.FieldTaskID, f.TaskID))
	}
	if f.SubjectID != "" {
		attrs = append(attrs, logging.String(logging.FieldSubjectID, f.SubjectID))
	}
	if f.Kind.Valid() {
		attrs = append(attrs, logging.String(logging.FieldTaskKind, f.Kind.String()))
	}
	attrs = append(attrs, logging.String(logging.FieldErrorHint, failureHint(f.Err)))
	logging.ErrorWithContext(m.logger, "orchestration failed", "orchestration_failed", attrs...)

	m.listener.OrchestrationFailed(ctx, message)

	label := string(f.Scope)
	if f.Kind.Valid() && f.SubjectID != "" {
		label = f.Kind.String() + " " + f.SubjectID
	}
	m.publish(ctx, notifications.EventError, notifications.Payload{
		"context": label,
		"error":   f.Err,
	})
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, services.ErrTransport):
		return "check that remote.base_url is reachable"
	case errors.Is(err, services.ErrMalformedResponse):
		return "the task service returned an unexpected response; check its version"
	case errors.Is(err, services.ErrTaskFailed):
		return "inspect the task service logs for the failing task"
	case errors.Is(err, services.ErrResultShape):
		return "the task finished without a resource path; retry the stage"
	default:
		return "check logs for details"
	}
}

// publish sends to ntfy off the event loop. Stop waits for in-flight sends.
func (m *Manager) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if m.notifier == nil {
		return
	}
	m.mu.RLock()
	if !m.running {
		m.mu.RUnlock()
		m.send(ctx, event, payload)
		return
	}
	m.requestWG.Add(1)
	m.mu.RUnlock()

	go func() {
		defer m.requestWG.Done()
		m.send(ctx, event, payload)
	}()
}

func (m *Manager) send(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("shutting down, notification not sent", logging.String(logging.FieldEventType, string(event)))
			return
		}
		m.logger.Debug("notification failed", logging.String("notification", string(event)), logging.Error(err))
	}
}
