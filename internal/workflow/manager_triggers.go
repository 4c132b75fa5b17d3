package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"storyflow/internal/logging"
	"storyflow/internal/router"
	"storyflow/internal/services"
)

const projectDescription = "Project created from user-entered story text."

// ErrNotRunning is returned by triggers while the manager is stopped.
var ErrNotRunning = errors.New("workflow not running")

// GenerateStoryboard creates a project for text and starts tracking its
// storyboard text stage. It returns once the request is dispatched.
func (m *Manager) GenerateStoryboard(ctx context.Context, text, style string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return services.Wrap(services.ErrValidation, "workflow", "generate storyboard", "story text is empty", nil)
	}
	style = m.resolveStyle(style)
	title := "Story project - " + time.Now().Format("20060102_150405")

	return m.dispatch(ctx, func(ctx context.Context) router.Event {
		project, err := m.remote.CreateProject(ctx, title, text, style, projectDescription)
		return router.ProjectCreated(title, project, err)
	})
}

// RegenerateShot asks the service to redraw one shot with a new prompt.
func (m *Manager) RegenerateShot(ctx context.Context, shotID, prompt, style string) error {
	shotID = strings.TrimSpace(shotID)
	if shotID == "" {
		return services.Wrap(services.ErrValidation, "workflow", "regenerate shot", "shot id is empty", nil)
	}
	style = m.resolveStyle(style)
	prompt = strings.TrimSpace(prompt)

	return m.dispatch(ctx, func(ctx context.Context) router.Event {
		taskID, err := m.remote.CreateShotUpdateTask(ctx, shotID, prompt, style)
		return router.ShotTaskCreated(shotID, taskID, err)
	})
}

// CompileVideo asks the service to compile a project. An empty projectID
// falls back to the current storyboard session.
func (m *Manager) CompileVideo(ctx context.Context, projectID string) error {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		projectID = m.currentSession().ProjectID
	}
	if projectID == "" {
		return services.Wrap(services.ErrValidation, "workflow", "compile video", "no project selected", nil)
	}

	return m.dispatch(ctx, func(ctx context.Context) router.Event {
		taskID, err := m.remote.CreateVideoTask(ctx, projectID)
		return router.VideoTaskCreated(projectID, taskID, err)
	})
}

// Poll implements scheduler.Poller.
func (m *Manager) Poll(ctx context.Context, taskID string) {
	if err := m.dispatch(ctx, func(ctx context.Context) router.Event {
		outcome, err := m.remote.PollTask(ctx, taskID)
		return router.Polled(taskID, outcome, err)
	}); err != nil {
		m.logger.Debug("poll skipped", logging.String(logging.FieldTaskID, taskID), logging.Error(err))
	}
}

func (m *Manager) fetchShotList(ctx context.Context, projectID string) {
	logging.WithContext(ctx, m.logger).Info("fetching shot list",
		logging.String(logging.FieldSubjectID, projectID),
		logging.String(logging.FieldEventType, "shot_list_requested"),
	)
	if err := m.dispatch(ctx, func(ctx context.Context) router.Event {
		shots, err := m.remote.FetchShotList(ctx, projectID)
		return router.ShotListFetched(projectID, shots, err)
	}); err != nil {
		m.logger.Debug("shot list fetch skipped", logging.String(logging.FieldSubjectID, projectID), logging.Error(err))
	}
}

// dispatch runs call on its own goroutine and posts the resulting event to
// the loop. The request is bound to the manager's lifetime; values carried by
// ctx (task and request ids) are kept for logging.
func (m *Manager) dispatch(ctx context.Context, call func(context.Context) router.Event) error {
	m.mu.RLock()
	if !m.running {
		m.mu.RUnlock()
		return ErrNotRunning
	}
	runCtx := m.runCtx
	m.requestWG.Add(1)
	m.mu.RUnlock()

	reqCtx := runCtx
	if ctx != nil {
		if id, ok := services.TaskIDFromContext(ctx); ok {
			reqCtx = services.WithTaskID(reqCtx, id)
		}
		if id, ok := services.RequestIDFromContext(ctx); ok {
			reqCtx = services.WithRequestID(reqCtx, id)
		}
	}
	if _, ok := services.RequestIDFromContext(reqCtx); !ok {
		reqCtx = services.WithRequestID(reqCtx, uuid.NewString())
	}

	go func() {
		defer m.requestWG.Done()
		ev := call(reqCtx)
		select {
		case m.events <- ev:
		case <-reqCtx.Done():
		}
	}()
	return nil
}

func (m *Manager) resolveStyle(style string) string {
	if style = strings.TrimSpace(style); style != "" {
		return style
	}
	return m.cfg.Workflow.DefaultStyle
}
