// Package router interprets remote request outcomes and decides what the
// workflow does next.
//
// Route is a pure function of the event, a read-only view of the registry,
// and the current session. It never mutates state; the workflow manager
// applies the returned Decision on its event loop.
package router

import (
	"fmt"
	"strings"

	"storyflow/internal/services"
	"storyflow/internal/stage"
	"storyflow/internal/storyboard"
	"storyflow/internal/task"
)

// View is the read-only registry access routing needs.
type View interface {
	Lookup(taskID string) (task.Descriptor, bool)
}

// Decision is the state change an event causes.
type Decision struct {
	stage.Effects
	Unregister []string
	// Session replaces the current session when non-nil.
	Session *Session
}

// Empty reports whether the decision changes nothing.
func (d Decision) Empty() bool {
	return d.Effects.Empty() && len(d.Unregister) == 0 && d.Session == nil
}

// Router dispatches finished tasks to their stage handlers.
type Router struct {
	handlers        stage.Set
	resourceBaseURL string
}

// New constructs a router. resourceBaseURL resolves shot list resource paths.
func New(handlers stage.Set, resourceBaseURL string) *Router {
	return &Router{handlers: handlers, resourceBaseURL: resourceBaseURL}
}

// Route interprets ev.
func (r *Router) Route(ev Event, view View, session Session) Decision {
	switch ev.Kind {
	case RequestCreateProject:
		return r.routeProjectCreated(ev)
	case RequestCreateShotTask, RequestCreateVideoTask:
		return r.routeTaskCreated(ev, session)
	case RequestFetchShotList:
		return r.routeShotList(ev, session)
	case RequestPoll:
		return r.routePoll(ev, view)
	default:
		return failure(stage.OrchestrationFailed{
			Scope: stage.ScopeGeneric,
			Err: services.Wrap(services.ErrValidation, "router", "route",
				fmt.Sprintf("unsupported event kind %d", ev.Kind), nil),
		})
	}
}

func (r *Router) routeProjectCreated(ev Event) Decision {
	if ev.Err != nil {
		return genericFailure("create project", ev.Err)
	}
	project := ev.Project
	if strings.TrimSpace(project.ProjectID) == "" || !project.Complete() {
		return failure(stage.OrchestrationFailed{
			Scope: stage.ScopeGeneric,
			Err: services.Wrap(services.ErrMalformedResponse, "router", "create project",
				"response is missing the project id, text task id or shot task ids", nil),
		})
	}
	return Decision{
		Effects: stage.Effects{
			Register: []task.Descriptor{task.NewDescriptor(project.TextTaskID, task.KindText, project.ProjectID)},
		},
		Session: &Session{
			ProjectID:   project.ProjectID,
			Title:       ev.Title,
			TextTaskID:  project.TextTaskID,
			ShotTaskIDs: append([]string(nil), project.ShotTaskIDs...),
		},
	}
}

func (r *Router) routeTaskCreated(ev Event, session Session) Decision {
	operation := "create video task"
	if ev.Kind == RequestCreateShotTask {
		operation = "create shot task"
	}
	if ev.Err != nil {
		return genericFailure(operation, ev.Err)
	}
	if strings.TrimSpace(ev.TaskID) == "" {
		return failure(stage.OrchestrationFailed{
			Scope: stage.ScopeGeneric,
			Err: services.Wrap(services.ErrMalformedResponse, "router", operation,
				"response is missing the task id", nil),
		})
	}

	if ev.ShotID != "" {
		return register(task.NewDescriptor(ev.TaskID, task.KindShot, ev.ShotID))
	}
	subject := ev.ProjectID
	if subject == "" {
		subject = session.ProjectID
	}
	if subject == "" {
		return failure(stage.OrchestrationFailed{
			Scope: stage.ScopeGeneric,
			Err: services.Wrap(services.ErrValidation, "router", operation,
				"no project is associated with the video task", nil),
		})
	}
	return register(task.NewDescriptor(ev.TaskID, task.KindVideo, subject))
}

func (r *Router) routeShotList(ev Event, session Session) Decision {
	if ev.Err != nil {
		return genericFailure("fetch shot list", ev.Err)
	}
	title := ""
	if session.ProjectID == ev.ProjectID {
		title = session.Title
	}
	board := storyboard.Normalize(ev.ProjectID, title, ev.Shots, r.resourceBaseURL)
	return Decision{Effects: stage.Notify(stage.StoryboardReady{Storyboard: board})}
}

func (r *Router) routePoll(ev Event, view View) Decision {
	taskID := ev.TaskID
	if taskID == "" {
		taskID = ev.Outcome.TaskID
	}
	if view == nil {
		return Decision{}
	}
	d, tracked := view.Lookup(taskID)
	if !tracked {
		return Decision{}
	}

	if ev.Err != nil {
		return Decision{
			Effects:    stage.Notify(taskFailure(d, fmt.Errorf("poll task %s: %w", d.TaskID, ev.Err))),
			Unregister: []string{d.TaskID},
		}
	}

	outcome := ev.Outcome
	outcome.Progress = task.ClampProgress(outcome.Progress)
	switch outcome.Status {
	case task.StatusFinished:
		decision := Decision{Unregister: []string{d.TaskID}}
		handler, ok := r.handlers.For(d.Kind)
		if !ok {
			decision.Effects = stage.Notify(taskFailure(d, services.Wrap(services.ErrConfiguration,
				"router", "dispatch", fmt.Sprintf("no handler for %s tasks", d.Kind), nil)))
			return decision
		}
		decision.Effects = handler.Complete(d, outcome)
		return decision
	case task.StatusError:
		reason := strings.TrimSpace(outcome.Message)
		if reason == "" {
			reason = "remote task reported an error"
		}
		return Decision{
			Effects: stage.Notify(taskFailure(d, services.Wrap(services.ErrTaskFailed,
				"remote task", d.TaskID, reason, nil))),
			Unregister: []string{d.TaskID},
		}
	default:
		notifications := []stage.Notification{stage.TaskProgress{
			TaskID:    d.TaskID,
			Kind:      d.Kind,
			SubjectID: d.SubjectID,
			Percent:   outcome.Progress,
			Status:    outcome.Status,
			Message:   outcome.Message,
		}}
		if d.Kind == task.KindText || d.Kind == task.KindVideo {
			notifications = append(notifications, stage.CompilationProgress{
				SubjectID: d.SubjectID,
				Percent:   outcome.Progress,
			})
		}
		return Decision{Effects: stage.Effects{Notifications: notifications}}
	}
}

func register(d task.Descriptor) Decision {
	return Decision{Effects: stage.Effects{Register: []task.Descriptor{d}}}
}

func failure(f stage.OrchestrationFailed) Decision {
	return Decision{Effects: stage.Notify(f)}
}

func genericFailure(operation string, err error) Decision {
	return failure(stage.OrchestrationFailed{
		Scope: stage.ScopeGeneric,
		Err:   fmt.Errorf("%s: %w", operation, err),
	})
}

func taskFailure(d task.Descriptor, err error) stage.OrchestrationFailed {
	return stage.OrchestrationFailed{
		Scope:     stage.ScopeTask,
		TaskID:    d.TaskID,
		Kind:      d.Kind,
		SubjectID: d.SubjectID,
		Err:       err,
	}
}
