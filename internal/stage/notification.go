package stage

import (
	"fmt"

	"storyflow/internal/storyboard"
	"storyflow/internal/task"
)

// Notification is a result delivered to the presentation layer.
type Notification interface {
	notification()
}

// StoryboardReady carries the normalized shot list of a project.
type StoryboardReady struct {
	Storyboard storyboard.Storyboard
}

// ShotImageReady reports a regenerated shot image.
type ShotImageReady struct {
	ShotID string
	URL    string
}

// CompilationProgress reports text or video stage progress for a project.
// Percent 100 from the video stage means the video is ready at ResourceURL.
type CompilationProgress struct {
	SubjectID   string
	Percent     int
	ResourceURL string
}

// TaskProgress reports a non-terminal poll for any task kind.
type TaskProgress struct {
	TaskID    string
	Kind      task.Kind
	SubjectID string
	Percent   int
	Status    task.Status
	Message   string
}

// Scope classifies how much of the workflow a failure affects.
type Scope string

const (
	// ScopeGeneric failures happen before any task is tracked.
	ScopeGeneric Scope = "generic"
	// ScopeTask failures end one tracked task (transport or error status).
	ScopeTask Scope = "task"
	// ScopeStage failures come from a finished task whose result is unusable.
	ScopeStage Scope = "stage"
)

// OrchestrationFailed reports a failure. TaskID and SubjectID are empty for
// generic failures.
type OrchestrationFailed struct {
	Scope     Scope
	TaskID    string
	Kind      task.Kind
	SubjectID string
	Err       error
}

// Message renders the failure for the presentation layer.
func (f OrchestrationFailed) Message() string {
	reason := "unknown error"
	if f.Err != nil {
		reason = f.Err.Error()
	}
	switch {
	case f.Kind == task.KindShot && f.SubjectID != "":
		return fmt.Sprintf("shot %s: %s", f.SubjectID, reason)
	case f.Kind.Valid() && f.SubjectID != "":
		return fmt.Sprintf("%s stage for %s: %s", f.Kind, f.SubjectID, reason)
	default:
		return reason
	}
}

func (StoryboardReady) notification()     {}
func (ShotImageReady) notification()      {}
func (CompilationProgress) notification() {}
func (TaskProgress) notification()        {}
func (OrchestrationFailed) notification() {}
