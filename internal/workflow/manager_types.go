package workflow

import (
	"context"
	"time"

	"storyflow/internal/router"
	"storyflow/internal/scheduler"
	"storyflow/internal/stage"
	"storyflow/internal/storyboard"
	"storyflow/internal/task"
)

// RemoteAPI is the task service surface the manager depends on.
type RemoteAPI interface {
	CreateProject(ctx context.Context, title, text, style, description string) (task.ProjectTasks, error)
	FetchShotList(ctx context.Context, projectID string) ([]storyboard.ShotRecord, error)
	CreateShotUpdateTask(ctx context.Context, shotID, prompt, style string) (string, error)
	CreateVideoTask(ctx context.Context, projectID string) (string, error)
	PollTask(ctx context.Context, taskID string) (task.PollOutcome, error)
}

// Listener receives results for presentation. Calls happen on the manager's
// event loop and should return quickly.
type Listener interface {
	StoryboardReady(ctx context.Context, board storyboard.Storyboard)
	ShotImageReady(ctx context.Context, shotID, url string)
	CompilationProgress(ctx context.Context, subjectID string, percent int)
	OrchestrationFailed(ctx context.Context, message string)
}

// VideoListener is implemented by listeners that want the compiled video URL.
type VideoListener interface {
	VideoReady(ctx context.Context, projectID, url string)
}

// TaskProgressListener is implemented by listeners that want per-task progress.
type TaskProgressListener interface {
	TaskProgress(ctx context.Context, progress stage.TaskProgress)
}

// Journal records task lifecycle transitions.
type Journal interface {
	RecordRegistered(ctx context.Context, d task.Descriptor, sessionID string) error
	RecordProgress(ctx context.Context, taskID string, progress int, message string) error
	RecordFinished(ctx context.Context, taskID, resourceURL string) error
	RecordFailed(ctx context.Context, taskID string, cause error) error
	RecordStoryboard(ctx context.Context, projectID, title string, shots int) error
}

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running        bool
	RunID          string
	StartedAt      time.Time
	SchedulerState scheduler.State
	Ticks          int64
	Tracked        []task.Descriptor
	Session        router.Session
	LastError      string
}

type noopListener struct{}

func (noopListener) StoryboardReady(context.Context, storyboard.Storyboard) {}
func (noopListener) ShotImageReady(context.Context, string, string)         {}
func (noopListener) CompilationProgress(context.Context, string, int)       {}
func (noopListener) OrchestrationFailed(context.Context, string)            {}
