package stage

import (
	"fmt"

	"storyflow/internal/services"
	"storyflow/internal/storyboard"
	"storyflow/internal/task"
)

// TextHandler finishes the storyboard text stage by requesting the project's
// shot list. Reported progress is ignored.
type TextHandler struct{}

func (TextHandler) Kind() task.Kind { return task.KindText }

func (TextHandler) Complete(d task.Descriptor, _ task.PollOutcome) Effects {
	return Effects{Requests: []Request{FetchShotList{ProjectID: d.SubjectID}}}
}

// ShotHandler publishes the regenerated image of a single shot.
type ShotHandler struct {
	ResourceBaseURL string
}

func (ShotHandler) Kind() task.Kind { return task.KindShot }

func (h ShotHandler) Complete(d task.Descriptor, outcome task.PollOutcome) Effects {
	path, ok := outcome.Result.ResourcePath()
	if !ok {
		return Notify(stageFailure(d, services.Wrap(
			services.ErrResultShape, "shot stage", "resolve image",
			fmt.Sprintf("task %s finished without an image path", d.TaskID), nil,
		)))
	}
	return Notify(ShotImageReady{
		ShotID: d.SubjectID,
		URL:    storyboard.ResolveURL(h.ResourceBaseURL, path),
	})
}

// VideoHandler publishes the compiled video of a project.
type VideoHandler struct {
	ResourceBaseURL string
}

func (VideoHandler) Kind() task.Kind { return task.KindVideo }

func (h VideoHandler) Complete(d task.Descriptor, outcome task.PollOutcome) Effects {
	if outcome.Result.Empty() {
		return Notify(stageFailure(d, services.Wrap(
			services.ErrResultShape, "video stage", "resolve video",
			"result payload empty", nil,
		)))
	}
	path, ok := outcome.Result.ResourcePath()
	if !ok {
		return Notify(stageFailure(d, services.Wrap(
			services.ErrResultShape, "video stage", "resolve video",
			"result has no video path", nil,
		)))
	}
	return Notify(CompilationProgress{
		SubjectID:   d.SubjectID,
		Percent:     100,
		ResourceURL: storyboard.ResolveURL(h.ResourceBaseURL, path),
	})
}

func stageFailure(d task.Descriptor, err error) OrchestrationFailed {
	return OrchestrationFailed{
		Scope:     ScopeStage,
		TaskID:    d.TaskID,
		Kind:      d.Kind,
		SubjectID: d.SubjectID,
		Err:       err,
	}
}
