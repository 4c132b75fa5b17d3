package task

import "time"

// Descriptor is the registry entry for one in-flight remote task. It is never
// mutated after registration; status and progress travel on PollOutcome.
type Descriptor struct {
	TaskID       string
	Kind         Kind
	SubjectID    string
	RegisteredAt time.Time
}

// NewDescriptor stamps a descriptor with the current time.
func NewDescriptor(taskID string, kind Kind, subjectID string) Descriptor {
	return Descriptor{
		TaskID:       taskID,
		Kind:         kind,
		SubjectID:    subjectID,
		RegisteredAt: time.Now().UTC(),
	}
}

// ProjectTasks is the creation response of a storyboard generation request.
type ProjectTasks struct {
	ProjectID   string
	TextTaskID  string
	ShotTaskIDs []string
}

// Complete reports whether the response carries everything needed to start
// tracking the text stage.
func (p ProjectTasks) Complete() bool {
	if p.TextTaskID == "" {
		return false
	}
	for _, id := range p.ShotTaskIDs {
		if id != "" {
			return true
		}
	}
	return false
}
