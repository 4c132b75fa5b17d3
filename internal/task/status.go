package task

import "strings"

// Status is the normalized state reported by a poll.
type Status string

const (
	StatusPending  Status = "pending"
	StatusFinished Status = "finished"
	StatusError    Status = "error"
)

// Terminal reports whether the task stops being tracked after this status.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusError
}

// ParseStatus maps the remote service vocabulary onto Status. The task
// service reports success/failed while the task API reports finished/error;
// anything unrecognized is still in progress.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "finished", "success", "succeeded", "completed", "done":
		return StatusFinished
	case "error", "failed", "failure":
		return StatusError
	default:
		return StatusPending
	}
}

// PollOutcome is one transient status report for a task.
type PollOutcome struct {
	TaskID   string
	Status   Status
	Progress int
	Message  string
	Result   *Result
}

// ClampProgress bounds a reported progress value to 0..100.
func ClampProgress(value int) int {
	switch {
	case value < 0:
		return 0
	case value > 100:
		return 100
	default:
		return value
	}
}
