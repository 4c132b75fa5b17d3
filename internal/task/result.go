package task

import "strings"

// TaskVideo is the nested legacy result structure.
type TaskVideo struct {
	Path     string `json:"path,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// Result is the payload a finished task reports.
type Result struct {
	ResourceURL string     `json:"resource_url,omitempty"`
	TaskVideo   *TaskVideo `json:"task_video,omitempty"`
}

// Empty reports whether the payload carries no fields at all.
func (r *Result) Empty() bool {
	if r == nil {
		return true
	}
	return strings.TrimSpace(r.ResourceURL) == "" && r.TaskVideo == nil
}

// ResourcePath returns the generated resource path. The flat resource_url
// field always wins; task_video.path is consulted only when it is empty.
func (r *Result) ResourcePath() (string, bool) {
	if r == nil {
		return "", false
	}
	if path := strings.TrimSpace(r.ResourceURL); path != "" {
		return path, true
	}
	if r.TaskVideo != nil {
		if path := strings.TrimSpace(r.TaskVideo.Path); path != "" {
			return path, true
		}
	}
	return "", false
}
