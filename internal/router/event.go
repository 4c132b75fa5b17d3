package router

import (
	"storyflow/internal/storyboard"
	"storyflow/internal/task"
)

// RequestKind tags the remote request an event answers.
type RequestKind uint8

const (
	RequestCreateProject RequestKind = iota + 1
	RequestCreateShotTask
	RequestCreateVideoTask
	RequestFetchShotList
	RequestPoll
)

func (k RequestKind) String() string {
	switch k {
	case RequestCreateProject:
		return "create_project"
	case RequestCreateShotTask:
		return "create_shot_task"
	case RequestCreateVideoTask:
		return "create_video_task"
	case RequestFetchShotList:
		return "fetch_shot_list"
	case RequestPoll:
		return "poll"
	default:
		return "unknown"
	}
}

// Event is the outcome of one remote request. Err is set when the request
// itself failed; the remaining fields depend on Kind.
type Event struct {
	Kind RequestKind
	Err  error

	// RequestCreateProject
	Title   string
	Project task.ProjectTasks

	// RequestCreateShotTask, RequestCreateVideoTask and RequestPoll failures
	TaskID    string
	ShotID    string
	ProjectID string

	// RequestFetchShotList
	Shots []storyboard.ShotRecord

	// RequestPoll
	Outcome task.PollOutcome
}

// ProjectCreated answers a storyboard generation request.
func ProjectCreated(title string, project task.ProjectTasks, err error) Event {
	return Event{Kind: RequestCreateProject, Title: title, Project: project, Err: err}
}

// ShotTaskCreated answers a shot regeneration request.
func ShotTaskCreated(shotID, taskID string, err error) Event {
	return Event{Kind: RequestCreateShotTask, ShotID: shotID, TaskID: taskID, Err: err}
}

// VideoTaskCreated answers a video compilation request.
func VideoTaskCreated(projectID, taskID string, err error) Event {
	return Event{Kind: RequestCreateVideoTask, ProjectID: projectID, TaskID: taskID, Err: err}
}

// ShotListFetched answers a shot list request.
func ShotListFetched(projectID string, shots []storyboard.ShotRecord, err error) Event {
	return Event{Kind: RequestFetchShotList, ProjectID: projectID, Shots: shots, Err: err}
}

// Polled answers a status poll.
func Polled(taskID string, outcome task.PollOutcome, err error) Event {
	if outcome.TaskID == "" {
		outcome.TaskID = taskID
	}
	return Event{Kind: RequestPoll, TaskID: taskID, Outcome: outcome, Err: err}
}

// Session is the orchestration context of the latest storyboard generation.
type Session struct {
	ID          string
	ProjectID   string
	Title       string
	TextTaskID  string
	ShotTaskIDs []string
}
