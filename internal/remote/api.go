package remote

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"storyflow/internal/services"
	"storyflow/internal/storyboard"
	"storyflow/internal/task"
)

type createProjectResponse struct {
	ProjectID   string   `json:"project_id"`
	TextTaskID  string   `json:"text_task_id"`
	ShotTaskIDs []string `json:"shot_task_ids"`
}

// CreateProject starts a storyboard generation. The response is returned as
// reported; completeness is judged by the caller.
func (c *Client) CreateProject(ctx context.Context, title, text, style, description string) (task.ProjectTasks, error) {
	query := url.Values{}
	query.Set("Title", title)
	query.Set("StoryText", text)
	query.Set("Style", style)
	query.Set("Description", description)
	target := c.endpoint("projects") + "?" + query.Encode()

	var resp createProjectResponse
	if err := c.do(ctx, "create project", http.MethodPost, target, nil, &resp); err != nil {
		return task.ProjectTasks{}, err
	}
	return task.ProjectTasks{
		ProjectID:   strings.TrimSpace(resp.ProjectID),
		TextTaskID:  strings.TrimSpace(resp.TextTaskID),
		ShotTaskIDs: resp.ShotTaskIDs,
	}, nil
}

// FetchShotList returns the raw shot records of a project.
func (c *Client) FetchShotList(ctx context.Context, projectID string) ([]storyboard.ShotRecord, error) {
	var resp struct {
		Shots []storyboard.ShotRecord `json:"shots"`
	}
	if err := c.do(ctx, "fetch shot list", http.MethodGet, c.endpoint("projects", projectID, "shots"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Shots, nil
}

type createTaskRequest struct {
	Type       string         `json:"type"`
	ShotID     string         `json:"shotId,omitempty"`
	ProjectID  string         `json:"projectId,omitempty"`
	Parameters taskParameters `json:"parameters"`
}

type taskParameters struct {
	Shot  *shotParameters  `json:"shot,omitempty"`
	Video *videoParameters `json:"video,omitempty"`
}

type shotParameters struct {
	Style    string `json:"style"`
	ImageLLM string `json:"image_llm"`
}

type videoParameters struct {
	Format     string `json:"format"`
	Resolution string `json:"resolution"`
}

type createTaskResponse struct {
	TaskID string `json:"task_id"`
}

// CreateShotUpdateTask asks the service to regenerate one shot image. prompt
// is forwarded as the image model prompt.
func (c *Client) CreateShotUpdateTask(ctx context.Context, shotID, prompt, style string) (string, error) {
	body := createTaskRequest{
		Type:   "updateShot",
		ShotID: shotID,
		Parameters: taskParameters{
			Shot: &shotParameters{Style: style, ImageLLM: prompt},
		},
	}
	var resp createTaskResponse
	if err := c.do(ctx, "create shot task", http.MethodPost, c.endpoint("tasks"), body, &resp); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.TaskID), nil
}

// CreateVideoTask asks the service to compile a project into a video.
func (c *Client) CreateVideoTask(ctx context.Context, projectID string) (string, error) {
	body := createTaskRequest{
		Type:      "generateVideo",
		ProjectID: projectID,
		Parameters: taskParameters{
			Video: &videoParameters{Format: "mp4", Resolution: "1920x1080"},
		},
	}
	var resp createTaskResponse
	if err := c.do(ctx, "create video task", http.MethodPost, c.endpoint("tasks"), body, &resp); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.TaskID), nil
}

type pollResponse struct {
	Task struct {
		ID       string          `json:"id"`
		Status   string          `json:"status"`
		Progress json.RawMessage `json:"progress"`
		Message  string          `json:"message"`
		Result   json.RawMessage `json:"result"`
	} `json:"task"`
}

type wireResult struct {
	ResourceURL string `json:"resource_url"`
	TaskVideo   *struct {
		Path     string          `json:"path"`
		Duration json.RawMessage `json:"duration"`
	} `json:"task_video"`
}

// PollTask fetches the current status of a task.
func (c *Client) PollTask(ctx context.Context, taskID string) (task.PollOutcome, error) {
	var resp pollResponse
	if err := c.do(ctx, "poll task", http.MethodGet, c.endpoint("tasks", taskID), nil, &resp); err != nil {
		return task.PollOutcome{}, err
	}

	outcome := task.PollOutcome{
		TaskID:   taskID,
		Status:   task.ParseStatus(resp.Task.Status),
		Progress: parseProgress(resp.Task.Progress),
		Message:  strings.TrimSpace(resp.Task.Message),
	}
	result, err := decodeResult(resp.Task.Result)
	if err != nil {
		return task.PollOutcome{}, services.Wrap(services.ErrMalformedResponse, "remote", "poll task", "decode result", err)
	}
	outcome.Result = result
	return outcome, nil
}

// parseProgress reads a number or numeric string; anything else is 0.
func parseProgress(raw json.RawMessage) int {
	text := strings.TrimSpace(rawScalar(raw))
	if text == "" {
		return 0
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) {
		return 0
	}
	return task.ClampProgress(int(math.Max(-1, math.Min(f, 1000))))
}

// decodeResult returns nil for an absent or null result.
func decodeResult(raw json.RawMessage) (*task.Result, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	var wire wireResult
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	result := &task.Result{ResourceURL: strings.TrimSpace(wire.ResourceURL)}
	if wire.TaskVideo != nil {
		result.TaskVideo = &task.TaskVideo{
			Path:     strings.TrimSpace(wire.TaskVideo.Path),
			Duration: rawScalar(wire.TaskVideo.Duration),
		}
	}
	return result, nil
}

// rawScalar renders a JSON string or number as text.
func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}
