package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storyflow/internal/config"
)

const userAgent = "storyflow/0.1.0"

// Event identifies a notification kind.
type Event string

const (
	EventStoryboardReady     Event = "storyboard_ready"
	EventCompilationComplete Event = "compilation_complete"
	EventError               Event = "error"
	EventTest                Event = "test"
)

// Payload carries event-specific values keyed by name.
type Payload map[string]any

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Service publishes workflow events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventStoryboardReady:     cfg.Notifications.Storyboard,
			EventCompilationComplete: cfg.Notifications.Compilation,
			EventError:               cfg.Notifications.Errors,
			EventTest:                true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventStoryboardReady:
		title := payload.text("title")
		if title == "" {
			title = payload.text("projectID")
		}
		return message{
			title: "Storyflow - Storyboard Ready",
			body:  fmt.Sprintf("🎬 Storyboard ready: %s (%s shots)", title, fallback(payload.text("shots"), "0")),
			tags:  []string{"storyflow", "storyboard", "ready"},
		}, true
	case EventCompilationComplete:
		body := fmt.Sprintf("✅ Video ready: %s", payload.text("projectID"))
		if url := payload.text("url"); url != "" {
			body = fmt.Sprintf("%s\n%s", body, url)
		}
		return message{
			title:    "Storyflow - Video Ready",
			body:     body,
			tags:     []string{"storyflow", "video", "completed"},
			priority: "high",
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := payload.text("context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		builder.WriteString(fallback(payload.text("error"), "unknown"))
		return message{
			title:    "Storyflow - Error",
			body:     builder.String(),
			tags:     []string{"storyflow", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Storyflow - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"storyflow", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
