package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"storyflow/internal/config"
	"storyflow/internal/testsupport"
)

// fakeTaskService serves the task API from canned responses.
type fakeTaskService struct {
	mu       sync.Mutex
	server   *httptest.Server
	project  string
	shots    string
	tasks    map[string]string
	created  []map[string]any
	requests []string
}

func newFakeTaskService(t *testing.T) *fakeTaskService {
	t.Helper()
	svc := &fakeTaskService{
		project: `{"project_id":"P1","text_task_id":"tt","shot_task_ids":["s1","s2"]}`,
		shots: `{"shots":[
			{"id":"s2","order":2,"title":"Storm","image_path":"/img/s2.png","duration":4},
			{"id":"s1","order":1,"title":"Harbor","image_path":"/img/s1.png","duration":3}
		]}`,
		tasks: map[string]string{
			"tt": `{"task":{"status":"finished","progress":100}}`,
			"ts": `{"task":{"status":"success","progress":100,"result":{"resource_url":"/img/s1-v2.png"}}}`,
			"tv": `{"task":{"status":"finished","progress":100,"result":{"task_video":{"path":"/videos/P1.mp4","duration":"00:00:10"}}}}`,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/api/projects", func(w http.ResponseWriter, r *http.Request) {
		svc.record(r)
		svc.write(w, svc.project)
	})
	mux.HandleFunc("GET /v1/api/projects/{id}/shots", func(w http.ResponseWriter, r *http.Request) {
		svc.record(r)
		svc.write(w, svc.shots)
	})
	mux.HandleFunc("POST /v1/api/tasks", func(w http.ResponseWriter, r *http.Request) {
		svc.record(r)
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		svc.mu.Lock()
		svc.created = append(svc.created, body)
		svc.mu.Unlock()
		switch body["type"] {
		case "updateShot":
			svc.write(w, `{"task_id":"ts"}`)
		case "generateVideo":
			svc.write(w, `{"task_id":"tv"}`)
		default:
			http.Error(w, "unknown task type", http.StatusBadRequest)
		}
	})
	mux.HandleFunc("GET /v1/api/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		svc.record(r)
		svc.mu.Lock()
		body, ok := svc.tasks[r.PathValue("id")]
		svc.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		svc.write(w, body)
	})

	svc.server = httptest.NewServer(mux)
	t.Cleanup(svc.server.Close)
	return svc
}

func (s *fakeTaskService) record(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path)
}

func (s *fakeTaskService) write(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func (s *fakeTaskService) count(request string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r == request {
			n++
		}
	}
	return n
}

type cliTestEnv struct {
	cfg        *config.Config
	service    *fakeTaskService
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	service := newFakeTaskService(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBaseURL(service.server.URL))
	cfg.Logging.Format = "json"

	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("STORYFLOW_BASE_URL", "")
	t.Setenv("STORYFLOW_NTFY_TOPIC", "")

	configPath := filepath.Join(base, "storyflow.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, service: service, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	flags := []string{"--env-file", ""}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
