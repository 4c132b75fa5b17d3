package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStoryboardCommandPrintsShots(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"storyboard", "--text", "A ship leaves the harbor", "--timeout", "10s"}, env.configPath)
	if err != nil {
		t.Fatalf("storyboard: %v", err)
	}
	requireContains(t, out, "P1 (2 shots)")
	requireContains(t, out, "Harbor")
	requireContains(t, out, env.service.server.URL+"/img/s1.png")
	if strings.Index(out, "Harbor") > strings.Index(out, "Storm") {
		t.Fatalf("expected shots in order, got:\n%s", out)
	}
	if got := env.service.count("GET /v1/api/projects/P1/shots"); got != 1 {
		t.Fatalf("expected one shot list fetch, got %d", got)
	}
}

func TestStoryboardCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	storyPath := filepath.Join(t.TempDir(), "story.txt")
	if err := os.WriteFile(storyPath, []byte("A ship leaves the harbor\n"), 0o644); err != nil {
		t.Fatalf("write story: %v", err)
	}

	out, _, err := runCLI(t, []string{"storyboard", "--file", storyPath, "--json", "--timeout", "10s"}, env.configPath)
	if err != nil {
		t.Fatalf("storyboard: %v", err)
	}
	var board struct {
		ID    string `json:"id"`
		Shots []struct {
			ShotID   string `json:"shotId"`
			ImageURL string `json:"imageUrl"`
		} `json:"shots"`
	}
	if err := json.Unmarshal([]byte(out), &board); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if board.ID != "P1" || len(board.Shots) != 2 || board.Shots[0].ShotID != "s1" {
		t.Fatalf("unexpected storyboard %+v", board)
	}
}

func TestStoryboardCommandRequiresText(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"storyboard"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "story text is required") {
		t.Fatalf("expected missing text error, got %v", err)
	}
}

func TestStoryboardCommandFailsOnIncompleteProject(t *testing.T) {
	env := setupCLITestEnv(t)
	env.service.project = `{"project_id":"P1","shot_task_ids":["s1"]}`

	out, _, err := runCLI(t, []string{"storyboard", "--text", "story", "--timeout", "10s"}, env.configPath)
	if err == nil {
		t.Fatal("expected failure for project without text task")
	}
	requireContains(t, out, "ERROR")
}

func TestShotCommandPrintsImage(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"shot", "s1", "--prompt", "storm clouds", "--timeout", "10s"}, env.configPath)
	if err != nil {
		t.Fatalf("shot: %v", err)
	}
	requireContains(t, out, env.service.server.URL+"/img/s1-v2.png")

	env.service.mu.Lock()
	defer env.service.mu.Unlock()
	if len(env.service.created) != 1 || env.service.created[0]["shotId"] != "s1" {
		t.Fatalf("unexpected task requests %+v", env.service.created)
	}
}

func TestCompileCommandUsesLatestProject(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"storyboard", "--text", "story", "--timeout", "10s"}, env.configPath); err != nil {
		t.Fatalf("storyboard: %v", err)
	}
	out, _, err := runCLI(t, []string{"compile", "--timeout", "10s"}, env.configPath)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	requireContains(t, out, "Compiling most recent project P1")
	requireContains(t, out, env.service.server.URL+"/videos/P1.mp4")

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "tt")
	requireContains(t, out, "tv")
	requireContains(t, out, "finished")
}

func TestCompileCommandSkipsProjectWithoutStoryboard(t *testing.T) {
	env := setupCLITestEnv(t)
	env.service.shots = `not json`

	if _, _, err := runCLI(t, []string{"storyboard", "--text", "story", "--timeout", "10s"}, env.configPath); err == nil {
		t.Fatal("expected storyboard to fail on an unreadable shot list")
	}
	_, _, err := runCLI(t, []string{"compile", "--timeout", "10s"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "no storyboard found") {
		t.Fatalf("expected no storyboard error, got %v", err)
	}
}

func TestCompileCommandReportsRemoteError(t *testing.T) {
	env := setupCLITestEnv(t)
	env.service.tasks["tv"] = `{"task":{"status":"error","message":"encoder crashed"}}`

	_, _, err := runCLI(t, []string{"compile", "P9", "--timeout", "10s"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "encoder crashed") {
		t.Fatalf("expected remote error, got %v", err)
	}

	out, _, err := runCLI(t, []string{"history", "--state", "failed", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var entries []map[string]any
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(entries) != 1 || entries[0]["taskId"] != "tv" || entries[0]["errorKind"] != "task_failed" {
		t.Fatalf("unexpected history %+v", entries)
	}
}

func TestHistoryClearAndBadState(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No tasks recorded")

	out, _, err = runCLI(t, []string{"history", "--clear"}, env.configPath)
	if err != nil {
		t.Fatalf("history --clear: %v", err)
	}
	requireContains(t, out, "Removed 0")

	if _, _, err := runCLI(t, []string{"history", "--state", "bogus"}, env.configPath); err == nil {
		t.Fatal("expected unknown state error")
	}
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, env.service.server.URL)
	requireContains(t, out, "idle")
	requireContains(t, out, "ntfy topic not configured")
	requireContains(t, out, "Finished")
}

func TestTestNotifyRequiresTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"test-notify"}, env.configPath); err == nil {
		t.Fatal("expected error without ntfy topic")
	}
}
