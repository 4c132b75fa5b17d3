package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"storyflow/internal/logging"
	"storyflow/internal/registry"
	"storyflow/internal/scheduler"
	"storyflow/internal/services"
	"storyflow/internal/task"
)

type recordingPoller struct {
	mu     sync.Mutex
	calls  map[string]int
	ctxIDs []string
}

func newRecordingPoller() *recordingPoller {
	return &recordingPoller{calls: make(map[string]int)}
}

func (p *recordingPoller) Poll(ctx context.Context, taskID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[taskID]++
	if id, ok := services.TaskIDFromContext(ctx); ok {
		p.ctxIDs = append(p.ctxIDs, id)
	}
}

func (p *recordingPoller) count(taskID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[taskID]
}

func newHarness(t *testing.T) (*scheduler.Scheduler, *registry.Registry, *recordingPoller) {
	t.Helper()
	poller := newRecordingPoller()
	sched := scheduler.New(poller, 5*time.Millisecond, logging.NewNop())
	reg := registry.New(sched)
	sched.SetSource(reg)
	t.Cleanup(sched.Stop)
	return sched, reg, poller
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSchedulerStartsIdle(t *testing.T) {
	sched, _, _ := newHarness(t)
	if sched.State() != scheduler.StateIdle {
		t.Fatalf("expected idle, got %s", sched.State())
	}
}

func TestSchedulerPollsEveryRegisteredTask(t *testing.T) {
	sched, reg, poller := newHarness(t)
	sched.Start(context.Background())

	for _, id := range []string{"t1", "t2"} {
		if err := reg.Register(task.NewDescriptor(id, task.KindShot, "s-"+id)); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	if sched.State() != scheduler.StateActive {
		t.Fatalf("expected active after registration, got %s", sched.State())
	}

	waitFor(t, time.Second, func() bool { return poller.count("t1") >= 2 && poller.count("t2") >= 2 })

	poller.mu.Lock()
	for _, id := range poller.ctxIDs {
		if id != "t1" && id != "t2" {
			t.Errorf("unexpected task id in context: %q", id)
		}
	}
	poller.mu.Unlock()
}

func TestSchedulerStopsPollingWhenRegistryEmpties(t *testing.T) {
	sched, reg, poller := newHarness(t)
	sched.Start(context.Background())

	if err := reg.Register(task.NewDescriptor("t1", task.KindVideo, "p1")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	waitFor(t, time.Second, func() bool { return poller.count("t1") >= 1 })

	reg.Unregister("t1")
	if sched.State() != scheduler.StateIdle {
		t.Fatalf("expected idle after last unregister, got %s", sched.State())
	}
	time.Sleep(10 * time.Millisecond)
	settled := poller.count("t1")
	ticks := sched.Ticks()
	time.Sleep(30 * time.Millisecond)
	if poller.count("t1") != settled {
		t.Fatalf("expected no polls while idle, got %d more", poller.count("t1")-settled)
	}
	if sched.Ticks() != ticks {
		t.Fatalf("expected no ticks while idle")
	}
}

func TestSchedulerRemembersActivationBeforeStart(t *testing.T) {
	sched, reg, poller := newHarness(t)
	if err := reg.Register(task.NewDescriptor("early", task.KindText, "p1")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	time.Sleep(15 * time.Millisecond)
	if poller.count("early") != 0 {
		t.Fatal("expected no polls before Start")
	}
	sched.Start(context.Background())
	waitFor(t, time.Second, func() bool { return poller.count("early") >= 1 })
}

func TestSchedulerStopHaltsTicks(t *testing.T) {
	sched, reg, poller := newHarness(t)
	sched.Start(context.Background())
	if err := reg.Register(task.NewDescriptor("t1", task.KindShot, "s1")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	waitFor(t, time.Second, func() bool { return poller.count("t1") >= 1 })

	sched.Stop()
	after := poller.count("t1")
	time.Sleep(30 * time.Millisecond)
	if poller.count("t1") != after {
		t.Fatal("expected no polls after Stop")
	}
	if sched.State() != scheduler.StateActive {
		t.Fatal("Stop should not change activity state")
	}
}
