package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storyflow/internal/config"
	"storyflow/internal/notifications"
	"storyflow/internal/stage"
	"storyflow/internal/storyboard"
	"storyflow/internal/task"
	"storyflow/internal/testsupport"
	"storyflow/internal/workflow"
)

// stubRemote scripts the task service. Poll responses are consumed in order;
// the last one repeats.
type stubRemote struct {
	mu sync.Mutex

	project    task.ProjectTasks
	projectErr error
	shots      []storyboard.ShotRecord
	shotsErr   error
	videoTask  string
	shotTask   string
	polls      map[string][]pollReply
	gates      map[string]chan struct{}

	createCalls int
	fetchCalls  int
	pollCalls   map[string]int
	lastStyle   string
	lastPrompt  string
	lastTitle   string
}

type pollReply struct {
	outcome task.PollOutcome
	err     error
}

func newStubRemote() *stubRemote {
	return &stubRemote{
		polls:     make(map[string][]pollReply),
		gates:     make(map[string]chan struct{}),
		pollCalls: make(map[string]int),
	}
}

// hold makes polls of taskID block until the returned func is called.
func (s *stubRemote) hold(taskID string) (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gates[taskID] = gate
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (s *stubRemote) script(taskID string, replies ...pollReply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls[taskID] = replies
}

func (s *stubRemote) CreateProject(_ context.Context, title, _, style, _ string) (task.ProjectTasks, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	s.lastTitle = title
	s.lastStyle = style
	return s.project, s.projectErr
}

func (s *stubRemote) FetchShotList(context.Context, string) ([]storyboard.ShotRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchCalls++
	return s.shots, s.shotsErr
}

func (s *stubRemote) CreateShotUpdateTask(_ context.Context, _, prompt, style string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPrompt = prompt
	s.lastStyle = style
	return s.shotTask, nil
}

func (s *stubRemote) CreateVideoTask(context.Context, string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videoTask, nil
}

func (s *stubRemote) PollTask(ctx context.Context, taskID string) (task.PollOutcome, error) {
	s.mu.Lock()
	s.pollCalls[taskID]++
	gate := s.gates[taskID]
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return task.PollOutcome{}, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	replies := s.polls[taskID]
	if len(replies) == 0 {
		return task.PollOutcome{}, errors.New("unexpected poll for " + taskID)
	}
	reply := replies[0]
	if len(replies) > 1 {
		s.polls[taskID] = replies[1:]
	}
	reply.outcome.TaskID = taskID
	return reply.outcome, reply.err
}

func (s *stubRemote) polled(taskID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pollCalls[taskID]
}

func (s *stubRemote) fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchCalls
}

type progressCall struct {
	subject string
	percent int
}

type recordingListener struct {
	mu         sync.Mutex
	boards     []storyboard.Storyboard
	images     map[string]string
	progress   []progressCall
	failures   []string
	videos     map[string]string
	taskEvents []stage.TaskProgress
}

func newRecordingListener() *recordingListener {
	return &recordingListener{images: make(map[string]string), videos: make(map[string]string)}
}

func (l *recordingListener) StoryboardReady(_ context.Context, board storyboard.Storyboard) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.boards = append(l.boards, board)
}

func (l *recordingListener) ShotImageReady(_ context.Context, shotID, url string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.images[shotID] = url
}

func (l *recordingListener) CompilationProgress(_ context.Context, subjectID string, percent int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.progress = append(l.progress, progressCall{subject: subjectID, percent: percent})
}

func (l *recordingListener) OrchestrationFailed(_ context.Context, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures = append(l.failures, message)
}

func (l *recordingListener) VideoReady(_ context.Context, projectID, url string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.videos[projectID] = url
}

func (l *recordingListener) TaskProgress(_ context.Context, p stage.TaskProgress) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.taskEvents = append(l.taskEvents, p)
}

func (l *recordingListener) failureCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.failures)
}

func (l *recordingListener) firstFailure() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.failures) == 0 {
		return ""
	}
	return l.failures[0]
}

func (l *recordingListener) reached(subject string, percent int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.progress {
		if p.subject == subject && p.percent == percent {
			return true
		}
	}
	return false
}

type stubNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (n *stubNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *stubNotifier) has(event notifications.Event) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == event {
			return true
		}
	}
	return false
}

// blockingNotifier holds every publish until released or cancelled.
type blockingNotifier struct {
	release chan struct{}
	started chan notifications.Event
}

func newBlockingNotifier() *blockingNotifier {
	return &blockingNotifier{release: make(chan struct{}), started: make(chan notifications.Event, 16)}
}

func (n *blockingNotifier) Publish(ctx context.Context, event notifications.Event, _ notifications.Payload) error {
	select {
	case n.started <- event:
	default:
	}
	select {
	case <-n.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type harness struct {
	cfg      *config.Config
	remote   *stubRemote
	listener *recordingListener
	notifier *stubNotifier
	manager  *workflow.Manager
}

func newHarness(t *testing.T, opts ...workflow.ManagerOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithBaseURL("http://host:8081"))
	h := &harness{
		cfg:      cfg,
		remote:   newStubRemote(),
		listener: newRecordingListener(),
		notifier: &stubNotifier{},
	}
	opts = append([]workflow.ManagerOption{
		workflow.WithPollInterval(5 * time.Millisecond),
		workflow.WithNotifier(h.notifier),
	}, opts...)
	h.manager = workflow.NewManager(cfg, h.remote, h.listener, nil, opts...)
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(h.manager.Stop)
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

func finished(result *task.Result) pollReply {
	return pollReply{outcome: task.PollOutcome{Status: task.StatusFinished, Progress: 100, Result: result}}
}

func pending(progress int) pollReply {
	return pollReply{outcome: task.PollOutcome{Status: task.StatusPending, Progress: progress, Message: "working"}}
}
