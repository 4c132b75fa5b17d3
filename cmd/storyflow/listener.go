package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"storyflow/internal/stage"
	"storyflow/internal/storyboard"
	"storyflow/internal/task"
)

type goalKind int

const (
	goalStoryboard goalKind = iota
	goalShot
	goalVideo
)

// consoleListener prints workflow results and signals Done once the stage
// the command started reaches a terminal outcome.
type consoleListener struct {
	out      io.Writer
	colorize bool
	jsonOut  bool
	goal     goalKind
	subject  string

	mu       sync.Mutex
	lastPct  map[string]int
	done     chan struct{}
	doneOnce sync.Once
	err      error
}

func newConsoleListener(out io.Writer, goal goalKind, subject string) *consoleListener {
	return &consoleListener{
		out:      out,
		colorize: shouldColorize(out),
		goal:     goal,
		subject:  subject,
		lastPct:  make(map[string]int),
		done:     make(chan struct{}),
	}
}

func (l *consoleListener) Done() <-chan struct{} { return l.done }

func (l *consoleListener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *consoleListener) finish(err error) {
	l.doneOnce.Do(func() {
		l.mu.Lock()
		l.err = err
		l.mu.Unlock()
		close(l.done)
	})
}

func (l *consoleListener) StoryboardReady(_ context.Context, board storyboard.Storyboard) {
	if l.jsonOut {
		if err := writeJSONTo(l.out, board); err != nil {
			l.finish(fmt.Errorf("encode storyboard: %w", err))
			return
		}
	} else {
		fmt.Fprintln(l.out, renderStatusLine("Storyboard", statusOK, fmt.Sprintf("%s (%d shots)", board.ID, len(board.Shots)), l.colorize))
		if board.Title != "" {
			fmt.Fprintf(l.out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Title:", board.Title)
		}
		fmt.Fprintln(l.out, renderStoryboard(board))
	}
	if l.goal == goalStoryboard {
		l.finish(nil)
	}
}

func (l *consoleListener) ShotImageReady(_ context.Context, shotID, url string) {
	fmt.Fprintln(l.out, renderStatusLine("Shot "+shotID, statusOK, url, l.colorize))
	if l.goal == goalShot && shotID == l.subject {
		l.finish(nil)
	}
}

func (l *consoleListener) CompilationProgress(_ context.Context, subjectID string, percent int) {
	l.mu.Lock()
	last, seen := l.lastPct[subjectID]
	l.lastPct[subjectID] = percent
	l.mu.Unlock()
	if seen && last == percent {
		return
	}
	if l.jsonOut {
		return
	}
	label := "Storyboard"
	if l.goal == goalVideo {
		label = "Video"
	}
	fmt.Fprintln(l.out, renderStatusLine(label, statusInfo, subjectID+" "+renderProgress(percent), l.colorize))
}

func (l *consoleListener) VideoReady(_ context.Context, projectID, url string) {
	fmt.Fprintln(l.out, renderStatusLine("Video", statusOK, url, l.colorize))
	if l.goal == goalVideo && projectID == l.subject {
		l.finish(nil)
	}
}

func (l *consoleListener) TaskProgress(_ context.Context, p stage.TaskProgress) {
	if p.Kind != task.KindShot || l.jsonOut {
		return
	}
	l.mu.Lock()
	last, seen := l.lastPct[p.TaskID]
	l.lastPct[p.TaskID] = p.Percent
	l.mu.Unlock()
	if seen && last == p.Percent {
		return
	}
	fmt.Fprintln(l.out, renderStatusLine("Shot "+p.SubjectID, statusInfo, renderProgress(p.Percent), l.colorize))
}

func (l *consoleListener) OrchestrationFailed(_ context.Context, message string) {
	if !l.jsonOut {
		fmt.Fprintln(l.out, renderStatusLine("Error", statusError, message, l.colorize))
	}
	l.finish(errors.New(message))
}
