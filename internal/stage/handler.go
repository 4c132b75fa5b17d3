package stage

import (
	"storyflow/internal/task"
)

// Handler post-processes a finished task of one kind.
type Handler interface {
	Kind() task.Kind
	Complete(d task.Descriptor, outcome task.PollOutcome) Effects
}

// Effects describes the consequences of routing one event.
type Effects struct {
	Register      []task.Descriptor
	Notifications []Notification
	Requests      []Request
}

// Empty reports whether the effects carry nothing to apply.
func (e Effects) Empty() bool {
	return len(e.Register) == 0 && len(e.Notifications) == 0 && len(e.Requests) == 0
}

// Notify is shorthand for Effects carrying a single notification.
func Notify(n Notification) Effects {
	return Effects{Notifications: []Notification{n}}
}

// Request is follow-on remote work requested by a handler.
type Request interface {
	request()
}

// FetchShotList asks for the shot list of a project whose text stage finished.
type FetchShotList struct {
	ProjectID string
}

func (FetchShotList) request() {}

// Set bundles one handler per task kind.
type Set struct {
	Text  Handler
	Shot  Handler
	Video Handler
}

// NewSet builds the standard handlers. resourceBase is the host that serves
// generated images and videos.
func NewSet(resourceBase string) Set {
	return Set{
		Text:  TextHandler{},
		Shot:  ShotHandler{ResourceBaseURL: resourceBase},
		Video: VideoHandler{ResourceBaseURL: resourceBase},
	}
}

// For returns the handler registered for kind.
func (s Set) For(kind task.Kind) (Handler, bool) {
	var h Handler
	switch kind {
	case task.KindText:
		h = s.Text
	case task.KindShot:
		h = s.Shot
	case task.KindVideo:
		h = s.Video
	}
	return h, h != nil
}
