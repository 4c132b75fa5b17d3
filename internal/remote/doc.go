// Package remote talks to the story-to-video task service over HTTP.
//
// Client covers the five calls the orchestrator needs: create a project
// (which starts the storyboard text stage), fetch a project's shot list,
// create a shot update task, create a video compilation task, and poll a
// task's status. Failures are tagged with services.ErrTransport or
// services.ErrMalformedResponse so callers can classify them.
package remote
