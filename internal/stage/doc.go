// Package stage holds the post-processing applied when a tracked task
// finishes, one Handler per task kind.
//
// Handlers are pure: they inspect the finished task's result and describe
// what should happen next as Effects (notifications for the presentation
// layer and follow-on requests such as fetching a shot list). The workflow
// manager applies those effects on its event loop.
package stage
