// Package workflow hosts the task orchestration core.
//
// Manager owns the task registry, the poll scheduler, and the result router.
// User triggers (generate a storyboard, regenerate a shot, compile a video)
// start remote work on background goroutines; every outcome comes back to a
// single event loop that routes it and applies the resulting decision. The
// loop is the only code that mutates the registry or the session, so routing
// never races with itself. Results reach the presentation layer through the
// Listener interface and, optionally, the task journal and ntfy.
package workflow
