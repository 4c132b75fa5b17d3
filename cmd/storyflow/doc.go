// Package main hosts the Storyflow CLI entrypoint and command graph.
//
// Each trigger command (storyboard, shot, compile) runs the workflow manager
// in the foreground against the remote task service, prints results as they
// arrive, and exits once the stage it started reaches a terminal outcome.
// History and status read the task journal kept under paths.state_dir.
//
// Keep this package lean: behavior belongs in the internal packages and is
// only surfaced here through commands and flags.
package main
