// Package journal keeps a SQLite history of every remote task the
// orchestrator tracked.
//
// The journal is write-behind bookkeeping: the workflow manager records
// registrations, progress, and terminal outcomes so the CLI can list past
// work. Nothing reads the journal back into the live registry.
package journal
