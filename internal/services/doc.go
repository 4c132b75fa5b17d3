// Package services defines shared utilities consumed by the orchestration
// core and its external collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp task IDs, session IDs, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so transport, payload, and
//     task failures surface with consistent, classifiable messages.
//
// Use these helpers when wiring new request or stage logic so operational
// behaviour (error reporting, observability) stays uniform across the workflow.
package services
