// Package task models the remote work items storyflow tracks.
//
// A Descriptor identifies one in-flight remote task together with the stage
// Kind that decides how its result is routed and the subject entity (project
// or shot) it affects. PollOutcome captures a single transient status report,
// and Result carries the payload a finished task hands to its stage handler,
// including the flat-first resource path extraction every stage relies on.
package task
