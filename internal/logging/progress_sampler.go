package logging

import "strings"

// ProgressSampler suppresses repetitive poll progress logs while preserving
// signal when a task's status or percentage bucket changes. Every key (usually
// a task id) is tracked independently. It is not safe for concurrent use.
type ProgressSampler struct {
	bucketSize float64
	entries    map[string]samplerEntry
}

type samplerEntry struct {
	status string
	bucket int
}

// NewProgressSampler constructs a sampler that emits when the percent crosses
// bucket boundaries (default 10%) or when the status changes.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, entries: make(map[string]samplerEntry)}
}

// ShouldLog reports whether a progress event for key should be logged. Percent
// can be negative to indicate "unknown".
func (s *ProgressSampler) ShouldLog(key string, percent float64, status string) bool {
	if s == nil {
		return true
	}
	status = strings.TrimSpace(status)
	entry, seen := s.entries[key]
	if !seen {
		entry = samplerEntry{bucket: -1}
	}
	emit := !seen
	if status != "" && status != entry.status {
		entry.status = status
		entry.bucket = -1
		emit = true
	}
	if percent >= 0 {
		bucket := int(min(percent, 100) / s.bucketSize)
		if bucket > entry.bucket {
			entry.bucket = bucket
			emit = true
		}
	}
	s.entries[key] = entry
	return emit
}

// Forget drops the state for key once its task is no longer tracked.
func (s *ProgressSampler) Forget(key string) {
	if s == nil {
		return
	}
	delete(s.entries, key)
}
