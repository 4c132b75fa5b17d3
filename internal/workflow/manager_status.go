package workflow

import "context"

// Status returns the latest workflow information.
func (m *Manager) Status(_ context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running:   m.running,
		RunID:     m.runID,
		StartedAt: m.startedAt,
		Session:   m.session,
		LastError: m.lastErr,
	}
	m.mu.RUnlock()

	summary.SchedulerState = m.scheduler.State()
	summary.Ticks = m.scheduler.Ticks()
	summary.Tracked = m.registry.Descriptors()
	summary.Session.ShotTaskIDs = append([]string(nil), summary.Session.ShotTaskIDs...)
	return summary
}
