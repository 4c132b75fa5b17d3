package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storyflow/internal/services"
	"storyflow/internal/task"
)

// State is the journal's view of a task lifecycle.
type State string

const (
	StateTracking State = "tracking"
	StateFinished State = "finished"
	StateFailed   State = "failed"
)

// Entry is one journaled task.
type Entry struct {
	TaskID       string
	Kind         task.Kind
	SubjectID    string
	SessionID    string
	State        State
	Progress     int
	Message      string
	ErrorKind    string
	ErrorMessage string
	ResourceURL  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	FinishedAt   *time.Time
}

// Duration reports how long the task was tracked, or how long it has been
// tracked so far.
func (e Entry) Duration(now time.Time) time.Duration {
	end := now
	if e.FinishedAt != nil {
		end = *e.FinishedAt
	}
	if end.Before(e.CreatedAt) {
		return 0
	}
	return end.Sub(e.CreatedAt)
}

const entryColumns = `task_id, kind, subject_id, session_id, state, progress, message,
    error_kind, error_message, resource_url, created_at, updated_at, finished_at`

// RecordRegistered inserts a task that has just started being tracked. A
// reused task id restarts its history row.
func (s *Store) RecordRegistered(ctx context.Context, d task.Descriptor, sessionID string) error {
	created := d.RegisteredAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	stamp := formatTime(created)
	_, err := s.exec(ctx,
		`INSERT INTO tasks (task_id, kind, subject_id, session_id, state, progress, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, 0, ?, ?)
        ON CONFLICT(task_id) DO UPDATE SET
            kind = excluded.kind,
            subject_id = excluded.subject_id,
            session_id = excluded.session_id,
            state = excluded.state,
            progress = 0,
            message = NULL,
            error_kind = NULL,
            error_message = NULL,
            resource_url = NULL,
            created_at = excluded.created_at,
            updated_at = excluded.updated_at,
            finished_at = NULL`,
		d.TaskID, d.Kind.String(), d.SubjectID, nullableString(sessionID), StateTracking, stamp, stamp,
	)
	if err != nil {
		return fmt.Errorf("record registered task %s: %w", d.TaskID, err)
	}
	return nil
}

// RecordProgress updates the progress of a tracked task.
func (s *Store) RecordProgress(ctx context.Context, taskID string, progress int, message string) error {
	_, err := s.exec(ctx,
		`UPDATE tasks SET progress = ?, message = ?, updated_at = ? WHERE task_id = ? AND state = ?`,
		task.ClampProgress(progress), nullableString(message), now(), taskID, StateTracking,
	)
	if err != nil {
		return fmt.Errorf("record progress for %s: %w", taskID, err)
	}
	return nil
}

// RecordFinished marks a task as finished. resourceURL may be empty for
// stages that produce no single resource.
func (s *Store) RecordFinished(ctx context.Context, taskID, resourceURL string) error {
	stamp := now()
	_, err := s.exec(ctx,
		`UPDATE tasks SET state = ?, progress = 100, resource_url = ?, updated_at = ?, finished_at = ?
        WHERE task_id = ?`,
		StateFinished, nullableString(resourceURL), stamp, stamp, taskID,
	)
	if err != nil {
		return fmt.Errorf("record finished task %s: %w", taskID, err)
	}
	return nil
}

// RecordFailed marks a task as failed with the error that ended it.
func (s *Store) RecordFailed(ctx context.Context, taskID string, cause error) error {
	stamp := now()
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	_, err := s.exec(ctx,
		`UPDATE tasks SET state = ?, error_kind = ?, error_message = ?, updated_at = ?, finished_at = ?
        WHERE task_id = ?`,
		StateFailed, nullableString(services.Kind(cause)), nullableString(message), stamp, stamp, taskID,
	)
	if err != nil {
		return fmt.Errorf("record failed task %s: %w", taskID, err)
	}
	return nil
}

// Get returns the entry for taskID, or nil when it was never journaled.
func (s *Store) Get(ctx context.Context, taskID string) (*Entry, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+entryColumns+` FROM tasks WHERE task_id = ?`, taskID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", taskID, err)
	}
	return entry, nil
}

// List returns the most recent entries first. A non-positive limit returns
// every entry.
func (s *Store) List(ctx context.Context, limit int, states ...State) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM tasks`
	args := make([]any, 0, len(states)+1)
	if len(states) > 0 {
		query += ` WHERE state IN (` + placeholders(len(states)) + `)`
		for _, st := range states {
			args = append(args, st)
		}
	}
	query += ` ORDER BY created_at DESC, task_id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return entries, nil
}

// Stats counts entries per state.
func (s *Store) Stats(ctx context.Context) (map[State]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT state, COUNT(1) FROM tasks GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[State]int)
	for rows.Next() {
		var (
			state string
			count int
		)
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[State(state)] = count
	}
	return stats, rows.Err()
}

// MarkAbandoned fails every entry still tracking. It runs at startup because
// the live registry does not survive a restart.
func (s *Store) MarkAbandoned(ctx context.Context) (int64, error) {
	stamp := now()
	res, err := s.exec(ctx,
		`UPDATE tasks SET state = ?, error_kind = ?, error_message = ?, updated_at = ?, finished_at = ?
        WHERE state = ?`,
		StateFailed, "abandoned", "orchestrator stopped before the task finished", stamp, stamp, StateTracking,
	)
	if err != nil {
		return 0, fmt.Errorf("mark abandoned tasks: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes finished and failed entries.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM tasks WHERE state != ?`, StateTracking)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		entry                                     Entry
		kind, state, created, updated             string
		session, message, errKind, errMsg, resURL sql.NullString
		finished                                  sql.NullString
	)
	if err := row.Scan(&entry.TaskID, &kind, &entry.SubjectID, &session, &state, &entry.Progress,
		&message, &errKind, &errMsg, &resURL, &created, &updated, &finished); err != nil {
		return nil, err
	}
	parsedKind, err := task.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	entry.Kind = parsedKind
	entry.State = State(state)
	entry.SessionID = session.String
	entry.Message = message.String
	entry.ErrorKind = errKind.String
	entry.ErrorMessage = errMsg.String
	entry.ResourceURL = resURL.String
	entry.CreatedAt = parseTime(created)
	entry.UpdatedAt = parseTime(updated)
	if finished.Valid && finished.String != "" {
		t := parseTime(finished.String)
		entry.FinishedAt = &t
	}
	return &entry, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// timeLayout is fixed width so stored stamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func now() string {
	return formatTime(time.Now())
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*2)
	for i := range n {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}
