package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// RecordStoryboard notes a project whose shot list was fetched and parsed.
// Only these projects are candidates for a later compile.
func (s *Store) RecordStoryboard(ctx context.Context, projectID, title string, shots int) error {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return errors.New("record storyboard: project id is required")
	}
	_, err := s.exec(ctx,
		`INSERT INTO storyboards (project_id, title, shots, created_at) VALUES (?, ?, ?, ?)
        ON CONFLICT(project_id) DO UPDATE SET
            title = excluded.title,
            shots = excluded.shots,
            created_at = excluded.created_at`,
		projectID, title, shots, now(),
	)
	if err != nil {
		return fmt.Errorf("record storyboard %s: %w", projectID, err)
	}
	return nil
}

// LatestStoryboard returns the most recently recorded storyboard project, or
// "" when none exists.
func (s *Store) LatestStoryboard(ctx context.Context) (string, error) {
	var projectID string
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT project_id FROM storyboards ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	).Scan(&projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest storyboard: %w", err)
	}
	return projectID, nil
}
