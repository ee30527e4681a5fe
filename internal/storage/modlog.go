package storage

import (
	"context"
	"database/sql"
	"time"
)

type ModLog struct {
	ID          int64
	ActionType  string
	ModeratorID string
	TargetID    string
	Reason      string
	CreatedAt   time.Time
}

func (s *Store) AddModLog(ctx context.Context, entry ModLog) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO mod_logs (action_type, moderator_id, target_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.ActionType, entry.ModeratorID, entry.TargetID, entry.Reason, entry.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *Store) ModLogsByTarget(ctx context.Context, targetID string, limit int) ([]ModLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action_type, moderator_id, target_id, reason, created_at
		FROM mod_logs
		WHERE target_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, targetID, limit)
	if err != nil {
		return nil, err
	}
	return scanModLogs(rows)
}

func (s *Store) ModLogsByModerator(ctx context.Context, moderatorID string, limit int) ([]ModLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action_type, moderator_id, target_id, reason, created_at
		FROM mod_logs
		WHERE moderator_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, moderatorID, limit)
	if err != nil {
		return nil, err
	}
	return scanModLogs(rows)
}

// CountModLogs counts actions against a target, optionally filtered by type.
func (s *Store) CountModLogs(ctx context.Context, targetID, actionType string) (int, error) {
	var count int
	var err error
	if actionType == "" {
		err = s.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM mod_logs WHERE target_id = ?
		`, targetID).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM mod_logs WHERE target_id = ? AND action_type = ?
		`, targetID, actionType).Scan(&count)
	}
	return count, err
}

func (s *Store) ModLogsSince(ctx context.Context, since time.Time) ([]ModLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action_type, moderator_id, target_id, reason, created_at
		FROM mod_logs
		WHERE created_at >= ?
		ORDER BY created_at DESC, id DESC
	`, since.Unix())
	if err != nil {
		return nil, err
	}
	return scanModLogs(rows)
}

func scanModLogs(rows *sql.Rows) ([]ModLog, error) {
	defer rows.Close()

	var logs []ModLog
	for rows.Next() {
		var log ModLog
		var created int64
		if err := rows.Scan(&log.ID, &log.ActionType, &log.ModeratorID, &log.TargetID, &log.Reason, &created); err != nil {
			return nil, err
		}
		log.CreatedAt = time.Unix(created, 0)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
