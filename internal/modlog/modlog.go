// Package modlog records moderation actions to the database and the
// process log, and optionally forwards each entry to a channel
// notifier.
package modlog

import (
	"context"
	"time"

	"hearthwarden/internal/storage"

	"go.uber.org/zap"
)

const (
	ActionWarn       = "warn"
	ActionMute       = "mute"
	ActionUnmute     = "unmute"
	ActionKick       = "kick"
	ActionBan        = "ban"
	ActionUnban      = "unban"
	ActionRestrict   = "restrict"
	ActionUnrestrict = "unrestrict"
)

type Logger struct {
	store  *storage.Store
	logger *zap.Logger
	notify func(context.Context, storage.ModLog)
}

func NewLogger(store *storage.Store, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger}
}

func (l *Logger) SetNotifier(notify func(context.Context, storage.ModLog)) {
	l.notify = notify
}

// Record persists the action and returns the new case ID. The entry is
// forwarded to the notifier and echoed to the process log either way;
// a storage failure must not hide a moderation action from operators.
func (l *Logger) Record(ctx context.Context, actionType, moderatorID, targetID, reason string) (int64, error) {
	entry := storage.ModLog{
		ActionType:  actionType,
		ModeratorID: moderatorID,
		TargetID:    targetID,
		Reason:      reason,
		CreatedAt:   time.Now(),
	}

	var id int64
	var err error
	if l.store != nil {
		id, err = l.store.AddModLog(ctx, entry)
		entry.ID = id
	}
	if l.notify != nil {
		l.notify(ctx, entry)
	}
	l.logger.Info("mod action",
		zap.String("action", actionType),
		zap.String("moderator_id", moderatorID),
		zap.String("target_id", targetID),
		zap.String("reason", reason),
		zap.Int64("case_id", id))
	return id, err
}

// History returns the most recent actions taken against a member.
func (l *Logger) History(ctx context.Context, targetID string, limit int) ([]storage.ModLog, error) {
	return l.store.ModLogsByTarget(ctx, targetID, limit)
}

// ModeratorHistory returns the most recent actions a moderator took.
func (l *Logger) ModeratorHistory(ctx context.Context, moderatorID string, limit int) ([]storage.ModLog, error) {
	return l.store.ModLogsByModerator(ctx, moderatorID, limit)
}

// WarnCount counts warnings on record for a member.
func (l *Logger) WarnCount(ctx context.Context, targetID string) (int, error) {
	return l.store.CountModLogs(ctx, targetID, ActionWarn)
}
