package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

type UserRecord struct {
	UserID          string
	XP              int
	Tokens          int
	EventPoints     int
	XPMultiplier    float64
	TokenMultiplier float64
	ShopDiscount    float64
	BoostStartDate  *time.Time
	Badges          []string
	ColorRoleID     string
	EmblemRoleID    string
	RaffleEntries   int
	PouchesToday    int
	LastPouchDate   string
	XPLocked        bool
	XPLockUntil     *time.Time
	IsRestricted    bool
}

func defaultUser(userID string) UserRecord {
	return UserRecord{
		UserID:          userID,
		XPMultiplier:    1.0,
		TokenMultiplier: 1.0,
	}
}

func (s *Store) GetUser(ctx context.Context, userID string) (UserRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT xp, tokens, event_points, xp_multiplier, token_multiplier, shop_discount,
		boost_start_date, badges, color_role_id, emblem_role_id,
		raffle_entries, pouches_today, last_pouch_date, xp_locked, xp_lock_until, is_restricted
		FROM users WHERE user_id = ?`, userID)

	user := defaultUser(userID)
	var boostStart, lockUntil sql.NullInt64
	var badges string
	var locked, restricted int
	err := row.Scan(
		&user.XP,
		&user.Tokens,
		&user.EventPoints,
		&user.XPMultiplier,
		&user.TokenMultiplier,
		&user.ShopDiscount,
		&boostStart,
		&badges,
		&user.ColorRoleID,
		&user.EmblemRoleID,
		&user.RaffleEntries,
		&user.PouchesToday,
		&user.LastPouchDate,
		&locked,
		&lockUntil,
		&restricted,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user, nil
		}
		return UserRecord{}, err
	}
	if boostStart.Valid {
		value := time.Unix(boostStart.Int64, 0)
		user.BoostStartDate = &value
	}
	if lockUntil.Valid {
		value := time.Unix(lockUntil.Int64, 0)
		user.XPLockUntil = &value
	}
	if badges != "" {
		user.Badges = strings.Split(badges, ",")
	}
	user.XPLocked = locked == 1
	user.IsRestricted = restricted == 1
	return user, nil
}

func (s *Store) IncrementXP(ctx context.Context, userID string, amount int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, xp) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET xp = xp + excluded.xp
	`, userID, amount)
	return err
}

func (s *Store) AwardCurrency(ctx context.Context, userID string, xp, tokens, eventPoints int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, xp, tokens, event_points) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			xp = xp + excluded.xp,
			tokens = tokens + excluded.tokens,
			event_points = event_points + excluded.event_points
	`, userID, xp, tokens, eventPoints)
	return err
}

func (s *Store) SetXPLock(ctx context.Context, userID string, until time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, xp_locked, xp_lock_until) VALUES (?, 1, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			xp_locked = 1,
			xp_lock_until = excluded.xp_lock_until
	`, userID, until.Unix())
	return err
}

func (s *Store) ClearXPLock(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET xp_locked = 0, xp_lock_until = NULL WHERE user_id = ?
	`, userID)
	return err
}

// SetBoosterPerks writes tier-derived fields. boost_start_date is only set
// when no prior value exists, so promotions keep the original boost date.
func (s *Store) SetBoosterPerks(ctx context.Context, userID string, xpMult, tokenMult, discount float64, raffleEntries int, start time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, xp_multiplier, token_multiplier, shop_discount, raffle_entries, boost_start_date)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			xp_multiplier = excluded.xp_multiplier,
			token_multiplier = excluded.token_multiplier,
			shop_discount = excluded.shop_discount,
			raffle_entries = excluded.raffle_entries,
			boost_start_date = COALESCE(boost_start_date, excluded.boost_start_date)
	`, userID, xpMult, tokenMult, discount, raffleEntries, start.Unix())
	return err
}

func (s *Store) ResetBoosterPerks(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			xp_multiplier = 1.0,
			token_multiplier = 1.0,
			shop_discount = 0.0,
			raffle_entries = 0,
			boost_start_date = NULL,
			color_role_id = '',
			emblem_role_id = ''
		WHERE user_id = ?
	`, userID)
	return err
}

func (s *Store) SetColorRole(ctx context.Context, userID, roleID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, color_role_id) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET color_role_id = excluded.color_role_id
	`, userID, roleID)
	return err
}

func (s *Store) SetEmblemRole(ctx context.Context, userID, roleID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, emblem_role_id) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET emblem_role_id = excluded.emblem_role_id
	`, userID, roleID)
	return err
}

// AddBadge appends a badge label unless the user already holds it.
func (s *Store) AddBadge(ctx context.Context, userID, badge string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var badges string
	row := tx.QueryRowContext(ctx, `SELECT badges FROM users WHERE user_id = ?`, userID)
	scanErr := row.Scan(&badges)
	if scanErr != nil && !errors.Is(scanErr, sql.ErrNoRows) {
		err = scanErr
		return err
	}

	for _, existing := range strings.Split(badges, ",") {
		if existing == badge {
			return tx.Commit()
		}
	}
	if badges == "" {
		badges = badge
	} else {
		badges = badges + "," + badge
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (user_id, badges) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET badges = excluded.badges
	`, userID, badges)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) SetRestricted(ctx context.Context, userID string, restricted bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, is_restricted) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET is_restricted = excluded.is_restricted
	`, userID, boolToInt(restricted))
	return err
}

// WipeEconomy zeroes counters and perk fields; badges stay.
func (s *Store) WipeEconomy(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			xp = 0,
			tokens = 0,
			event_points = 0,
			xp_multiplier = 1.0,
			token_multiplier = 1.0,
			shop_discount = 0.0,
			raffle_entries = 0
		WHERE user_id = ?
	`, userID)
	return err
}

func (s *Store) ResetAllXP(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET xp = 0`)
	return err
}

type LeaderboardEntry struct {
	UserID string
	XP     int
}

func (s *Store) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, xp FROM users ORDER BY xp DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var entry LeaderboardEntry
		if err := rows.Scan(&entry.UserID, &entry.XP); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Rank returns the user's 1-based position by XP and their XP. Users with
// zero XP have no rank.
func (s *Store) Rank(ctx context.Context, userID string) (int, int, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	if user.XP == 0 {
		return 0, 0, nil
	}

	var rank int
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) + 1 FROM users WHERE xp > (SELECT xp FROM users WHERE user_id = ?)
	`, userID)
	if err := row.Scan(&rank); err != nil {
		return 0, user.XP, err
	}
	return rank, user.XP, nil
}
