package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const CategoryWarn = "warn"

type UserInfraction struct {
	GuildID    string
	UserID     string
	Category   string
	CountTotal int
	LastAt     time.Time
	LastAction string
	ResetAt    *time.Time
}

type infractionRow struct {
	GuildID    string        `db:"guild_id"`
	UserID     string        `db:"user_id"`
	Category   string        `db:"category"`
	CountTotal int           `db:"count_total"`
	LastAt     int64         `db:"last_at"`
	LastAction string        `db:"last_action"`
	ResetAt    sql.NullInt64 `db:"reset_at"`
}

// GetInfraction returns the live count for a member; a count whose
// forgiveness deadline has passed reads as zero.
func (s *Store) GetInfraction(ctx context.Context, guildID, userID, category string) (UserInfraction, error) {
	var row infractionRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT guild_id, user_id, category, count_total, last_at, COALESCE(last_action, '') AS last_action, reset_at
		FROM user_infractions
		WHERE guild_id = ? AND user_id = ? AND category = ?
	`), guildID, userID, category)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UserInfraction{GuildID: guildID, UserID: userID, Category: category}, nil
		}
		return UserInfraction{}, err
	}

	inf := UserInfraction{
		GuildID:    row.GuildID,
		UserID:     row.UserID,
		Category:   row.Category,
		CountTotal: row.CountTotal,
		LastAt:     time.Unix(row.LastAt, 0),
		LastAction: row.LastAction,
	}
	if row.ResetAt.Valid {
		value := time.Unix(row.ResetAt.Int64, 0)
		inf.ResetAt = &value
		if !s.now().Before(value) {
			inf.CountTotal = 0
		}
	}
	return inf, nil
}

func (s *Store) IncrementInfraction(ctx context.Context, guildID, userID, category, lastAction string, forgiveAfter time.Duration) (int, error) {
	now := s.now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current struct {
		CountTotal int           `db:"count_total"`
		ResetAt    sql.NullInt64 `db:"reset_at"`
	}
	scanErr := tx.GetContext(ctx, &current, tx.Rebind(`
		SELECT count_total, reset_at
		FROM user_infractions
		WHERE guild_id = ? AND user_id = ? AND category = ?
	`), guildID, userID, category)
	if scanErr != nil && !errors.Is(scanErr, sql.ErrNoRows) {
		err = scanErr
		return 0, err
	}
	count := current.CountTotal
	if scanErr == nil && current.ResetAt.Valid && now.Unix() >= current.ResetAt.Int64 {
		count = 0
	}

	count++
	var nextReset any
	if forgiveAfter > 0 {
		nextReset = now.Add(forgiveAfter).Unix()
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO user_infractions (guild_id, user_id, category, count_total, last_at, last_action, reset_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id, category) DO UPDATE SET
			count_total = excluded.count_total,
			last_at = excluded.last_at,
			last_action = excluded.last_action,
			reset_at = excluded.reset_at
	`), guildID, userID, category, count, now.Unix(), lastAction, nextReset)
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

// ResetInfraction clears a member's counter, used once a threshold
// punishment has been issued.
func (s *Store) ResetInfraction(ctx context.Context, guildID, userID, category string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		DELETE FROM user_infractions
		WHERE guild_id = ? AND user_id = ? AND category = ?
	`), guildID, userID, category)
	return err
}
