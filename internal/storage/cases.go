package storage

import (
	"context"
	"time"
)

type ModCase struct {
	ID          int64
	GuildID     string
	TargetID    string
	ModeratorID string
	Action      string
	Level       string
	Reason      string
	Duration    time.Duration
	CreatedAt   time.Time
}

type modCaseRow struct {
	ID          int64  `db:"id"`
	GuildID     string `db:"guild_id"`
	TargetID    string `db:"target_id"`
	ModeratorID string `db:"moderator_id"`
	Action      string `db:"action"`
	Level       string `db:"level"`
	Reason      string `db:"reason"`
	Duration    int64  `db:"duration_seconds"`
	CreatedAt   int64  `db:"created_at"`
}

func (r modCaseRow) toCase() ModCase {
	return ModCase{
		ID:          r.ID,
		GuildID:     r.GuildID,
		TargetID:    r.TargetID,
		ModeratorID: r.ModeratorID,
		Action:      r.Action,
		Level:       r.Level,
		Reason:      r.Reason,
		Duration:    time.Duration(r.Duration) * time.Second,
		CreatedAt:   time.Unix(r.CreatedAt, 0),
	}
}

// AddCase stores a moderation case and returns its case number.
func (s *Store) AddCase(ctx context.Context, c ModCase) (int64, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	var id int64
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(`
		INSERT INTO mod_cases (guild_id, target_id, moderator_id, action, level, reason, duration_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), c.GuildID, c.TargetID, c.ModeratorID, c.Action, c.Level, c.Reason,
		int64(c.Duration/time.Second), c.CreatedAt.Unix()).Scan(&id)
	return id, err
}

func (s *Store) ListCases(ctx context.Context, guildID string, since time.Time) ([]ModCase, error) {
	var rows []modCaseRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT id, guild_id, target_id, moderator_id, action, level, reason, duration_seconds, created_at
		FROM mod_cases
		WHERE guild_id = ? AND created_at >= ?
		ORDER BY created_at DESC, id DESC
	`), guildID, since.Unix())
	if err != nil {
		return nil, err
	}
	return toCases(rows), nil
}

func (s *Store) ListCasesForUser(ctx context.Context, guildID, targetID string, limit int) ([]ModCase, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []modCaseRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT id, guild_id, target_id, moderator_id, action, level, reason, duration_seconds, created_at
		FROM mod_cases
		WHERE guild_id = ? AND target_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`), guildID, targetID, limit)
	if err != nil {
		return nil, err
	}
	return toCases(rows), nil
}

func (s *Store) CountCasesByAction(ctx context.Context, guildID string, since time.Time) (map[string]int, error) {
	var rows []struct {
		Action string `db:"action"`
		Total  int    `db:"total"`
	}
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT action, COUNT(*) AS total
		FROM mod_cases
		WHERE guild_id = ? AND created_at >= ?
		GROUP BY action
	`), guildID, since.Unix())
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Action] = row.Total
	}
	return counts, nil
}

func (s *Store) CleanupCases(ctx context.Context, retentionDays int) error {
	cutoff := s.now().AddDate(0, 0, -retentionDays)
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM mod_cases WHERE created_at < ?`), cutoff.Unix())
	return err
}

func toCases(rows []modCaseRow) []ModCase {
	cases := make([]ModCase, 0, len(rows))
	for _, row := range rows {
		cases = append(cases, row.toCase())
	}
	return cases
}
