package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

type Store struct {
	db      *sqlx.DB
	dialect string
	now     func() time.Time
}

type GuildSettings struct {
	GuildID       string `db:"guild_id"`
	ModLogChannel string `db:"mod_log_channel"`
	MutedRoleID   string `db:"muted_role_id"`
	DMEnabled     bool   `db:"-"`
}

// New opens a postgres database for postgres:// URLs and a SQLite file
// (or ":memory:") for anything else.
func New(databaseURL string) (*Store, error) {
	driver, dialect := "sqlite", DialectSQLite
	if isPostgresURL(databaseURL) {
		driver, dialect = "pgx", DialectPostgres
	}

	db, err := sqlx.Open(driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// one writer; also keeps ":memory:" on a single shared connection
		db.SetMaxOpenConns(1)
	}
	return &Store{db: db, dialect: dialect, now: time.Now}, nil
}

func (s *Store) Dialect() string {
	return s.dialect
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	dir := path.Join("migrations", s.dialect)
	entries, err := migrations.ReadDir(dir)
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join(dir, file))
		if err != nil {
			return err
		}
		for _, stmt := range splitStatements(string(content)) {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				if isIgnorableMigrationError(err) {
					continue
				}
				return fmt.Errorf("migration %s failed: %w", file, err)
			}
		}
	}
	return nil
}

// guildSettingsRow leaves dm_enabled NULL until the guild picks a value, so
// the configured default keeps applying.
type guildSettingsRow struct {
	GuildSettings
	DMEnabled sql.NullInt64 `db:"dm_enabled"`
}

func (s *Store) GetGuildSettings(ctx context.Context, guildID string, defaults GuildSettings) (GuildSettings, error) {
	var row guildSettingsRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT guild_id, mod_log_channel, muted_role_id, dm_enabled
		FROM guild_settings WHERE guild_id = ?`), guildID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			result := defaults
			result.GuildID = guildID
			return result, nil
		}
		return GuildSettings{}, err
	}

	result := row.GuildSettings
	result.DMEnabled = defaults.DMEnabled
	if row.DMEnabled.Valid {
		result.DMEnabled = row.DMEnabled.Int64 == 1
	}
	if result.ModLogChannel == "" {
		result.ModLogChannel = defaults.ModLogChannel
	}
	return result, nil
}

func (s *Store) SetModLogChannel(ctx context.Context, guildID, channelID string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO guild_settings (guild_id, mod_log_channel)
		VALUES (?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET mod_log_channel = excluded.mod_log_channel
	`), guildID, channelID)
	return err
}

func (s *Store) SetDMEnabled(ctx context.Context, guildID string, enabled bool) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO guild_settings (guild_id, dm_enabled)
		VALUES (?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET dm_enabled = excluded.dm_enabled
	`), guildID, boolToInt(enabled))
	return err
}

func (s *Store) SetMutedRole(ctx context.Context, guildID, roleID string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO guild_settings (guild_id, muted_role_id)
		VALUES (?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET muted_role_id = excluded.muted_role_id
	`), guildID, roleID)
	return err
}

func isPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

func splitStatements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
