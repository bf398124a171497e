package directory

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bingwamta/databot/core/logger"
)

// SQLStore keeps the directory in a users table. The same queries serve
// PostgreSQL and SQLite; sqlx rebinds placeholders for the driver in use.
type SQLStore struct {
	db    *sqlx.DB
	now   func() time.Time
	owned bool
}

// NewSQLStore wraps an open pool whose schema is already in place. The
// caller keeps ownership of db.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

type userRow struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	FirstName    string `db:"first_name"`
	LastName     string `db:"last_name"`
	JoinedAt     dbTime `db:"joined_at"`
	LastActiveAt dbTime `db:"last_active_at"`
}

func (r userRow) profile() Profile {
	return Profile{
		ID:           r.ID,
		Username:     r.Username,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		JoinedAt:     time.Time(r.JoinedAt),
		LastActiveAt: time.Time(r.LastActiveAt),
	}
}

const (
	upsertUserSQL = `
INSERT INTO users (id, username, first_name, last_name, joined_at, last_active_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    username = excluded.username,
    first_name = excluded.first_name,
    last_name = excluded.last_name,
    last_active_at = excluded.last_active_at`

	selectUserSQL = `
SELECT id, username, first_name, last_name, joined_at, last_active_at
FROM users WHERE id = ?`

	listUsersSQL = `
SELECT id, username, first_name, last_name, joined_at, last_active_at
FROM users ORDER BY joined_at, id`

	countUsersSQL = `SELECT COUNT(*) FROM users`

	statsUsersSQL = `
SELECT
    COUNT(*) AS total,
    COALESCE(SUM(CASE WHEN last_active_at >= ? THEN 1 ELSE 0 END), 0) AS active,
    COALESCE(SUM(CASE WHEN joined_at >= ? THEN 1 ELSE 0 END), 0) AS joined
FROM users`
)

// Upsert implements Directory.
func (s *SQLStore) Upsert(ctx context.Context, id Identity) (Profile, error) {
	now := dbTime(s.now().UTC())
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(upsertUserSQL),
		id.ID, id.Username, id.FirstName, id.LastName, now, now,
	); err != nil {
		logger.DB.LogAttrs(ctx, slog.LevelError, "upsert failed",
			slog.String("event", "directory.upsert"),
			slog.Int64("user_id", id.ID),
			logger.Err(err),
		)
		return Profile{}, fmt.Errorf("upsert user %d: %w", id.ID, err)
	}
	return s.Get(ctx, id.ID)
}

// Get implements Directory.
func (s *SQLStore) Get(ctx context.Context, userID int64) (Profile, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(selectUserSQL), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("get user %d: %w", userID, err)
	}
	return row.profile(), nil
}

// List implements Directory. Profiles come back in registration order.
func (s *SQLStore) List(ctx context.Context) ([]Profile, error) {
	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, listUsersSQL); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]Profile, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.profile())
	}
	return out, nil
}

// Count implements Directory.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, countUsersSQL); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// Stats implements Directory.
func (s *SQLStore) Stats(ctx context.Context, now time.Time) (Stats, error) {
	var row struct {
		Total  int `db:"total"`
		Active int `db:"active"`
		Joined int `db:"joined"`
	}
	err := s.db.GetContext(ctx, &row, s.db.Rebind(statsUsersSQL),
		dbTime(now.Add(-activeWindow)), dbTime(now.Add(-joinedWindow)),
	)
	if err != nil {
		return Stats{}, fmt.Errorf("user stats: %w", err)
	}
	return Stats{Total: row.Total, ActiveLastDay: row.Active, JoinedLastWeek: row.Joined}, nil
}

// Close releases the pool when the store opened it itself.
func (s *SQLStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// dbTime is written as fixed-width UTC text so that SQLite compares it
// lexically in the same order PostgreSQL compares timestamptz values.
type dbTime time.Time

const dbTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var dbTimeParseLayouts = []string{
	dbTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
}

// Value implements driver.Valuer.
func (t dbTime) Value() (driver.Value, error) {
	return time.Time(t).UTC().Format(dbTimeLayout), nil
}

// Scan implements sql.Scanner.
func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = dbTime{}
		return nil
	case time.Time:
		*t = dbTime(v.UTC())
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("directory: cannot scan %T into time", src)
	}
}

func (t *dbTime) parse(s string) error {
	for _, layout := range dbTimeParseLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			*t = dbTime(v.UTC())
			return nil
		}
	}
	return fmt.Errorf("directory: unrecognised time %q", s)
}
