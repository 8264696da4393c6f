package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"sequence_bot/internal/model"
	"sequence_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// GetSortMode returns the user's stored sort mode, or the default when the
// user has never chosen one.
func (s *SQLite) GetSortMode(ctx context.Context, userID int64) (model.SortMode, error) {
	var mode string
	err := s.db.QueryRowContext(ctx,
		`SELECT sort_mode FROM users WHERE user_id = ?`, userID,
	).Scan(&mode)
	if err == sql.ErrNoRows {
		return model.DefaultSortMode, nil
	}
	if err != nil {
		return model.DefaultSortMode, fmt.Errorf("query sort mode: %w", err)
	}
	return model.ParseSortMode(mode), nil
}

// SetSortMode stores the user's sort mode preference.
func (s *SQLite) SetSortMode(ctx context.Context, userID int64, mode model.SortMode) error {
	if err := s.upsertUser(ctx, userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET sort_mode = ?, updated_at = ? WHERE user_id = ?`,
		string(mode), now(), userID,
	)
	if err != nil {
		return fmt.Errorf("update sort mode: %w", err)
	}
	return nil
}

// GetDumpChat returns the user's configured dump destination. The second
// return value is false when none is set.
func (s *SQLite) GetDumpChat(ctx context.Context, userID int64) (int64, bool, error) {
	var chatID sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT dump_chat_id FROM users WHERE user_id = ?`, userID,
	).Scan(&chatID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query dump chat: %w", err)
	}
	if !chatID.Valid {
		return 0, false, nil
	}
	return chatID.Int64, true, nil
}

// SetDumpChat stores the user's dump destination.
func (s *SQLite) SetDumpChat(ctx context.Context, userID int64, chatID int64) error {
	if err := s.upsertUser(ctx, userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET dump_chat_id = ?, updated_at = ? WHERE user_id = ?`,
		chatID, now(), userID,
	)
	if err != nil {
		return fmt.Errorf("update dump chat: %w", err)
	}
	return nil
}

// RemoveDumpChat clears the user's dump destination.
func (s *SQLite) RemoveDumpChat(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET dump_chat_id = NULL, updated_at = ? WHERE user_id = ?`,
		now(), userID,
	)
	if err != nil {
		return fmt.Errorf("remove dump chat: %w", err)
	}
	return nil
}

// IncrementSequenceCount adds to the user's lifetime counter and refreshes
// the display name shown on the leaderboard.
func (s *SQLite) IncrementSequenceCount(ctx context.Context, userID int64, by int, displayName string) error {
	if err := s.upsertUser(ctx, userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET sequence_count = sequence_count + ?, display_name = ?, updated_at = ?
		 WHERE user_id = ?`,
		by, displayName, now(), userID,
	)
	if err != nil {
		return fmt.Errorf("increment sequence count: %w", err)
	}
	return nil
}

// GetSequenceCount returns the user's lifetime counter (0 when absent).
func (s *SQLite) GetSequenceCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT sequence_count FROM users WHERE user_id = ?`, userID,
	).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query sequence count: %w", err)
	}
	return count, nil
}

// TopSequencers returns up to n users ordered by counter descending. Ties
// keep stable storage order (user id ascending).
func (s *SQLite) TopSequencers(ctx context.Context, n int) ([]model.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, display_name, sequence_count FROM users
		 WHERE sequence_count > 0
		 ORDER BY sequence_count DESC, user_id ASC
		 LIMIT ?`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("query top sequencers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		var name sql.NullString
		if err := rows.Scan(&e.UserID, &name, &e.Count); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		e.DisplayName = name.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountUsersAbove returns how many users have a counter strictly greater
// than the given value.
func (s *SQLite) CountUsersAbove(ctx context.Context, count int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE sequence_count > ?`, count,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count users above: %w", err)
	}
	return n, nil
}

func (s *SQLite) upsertUser(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, sort_mode, sequence_count, created_at, updated_at)
		 VALUES (?, ?, 0, ?, ?)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID, string(model.DefaultSortMode), now(), now(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(timeLayout)
}
