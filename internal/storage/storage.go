// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"

	"sequence_bot/internal/model"
)

// Storage is the interface for all persistence operations. Per-user
// preferences and lifetime counters are durable; collection sessions are
// deliberately not stored here.
type Storage interface {
	GetSortMode(ctx context.Context, userID int64) (model.SortMode, error)
	SetSortMode(ctx context.Context, userID int64, mode model.SortMode) error

	GetDumpChat(ctx context.Context, userID int64) (int64, bool, error)
	SetDumpChat(ctx context.Context, userID int64, chatID int64) error
	RemoveDumpChat(ctx context.Context, userID int64) error

	IncrementSequenceCount(ctx context.Context, userID int64, by int, displayName string) error
	GetSequenceCount(ctx context.Context, userID int64) (int64, error)
	TopSequencers(ctx context.Context, n int) ([]model.LeaderboardEntry, error)
	CountUsersAbove(ctx context.Context, count int64) (int, error)

	Close() error
}
