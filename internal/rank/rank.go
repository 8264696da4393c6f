// Package rank builds the sequence-count leaderboard from durable counters.
package rank

import (
	"context"
	"fmt"

	"sequence_bot/internal/model"
)

// CounterStore is the slice of storage the leaderboard needs.
type CounterStore interface {
	TopSequencers(ctx context.Context, n int) ([]model.LeaderboardEntry, error)
	GetSequenceCount(ctx context.Context, userID int64) (int64, error)
	CountUsersAbove(ctx context.Context, count int64) (int, error)
}

// Leaderboard answers top-N and single-user rank queries.
type Leaderboard struct {
	store CounterStore
}

// New creates a Leaderboard over the given counter store.
func New(store CounterStore) *Leaderboard {
	return &Leaderboard{store: store}
}

// Top returns up to n entries ordered by count descending; ties keep
// stable storage order.
func (l *Leaderboard) Top(ctx context.Context, n int) ([]model.LeaderboardEntry, error) {
	entries, err := l.store.TopSequencers(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("top sequencers: %w", err)
	}
	return entries, nil
}

// RankOf returns the user's 1-based rank: one plus the number of users
// with a strictly greater counter. Users with a zero or absent counter
// have no rank (ok is false). This is a point query, not a scan of the
// full population.
func (l *Leaderboard) RankOf(ctx context.Context, userID int64) (rank int, count int64, ok bool, err error) {
	count, err = l.store.GetSequenceCount(ctx, userID)
	if err != nil {
		return 0, 0, false, fmt.Errorf("sequence count: %w", err)
	}
	if count == 0 {
		return 0, 0, false, nil
	}
	above, err := l.store.CountUsersAbove(ctx, count)
	if err != nil {
		return 0, 0, false, fmt.Errorf("count users above: %w", err)
	}
	return above + 1, count, true, nil
}
