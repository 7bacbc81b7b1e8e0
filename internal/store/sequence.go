package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// sequenceCounter hands out the global monotonic sequence shared by the
// attempt log and the mastery event log, so entries of both kinds can be
// ordered against each other. The global_sequence row is seeded by the
// initial migration.
type sequenceCounter struct {
	mu sync.Mutex
}

type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Next atomically returns the next sequence number and increments the
// counter. q is the transaction the caller writes with, so a rolled back
// write also rolls back its sequence number.
func (sc *sequenceCounter) Next(ctx context.Context, q rowQueryer) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var seq int64
	err := q.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}
