package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// AppendMasteryEvent implements EventRepo.
func (s *Store) AppendMasteryEvent(ctx context.Context, ev MasteryEventRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	seqNum, err := s.seq.Next(ctx, tx)
	if err != nil {
		return err
	}

	query, args := s.builder().Insert(tableEvents).
		Columns("sequence", "account_id", "skill_id", "from_level", "to_level", "probability", "created_at").
		Values(seqNum, ev.AccountID, ev.SkillID, ev.FromLevel, ev.ToLevel, ev.Probability, ev.Timestamp.UnixMilli()).
		Query()
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save mastery event: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListMasteryEvents implements EventRepo.
func (s *Store) ListMasteryEvents(ctx context.Context, accountID string, opts QueryOpts) ([]MasteryEventRecord, error) {
	query, args := s.builder().
		Select("sequence", "account_id", "skill_id", "from_level", "to_level", "probability", "created_at").
		From(s.builder().Table(tableEvents)).
		Where(timeWindow(accountID, opts)).
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mastery events: %w", err)
	}
	defer rows.Close()

	var out []MasteryEventRecord
	for rows.Next() {
		var (
			ev        MasteryEventRecord
			createdAt int64
		)
		if err := rows.Scan(&ev.Sequence, &ev.AccountID, &ev.SkillID, &ev.FromLevel, &ev.ToLevel, &ev.Probability, &createdAt); err != nil {
			return nil, fmt.Errorf("scan mastery event: %w", err)
		}
		ev.Timestamp = time.UnixMilli(createdAt).UTC()
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mastery events: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return limitTail(out, opts.Limit), nil
}

// EraseAccount implements Eraser.
func (s *Store) EraseAccount(ctx context.Context, accountID string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{tableMastery, tableAttempts, tableReviews, tableEvents} {
		query, args := s.builder().Delete(table).Where(entsql.EQ("account_id", accountID)).Query()
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("erase %s: %w", table, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
