package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var masteryColumns = []string{
	"account_id", "skill_id", "probability", "attempts",
	"correct_attempts", "is_mastered", "updated_at",
}

func scanMastery(sc interface{ Scan(...any) error }) (MasteryRecord, error) {
	var (
		rec       MasteryRecord
		mastered  int64
		updatedAt int64
	)
	err := sc.Scan(&rec.AccountID, &rec.SkillID, &rec.Probability, &rec.Attempts,
		&rec.CorrectAttempts, &mastered, &updatedAt)
	if err != nil {
		return MasteryRecord{}, err
	}
	rec.IsMastered = mastered != 0
	rec.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return rec, nil
}

// GetMastery implements MasteryRepo.
func (s *Store) GetMastery(ctx context.Context, accountID, skillID string) (*MasteryRecord, error) {
	query, args := s.builder().Select(masteryColumns...).
		From(s.builder().Table(tableMastery)).
		Where(entsql.And(entsql.EQ("account_id", accountID), entsql.EQ("skill_id", skillID))).
		Query()

	rec, err := scanMastery(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query mastery: %w", err)
	}
	return &rec, nil
}

// PutMastery implements MasteryRepo. The guarded state write and the
// attempt insert share one transaction.
func (s *Store) PutMastery(ctx context.Context, rec MasteryRecord, attempt AttemptRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	update, updateArgs := s.builder().Update(tableMastery).
		Set("probability", rec.Probability).
		Set("attempts", rec.Attempts).
		Set("correct_attempts", rec.CorrectAttempts).
		Set("is_mastered", boolToInt(rec.IsMastered)).
		Set("updated_at", rec.UpdatedAt.UnixMilli()).
		Where(entsql.And(
			entsql.EQ("account_id", rec.AccountID),
			entsql.EQ("skill_id", rec.SkillID),
			entsql.EQ("attempts", rec.Attempts-1),
		)).
		Query()
	insert, insertArgs := s.builder().Insert(tableMastery).
		Columns(masteryColumns...).
		Values(rec.AccountID, rec.SkillID, rec.Probability, rec.Attempts,
			rec.CorrectAttempts, boolToInt(rec.IsMastered), rec.UpdatedAt.UnixMilli()).
		OnConflict(
			entsql.ConflictColumns("account_id", "skill_id"),
			entsql.DoNothing(),
		).
		Query()
	if err = execGuarded(ctx, tx, update, updateArgs, insert, insertArgs); err != nil {
		return fmt.Errorf("save mastery: %w", err)
	}

	seq, err := s.seq.Next(ctx, tx)
	if err != nil {
		return err
	}
	query, args := s.builder().Insert(tableAttempts).
		Columns("sequence", "id", "account_id", "skill_id", "is_correct", "time_spent_ms", "created_at").
		Values(seq, attempt.ID, attempt.AccountID, attempt.SkillID,
			boolToInt(attempt.IsCorrect), attempt.TimeSpentMs, attempt.Timestamp.UnixMilli()).
		Query()
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListMastery implements HistoryRepo.
func (s *Store) ListMastery(ctx context.Context, accountID string) ([]MasteryRecord, error) {
	query, args := s.builder().Select(masteryColumns...).
		From(s.builder().Table(tableMastery)).
		Where(entsql.EQ("account_id", accountID)).
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mastery: %w", err)
	}
	defer rows.Close()

	var out []MasteryRecord
	for rows.Next() {
		rec, err := scanMastery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mastery: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mastery: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SkillID < out[j].SkillID })
	return out, nil
}

// ListAttempts implements HistoryRepo.
func (s *Store) ListAttempts(ctx context.Context, accountID string, opts QueryOpts) ([]AttemptRecord, error) {
	query, args := s.builder().
		Select("sequence", "id", "account_id", "skill_id", "is_correct", "time_spent_ms", "created_at").
		From(s.builder().Table(tableAttempts)).
		Where(timeWindow(accountID, opts)).
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptRecord
	for rows.Next() {
		var (
			a         AttemptRecord
			correct   int64
			createdAt int64
		)
		if err := rows.Scan(&a.Sequence, &a.ID, &a.AccountID, &a.SkillID, &correct, &a.TimeSpentMs, &createdAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.IsCorrect = correct != 0
		a.Timestamp = time.UnixMilli(createdAt).UTC()
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return limitTail(out, opts.Limit), nil
}

// timeWindow builds the account + created_at predicate for opts.
func timeWindow(accountID string, opts QueryOpts) *entsql.Predicate {
	preds := []*entsql.Predicate{entsql.EQ("account_id", accountID)}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("created_at", opts.From.UnixMilli()))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("created_at", opts.To.UnixMilli()))
	}
	return entsql.And(preds...)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execGuarded applies a compare-and-set write: update must only match the
// row the caller read, insert must do nothing when the row exists. If
// neither touches a row, another writer got there first.
func execGuarded(ctx context.Context, ex execer, update string, updateArgs []any, insert string, insertArgs []any) error {
	for _, q := range []struct {
		query string
		args  []any
	}{{update, updateArgs}, {insert, insertArgs}} {
		res, err := ex.ExecContext(ctx, q.query, q.args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
	}
	return ErrConflict
}

// limitTail keeps the last n elements when n > 0.
func limitTail[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[len(items)-n:]
	}
	return items
}
