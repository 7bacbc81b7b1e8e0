package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var reviewColumns = []string{
	"account_id", "skill_id", "interval_hours", "repetitions",
	"ease_factor", "last_review_at", "next_review_at", "version",
}

func scanReview(sc interface{ Scan(...any) error }) (ReviewRecord, error) {
	var (
		rec        ReviewRecord
		lastReview int64
		nextReview int64
	)
	err := sc.Scan(&rec.AccountID, &rec.SkillID, &rec.IntervalHours, &rec.Repetitions,
		&rec.EaseFactor, &lastReview, &nextReview, &rec.Version)
	if err != nil {
		return ReviewRecord{}, err
	}
	rec.LastReviewAt = time.UnixMilli(lastReview).UTC()
	rec.NextReviewAt = time.UnixMilli(nextReview).UTC()
	return rec, nil
}

// GetReview implements ReviewRepo.
func (s *Store) GetReview(ctx context.Context, accountID, skillID string) (*ReviewRecord, error) {
	query, args := s.builder().Select(reviewColumns...).
		From(s.builder().Table(tableReviews)).
		Where(entsql.And(entsql.EQ("account_id", accountID), entsql.EQ("skill_id", skillID))).
		Query()

	rec, err := scanReview(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query review: %w", err)
	}
	return &rec, nil
}

// PutReview implements ReviewRepo.
func (s *Store) PutReview(ctx context.Context, rec ReviewRecord) error {
	update, updateArgs := s.builder().Update(tableReviews).
		Set("interval_hours", rec.IntervalHours).
		Set("repetitions", rec.Repetitions).
		Set("ease_factor", rec.EaseFactor).
		Set("last_review_at", rec.LastReviewAt.UnixMilli()).
		Set("next_review_at", rec.NextReviewAt.UnixMilli()).
		Set("version", rec.Version).
		Where(entsql.And(
			entsql.EQ("account_id", rec.AccountID),
			entsql.EQ("skill_id", rec.SkillID),
			entsql.EQ("version", rec.Version-1),
		)).
		Query()
	insert, insertArgs := s.builder().Insert(tableReviews).
		Columns(reviewColumns...).
		Values(rec.AccountID, rec.SkillID, rec.IntervalHours, rec.Repetitions,
			rec.EaseFactor, rec.LastReviewAt.UnixMilli(), rec.NextReviewAt.UnixMilli(), rec.Version).
		OnConflict(
			entsql.ConflictColumns("account_id", "skill_id"),
			entsql.DoNothing(),
		).
		Query()
	if err := execGuarded(ctx, s.db, update, updateArgs, insert, insertArgs); err != nil {
		return fmt.Errorf("save review: %w", err)
	}
	return nil
}

// DueReviews implements ReviewRepo.
func (s *Store) DueReviews(ctx context.Context, accountID string, now time.Time) ([]ReviewRecord, error) {
	query, args := s.builder().Select(reviewColumns...).
		From(s.builder().Table(tableReviews)).
		Where(entsql.And(
			entsql.EQ("account_id", accountID),
			entsql.LTE("next_review_at", now.UnixMilli()),
		)).
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query due reviews: %w", err)
	}
	defer rows.Close()

	var out []ReviewRecord
	for rows.Next() {
		rec, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return out, nil
}
