// Package storetest holds behaviour tests every store.Backend must pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/store"
)

// Factory returns a fresh, empty backend. Cleanup is the factory's job.
type Factory func(t *testing.T) store.Backend

var base = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// Run executes the suite against backends produced by newBackend.
func Run(t *testing.T, newBackend Factory) {
	t.Run("MasteryRoundTrip", func(t *testing.T) { testMasteryRoundTrip(t, newBackend(t)) })
	t.Run("DuplicateAttemptRejected", func(t *testing.T) { testDuplicateAttempt(t, newBackend(t)) })
	t.Run("Attempts", func(t *testing.T) { testAttempts(t, newBackend(t)) })
	t.Run("Reviews", func(t *testing.T) { testReviews(t, newBackend(t)) })
	t.Run("Events", func(t *testing.T) { testEvents(t, newBackend(t)) })
	t.Run("EraseAccount", func(t *testing.T) { testErase(t, newBackend(t)) })
	t.Run("StaleWriteRejected", func(t *testing.T) { testStaleWrite(t, newBackend(t)) })
	t.Run("ColonIDs", func(t *testing.T) { testColonIDs(t, newBackend(t)) })
}

func attempt(id, account, skill string, correct bool, ts time.Time) store.AttemptRecord {
	return store.AttemptRecord{
		ID: id, AccountID: account, SkillID: skill,
		IsCorrect: correct, TimeSpentMs: 1500, Timestamp: ts,
	}
}

func testMasteryRoundTrip(t *testing.T, b store.Backend) {
	ctx := context.Background()

	got, err := b.GetMastery(ctx, "acct", "algebra.linear")
	require.NoError(t, err)
	assert.Nil(t, got, "absent state should be nil")

	rec := store.MasteryRecord{
		AccountID: "acct", SkillID: "algebra.linear",
		Probability: 0.6, Attempts: 1, CorrectAttempts: 1, UpdatedAt: base,
	}
	require.NoError(t, b.PutMastery(ctx, rec, attempt("a1", "acct", "algebra.linear", true, base)))

	rec.Probability = 0.92
	rec.Attempts = 2
	rec.CorrectAttempts = 2
	rec.IsMastered = true
	rec.UpdatedAt = base.Add(time.Minute)
	require.NoError(t, b.PutMastery(ctx, rec, attempt("a2", "acct", "algebra.linear", true, base.Add(time.Minute))))

	got, err = b.GetMastery(ctx, "acct", "algebra.linear")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 0.92, got.Probability, 1e-9)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, 2, got.CorrectAttempts)
	assert.True(t, got.IsMastered)
	assert.True(t, got.UpdatedAt.Equal(base.Add(time.Minute)), "updated at = %v", got.UpdatedAt)

	list, err := b.ListMastery(ctx, "acct")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	other, err := b.ListMastery(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func testDuplicateAttempt(t *testing.T, b store.Backend) {
	ctx := context.Background()
	rec := store.MasteryRecord{AccountID: "acct", SkillID: "s", Probability: 0.6, Attempts: 1, UpdatedAt: base}
	require.NoError(t, b.PutMastery(ctx, rec, attempt("dup", "acct", "s", true, base)))

	rec.Probability = 0.7
	rec.Attempts = 2
	err := b.PutMastery(ctx, rec, attempt("dup", "acct", "s", true, base))
	require.Error(t, err)

	got, err := b.GetMastery(ctx, "acct", "s")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 0.6, got.Probability, 1e-9, "failed write must not change state")
	assert.Equal(t, 1, got.Attempts)
}

func testAttempts(t *testing.T, b store.Backend) {
	ctx := context.Background()
	for i, correct := range []bool{true, false, true, false} {
		ts := base.Add(time.Duration(i) * 24 * time.Hour)
		rec := store.MasteryRecord{AccountID: "acct", SkillID: "s", Probability: 0.5, Attempts: i + 1, UpdatedAt: ts}
		id := string(rune('a' + i))
		require.NoError(t, b.PutMastery(ctx, rec, attempt(id, "acct", "s", correct, ts)))
	}
	require.NoError(t, b.PutMastery(ctx,
		store.MasteryRecord{AccountID: "other", SkillID: "s", Probability: 0.5, Attempts: 1, UpdatedAt: base},
		attempt("z", "other", "s", true, base)))

	all, err := b.ListAttempts(ctx, "acct", store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i].Sequence, all[i-1].Sequence, "attempts must be oldest first")
	}
	assert.Equal(t, "a", all[0].ID)
	assert.True(t, all[0].IsCorrect)
	assert.False(t, all[1].IsCorrect)
	assert.Equal(t, int64(1500), all[0].TimeSpentMs)

	window, err := b.ListAttempts(ctx, "acct", store.QueryOpts{
		From: base.Add(24 * time.Hour),
		To:   base.Add(2 * 24 * time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "b", window[0].ID)
	assert.Equal(t, "c", window[1].ID)

	last, err := b.ListAttempts(ctx, "acct", store.QueryOpts{Limit: 1})
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "d", last[0].ID)
}

func testReviews(t *testing.T, b store.Backend) {
	ctx := context.Background()

	got, err := b.GetReview(ctx, "acct", "english.vocab")
	require.NoError(t, err)
	assert.Nil(t, got)

	due := store.ReviewRecord{
		AccountID: "acct", SkillID: "english.vocab", IntervalHours: 2,
		Repetitions: 1, EaseFactor: 2.5, LastReviewAt: base, NextReviewAt: base.Add(2 * time.Hour),
	}
	later := due
	later.SkillID = "english.grammar"
	later.NextReviewAt = base.Add(48 * time.Hour)
	require.NoError(t, b.PutReview(ctx, due))
	require.NoError(t, b.PutReview(ctx, later))

	got, err = b.GetReview(ctx, "acct", "english.vocab")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 2.0, got.IntervalHours, 1e-9)
	assert.Equal(t, 1, got.Repetitions)
	assert.True(t, got.NextReviewAt.Equal(base.Add(2*time.Hour)))

	list, err := b.DueReviews(ctx, "acct", base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, list, 1, "boundary NextReviewAt == now is due")
	assert.Equal(t, "english.vocab", list[0].SkillID)

	due.Repetitions = 0
	due.Version = 1
	due.NextReviewAt = base.Add(72 * time.Hour)
	require.NoError(t, b.PutReview(ctx, due))
	list, err = b.DueReviews(ctx, "acct", base.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func testEvents(t *testing.T, b store.Backend) {
	ctx := context.Background()
	require.NoError(t, b.AppendMasteryEvent(ctx, store.MasteryEventRecord{
		AccountID: "acct", SkillID: "s", FromLevel: "beginner", ToLevel: "learning", Probability: 0.6, Timestamp: base,
	}))
	require.NoError(t, b.AppendMasteryEvent(ctx, store.MasteryEventRecord{
		AccountID: "acct", SkillID: "s", FromLevel: "learning", ToLevel: "mastered", Probability: 0.91, Timestamp: base.Add(time.Hour),
	}))

	events, err := b.ListMasteryEvents(ctx, "acct", store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "learning", events[0].ToLevel)
	assert.Equal(t, "mastered", events[1].ToLevel)
	assert.Greater(t, events[1].Sequence, events[0].Sequence)
}

func testErase(t *testing.T, b store.Backend) {
	ctx := context.Background()
	for _, acct := range []string{"gone", "kept"} {
		require.NoError(t, b.PutMastery(ctx,
			store.MasteryRecord{AccountID: acct, SkillID: "s", Probability: 0.6, Attempts: 1, UpdatedAt: base},
			attempt(acct+"-1", acct, "s", true, base)))
		require.NoError(t, b.PutReview(ctx, store.ReviewRecord{
			AccountID: acct, SkillID: "s", IntervalHours: 1, EaseFactor: 2.5, LastReviewAt: base, NextReviewAt: base,
		}))
		require.NoError(t, b.AppendMasteryEvent(ctx, store.MasteryEventRecord{
			AccountID: acct, SkillID: "s", FromLevel: "beginner", ToLevel: "learning", Probability: 0.6, Timestamp: base,
		}))
	}

	require.NoError(t, b.EraseAccount(ctx, "gone"))

	m, err := b.GetMastery(ctx, "gone", "s")
	require.NoError(t, err)
	assert.Nil(t, m)
	r, err := b.GetReview(ctx, "gone", "s")
	require.NoError(t, err)
	assert.Nil(t, r)
	attempts, err := b.ListAttempts(ctx, "gone", store.QueryOpts{})
	require.NoError(t, err)
	assert.Empty(t, attempts)
	events, err := b.ListMasteryEvents(ctx, "gone", store.QueryOpts{})
	require.NoError(t, err)
	assert.Empty(t, events)

	kept, err := b.GetMastery(ctx, "kept", "s")
	require.NoError(t, err)
	assert.NotNil(t, kept)
	keptAttempts, err := b.ListAttempts(ctx, "kept", store.QueryOpts{})
	require.NoError(t, err)
	assert.Len(t, keptAttempts, 1)
}

func testStaleWrite(t *testing.T, b store.Backend) {
	ctx := context.Background()
	rec := store.MasteryRecord{AccountID: "acct", SkillID: "s", Probability: 0.6, Attempts: 1, UpdatedAt: base}
	require.NoError(t, b.PutMastery(ctx, rec, attempt("a1", "acct", "s", true, base)))
	rec.Probability = 0.8
	rec.Attempts = 2
	require.NoError(t, b.PutMastery(ctx, rec, attempt("a2", "acct", "s", true, base)))

	// Derived from the Attempts=1 state that has since been replaced.
	stale := store.MasteryRecord{AccountID: "acct", SkillID: "s", Probability: 0.4, Attempts: 2, UpdatedAt: base}
	err := b.PutMastery(ctx, stale, attempt("a3", "acct", "s", false, base))
	require.ErrorIs(t, err, store.ErrConflict)

	got, err := b.GetMastery(ctx, "acct", "s")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 0.8, got.Probability, 1e-9)
	assert.Equal(t, 2, got.Attempts)
	attempts, err := b.ListAttempts(ctx, "acct", store.QueryOpts{})
	require.NoError(t, err)
	assert.Len(t, attempts, 2, "rejected write must not log its attempt")

	// The rejected attempt ID stays usable.
	rec.Attempts = 3
	require.NoError(t, b.PutMastery(ctx, rec, attempt("a3", "acct", "s", false, base)))

	review := store.ReviewRecord{
		AccountID: "acct", SkillID: "s", IntervalHours: 1, Repetitions: 1, EaseFactor: 2.5,
		LastReviewAt: base, NextReviewAt: base.Add(time.Hour), Version: 1,
	}
	require.NoError(t, b.PutReview(ctx, review))
	review.Version = 2
	review.Repetitions = 2
	require.NoError(t, b.PutReview(ctx, review))

	review.Version = 2
	review.Repetitions = 9
	require.ErrorIs(t, b.PutReview(ctx, review), store.ErrConflict)

	gotReview, err := b.GetReview(ctx, "acct", "s")
	require.NoError(t, err)
	require.NotNil(t, gotReview)
	assert.Equal(t, 2, gotReview.Repetitions)
	assert.Equal(t, int64(2), gotReview.Version)
}

func testColonIDs(t *testing.T, b store.Backend) {
	ctx := context.Background()
	require.NoError(t, b.PutMastery(ctx,
		store.MasteryRecord{AccountID: "a:b", SkillID: "c", Probability: 0.3, Attempts: 1, UpdatedAt: base},
		attempt("x1", "a:b", "c", false, base)))
	require.NoError(t, b.PutMastery(ctx,
		store.MasteryRecord{AccountID: "a", SkillID: "b:c", Probability: 0.7, Attempts: 1, UpdatedAt: base},
		attempt("x2", "a", "b:c", true, base)))
	for _, r := range []store.ReviewRecord{
		{AccountID: "a:b", SkillID: "c", IntervalHours: 1, EaseFactor: 2.5, LastReviewAt: base, NextReviewAt: base},
		{AccountID: "a", SkillID: "b:c", IntervalHours: 2, EaseFactor: 2.5, LastReviewAt: base, NextReviewAt: base},
	} {
		require.NoError(t, b.PutReview(ctx, r))
	}

	first, err := b.GetMastery(ctx, "a:b", "c")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.InDelta(t, 0.3, first.Probability, 1e-9)
	second, err := b.GetMastery(ctx, "a", "b:c")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.InDelta(t, 0.7, second.Probability, 1e-9)

	require.NoError(t, b.EraseAccount(ctx, "a"))

	gone, err := b.GetMastery(ctx, "a", "b:c")
	require.NoError(t, err)
	assert.Nil(t, gone)
	kept, err := b.GetMastery(ctx, "a:b", "c")
	require.NoError(t, err)
	assert.NotNil(t, kept, "erasing one account must not touch another sharing its prefix")
	keptReview, err := b.GetReview(ctx, "a:b", "c")
	require.NoError(t, err)
	assert.NotNil(t, keptReview)
	keptAttempts, err := b.ListAttempts(ctx, "a:b", store.QueryOpts{})
	require.NoError(t, err)
	assert.Len(t, keptAttempts, 1)
	due, err := b.DueReviews(ctx, "a:b", base)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}
