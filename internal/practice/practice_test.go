package practice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/curriculum"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/mastery"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/spacedrep"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/store"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/validate"
)

var at = time.Date(2025, 10, 6, 14, 0, 0, 0, time.UTC)

type brokenReviews struct {
	store.ReviewRepo
}

func (brokenReviews) PutReview(context.Context, store.ReviewRecord) error {
	return errors.New("review table locked")
}

func newPipeline(t *testing.T, reviews store.ReviewRepo) (*Pipeline, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	if reviews == nil {
		reviews = mem
	}
	m, err := mastery.NewService(mem, mem, mastery.DefaultParams(), nil)
	require.NoError(t, err)
	s, err := spacedrep.NewScheduler(reviews, nil, spacedrep.DefaultParams(), nil)
	require.NoError(t, err)
	catalog, err := curriculum.Default()
	require.NoError(t, err)
	return New(m, s, catalog, nil), mem
}

func TestSubmitMasterySkill(t *testing.T) {
	p, mem := newPipeline(t, nil)
	ctx := context.Background()

	out, err := p.Submit(ctx, Submission{
		Attempt: mastery.Attempt{AccountID: "A", SkillID: "algebra-linear-equations", IsCorrect: true, TimeSpentMs: 3000, Timestamp: at},
	})
	require.NoError(t, err)
	assert.Equal(t, spacedrep.PolicyMastery, out.Policy)
	assert.Nil(t, out.Review)
	assert.InDelta(t, 0.6, out.State.Probability, 1e-9)
	assert.Equal(t, mastery.LevelLearning, out.Level)
	assert.Equal(t, mastery.DifficultyMedium, out.NextDifficulty)
	require.NotNil(t, out.Transition)
	assert.Equal(t, mastery.LevelBeginner, out.Transition.From)

	rec, err := mem.GetReview(ctx, "A", "algebra-linear-equations")
	require.NoError(t, err)
	assert.Nil(t, rec, "mastery skills must not be scheduled")
}

func TestSubmitSpacedRepetitionSkill(t *testing.T) {
	p, _ := newPipeline(t, nil)

	out, err := p.Submit(context.Background(), Submission{
		Attempt: mastery.Attempt{AccountID: "A", SkillID: "vocab-everyday", IsCorrect: true, TimeSpentMs: 1200, Timestamp: at},
	})
	require.NoError(t, err)
	assert.Equal(t, spacedrep.PolicySpacedRepetition, out.Policy)
	require.NotNil(t, out.Review)
	assert.Equal(t, 1, out.Review.Repetitions)
	assert.True(t, out.Review.NextReviewAt.Equal(at.Add(2*time.Hour)), "next review = %v", out.Review.NextReviewAt)
}

func TestSubmitExplicitSubjectOverridesCatalog(t *testing.T) {
	p, _ := newPipeline(t, nil)

	out, err := p.Submit(context.Background(), Submission{
		Attempt:   mastery.Attempt{AccountID: "A", SkillID: "genetics-custom-drill", IsCorrect: false, Timestamp: at},
		SubjectID: "biology",
	})
	require.NoError(t, err)
	assert.Equal(t, spacedrep.PolicySpacedRepetition, out.Policy)
	require.NotNil(t, out.Review)
	assert.Equal(t, 0, out.Review.Repetitions)
}

func TestSubmitInvalidAttempt(t *testing.T) {
	p, _ := newPipeline(t, nil)
	_, err := p.Submit(context.Background(), Submission{Attempt: mastery.Attempt{SkillID: "vocab-everyday"}})
	assert.ErrorIs(t, err, validate.ErrInvalidInput)
}

func TestSubmitSchedulingFailureKeepsMastery(t *testing.T) {
	p, mem := newPipeline(t, brokenReviews{ReviewRepo: store.NewMemory()})
	ctx := context.Background()

	out, err := p.Submit(ctx, Submission{
		Attempt: mastery.Attempt{AccountID: "A", SkillID: "vocab-everyday", IsCorrect: true, Timestamp: at},
	})
	var pe *store.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, out.State.Attempts)
	assert.Nil(t, out.Review)

	rec, err := mem.GetMastery(ctx, "A", "vocab-everyday")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.Attempts)
}
