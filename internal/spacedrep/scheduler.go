// Package spacedrep schedules reviews for skills tracked with spaced
// repetition and decides which skills use it.
package spacedrep

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/logger"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/store"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/validate"
)

// Scheduler manages spaced repetition review scheduling.
type Scheduler struct {
	repo   store.ReviewRepo
	table  *PolicyTable
	params Params
	log    *logger.Logger
	locks  store.KeyedMutex
	now    func() time.Time
}

// NewScheduler creates a scheduler over repo using the given policy table.
func NewScheduler(repo store.ReviewRepo, table *PolicyTable, params Params, log *logger.Logger) (*Scheduler, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("spacedrep params: %w", err)
	}
	if table == nil {
		var err error
		if table, err = NewPolicyTable(DefaultRules()); err != nil {
			return nil, err
		}
	}
	return &Scheduler{
		repo:   repo,
		table:  table,
		params: params,
		log:    logger.OrNop(log).With("component", "spacedrep"),
		now:    time.Now,
	}, nil
}

// Policies returns the policy table in use.
func (s *Scheduler) Policies() *PolicyTable {
	return s.table
}

// ShouldUseSpacedRepetition reports whether skillID in subjectID is
// scheduled with spaced repetition.
func (s *Scheduler) ShouldUseSpacedRepetition(skillID, subjectID string) bool {
	return s.table.Lookup(skillID, subjectID) == PolicySpacedRepetition
}

// ScheduleSpacedRepetition records a review outcome at the current time.
func (s *Scheduler) ScheduleSpacedRepetition(ctx context.Context, accountID, skillID string, wasCorrect bool) (Item, error) {
	return s.ScheduleAt(ctx, accountID, skillID, wasCorrect, s.now())
}

// ScheduleAt records a review outcome that happened at reviewedAt.
func (s *Scheduler) ScheduleAt(ctx context.Context, accountID, skillID string, wasCorrect bool, reviewedAt time.Time) (Item, error) {
	if err := validateKey(accountID, skillID); err != nil {
		return Item{}, err
	}

	unlock := s.locks.Lock(store.Key(accountID, skillID))
	defer unlock()

	prev, _, err := s.load(ctx, accountID, skillID)
	if err != nil {
		return Item{}, err
	}

	next := Advance(prev, wasCorrect, reviewedAt, s.params)
	if err := s.repo.PutReview(ctx, toRecord(next)); err != nil {
		return Item{}, store.Wrap("put review", err)
	}

	s.log.Debug("review scheduled",
		"account", accountID,
		"skill", skillID,
		"correct", wasCorrect,
		"repetitions", next.Repetitions,
		"interval_hours", next.IntervalHours,
		"next_review_at", next.NextReviewAt,
	)
	return next, nil
}

// GetItem returns the schedule for a skill and whether one exists.
func (s *Scheduler) GetItem(ctx context.Context, accountID, skillID string) (Item, bool, error) {
	if err := validateKey(accountID, skillID); err != nil {
		return Item{}, false, err
	}
	return s.load(ctx, accountID, skillID)
}

// DueItems returns items due at now, most overdue first. Ties are broken by
// skill ID.
func (s *Scheduler) DueItems(ctx context.Context, accountID string, now time.Time) ([]Item, error) {
	if err := validate.Struct(struct {
		AccountID string `validate:"nonblank"`
	}{accountID}); err != nil {
		return nil, err
	}
	recs, err := s.repo.DueReviews(ctx, accountID, now)
	if err != nil {
		return nil, store.Wrap("due reviews", err)
	}

	items := make([]Item, 0, len(recs))
	for _, r := range recs {
		items = append(items, fromRecord(r))
	}
	sort.Slice(items, func(i, j int) bool {
		oi, oj := items[i].OverdueHours(now), items[j].OverdueHours(now)
		if oi != oj {
			return oi > oj
		}
		return items[i].SkillID < items[j].SkillID
	})
	return items, nil
}

func (s *Scheduler) load(ctx context.Context, accountID, skillID string) (Item, bool, error) {
	rec, err := s.repo.GetReview(ctx, accountID, skillID)
	if err != nil {
		return Item{}, false, store.Wrap("get review", err)
	}
	if rec == nil {
		return s.params.NewItem(accountID, skillID), false, nil
	}
	return fromRecord(*rec), true, nil
}

func validateKey(accountID, skillID string) error {
	return validate.Struct(struct {
		AccountID string `validate:"nonblank"`
		SkillID   string `validate:"nonblank"`
	}{accountID, skillID})
}

func toRecord(it Item) store.ReviewRecord {
	return store.ReviewRecord{
		AccountID:     it.AccountID,
		SkillID:       it.SkillID,
		IntervalHours: it.IntervalHours,
		Repetitions:   it.Repetitions,
		EaseFactor:    it.EaseFactor,
		LastReviewAt:  it.LastReviewAt,
		NextReviewAt:  it.NextReviewAt,
		Version:       it.Version,
	}
}

func fromRecord(r store.ReviewRecord) Item {
	return Item{
		AccountID:     r.AccountID,
		SkillID:       r.SkillID,
		IntervalHours: r.IntervalHours,
		Repetitions:   r.Repetitions,
		EaseFactor:    r.EaseFactor,
		LastReviewAt:  r.LastReviewAt,
		NextReviewAt:  r.NextReviewAt,
		Version:       r.Version,
	}
}
