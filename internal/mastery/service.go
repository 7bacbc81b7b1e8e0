// Package mastery estimates, per account and skill, the probability that a
// learner has mastered the skill.
package mastery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/logger"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/store"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/validate"
)

// Service is the mastery estimator. It is safe for concurrent use; updates
// to the same (account, skill) are serialized.
type Service struct {
	repo   store.MasteryRepo
	events store.EventRepo
	params Params
	log    *logger.Logger
	locks  store.KeyedMutex
	now    func() time.Time
}

// NewService creates a mastery service. events may be nil.
func NewService(repo store.MasteryRepo, events store.EventRepo, params Params, log *logger.Logger) (*Service, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("mastery params: %w", err)
	}
	return &Service{
		repo:   repo,
		events: events,
		params: params,
		log:    logger.OrNop(log).With("component", "mastery"),
		now:    time.Now,
	}, nil
}

// Params returns the model constants in use.
func (s *Service) Params() Params {
	return s.params
}

// ProcessAttempt records an attempt and returns the updated state.
func (s *Service) ProcessAttempt(ctx context.Context, a Attempt) (State, error) {
	res, err := s.Record(ctx, a)
	if err != nil {
		return State{}, err
	}
	return res.State, nil
}

// Record is ProcessAttempt that also reports a level change.
func (s *Service) Record(ctx context.Context, a Attempt) (Result, error) {
	if err := validate.Struct(a); err != nil {
		return Result{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = s.now()
	}

	unlock := s.locks.Lock(store.Key(a.AccountID, a.SkillID))
	defer unlock()

	prev, err := s.load(ctx, a.AccountID, a.SkillID)
	if err != nil {
		return Result{}, err
	}

	next := Update(prev, a.IsCorrect, a.TimeSpentMs, s.params)
	next.UpdatedAt = a.Timestamp

	if err := s.repo.PutMastery(ctx, toRecord(next), store.AttemptRecord{
		ID:          a.ID,
		AccountID:   a.AccountID,
		SkillID:     a.SkillID,
		IsCorrect:   a.IsCorrect,
		TimeSpentMs: a.TimeSpentMs,
		Timestamp:   a.Timestamp,
	}); err != nil {
		return Result{}, store.Wrap("put mastery", err)
	}

	s.log.Debug("attempt processed",
		"account", a.AccountID,
		"skill", a.SkillID,
		"correct", a.IsCorrect,
		"time_spent_ms", a.TimeSpentMs,
		"probability", next.Probability,
	)

	res := Result{State: next}
	from, to := s.params.Level(prev.Probability), s.params.Level(next.Probability)
	if from != to {
		res.Transition = &StateTransition{
			AccountID:   a.AccountID,
			SkillID:     a.SkillID,
			From:        from,
			To:          to,
			Probability: next.Probability,
		}
		s.recordTransition(ctx, res.Transition, a.Timestamp)
	}
	return res, nil
}

// The state is already committed, so event failures are only logged.
func (s *Service) recordTransition(ctx context.Context, t *StateTransition, at time.Time) {
	s.log.Info("mastery level changed",
		"account", t.AccountID,
		"skill", t.SkillID,
		"from", t.From,
		"to", t.To,
		"probability", t.Probability,
	)
	if s.events == nil {
		return
	}
	err := s.events.AppendMasteryEvent(ctx, store.MasteryEventRecord{
		AccountID:   t.AccountID,
		SkillID:     t.SkillID,
		FromLevel:   string(t.From),
		ToLevel:     string(t.To),
		Probability: t.Probability,
		Timestamp:   at,
	})
	if err != nil {
		s.log.Warn("append mastery event failed", "account", t.AccountID, "skill", t.SkillID, "error", err)
	}
}

// GetState returns the current state, or the prior when the skill was never
// attempted.
func (s *Service) GetState(ctx context.Context, accountID, skillID string) (State, error) {
	if err := validateKey(accountID, skillID); err != nil {
		return State{}, err
	}
	return s.load(ctx, accountID, skillID)
}

// GetMasteryLevel returns the level bucket of the current probability.
func (s *Service) GetMasteryLevel(ctx context.Context, accountID, skillID string) (Level, error) {
	st, err := s.GetState(ctx, accountID, skillID)
	if err != nil {
		return "", err
	}
	return s.params.Level(st.Probability), nil
}

// GetMasteryPercentage returns the current probability as a rounded
// percentage.
func (s *Service) GetMasteryPercentage(ctx context.Context, accountID, skillID string) (int, error) {
	st, err := s.GetState(ctx, accountID, skillID)
	if err != nil {
		return 0, err
	}
	return Percentage(st.Probability), nil
}

// RecommendDifficulty suggests the next item difficulty for a probability.
func (s *Service) RecommendDifficulty(probability float64) Difficulty {
	return s.params.RecommendDifficulty(probability)
}

func (s *Service) load(ctx context.Context, accountID, skillID string) (State, error) {
	rec, err := s.repo.GetMastery(ctx, accountID, skillID)
	if err != nil {
		return State{}, store.Wrap("get mastery", err)
	}
	if rec == nil {
		return s.params.Prior(accountID, skillID), nil
	}
	return fromRecord(*rec), nil
}

func validateKey(accountID, skillID string) error {
	return validate.Struct(struct {
		AccountID string `validate:"nonblank"`
		SkillID   string `validate:"nonblank"`
	}{accountID, skillID})
}

func toRecord(st State) store.MasteryRecord {
	return store.MasteryRecord{
		AccountID:       st.AccountID,
		SkillID:         st.SkillID,
		Probability:     st.Probability,
		Attempts:        st.Attempts,
		CorrectAttempts: st.CorrectAttempts,
		IsMastered:      st.IsMastered,
		UpdatedAt:       st.UpdatedAt,
	}
}

func fromRecord(rec store.MasteryRecord) State {
	return State{
		AccountID:       rec.AccountID,
		SkillID:         rec.SkillID,
		Probability:     rec.Probability,
		Attempts:        rec.Attempts,
		CorrectAttempts: rec.CorrectAttempts,
		IsMastered:      rec.IsMastered,
		UpdatedAt:       rec.UpdatedAt,
	}
}
