// Package practice runs a submitted attempt through the mastery estimator
// and, for skills tracked with spaced repetition, the review scheduler.
package practice

import (
	"context"
	"fmt"

	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/curriculum"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/logger"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/mastery"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/spacedrep"
)

// Submission is an attempt plus the subject it belongs to. SubjectID may be
// empty when the skill is in the catalog.
type Submission struct {
	Attempt   mastery.Attempt
	SubjectID string
}

// Outcome is everything the caller learns from one submission.
type Outcome struct {
	State          mastery.State
	Level          mastery.Level
	Transition     *mastery.StateTransition
	Policy         spacedrep.Policy
	Review         *spacedrep.Item // set when the skill uses spaced repetition
	NextDifficulty mastery.Difficulty
}

// Pipeline wires the estimator and the scheduler together.
type Pipeline struct {
	mastery   *mastery.Service
	scheduler *spacedrep.Scheduler
	catalog   *curriculum.Catalog
	log       *logger.Logger
}

// New creates a pipeline. catalog may be nil, in which case every
// submission must name its subject.
func New(m *mastery.Service, s *spacedrep.Scheduler, catalog *curriculum.Catalog, log *logger.Logger) *Pipeline {
	return &Pipeline{
		mastery:   m,
		scheduler: s,
		catalog:   catalog,
		log:       logger.OrNop(log).With("component", "practice"),
	}
}

// Submit records the attempt and schedules a review when the skill's policy
// asks for one. If scheduling fails the mastery update is already
// committed; the returned Outcome still carries it next to the error.
func (p *Pipeline) Submit(ctx context.Context, sub Submission) (Outcome, error) {
	subject := sub.SubjectID
	if subject == "" && p.catalog != nil {
		subject = p.catalog.SubjectOf(sub.Attempt.SkillID)
	}

	res, err := p.mastery.Record(ctx, sub.Attempt)
	if err != nil {
		return Outcome{}, err
	}

	params := p.mastery.Params()
	out := Outcome{
		State:          res.State,
		Level:          params.Level(res.State.Probability),
		Transition:     res.Transition,
		Policy:         p.scheduler.Policies().Lookup(sub.Attempt.SkillID, subject),
		NextDifficulty: params.RecommendDifficulty(res.State.Probability),
	}

	if out.Policy != spacedrep.PolicySpacedRepetition {
		return out, nil
	}

	item, err := p.scheduler.ScheduleAt(ctx, res.State.AccountID, res.State.SkillID, sub.Attempt.IsCorrect, res.State.UpdatedAt)
	if err != nil {
		p.log.Warn("review scheduling failed after mastery update",
			"account", res.State.AccountID,
			"skill", res.State.SkillID,
			"error", err,
		)
		return out, fmt.Errorf("schedule review: %w", err)
	}
	out.Review = &item
	return out, nil
}
