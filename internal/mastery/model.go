package mastery

import (
	"math"

	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/validate"
)

// Params holds the constants of the probability model.
type Params struct {
	// InitialProbability is the prior for a skill never attempted.
	InitialProbability float64 `mapstructure:"initial_probability" validate:"gte=0,lte=1"`
	// MasteryThreshold is the probability at or above which a skill is mastered.
	MasteryThreshold float64 `mapstructure:"mastery_threshold" validate:"gt=0,lte=1"`
	// LearningFloor is where the beginner level ends.
	LearningFloor float64 `mapstructure:"learning_floor" validate:"gt=0,ltfield=MasteryThreshold"`
	// LearnRate scales the gain toward 1 on a correct answer.
	LearnRate float64 `mapstructure:"learn_rate" validate:"gt=0,lt=1"`
	// PenaltyRate scales the loss toward 0 on a wrong answer.
	PenaltyRate float64 `mapstructure:"penalty_rate" validate:"gtfield=LearnRate,lt=1"`
	// Correct answers at or below FastResponseMs get the full gain.
	FastResponseMs int64 `mapstructure:"fast_response_ms" validate:"gte=0"`
	// Correct answers at or above SlowResponseMs get MinSpeedFactor of it.
	SlowResponseMs int64   `mapstructure:"slow_response_ms" validate:"gtfield=FastResponseMs"`
	MinSpeedFactor float64 `mapstructure:"min_speed_factor" validate:"gt=0,lte=1"`
	// Difficulty cutoffs for RecommendDifficulty.
	MediumFrom float64 `mapstructure:"medium_from" validate:"gt=0,lt=1"`
	HardFrom   float64 `mapstructure:"hard_from" validate:"gtfield=MediumFrom,lte=1"`
}

// DefaultParams returns the production model constants.
func DefaultParams() Params {
	return Params{
		InitialProbability: 0.5,
		MasteryThreshold:   0.9,
		LearningFloor:      0.6,
		LearnRate:          0.2,
		PenaltyRate:        0.3,
		FastResponseMs:     5000,
		SlowResponseMs:     30000,
		MinSpeedFactor:     0.4,
		MediumFrom:         0.4,
		HardFrom:           0.75,
	}
}

// Validate checks the parameter bounds.
func (p Params) Validate() error {
	return validate.Struct(p)
}

// SpeedFactor scales the gain of a correct answer by response time. It is
// 1.0 up to the fast bound, MinSpeedFactor from the slow bound on, and
// linear in between.
func (p Params) SpeedFactor(timeSpentMs int64) float64 {
	switch {
	case timeSpentMs <= p.FastResponseMs:
		return 1.0
	case timeSpentMs >= p.SlowResponseMs:
		return p.MinSpeedFactor
	default:
		frac := float64(timeSpentMs-p.FastResponseMs) / float64(p.SlowResponseMs-p.FastResponseMs)
		return 1.0 - frac*(1.0-p.MinSpeedFactor)
	}
}

// Level returns the level bucket for a probability.
func (p Params) Level(probability float64) Level {
	switch {
	case probability >= p.MasteryThreshold:
		return LevelMastered
	case probability >= p.LearningFloor:
		return LevelLearning
	default:
		return LevelBeginner
	}
}

// RecommendDifficulty suggests the difficulty of the next item.
func (p Params) RecommendDifficulty(probability float64) Difficulty {
	switch {
	case probability >= p.HardFrom:
		return DifficultyHard
	case probability >= p.MediumFrom:
		return DifficultyMedium
	default:
		return DifficultyEasy
	}
}

// Prior returns the state of a skill that has never been attempted.
func (p Params) Prior(accountID, skillID string) State {
	return State{
		AccountID:   accountID,
		SkillID:     skillID,
		Probability: p.InitialProbability,
		IsMastered:  p.InitialProbability >= p.MasteryThreshold,
	}
}

// Update applies one attempt to prev and returns the new state. It does
// not touch UpdatedAt.
func Update(prev State, correct bool, timeSpentMs int64, p Params) State {
	next := prev
	prob := prev.Probability
	if correct {
		prob += p.LearnRate * p.SpeedFactor(timeSpentMs) * (1 - prob)
		next.CorrectAttempts++
	} else {
		prob -= p.PenaltyRate * prob
	}
	next.Probability = clamp(prob, 0, 1)
	next.IsMastered = next.Probability >= p.MasteryThreshold
	next.Attempts++
	return next
}

// Percentage converts a probability to a whole percentage.
func Percentage(probability float64) int {
	return int(math.Round(probability * 100))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
