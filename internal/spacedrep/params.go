package spacedrep

import (
	"math"
	"time"

	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/validate"
)

// Params holds the interval growth constants.
type Params struct {
	BaseIntervalHours float64 `mapstructure:"base_interval_hours" validate:"gt=0"`
	// EarlyRepetitions successes use EarlyMultiplier; later ones use the
	// clamped ease factor.
	EarlyRepetitions int     `mapstructure:"early_repetitions" validate:"gte=0"`
	EarlyMultiplier  float64 `mapstructure:"early_multiplier" validate:"gte=1"`
	MinEase          float64 `mapstructure:"min_ease" validate:"gte=1"`
	MaxEase          float64 `mapstructure:"max_ease" validate:"gtefield=MinEase"`
	InitialEase      float64 `mapstructure:"initial_ease" validate:"gtefield=MinEase,ltefield=MaxEase"`
	EaseStepUp       float64 `mapstructure:"ease_step_up" validate:"gte=0"`
	EaseStepDown     float64 `mapstructure:"ease_step_down" validate:"gte=0"`
	MaxIntervalHours float64 `mapstructure:"max_interval_hours" validate:"gtefield=BaseIntervalHours"`
}

// DefaultParams returns the production schedule: 1h base, doubling for the
// first two successes, then ease in [2.0, 2.5], capped at 180 days.
func DefaultParams() Params {
	return Params{
		BaseIntervalHours: 1,
		EarlyRepetitions:  2,
		EarlyMultiplier:   2.0,
		MinEase:           2.0,
		MaxEase:           2.5,
		InitialEase:       2.5,
		EaseStepUp:        0.05,
		EaseStepDown:      0.2,
		MaxIntervalHours:  4320,
	}
}

// Validate checks the parameter bounds.
func (p Params) Validate() error {
	return validate.Struct(p)
}

// NewItem returns the schedule of a skill that was never reviewed.
func (p Params) NewItem(accountID, skillID string) Item {
	return Item{
		AccountID:     accountID,
		SkillID:       skillID,
		IntervalHours: p.BaseIntervalHours,
		EaseFactor:    p.InitialEase,
	}
}

// Advance applies one review outcome at now and returns the new schedule.
func Advance(prev Item, correct bool, now time.Time, p Params) Item {
	next := prev
	if correct {
		next.Repetitions++
		mult := p.EarlyMultiplier
		if next.Repetitions > p.EarlyRepetitions {
			mult = clamp(prev.EaseFactor, p.MinEase, p.MaxEase)
		}
		next.IntervalHours = math.Min(p.MaxIntervalHours, prev.IntervalHours*mult)
		next.EaseFactor = math.Min(p.MaxEase, prev.EaseFactor+p.EaseStepUp)
	} else {
		next.Repetitions = 0
		next.IntervalHours = p.BaseIntervalHours
		next.EaseFactor = math.Max(p.MinEase, prev.EaseFactor-p.EaseStepDown)
	}
	next.LastReviewAt = now
	next.NextReviewAt = now.Add(hours(next.IntervalHours))
	next.Version = prev.Version + 1
	return next
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
