// Package analytics derives reporting views from the mastery and attempt
// history: weakest skills, study streak and overall accuracy.
package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/logger"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/mastery"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/store"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/validate"
)

// Params configures the weakness score and the streak calendar.
type Params struct {
	LookbackDays      int     `mapstructure:"lookback_days" validate:"gt=0"`
	HalfLifeDays      float64 `mapstructure:"half_life_days" validate:"gt=0"`
	RecentErrorWeight float64 `mapstructure:"recent_error_weight" validate:"gte=0"`
	// TimeZone is an IANA name used to split days for the streak. Empty
	// means UTC.
	TimeZone string `mapstructure:"time_zone"`
}

// DefaultParams returns the production reporting constants.
func DefaultParams() Params {
	return Params{
		LookbackDays:      30,
		HalfLifeDays:      3,
		RecentErrorWeight: 0.25,
		TimeZone:          "UTC",
	}
}

// Weakness is one ranked skill.
type Weakness struct {
	SkillID      string
	Probability  float64
	RecentErrors int
	Score        float64
}

// Summary aggregates accuracy across all skills of an account.
type Summary struct {
	Attempts        int
	CorrectAttempts int
	Accuracy        float64
	Skills          int
	ByLevel         map[mastery.Level]int
}

// Service answers reporting queries. It never writes.
type Service struct {
	repo   store.HistoryRepo
	params Params
	levels mastery.Params
	loc    *time.Location
	log    *logger.Logger
	now    func() time.Time
}

// NewService creates a reporting service. levels supplies the level cutoffs
// used by Accuracy.
func NewService(repo store.HistoryRepo, params Params, levels mastery.Params, log *logger.Logger) (*Service, error) {
	if err := validate.Struct(params); err != nil {
		return nil, fmt.Errorf("analytics params: %w", err)
	}
	loc := time.UTC
	if params.TimeZone != "" {
		var err error
		if loc, err = time.LoadLocation(params.TimeZone); err != nil {
			return nil, fmt.Errorf("analytics time zone: %w", err)
		}
	}
	return &Service{
		repo:   repo,
		params: params,
		levels: levels,
		loc:    loc,
		log:    logger.OrNop(log).With("component", "analytics"),
		now:    time.Now,
	}, nil
}

// WeakestSkills ranks the account's skills by weakness, weakest first.
// limit 0 returns every skill.
func (s *Service) WeakestSkills(ctx context.Context, accountID string, limit int) ([]Weakness, error) {
	if err := validateAccount(accountID); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, validate.Field("limit", "gte=0", limit)
	}
	now := s.now()
	states, err := s.repo.ListMastery(ctx, accountID)
	if err != nil {
		return nil, store.Wrap("list mastery", err)
	}
	attempts, err := s.repo.ListAttempts(ctx, accountID, store.QueryOpts{
		From: now.AddDate(0, 0, -s.params.LookbackDays),
	})
	if err != nil {
		return nil, store.Wrap("list attempts", err)
	}

	ranked := RankWeakness(states, attempts, now, s.params)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// StudyStreak counts consecutive active days ending at the latest active
// day, provided that day is today or yesterday.
func (s *Service) StudyStreak(ctx context.Context, accountID string) (int, error) {
	if err := validateAccount(accountID); err != nil {
		return 0, err
	}
	attempts, err := s.repo.ListAttempts(ctx, accountID, store.QueryOpts{})
	if err != nil {
		return 0, store.Wrap("list attempts", err)
	}
	times := make([]time.Time, len(attempts))
	for i, a := range attempts {
		times[i] = a.Timestamp
	}
	return ComputeStreak(times, s.now(), s.loc), nil
}

// Accuracy summarizes correct/total attempts and skills per level.
func (s *Service) Accuracy(ctx context.Context, accountID string) (Summary, error) {
	if err := validateAccount(accountID); err != nil {
		return Summary{}, err
	}
	states, err := s.repo.ListMastery(ctx, accountID)
	if err != nil {
		return Summary{}, store.Wrap("list mastery", err)
	}
	return Aggregate(states, s.levels), nil
}

// RankWeakness scores every skill in states. The score is
// (1 - probability) + weight * sum(2^(-age/halfLife)) over incorrect
// attempts within the lookback window, so recent mistakes count most.
func RankWeakness(states []store.MasteryRecord, attempts []store.AttemptRecord, now time.Time, p Params) []Weakness {
	cutoff := now.AddDate(0, 0, -p.LookbackDays)
	decay := make(map[string]float64)
	errs := make(map[string]int)
	for _, a := range attempts {
		if a.IsCorrect || a.Timestamp.Before(cutoff) {
			continue
		}
		ageDays := math.Max(0, now.Sub(a.Timestamp).Hours()/24)
		decay[a.SkillID] += math.Exp2(-ageDays / p.HalfLifeDays)
		errs[a.SkillID]++
	}

	out := make([]Weakness, 0, len(states))
	for _, st := range states {
		out = append(out, Weakness{
			SkillID:      st.SkillID,
			Probability:  st.Probability,
			RecentErrors: errs[st.SkillID],
			Score:        (1 - st.Probability) + p.RecentErrorWeight*decay[st.SkillID],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].SkillID < out[j].SkillID
	})
	return out
}

// ComputeStreak counts consecutive calendar days in loc with at least one
// timestamp, walking back from the most recent active day. It returns 0
// when that day is before yesterday. Timestamps after now are ignored.
func ComputeStreak(times []time.Time, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	today := civilDay(now, loc)
	active := make(map[time.Time]bool)
	var latest time.Time
	for _, ts := range times {
		d := civilDay(ts, loc)
		if d.After(today) {
			continue
		}
		active[d] = true
		if d.After(latest) {
			latest = d
		}
	}
	if len(active) == 0 || latest.Before(today.AddDate(0, 0, -1)) {
		return 0
	}

	streak := 0
	for d := latest; active[d]; d = d.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}

// Aggregate builds a Summary from mastery states.
func Aggregate(states []store.MasteryRecord, levels mastery.Params) Summary {
	sum := Summary{ByLevel: make(map[mastery.Level]int, len(mastery.Levels))}
	for _, l := range mastery.Levels {
		sum.ByLevel[l] = 0
	}
	for _, st := range states {
		sum.Attempts += st.Attempts
		sum.CorrectAttempts += st.CorrectAttempts
		sum.Skills++
		sum.ByLevel[levels.Level(st.Probability)]++
	}
	if sum.Attempts > 0 {
		sum.Accuracy = float64(sum.CorrectAttempts) / float64(sum.Attempts)
	}
	return sum
}

// civilDay maps t to midnight UTC of its calendar date in loc, so days can
// be compared and stepped without DST effects.
func civilDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validateAccount(accountID string) error {
	return validate.Struct(struct {
		AccountID string `validate:"nonblank"`
	}{accountID})
}
