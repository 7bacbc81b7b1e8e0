package analytics

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/mastery"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/store"
	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/validate"
)

var now = time.Date(2025, 5, 20, 15, 0, 0, 0, time.UTC)

func day(offset int, hour int) time.Time {
	d := now.AddDate(0, 0, offset)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.UTC)
}

func TestComputeStreak(t *testing.T) {
	tests := []struct {
		name  string
		times []time.Time
		want  int
	}{
		{"no activity", nil, 0},
		{"today only", []time.Time{day(0, 9)}, 1},
		{"three days ending today", []time.Time{day(0, 9), day(-1, 20), day(-2, 7), day(-2, 8)}, 3},
		{"ending yesterday", []time.Time{day(-1, 9), day(-2, 9)}, 2},
		{"gap breaks streak", []time.Time{day(0, 9), day(-2, 9), day(-3, 9)}, 1},
		{"last active before yesterday", []time.Time{day(-2, 9), day(-3, 9)}, 0},
		{"future ignored", []time.Time{day(1, 9), day(0, 9)}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeStreak(tt.times, now, time.UTC); got != tt.want {
				t.Errorf("ComputeStreak() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestComputeStreakTimeZone(t *testing.T) {
	stockholm, err := time.LoadLocation("Europe/Stockholm")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 23:30 UTC on the 19th is already the 20th in Stockholm (UTC+2).
	times := []time.Time{
		time.Date(2025, 5, 19, 23, 30, 0, 0, time.UTC),
		time.Date(2025, 5, 19, 8, 0, 0, 0, time.UTC),
	}
	if got := ComputeStreak(times, now, time.UTC); got != 1 {
		t.Errorf("UTC streak = %d, want 1", got)
	}
	if got := ComputeStreak(times, now, stockholm); got != 2 {
		t.Errorf("Stockholm streak = %d, want 2", got)
	}
}

func TestRankWeakness(t *testing.T) {
	p := DefaultParams()
	states := []store.MasteryRecord{
		{SkillID: "strong", Probability: 0.95},
		{SkillID: "weak", Probability: 0.3},
		{SkillID: "recently-missed", Probability: 0.7},
		{SkillID: "tie-b", Probability: 0.5},
		{SkillID: "tie-a", Probability: 0.5},
	}
	attempts := []store.AttemptRecord{
		{SkillID: "recently-missed", IsCorrect: false, Timestamp: now},
		{SkillID: "recently-missed", IsCorrect: false, Timestamp: now.Add(-72 * time.Hour)},
		{SkillID: "recently-missed", IsCorrect: true, Timestamp: now},
		{SkillID: "strong", IsCorrect: false, Timestamp: now.AddDate(0, 0, -40)},
	}

	got := RankWeakness(states, attempts, now, p)
	wantOrder := []string{"weak", "recently-missed", "tie-a", "tie-b", "strong"}
	if len(got) != len(wantOrder) {
		t.Fatalf("got %d entries, want %d", len(got), len(wantOrder))
	}
	for i, id := range wantOrder {
		if got[i].SkillID != id {
			t.Errorf("rank %d = %s, want %s", i, got[i].SkillID, id)
		}
	}

	// 0.3 + 0.25 * (1 + 0.5)
	missed := got[1]
	if math.Abs(missed.Score-0.675) > 1e-9 {
		t.Errorf("recently-missed score = %v, want 0.675", missed.Score)
	}
	if missed.RecentErrors != 2 {
		t.Errorf("RecentErrors = %d, want 2", missed.RecentErrors)
	}
	if got[4].RecentErrors != 0 {
		t.Error("errors outside the lookback window must not count")
	}
}

func TestAggregate(t *testing.T) {
	levels := mastery.DefaultParams()

	empty := Aggregate(nil, levels)
	if empty.Attempts != 0 || empty.Accuracy != 0 || empty.ByLevel[mastery.LevelMastered] != 0 {
		t.Errorf("empty summary = %+v", empty)
	}

	sum := Aggregate([]store.MasteryRecord{
		{SkillID: "a", Probability: 0.95, Attempts: 10, CorrectAttempts: 9},
		{SkillID: "b", Probability: 0.65, Attempts: 6, CorrectAttempts: 3},
		{SkillID: "c", Probability: 0.2, Attempts: 4, CorrectAttempts: 0},
	}, levels)
	if sum.Attempts != 20 || sum.CorrectAttempts != 12 {
		t.Errorf("counters = %d/%d, want 12/20", sum.CorrectAttempts, sum.Attempts)
	}
	if math.Abs(sum.Accuracy-0.6) > 1e-9 {
		t.Errorf("Accuracy = %v, want 0.6", sum.Accuracy)
	}
	for level, want := range map[mastery.Level]int{
		mastery.LevelBeginner: 1,
		mastery.LevelLearning: 1,
		mastery.LevelMastered: 1,
	} {
		if sum.ByLevel[level] != want {
			t.Errorf("ByLevel[%s] = %d, want %d", level, sum.ByLevel[level], want)
		}
	}
}

func TestServiceEndToEnd(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	svc, err := NewService(mem, DefaultParams(), mastery.DefaultParams(), nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	svc.now = func() time.Time { return now }

	put := func(id, skill string, p float64, correct bool, ts time.Time) {
		t.Helper()
		rec := store.MasteryRecord{AccountID: "A", SkillID: skill, Probability: p, Attempts: 1, UpdatedAt: ts}
		if correct {
			rec.CorrectAttempts = 1
		}
		if err := mem.PutMastery(ctx, rec, store.AttemptRecord{ID: id, AccountID: "A", SkillID: skill, IsCorrect: correct, Timestamp: ts}); err != nil {
			t.Fatal(err)
		}
	}
	put("1", "fractions", 0.35, false, day(-1, 10))
	put("2", "geometry", 0.6, true, day(0, 10))

	weak, err := svc.WeakestSkills(ctx, "A", 1)
	if err != nil {
		t.Fatalf("WeakestSkills: %v", err)
	}
	if len(weak) != 1 || weak[0].SkillID != "fractions" {
		t.Errorf("WeakestSkills = %+v, want fractions first", weak)
	}

	streak, err := svc.StudyStreak(ctx, "A")
	if err != nil {
		t.Fatal(err)
	}
	if streak != 2 {
		t.Errorf("StudyStreak = %d, want 2", streak)
	}

	sum, err := svc.Accuracy(ctx, "A")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Skills != 2 || math.Abs(sum.Accuracy-0.5) > 1e-9 {
		t.Errorf("Accuracy = %+v", sum)
	}

	none, err := svc.Accuracy(ctx, "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if none.Attempts != 0 || none.Accuracy != 0 {
		t.Errorf("no data summary = %+v", none)
	}
}

func TestServiceRejectsBlankAccount(t *testing.T) {
	svc, err := NewService(store.NewMemory(), DefaultParams(), mastery.DefaultParams(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.StudyStreak(context.Background(), ""); !errors.Is(err, validate.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
	if _, err := svc.WeakestSkills(context.Background(), "A", -1); !errors.Is(err, validate.ErrInvalidInput) {
		t.Errorf("negative limit err = %v, want ErrInvalidInput", err)
	}
}

func TestNewServiceBadTimeZone(t *testing.T) {
	p := DefaultParams()
	p.TimeZone = "Mars/Olympus"
	if _, err := NewService(store.NewMemory(), p, mastery.DefaultParams(), nil); err == nil {
		t.Error("expected error for unknown time zone")
	}
}
