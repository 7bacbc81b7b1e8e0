package spacedrep

import "time"

// Item is the review schedule of one skill for one account.
type Item struct {
	AccountID     string
	SkillID       string
	IntervalHours float64
	Repetitions   int
	EaseFactor    float64
	LastReviewAt  time.Time
	NextReviewAt  time.Time
	// Version counts stored writes; the store rejects a write whose
	// predecessor is no longer current.
	Version int64
}

// IsDue returns true if the item is due for review (at or past NextReviewAt).
func (it Item) IsDue(now time.Time) bool {
	return !now.Before(it.NextReviewAt)
}

// OverdueHours returns how many hours past due the item is. Returns 0 if not
// yet due.
func (it Item) OverdueHours(now time.Time) float64 {
	if now.Before(it.NextReviewAt) {
		return 0
	}
	return now.Sub(it.NextReviewAt).Hours()
}

// ReviewStatus describes an item's review status for display.
type ReviewStatus string

const (
	ReviewNotDue  ReviewStatus = "not_due"
	ReviewDue     ReviewStatus = "due"
	ReviewOverdue ReviewStatus = "overdue"
)

// Status reports overdue once the item has waited longer than a full
// interval past its due time.
func (it Item) Status(now time.Time) ReviewStatus {
	switch {
	case !it.IsDue(now):
		return ReviewNotDue
	case it.OverdueHours(now) > it.IntervalHours:
		return ReviewOverdue
	default:
		return ReviewDue
	}
}
