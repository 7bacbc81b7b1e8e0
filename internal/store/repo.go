package store

import (
	"context"
	"time"
)

// QueryOpts filters history queries.
type QueryOpts struct {
	Limit int       // keep only the most recent N (0 = unlimited)
	From  time.Time // timestamp >= From
	To    time.Time // timestamp <= To
}

// MasteryRecord is the persisted mastery state for one (account, skill).
type MasteryRecord struct {
	AccountID       string
	SkillID         string
	Probability     float64
	Attempts        int
	CorrectAttempts int
	IsMastered      bool
	UpdatedAt       time.Time
}

// AttemptRecord is one entry of the append-only attempt log.
type AttemptRecord struct {
	Sequence    int64
	ID          string
	AccountID   string
	SkillID     string
	IsCorrect   bool
	TimeSpentMs int64
	Timestamp   time.Time
}

// ReviewRecord is the persisted spaced repetition schedule for one
// (account, skill).
type ReviewRecord struct {
	AccountID     string
	SkillID       string
	IntervalHours float64
	Repetitions   int
	EaseFactor    float64
	LastReviewAt  time.Time
	NextReviewAt  time.Time
	Version       int64 // incremented by one on every write
}

// MasteryEventRecord records a mastery level change.
type MasteryEventRecord struct {
	Sequence    int64
	AccountID   string
	SkillID     string
	FromLevel   string
	ToLevel     string
	Probability float64
	Timestamp   time.Time
}

// MasteryRepo loads and saves mastery state.
type MasteryRepo interface {
	// GetMastery returns nil, nil when no state exists yet.
	GetMastery(ctx context.Context, accountID, skillID string) (*MasteryRecord, error)

	// PutMastery saves the state and appends the attempt atomically. An
	// existing state is only replaced when its Attempts is rec.Attempts-1;
	// otherwise nothing is written and the error matches ErrConflict.
	PutMastery(ctx context.Context, rec MasteryRecord, attempt AttemptRecord) error
}

// ReviewRepo loads and saves review schedules.
type ReviewRepo interface {
	// GetReview returns nil, nil when the skill was never scheduled.
	GetReview(ctx context.Context, accountID, skillID string) (*ReviewRecord, error)

	// PutReview saves the schedule. An existing schedule is only replaced
	// when its Version is rec.Version-1; otherwise the error matches
	// ErrConflict.
	PutReview(ctx context.Context, rec ReviewRecord) error

	// DueReviews returns reviews with NextReviewAt <= now, in no
	// particular order.
	DueReviews(ctx context.Context, accountID string, now time.Time) ([]ReviewRecord, error)
}

// HistoryRepo gives read access for reporting.
type HistoryRepo interface {
	ListMastery(ctx context.Context, accountID string) ([]MasteryRecord, error)

	// ListAttempts returns attempts ordered oldest first.
	ListAttempts(ctx context.Context, accountID string, opts QueryOpts) ([]AttemptRecord, error)
}

// EventRepo provides append access to mastery events.
type EventRepo interface {
	AppendMasteryEvent(ctx context.Context, ev MasteryEventRecord) error

	// ListMasteryEvents returns events ordered oldest first.
	ListMasteryEvents(ctx context.Context, accountID string, opts QueryOpts) ([]MasteryEventRecord, error)
}

// Eraser removes every record belonging to an account.
type Eraser interface {
	EraseAccount(ctx context.Context, accountID string) error
}

// Backend is implemented by every store backend.
type Backend interface {
	MasteryRepo
	ReviewRepo
	HistoryRepo
	EventRepo
	Eraser
	Close() error
}
