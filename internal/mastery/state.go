package mastery

import "time"

// Attempt is one answer submitted by a learner.
type Attempt struct {
	ID          string // generated when empty
	AccountID   string `validate:"nonblank"`
	SkillID     string `validate:"nonblank"`
	IsCorrect   bool
	TimeSpentMs int64     `validate:"gte=0"`
	Timestamp   time.Time // defaults to the service clock
}

// State is the estimated mastery of one skill for one account.
type State struct {
	AccountID       string
	SkillID         string
	Probability     float64
	Attempts        int
	CorrectAttempts int
	IsMastered      bool
	UpdatedAt       time.Time
}

// Level buckets a probability for display and reporting.
type Level string

const (
	LevelBeginner Level = "beginner"
	LevelLearning Level = "learning"
	LevelMastered Level = "mastered"
)

// Levels lists all levels from lowest to highest.
var Levels = []Level{LevelBeginner, LevelLearning, LevelMastered}

// Difficulty is the suggested difficulty of the next practice item.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// StateTransition records a level change for logging and the event log.
type StateTransition struct {
	AccountID   string
	SkillID     string
	From        Level
	To          Level
	Probability float64
}

// Result is the outcome of recording one attempt.
type Result struct {
	State      State
	Transition *StateTransition // nil when the level did not change
}
