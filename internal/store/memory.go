package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process backend for tests and ephemeral runs.
type Memory struct {
	mu       sync.Mutex
	seq      int64
	mastery  map[string]MasteryRecord
	reviews  map[string]ReviewRecord
	attempts []AttemptRecord
	events   []MasteryEventRecord
	ids      map[string]bool
}

var _ Backend = (*Memory)(nil)

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		mastery: make(map[string]MasteryRecord),
		reviews: make(map[string]ReviewRecord),
		ids:     make(map[string]bool),
	}
}

func (m *Memory) GetMastery(_ context.Context, accountID, skillID string) (*MasteryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.mastery[Key(accountID, skillID)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Memory) PutMastery(_ context.Context, rec MasteryRecord, attempt AttemptRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ids[attempt.ID] {
		return fmt.Errorf("save attempt: duplicate id %q", attempt.ID)
	}
	if cur, ok := m.mastery[Key(rec.AccountID, rec.SkillID)]; ok && cur.Attempts != rec.Attempts-1 {
		return fmt.Errorf("save mastery: %w", ErrConflict)
	}
	m.seq++
	attempt.Sequence = m.seq
	m.ids[attempt.ID] = true
	m.attempts = append(m.attempts, attempt)
	m.mastery[Key(rec.AccountID, rec.SkillID)] = rec
	return nil
}

func (m *Memory) GetReview(_ context.Context, accountID, skillID string) (*ReviewRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.reviews[Key(accountID, skillID)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Memory) PutReview(_ context.Context, rec ReviewRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := Key(rec.AccountID, rec.SkillID)
	if cur, ok := m.reviews[k]; ok && cur.Version != rec.Version-1 {
		return fmt.Errorf("save review: %w", ErrConflict)
	}
	m.reviews[k] = rec
	return nil
}

func (m *Memory) DueReviews(_ context.Context, accountID string, now time.Time) ([]ReviewRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ReviewRecord
	for _, rec := range m.reviews {
		if rec.AccountID == accountID && !rec.NextReviewAt.After(now) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *Memory) ListMastery(_ context.Context, accountID string) ([]MasteryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MasteryRecord
	for _, rec := range m.mastery {
		if rec.AccountID == accountID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SkillID < out[j].SkillID })
	return out, nil
}

func (m *Memory) ListAttempts(_ context.Context, accountID string, opts QueryOpts) ([]AttemptRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AttemptRecord
	for _, a := range m.attempts {
		if a.AccountID == accountID && inWindow(a.Timestamp, opts) {
			out = append(out, a)
		}
	}
	return limitTail(out, opts.Limit), nil
}

func (m *Memory) AppendMasteryEvent(_ context.Context, ev MasteryEventRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	ev.Sequence = m.seq
	m.events = append(m.events, ev)
	return nil
}

func (m *Memory) ListMasteryEvents(_ context.Context, accountID string, opts QueryOpts) ([]MasteryEventRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MasteryEventRecord
	for _, ev := range m.events {
		if ev.AccountID == accountID && inWindow(ev.Timestamp, opts) {
			out = append(out, ev)
		}
	}
	return limitTail(out, opts.Limit), nil
}

func (m *Memory) EraseAccount(_ context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, rec := range m.mastery {
		if rec.AccountID == accountID {
			delete(m.mastery, k)
		}
	}
	for k, rec := range m.reviews {
		if rec.AccountID == accountID {
			delete(m.reviews, k)
		}
	}
	attempts := m.attempts[:0]
	for _, a := range m.attempts {
		if a.AccountID == accountID {
			delete(m.ids, a.ID)
			continue
		}
		attempts = append(attempts, a)
	}
	m.attempts = attempts
	events := m.events[:0]
	for _, ev := range m.events {
		if ev.AccountID != accountID {
			events = append(events, ev)
		}
	}
	m.events = events
	return nil
}

func (m *Memory) Close() error { return nil }

func inWindow(ts time.Time, opts QueryOpts) bool {
	if !opts.From.IsZero() && ts.Before(opts.From) {
		return false
	}
	if !opts.To.IsZero() && ts.After(opts.To) {
		return false
	}
	return true
}
