// Package redisstore implements store.Backend on Redis.
//
// Key layout (prefix defaults to "plugg:"). Every key holds at most one
// caller-supplied ID, always last, so IDs containing ':' cannot collide:
//
//	mastery:<account>    hash skill -> JSON MasteryRecord
//	review:<account>     hash skill -> JSON ReviewRecord
//	due:<account>        zset skill -> next review (unix ms)
//	attempts:<account>   zset JSON AttemptRecord -> sequence
//	events:<account>     zset JSON MasteryEventRecord -> sequence
//	attempt-id:<id>      marker used to reject duplicate attempts
//	seq                  global sequence counter
//
// State and review writes WATCH their hash so a write derived from a stale
// read fails with store.ErrConflict.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Gustav-Walfridsson/plugg-gymnasie-sub001/internal/store"
)

// DefaultPrefix is used when Options.Prefix is empty.
const DefaultPrefix = "plugg:"

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Store is the Redis backend.
type Store struct {
	rdb    *redis.Client
	prefix string
}

var _ store.Backend = (*Store)(nil)

// Open connects to Redis and pings it.
func Open(ctx context.Context, opts Options) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(rdb, opts.Prefix), nil
}

// New wraps an existing client.
func New(rdb *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{rdb: rdb, prefix: prefix}
}

// Close closes the client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) key(kind string) string {
	return s.prefix + kind
}

func (s *Store) accountKey(kind, id string) string {
	return s.prefix + kind + ":" + id
}

type hashReader interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

func hgetJSON[T any](ctx context.Context, r hashReader, key, field string) (*T, error) {
	raw, err := r.HGet(ctx, key, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", key, field, err)
	}
	return &v, nil
}

func decodeAll[T any](members []string) ([]T, error) {
	out := make([]T, 0, len(members))
	for _, m := range members {
		var v T
		if err := json.Unmarshal([]byte(m), &v); err != nil {
			return nil, fmt.Errorf("decode member: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// GetMastery implements store.MasteryRepo.
func (s *Store) GetMastery(ctx context.Context, accountID, skillID string) (*store.MasteryRecord, error) {
	rec, err := hgetJSON[store.MasteryRecord](ctx, s.rdb, s.accountKey("mastery", accountID), skillID)
	if err != nil {
		return nil, fmt.Errorf("get mastery: %w", err)
	}
	return rec, nil
}

// PutMastery implements store.MasteryRepo. State and attempt are written in
// one MULTI/EXEC block.
func (s *Store) PutMastery(ctx context.Context, rec store.MasteryRecord, attempt store.AttemptRecord) error {
	marker := s.accountKey("attempt-id", attempt.ID)
	fresh, err := s.rdb.SetNX(ctx, marker, attempt.AccountID, 0).Result()
	if err != nil {
		return fmt.Errorf("reserve attempt id: %w", err)
	}
	if !fresh {
		return fmt.Errorf("save attempt: duplicate id %q", attempt.ID)
	}

	if err := s.putMastery(ctx, rec, attempt); err != nil {
		s.rdb.Del(ctx, marker)
		return err
	}
	return nil
}

func (s *Store) putMastery(ctx context.Context, rec store.MasteryRecord, attempt store.AttemptRecord) error {
	seq, err := s.rdb.Incr(ctx, s.key("seq")).Result()
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	attempt.Sequence = seq

	state, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode mastery: %w", err)
	}
	entry, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("encode attempt: %w", err)
	}

	stateKey := s.accountKey("mastery", rec.AccountID)
	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := hgetJSON[store.MasteryRecord](ctx, tx, stateKey, rec.SkillID)
		if err != nil {
			return err
		}
		if cur != nil && cur.Attempts != rec.Attempts-1 {
			return store.ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, stateKey, rec.SkillID, state)
			pipe.ZAdd(ctx, s.accountKey("attempts", attempt.AccountID), redis.Z{Score: float64(seq), Member: entry})
			return nil
		})
		return err
	}, stateKey)
	if err != nil {
		return fmt.Errorf("save mastery: %w", conflict(err))
	}
	return nil
}

// conflict maps an aborted EXEC to store.ErrConflict.
func conflict(err error) error {
	if errors.Is(err, redis.TxFailedErr) {
		return store.ErrConflict
	}
	return err
}

// GetReview implements store.ReviewRepo.
func (s *Store) GetReview(ctx context.Context, accountID, skillID string) (*store.ReviewRecord, error) {
	rec, err := hgetJSON[store.ReviewRecord](ctx, s.rdb, s.accountKey("review", accountID), skillID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return rec, nil
}

// PutReview implements store.ReviewRepo.
func (s *Store) PutReview(ctx context.Context, rec store.ReviewRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode review: %w", err)
	}
	reviewKey := s.accountKey("review", rec.AccountID)
	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := hgetJSON[store.ReviewRecord](ctx, tx, reviewKey, rec.SkillID)
		if err != nil {
			return err
		}
		if cur != nil && cur.Version != rec.Version-1 {
			return store.ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, reviewKey, rec.SkillID, raw)
			pipe.ZAdd(ctx, s.accountKey("due", rec.AccountID), redis.Z{
				Score:  float64(rec.NextReviewAt.UnixMilli()),
				Member: rec.SkillID,
			})
			return nil
		})
		return err
	}, reviewKey)
	if err != nil {
		return fmt.Errorf("save review: %w", conflict(err))
	}
	return nil
}

// DueReviews implements store.ReviewRepo.
func (s *Store) DueReviews(ctx context.Context, accountID string, now time.Time) ([]store.ReviewRecord, error) {
	skills, err := s.rdb.ZRangeByScore(ctx, s.accountKey("due", accountID), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("query due reviews: %w", err)
	}

	var out []store.ReviewRecord
	for _, skillID := range skills {
		rec, err := s.GetReview(ctx, accountID, skillID)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// ListMastery implements store.HistoryRepo.
func (s *Store) ListMastery(ctx context.Context, accountID string) ([]store.MasteryRecord, error) {
	states, err := s.rdb.HGetAll(ctx, s.accountKey("mastery", accountID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list mastery: %w", err)
	}
	skills := make([]string, 0, len(states))
	for skillID := range states {
		skills = append(skills, skillID)
	}
	sort.Strings(skills)

	out := make([]store.MasteryRecord, 0, len(skills))
	for _, skillID := range skills {
		var rec store.MasteryRecord
		if err := json.Unmarshal([]byte(states[skillID]), &rec); err != nil {
			return nil, fmt.Errorf("decode mastery %s: %w", skillID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ListAttempts implements store.HistoryRepo.
func (s *Store) ListAttempts(ctx context.Context, accountID string, opts store.QueryOpts) ([]store.AttemptRecord, error) {
	members, err := s.rdb.ZRange(ctx, s.accountKey("attempts", accountID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	all, err := decodeAll[store.AttemptRecord](members)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, a := range all {
		if inWindow(a.Timestamp, opts) {
			out = append(out, a)
		}
	}
	return limitTail(out, opts.Limit), nil
}

// AppendMasteryEvent implements store.EventRepo.
func (s *Store) AppendMasteryEvent(ctx context.Context, ev store.MasteryEventRecord) error {
	seq, err := s.rdb.Incr(ctx, s.key("seq")).Result()
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	ev.Sequence = seq
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode mastery event: %w", err)
	}
	err = s.rdb.ZAdd(ctx, s.accountKey("events", ev.AccountID), redis.Z{Score: float64(seq), Member: raw}).Err()
	if err != nil {
		return fmt.Errorf("save mastery event: %w", err)
	}
	return nil
}

// ListMasteryEvents implements store.EventRepo.
func (s *Store) ListMasteryEvents(ctx context.Context, accountID string, opts store.QueryOpts) ([]store.MasteryEventRecord, error) {
	members, err := s.rdb.ZRange(ctx, s.accountKey("events", accountID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list mastery events: %w", err)
	}
	all, err := decodeAll[store.MasteryEventRecord](members)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, ev := range all {
		if inWindow(ev.Timestamp, opts) {
			out = append(out, ev)
		}
	}
	return limitTail(out, opts.Limit), nil
}

// EraseAccount implements store.Eraser.
func (s *Store) EraseAccount(ctx context.Context, accountID string) error {
	attempts, err := s.ListAttempts(ctx, accountID, store.QueryOpts{})
	if err != nil {
		return err
	}

	keys := []string{
		s.accountKey("mastery", accountID),
		s.accountKey("review", accountID),
		s.accountKey("due", accountID),
		s.accountKey("attempts", accountID),
		s.accountKey("events", accountID),
	}
	for _, a := range attempts {
		keys = append(keys, s.accountKey("attempt-id", a.ID))
	}

	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("erase account: %w", err)
	}
	return nil
}

func inWindow(ts time.Time, opts store.QueryOpts) bool {
	if !opts.From.IsZero() && ts.Before(opts.From) {
		return false
	}
	if !opts.To.IsZero() && ts.After(opts.To) {
		return false
	}
	return true
}

func limitTail[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[len(items)-n:]
	}
	return items
}
