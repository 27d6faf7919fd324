package scheduler

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/recallbox/internal/domain"
	"github.com/conorfennell/recallbox/internal/leitner"
	"github.com/conorfennell/recallbox/internal/storage"
)

// ErrValidation marks a rejected request. Callers must correct the input;
// retrying the same request will fail again.
var ErrValidation = errors.New("invalid review request")

// lockShards bounds the number of mutexes used to serialize answers.
// Two concurrent answers for the same (learner, item) always map to the
// same shard; distinct pairs usually proceed in parallel.
const lockShards = 64

// Store is the persistence the scheduler needs. *storage.DB satisfies it;
// tests may substitute fakes.
type Store interface {
	GetProgress(ctx context.Context, learnerID, itemID string) (*domain.ItemProgress, error)
	ApplyReview(ctx context.Context, delta storage.ProgressDelta, event domain.ReviewEvent) error
}

// Request is one answer attempt. ResponseTimeMs is nil for untimed answers
// and Rating is empty when the learner gave no difficulty qualifier.
type Request struct {
	LearnerID      string `json:"learnerId" validate:"required"`
	ItemID         string `json:"itemId" validate:"required"`
	Correct        bool   `json:"correct"`
	ResponseTimeMs *int   `json:"responseTimeMs,omitempty" validate:"omitempty,gte=0"`
	Rating         string `json:"rating,omitempty" validate:"omitempty,oneof=again hard good easy"`
}

// Result is the immediate feedback for one recorded answer.
type Result struct {
	PreviousLevel int       `json:"previousLevel"`
	NewLevel      int       `json:"newLevel"`
	NextDueAt     time.Time `json:"nextDueAt"`
}

// Scheduler records answers: it applies the level transition, upserts the
// progress row and appends the review event as one unit.
type Scheduler struct {
	store    Store
	validate *validator.Validate
	now      func() time.Time

	locks [lockShards]sync.Mutex

	mu    sync.RWMutex
	cache map[string]*domain.ItemProgress
}

// New creates a scheduler using the wall clock.
func New(store Store) *Scheduler {
	return NewWithClock(store, time.Now)
}

// NewWithClock creates a scheduler with an injected clock, so tests can pin
// timestamps.
func NewWithClock(store Store, now func() time.Time) *Scheduler {
	return &Scheduler{
		store:    store,
		validate: validator.New(),
		now:      now,
		cache:    make(map[string]*domain.ItemProgress),
	}
}

// RecordAnswer validates the request, serializes against other answers for
// the same (learner, item) pair, computes the next level and due date, and
// persists the progress update together with the review event. The write is
// transactional: a failed call left nothing behind and is safe to retry.
func (s *Scheduler) RecordAnswer(ctx context.Context, req Request) (Result, error) {
	if err := s.validate.Struct(req); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	rating := domain.Rating(req.Rating)

	lock := &s.locks[shardFor(req.LearnerID, req.ItemID)]
	lock.Lock()
	defer lock.Unlock()

	prev, err := s.store.GetProgress(ctx, req.LearnerID, req.ItemID)
	if err != nil {
		return Result{}, err
	}

	// Absent progress is a first answer: level 0, zero counts.
	prevLevel := 0
	prevCorrect, prevWrong := 0, 0
	if prev != nil {
		prevLevel = prev.MasteryLevel
		prevCorrect = prev.CorrectCount
		prevWrong = prev.WrongCount
	}

	now := s.now().UTC()
	newLevel := leitner.Transition(prevLevel, req.Correct, rating)
	nextDue := leitner.NextDue(now, newLevel)

	correctDelta, wrongDelta := 0, 1
	if req.Correct {
		correctDelta, wrongDelta = 1, 0
	}

	delta := storage.ProgressDelta{
		LearnerID:       req.LearnerID,
		ItemID:          req.ItemID,
		MasteryLevel:    newLevel,
		CorrectDelta:    correctDelta,
		WrongDelta:      wrongDelta,
		LastPracticedAt: now,
		NextDueAt:       nextDue,
	}
	event := domain.ReviewEvent{
		LearnerID:     req.LearnerID,
		ItemID:        req.ItemID,
		Correct:       req.Correct,
		Rating:        rating,
		PreviousLevel: prevLevel,
		NewLevel:      newLevel,
		ReviewedAt:    now,
	}
	if req.ResponseTimeMs != nil {
		event.ResponseTimeMs = *req.ResponseTimeMs
		event.Timed = true
	}

	if err := s.store.ApplyReview(ctx, delta, event); err != nil {
		slog.Warn("review write failed, caller may retry",
			"learner", req.LearnerID, "item", req.ItemID, "error", err)
		return Result{}, err
	}

	s.cacheProgress(&domain.ItemProgress{
		LearnerID:       req.LearnerID,
		ItemID:          req.ItemID,
		MasteryLevel:    newLevel,
		CorrectCount:    prevCorrect + correctDelta,
		WrongCount:      prevWrong + wrongDelta,
		LastPracticedAt: now,
		NextDueAt:       nextDue,
	})

	return Result{PreviousLevel: prevLevel, NewLevel: newLevel, NextDueAt: nextDue}, nil
}

// Progress is a read-through lookup of the current progress for one item.
// Returns nil when the learner has never answered it.
func (s *Scheduler) Progress(ctx context.Context, learnerID, itemID string) (*domain.ItemProgress, error) {
	s.mu.RLock()
	cached, ok := s.cache[cacheKey(learnerID, itemID)]
	s.mu.RUnlock()
	if ok {
		p := *cached
		return &p, nil
	}

	p, err := s.store.GetProgress(ctx, learnerID, itemID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		s.cacheProgress(p)
	}
	return p, nil
}

func (s *Scheduler) cacheProgress(p *domain.ItemProgress) {
	s.mu.Lock()
	s.cache[cacheKey(p.LearnerID, p.ItemID)] = p
	s.mu.Unlock()
}

func cacheKey(learnerID, itemID string) string {
	return learnerID + "\x00" + itemID
}

func shardFor(learnerID, itemID string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(learnerID))
	h.Write([]byte{0})
	h.Write([]byte(itemID))
	return h.Sum32() % lockShards
}
