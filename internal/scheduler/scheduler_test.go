package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/conorfennell/recallbox/internal/domain"
	"github.com/conorfennell/recallbox/internal/storage"
)

// fakeStore applies review writes with the same merge semantics as the
// sqlite store: counters are added, scheduling fields are replaced.
type fakeStore struct {
	mu       sync.Mutex
	progress map[string]domain.ItemProgress
	events   []domain.ReviewEvent
	failNext error
}

func newFakeStore() *fakeStore {
	return &fakeStore{progress: make(map[string]domain.ItemProgress)}
}

func (f *fakeStore) GetProgress(_ context.Context, learnerID, itemID string) (*domain.ItemProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.progress[learnerID+"/"+itemID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeStore) ApplyReview(_ context.Context, delta storage.ProgressDelta, event domain.ReviewEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	key := delta.LearnerID + "/" + delta.ItemID
	p := f.progress[key]
	p.LearnerID = delta.LearnerID
	p.ItemID = delta.ItemID
	p.MasteryLevel = delta.MasteryLevel
	p.CorrectCount += delta.CorrectDelta
	p.WrongCount += delta.WrongDelta
	p.LastPracticedAt = delta.LastPracticedAt
	p.NextDueAt = delta.NextDueAt
	f.progress[key] = p
	f.events = append(f.events, event)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func TestRecordAnswerFirstAnswer(t *testing.T) {
	store := newFakeStore()
	s := NewWithClock(store, fixedClock(testNow))

	res, err := s.RecordAnswer(context.Background(), Request{
		LearnerID: "alice", ItemID: "w1", Correct: true,
	})
	if err != nil {
		t.Fatalf("RecordAnswer returned an unexpected error: %v", err)
	}
	if res.PreviousLevel != 0 || res.NewLevel != 1 {
		t.Errorf("expected 0 -> 1, got %d -> %d", res.PreviousLevel, res.NewLevel)
	}
	// Level 1 means a 3 day interval.
	if want := testNow.Add(3 * 24 * time.Hour); !res.NextDueAt.Equal(want) {
		t.Errorf("expected next due %v, got %v", want, res.NextDueAt)
	}
	if len(store.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(store.events))
	}
	if store.events[0].PreviousLevel != 0 || store.events[0].NewLevel != 1 {
		t.Errorf("event levels wrong: %+v", store.events[0])
	}
}

func TestRecordAnswerRoundTripToMastery(t *testing.T) {
	store := newFakeStore()
	s := NewWithClock(store, fixedClock(testNow))

	for i := 0; i < 5; i++ {
		if _, err := s.RecordAnswer(context.Background(), Request{
			LearnerID: "alice", ItemID: "w1", Correct: true,
		}); err != nil {
			t.Fatalf("answer %d failed: %v", i+1, err)
		}
	}

	p := store.progress["alice/w1"]
	if p.MasteryLevel != 5 {
		t.Errorf("expected mastery level 5, got %d", p.MasteryLevel)
	}
	if p.CorrectCount != 5 || p.WrongCount != 0 {
		t.Errorf("expected counts 5/0, got %d/%d", p.CorrectCount, p.WrongCount)
	}
}

func TestRecordAnswerRatings(t *testing.T) {
	testCases := []struct {
		name      string
		correct   bool
		rating    string
		fromLevel int
		wantLevel int
	}{
		{"again resets from 4", false, "again", 4, 0},
		{"again resets even when correct", true, "again", 3, 0},
		{"hard holds", true, "hard", 2, 2},
		{"good promotes", true, "good", 2, 3},
		{"easy jumps two", true, "easy", 2, 4},
		{"plain wrong demotes", false, "", 2, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			store.progress["alice/w1"] = domain.ItemProgress{
				LearnerID: "alice", ItemID: "w1", MasteryLevel: tc.fromLevel,
				LastPracticedAt: testNow, NextDueAt: testNow,
			}
			s := NewWithClock(store, fixedClock(testNow))

			res, err := s.RecordAnswer(context.Background(), Request{
				LearnerID: "alice", ItemID: "w1", Correct: tc.correct, Rating: tc.rating,
			})
			if err != nil {
				t.Fatalf("RecordAnswer returned an unexpected error: %v", err)
			}
			if res.NewLevel != tc.wantLevel {
				t.Errorf("expected level %d, got %d", tc.wantLevel, res.NewLevel)
			}
		})
	}
}

func TestRecordAnswerValidation(t *testing.T) {
	s := NewWithClock(newFakeStore(), fixedClock(testNow))

	testCases := []struct {
		name string
		req  Request
	}{
		{"missing learner", Request{ItemID: "w1", Correct: true}},
		{"missing item", Request{LearnerID: "alice", Correct: true}},
		{"unknown rating", Request{LearnerID: "alice", ItemID: "w1", Rating: "meh"}},
		{"negative response time", Request{LearnerID: "alice", ItemID: "w1", ResponseTimeMs: intPtr(-5)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.RecordAnswer(context.Background(), tc.req)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestRecordAnswerStoreFailureLeavesNothing(t *testing.T) {
	store := newFakeStore()
	store.failNext = errors.New("disk full")
	s := NewWithClock(store, fixedClock(testNow))

	req := Request{LearnerID: "alice", ItemID: "w1", Correct: true}
	if _, err := s.RecordAnswer(context.Background(), req); err == nil {
		t.Fatal("expected an error from the failing store")
	}
	if len(store.events) != 0 || len(store.progress) != 0 {
		t.Fatal("failed write must leave no state behind")
	}

	// The retry applies the same transition from the unchanged progress.
	res, err := s.RecordAnswer(context.Background(), req)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if res.PreviousLevel != 0 || res.NewLevel != 1 {
		t.Errorf("retry expected 0 -> 1, got %d -> %d", res.PreviousLevel, res.NewLevel)
	}
}

func TestRecordAnswerConcurrentSameItem(t *testing.T) {
	// Two racing answers for the same item from level 1: one correct/good,
	// one incorrect/again. The result must be one of the two valid
	// serializations, never a torn mix.
	for i := 0; i < 50; i++ {
		store := newFakeStore()
		store.progress["alice/w1"] = domain.ItemProgress{
			LearnerID: "alice", ItemID: "w1", MasteryLevel: 1,
			LastPracticedAt: testNow, NextDueAt: testNow,
		}
		s := NewWithClock(store, fixedClock(testNow))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.RecordAnswer(context.Background(), Request{
				LearnerID: "alice", ItemID: "w1", Correct: true, Rating: "good",
			})
		}()
		go func() {
			defer wg.Done()
			s.RecordAnswer(context.Background(), Request{
				LearnerID: "alice", ItemID: "w1", Correct: false, Rating: "again",
			})
		}()
		wg.Wait()

		p := store.progress["alice/w1"]
		// good then again -> 0; again then good -> 1.
		if p.MasteryLevel != 0 && p.MasteryLevel != 1 {
			t.Fatalf("level %d is not a valid serialization", p.MasteryLevel)
		}
		if p.CorrectCount != 1 || p.WrongCount != 1 {
			t.Fatalf("counters torn: correct=%d wrong=%d", p.CorrectCount, p.WrongCount)
		}
		if len(store.events) != 2 {
			t.Fatalf("expected 2 events, got %d", len(store.events))
		}
	}
}

func TestProgressReadThroughCache(t *testing.T) {
	store := newFakeStore()
	s := NewWithClock(store, fixedClock(testNow))

	if _, err := s.RecordAnswer(context.Background(), Request{
		LearnerID: "alice", ItemID: "w1", Correct: true,
	}); err != nil {
		t.Fatalf("RecordAnswer failed: %v", err)
	}

	// Mutate the backing store directly; the cached row should win.
	store.mu.Lock()
	p := store.progress["alice/w1"]
	p.MasteryLevel = 99
	store.progress["alice/w1"] = p
	store.mu.Unlock()

	got, err := s.Progress(context.Background(), "alice", "w1")
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if got == nil || got.MasteryLevel != 1 {
		t.Errorf("expected cached level 1, got %+v", got)
	}

	// A later answer refreshes the cache.
	if _, err := s.RecordAnswer(context.Background(), Request{
		LearnerID: "alice", ItemID: "w1", Correct: true,
	}); err != nil {
		t.Fatalf("second RecordAnswer failed: %v", err)
	}
	got, _ = s.Progress(context.Background(), "alice", "w1")
	if got == nil || got.MasteryLevel != 2 {
		t.Errorf("expected refreshed level 2, got %+v", got)
	}
}

func intPtr(v int) *int { return &v }
