package domain

import "time"

// Rating is the learner-supplied difficulty qualifier for an answer.
// It modifies the default correct/incorrect level transition.
type Rating string

const (
	RatingNone  Rating = ""
	RatingAgain Rating = "again"
	RatingHard  Rating = "hard"
	RatingGood  Rating = "good"
	RatingEasy  Rating = "easy"
)

// Valid reports whether r is one of the known ratings (or absent).
func (r Rating) Valid() bool {
	switch r {
	case RatingNone, RatingAgain, RatingHard, RatingGood, RatingEasy:
		return true
	}
	return false
}

// ItemProgress is the current scheduling state for one (learner, item) pair.
// It is created on the first answer to an item and mutated only by the
// scheduler; everything else reads it.
type ItemProgress struct {
	LearnerID       string
	ItemID          string
	MasteryLevel    int
	CorrectCount    int
	WrongCount      int
	LastPracticedAt time.Time
	NextDueAt       time.Time
}

// ReviewEvent records a single answer attempt and the level transition it
// produced. Events are append-only and never updated; they are the system
// of record for analytics.
type ReviewEvent struct {
	ID             int64
	LearnerID      string
	ItemID         string
	Correct        bool
	ResponseTimeMs int // 0 when the attempt was not timed
	Timed          bool
	Rating         Rating
	PreviousLevel  int
	NewLevel       int
	ReviewedAt     time.Time
}

// DueItem is one row of a due-set query result.
type DueItem struct {
	ItemID          string    `json:"itemId"`
	MasteryLevel    int       `json:"masteryLevel"`
	LastPracticedAt time.Time `json:"lastPracticedAt"`
	NextDueAt       time.Time `json:"nextDueAt"`
	DaysOverdue     int       `json:"daysOverdue"`
}

// DueBreakdown partitions a learner's due items by calendar window.
type DueBreakdown struct {
	Overdue  []DueItem `json:"overdue"`
	DueToday []DueItem `json:"dueToday"`
	DueSoon  []DueItem `json:"dueSoon"`
	Total    int       `json:"total"`
}

// Entry is one vocabulary entry from the catalog.
type Entry struct {
	ID          string
	Word        string
	Translation string
	Category    string
}
