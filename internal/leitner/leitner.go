package leitner

import (
	"time"

	"github.com/conorfennell/recallbox/internal/domain"
)

// MaxLevel is the highest mastery level. Level 5 is not terminal; a wrong
// answer regresses it like any other level.
const MaxLevel = 5

// intervalDays maps a mastery level to the number of days until the next
// review. The table is fixed for all learners and items.
var intervalDays = [MaxLevel + 1]int{1, 3, 7, 14, 30, 90}

// IntervalDays returns the review interval in days for a level.
// Levels outside 0..5 are clamped.
func IntervalDays(level int) int {
	if level < 0 {
		level = 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return intervalDays[level]
}

// Transition computes the next mastery level from the previous level, the
// answer outcome, and an optional difficulty rating.
//
// An Again rating always demotes to level 0, regardless of correctness: it
// signals the learner could not recall at all. Hard holds the level, Good
// promotes by one, Easy by two. Without a rating, correct promotes by one
// and incorrect demotes by one.
func Transition(prev int, correct bool, rating domain.Rating) int {
	if rating == domain.RatingAgain {
		return 0
	}
	if !correct {
		return clamp(prev - 1)
	}
	switch rating {
	case domain.RatingHard:
		return clamp(prev)
	case domain.RatingEasy:
		return clamp(prev + 2)
	default: // RatingGood or no rating
		return clamp(prev + 1)
	}
}

// NextDue returns the next review timestamp for an item that just landed on
// level at time now.
func NextDue(now time.Time, level int) time.Time {
	return now.Add(time.Duration(IntervalDays(level)) * 24 * time.Hour)
}

func clamp(level int) int {
	if level < 0 {
		return 0
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}
