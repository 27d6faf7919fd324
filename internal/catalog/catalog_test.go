package catalog

import (
	"strings"
	"testing"

	"github.com/conorfennell/recallbox/internal/domain"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name            string
		input           string
		expectedEntries int
		expectedWord    string
		expectedTrans   string
		expectedCat     string
	}{
		{
			name:            "word and translation",
			input:           "W: der Hund\nT: the dog",
			expectedEntries: 1,
			expectedWord:    "der Hund",
			expectedTrans:   "the dog",
			expectedCat:     "",
		},
		{
			name:            "all fields",
			input:           "W: der Hund\nT: the dog\nC: animals",
			expectedEntries: 1,
			expectedWord:    "der Hund",
			expectedTrans:   "the dog",
			expectedCat:     "animals",
		},
		{
			name: "multiline translation",
			input: `
W: laufen
T: to run
to walk (colloquial)
C: verbs
`,
			expectedEntries: 1,
			expectedWord:    "laufen",
			expectedTrans:   "to run\nto walk (colloquial)",
			expectedCat:     "verbs",
		},
		{
			name: "two entries split by separator",
			input: `
W: eins
T: one
---
W: zwei
T: two
`,
			expectedEntries: 2,
		},
		{
			name: "new word starts a new entry without separator",
			input: `
W: eins
T: one
W: zwei
T: two
`,
			expectedEntries: 2,
		},
		{
			name:            "no entries, just prose",
			input:           "This file has no vocabulary in it.",
			expectedEntries: 0,
		},
		{
			name:            "prefixes with no space",
			input:           "W:Hund\nT:dog",
			expectedEntries: 1,
			expectedWord:    "Hund",
			expectedTrans:   "dog",
		},
		{
			name:            "translation without word is dropped",
			input:           "T: orphan translation",
			expectedEntries: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			entries, err := Parse(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}

			if len(entries) != tc.expectedEntries {
				t.Fatalf("Expected %d entries, but got %d", tc.expectedEntries, len(entries))
			}

			if tc.expectedEntries == 1 {
				entry := entries[0]
				if entry.Word != tc.expectedWord {
					t.Errorf("Expected Word '%s', but got '%s'", tc.expectedWord, entry.Word)
				}
				if entry.Translation != tc.expectedTrans {
					t.Errorf("Expected Translation '%s', but got '%s'", tc.expectedTrans, entry.Translation)
				}
				if entry.Category != tc.expectedCat {
					t.Errorf("Expected Category '%s', but got '%s'", tc.expectedCat, entry.Category)
				}
				if entry.ID == "" {
					t.Error("Expected a non-empty entry ID")
				}
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	entry := domain.Entry{
		Word:        "  der Hund \r\n",
		Translation: "The Dog.",
		Category:    "Animals",
	}
	expected := "der hund\nthe dog.\nanimals"
	if got := Normalize(entry); got != expected {
		t.Errorf("Expected normalized string '%s', but got '%s'", expected, got)
	}
}

func TestID(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		e1 := domain.Entry{Word: "Hund", Translation: "dog"}
		e2 := domain.Entry{Word: "Hund", Translation: "dog"}
		if ID(e1) != ID(e2) {
			t.Error("Expected IDs for identical entries to match")
		}
	})

	t.Run("normalization produces same ID", func(t *testing.T) {
		e1 := domain.Entry{Word: "  der hund ", Translation: "the dog"}
		e2 := domain.Entry{Word: "Der Hund", Translation: "The Dog"}
		if ID(e1) != ID(e2) {
			t.Error("Expected IDs to match after normalization")
		}
	})

	t.Run("different entries differ", func(t *testing.T) {
		e1 := domain.Entry{Word: "Hund"}
		e2 := domain.Entry{Word: "Katze"}
		if ID(e1) == ID(e2) {
			t.Error("Expected IDs for different entries to differ")
		}
	})

	t.Run("category changes identity", func(t *testing.T) {
		e1 := domain.Entry{Word: "Hund", Category: "animals"}
		e2 := domain.Entry{Word: "Hund", Category: "pets"}
		if ID(e1) == ID(e2) {
			t.Error("Expected a category change to change the ID")
		}
	})
}
