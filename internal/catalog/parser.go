package catalog

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/recallbox/internal/domain"
)

const (
	wordPrefix        = "W:"
	translationPrefix = "T:"
	categoryPrefix    = "C:"
)

// ParseFile reads a markdown file and extracts all vocabulary entries.
func ParseFile(path string) ([]domain.Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads vocabulary entries from an io.Reader. An entry is a block of
// W:/T:/C: prefixed fields; a new W: line or a "---" separator starts a new
// entry. Translation and category fields may span multiple lines. Entries
// without a word are dropped. The entry ID is the content hash, so an
// unchanged entry keeps its identity across re-syncs.
func Parse(r io.Reader) ([]domain.Entry, error) {
	scanner := bufio.NewScanner(r)
	var entries []domain.Entry
	var current domain.Entry
	var block []string
	var target *string

	flushBlock := func() {
		if target != nil && len(block) > 0 {
			*target = strings.Join(block, "\n")
		}
		block = nil
	}
	finishEntry := func() {
		flushBlock()
		if current.Word != "" {
			current.ID = ID(current)
			entries = append(entries, current)
		}
		current = domain.Entry{}
		target = nil
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == "---" {
			finishEntry()
			continue
		}

		var prefix string
		var next *string
		switch {
		case strings.HasPrefix(line, wordPrefix):
			prefix, next = wordPrefix, &current.Word
		case strings.HasPrefix(line, translationPrefix):
			prefix, next = translationPrefix, &current.Translation
		case strings.HasPrefix(line, categoryPrefix):
			prefix, next = categoryPrefix, &current.Category
		}

		if next != nil {
			if next == &current.Word && target != nil {
				finishEntry()
			} else {
				flushBlock()
			}
			target = next
			block = append(block, strings.TrimPrefix(strings.TrimPrefix(line, prefix), " "))
			continue
		}

		if target != nil {
			block = append(block, line)
		}
	}

	finishEntry()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
