package catalog

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/recallbox/internal/domain"
)

// Normalize cleans each field of an entry and joins them with newlines.
// Lowercasing, trimming and line-ending normalization mean cosmetic edits
// in a source file do not change an entry's identity.
func Normalize(entry domain.Entry) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	w := normalizePart(entry.Word)
	t := normalizePart(entry.Translation)
	c := normalizePart(entry.Category)

	// Joined with newlines so adjacent fields cannot collide, e.g. "cat"
	// + "tle" never equals "cattle" + "".
	return strings.Join([]string{w, t, c}, "\n")
}

// ID returns the entry's stable item ID: the SHA-256 of its normalized
// content, as a hex string.
func ID(entry domain.Entry) string {
	normalized := Normalize(entry)
	hashBytes := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hashBytes)
}
