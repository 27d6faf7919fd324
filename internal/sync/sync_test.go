package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/conorfennell/recallbox/internal/storage"
)

func TestDetectKind(t *testing.T) {
	testCases := []struct {
		path string
		want string
	}{
		{"/home/alice/vocab", KindLocal},
		{"./decks", KindLocal},
		{"https://github.com/alice/vocab.git", KindGit},
		{"https://github.com/alice/vocab", KindGit},
		{"git@github.com:alice/vocab.git", KindGit},
		{"/srv/backups/vocab.git", KindGit},
	}
	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			if got := DetectKind(tc.path); got != tc.want {
				t.Errorf("DetectKind(%q) = %q, want %q", tc.path, got, tc.want)
			}
		})
	}
}

func TestGitURLToLocalPath(t *testing.T) {
	testCases := []struct {
		name string
		url  string
		want string
	}{
		{"https URL", "https://github.com/alice/vocab.git", filepath.Join("repos", "github.com", "alice", "vocab")},
		{"scp-like URL", "git@github.com:alice/vocab.git", filepath.Join("repos", "github.com", "alice", "vocab")},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := gitURLToLocalPath("repos", tc.url)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}

	t.Run("unparseable", func(t *testing.T) {
		if _, err := gitURLToLocalPath("repos", "not a url"); err == nil {
			t.Error("expected an error for an unparseable URL")
		}
	})
}

func TestRunReconcilesLocalSource(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	vocabDir := t.TempDir()
	deck := filepath.Join(vocabDir, "animals.md")
	if err := os.WriteFile(deck, []byte(`
W: der Hund
T: the dog
C: animals
---
W: die Katze
T: the cat
C: animals
`), 0o644); err != nil {
		t.Fatalf("failed to write deck file: %v", err)
	}

	sourceID, err := db.InsertSource(ctx, vocabDir, KindLocal)
	if err != nil {
		t.Fatalf("InsertSource failed: %v", err)
	}

	syncer := New(db, t.TempDir())
	report, err := syncer.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Parsed != 2 || report.Inserted != 2 || report.Errors != 0 {
		t.Fatalf("unexpected first report: %+v", report)
	}

	items, err := db.GetCatalogItemsBySource(ctx, sourceID)
	if err != nil {
		t.Fatalf("GetCatalogItemsBySource failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 catalog items, got %d", len(items))
	}

	src, err := db.FindSourceByPath(ctx, vocabDir)
	if err != nil {
		t.Fatalf("FindSourceByPath failed: %v", err)
	}
	if !src.LastScanned.Valid {
		t.Error("expected last_scanned to be stamped")
	}

	// A second run with an unchanged file inserts nothing new.
	report, err = syncer.Run(ctx)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if report.Inserted != 0 || report.Orphaned != 0 {
		t.Errorf("unexpected second report: %+v", report)
	}

	// Removing an entry orphans its catalog row.
	if err := os.WriteFile(deck, []byte(`
W: der Hund
T: the dog
C: animals
`), 0o644); err != nil {
		t.Fatalf("failed to rewrite deck file: %v", err)
	}
	report, err = syncer.Run(ctx)
	if err != nil {
		t.Fatalf("third Run failed: %v", err)
	}
	if report.Orphaned != 1 {
		t.Errorf("expected 1 orphaned entry, got %+v", report)
	}
	items, _ = db.GetCatalogItemsBySource(ctx, sourceID)
	if len(items) != 1 {
		t.Errorf("expected 1 catalog item after orphan cleanup, got %d", len(items))
	}
}

func TestRunWithNoSources(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	defer db.Close()

	report, err := New(db, t.TempDir()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Sources != 0 {
		t.Errorf("expected an empty report, got %+v", report)
	}
}
