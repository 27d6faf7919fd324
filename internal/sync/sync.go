// Package sync reconciles the registered catalog sources with the
// catalog_items table: new entries are inserted, entries whose source file
// disappeared are deleted, and git sources are mirrored first. Item
// progress and review events are untouched; an orphaned item's history
// stays valid for analytics.
package sync

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/conorfennell/recallbox/internal/catalog"
	"github.com/conorfennell/recallbox/internal/gitsource"
	"github.com/conorfennell/recallbox/internal/storage"
)

// SourceKind values stored in the sources table.
const (
	KindLocal = "local"
	KindGit   = "git"
)

// DetectKind classifies a source path as a git URL or a local directory.
func DetectKind(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return KindGit
	}
	return KindLocal
}

// Syncer walks catalog sources and reconciles their entries into storage.
type Syncer struct {
	db       *storage.DB
	reposDir string
	now      func() time.Time
}

// New creates a syncer. Git sources are mirrored under reposDir.
func New(db *storage.DB, reposDir string) *Syncer {
	return &Syncer{db: db, reposDir: reposDir, now: time.Now}
}

// Report summarizes one sync run.
type Report struct {
	Sources  int `json:"sources"`
	Parsed   int `json:"parsed"`
	Inserted int `json:"inserted"`
	Orphaned int `json:"orphaned"`
	Errors   int `json:"errors"`
}

// Run reconciles all registered sources. Per-source failures are logged
// and counted; one broken source never aborts the others.
func (s *Syncer) Run(ctx context.Context) (Report, error) {
	slog.Info("starting catalog sync for all sources")
	sources, err := s.db.GetAllSources(ctx)
	if err != nil {
		return Report{}, err
	}
	if len(sources) == 0 {
		slog.Info("no catalog sources configured")
		return Report{}, nil
	}

	var report Report
	report.Sources = len(sources)
	for _, source := range sources {
		slog.Info("syncing source", "id", source.ID, "kind", source.Kind, "path", source.Path)

		localPath := source.Path
		if source.Kind == KindGit {
			localPath, err = gitURLToLocalPath(s.reposDir, source.Path)
			if err != nil {
				slog.Error("cannot determine local path for git source", "url", source.Path, "error", err)
				report.Errors++
				continue
			}
			if err := gitsource.Mirror(ctx, source.Path, localPath); err != nil {
				slog.Error("git mirror failed", "url", source.Path, "error", err)
				report.Errors++
				continue
			}
		}

		s.reconcile(ctx, source.ID, localPath, &report)
	}
	slog.Info("catalog sync complete",
		"sources", report.Sources, "parsed", report.Parsed,
		"inserted", report.Inserted, "orphaned", report.Orphaned, "errors", report.Errors)
	return report, nil
}

func (s *Syncer) reconcile(ctx context.Context, sourceID int64, root string, report *Report) {
	known := make(map[string]bool)
	existing, err := s.db.GetCatalogItemsBySource(ctx, sourceID)
	if err != nil {
		slog.Error("cannot load existing catalog items", "source_id", sourceID, "error", err)
		report.Errors++
		return
	}
	for _, e := range existing {
		known[e.ID] = true
	}

	found := make(map[string]bool)
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		entries, parseErr := catalog.ParseFile(path)
		if parseErr != nil {
			slog.Warn("failed to parse catalog file", "path", path, "error", parseErr)
			report.Errors++
			return nil
		}
		for _, entry := range entries {
			report.Parsed++
			found[entry.ID] = true
			if known[entry.ID] {
				continue
			}
			if err := s.db.UpsertCatalogItem(ctx, entry, sourceID); err != nil {
				slog.Warn("failed to store catalog entry", "item", entry.ID, "error", err)
				report.Errors++
				continue
			}
			report.Inserted++
		}
		return nil
	})
	if walkErr != nil {
		slog.Error("error walking source directory", "path", root, "error", walkErr)
		report.Errors++
		return
	}

	for _, e := range existing {
		if found[e.ID] {
			continue
		}
		slog.Info("deleting orphaned catalog entry", "item", e.ID, "word", e.Word)
		if err := s.db.DeleteCatalogItem(ctx, e.ID); err != nil {
			slog.Warn("failed to delete orphaned entry", "item", e.ID, "error", err)
			report.Errors++
			continue
		}
		report.Orphaned++
	}

	if err := s.db.UpdateSourceLastScanned(ctx, sourceID, s.now()); err != nil {
		slog.Warn("failed to stamp last scanned", "source_id", sourceID, "error", err)
	}
}

// gitURLToLocalPath maps a git URL to a stable path under baseDir.
func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		// scp-like syntax: git@host:user/repo.git
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
