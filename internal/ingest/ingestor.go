// Package ingest drives the replay ingestion pipeline: it decodes session
// documents and hands them to the store, one transaction per document.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/replaydeck/pokerpipe/internal/persistence"
	"github.com/replaydeck/pokerpipe/internal/replay"
)

type Ingestor struct {
	store *persistence.Store
}

func NewIngestor(store *persistence.Store) *Ingestor {
	return &Ingestor{store: store}
}

// FileResult is the outcome for one document within a directory batch.
type FileResult struct {
	Path  string
	Stats persistence.IngestStats
	Err   error
}

// BatchResult aggregates a directory ingestion. Failed documents are kept
// alongside succeeded ones; a batch never hides partial failure.
type BatchResult struct {
	Results []FileResult
}

func (b BatchResult) Succeeded() int {
	n := 0
	for _, r := range b.Results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

func (b BatchResult) Failed() int {
	return len(b.Results) - b.Succeeded()
}

// IngestFile decodes and ingests one session document.
func (in *Ingestor) IngestFile(ctx context.Context, path string) (persistence.IngestStats, error) {
	doc, err := replay.DecodeFile(path)
	if err != nil {
		return persistence.IngestStats{}, fmt.Errorf("ingest %s: %w", path, err)
	}

	stats, err := in.store.UpsertSession(ctx, doc)
	if err != nil {
		return persistence.IngestStats{}, fmt.Errorf("ingest %s: %w", path, err)
	}

	slog.Info("session ingested",
		"path", path,
		"session", stats.SessionID,
		"hands", stats.HandsProcessed,
		"players", stats.PlayersAdded,
		"events", stats.EventsAdded,
		"results", stats.ResultsAdded)
	return stats, nil
}

// IngestDirectory ingests every *.json document under dir in name order.
// One document's failure does not abort the batch; it is recorded in the
// result and the batch continues.
func (in *Ingestor) IngestDirectory(ctx context.Context, dir string) (BatchResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return BatchResult{}, fmt.Errorf("read replay directory: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	var batch BatchResult
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		stats, err := in.IngestFile(ctx, p)
		if err != nil {
			slog.Warn("document ingestion failed", "path", p, "error", err)
		}
		batch.Results = append(batch.Results, FileResult{Path: p, Stats: stats, Err: err})
	}

	slog.Info("directory ingestion complete",
		"dir", dir,
		"documents", len(batch.Results),
		"failed", batch.Failed())
	return batch, nil
}
