// Package watcher monitors a replay directory for new or rewritten session
// documents so watch mode can ingest them as the platform exports them.
package watcher

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReplayWatcher monitors one directory for replay JSON documents.
type ReplayWatcher struct {
	Dir      string
	watcher  *fsnotify.Watcher
	done     chan struct{}
	mu       sync.Mutex
	stopOnce sync.Once

	// seen maps path to the size observed at the last dispatch; documents
	// are re-dispatched only when they grow or reappear.
	seen map[string]int64

	onDocument func(path string)
	onError    func(err error)
}

type WatcherConfig struct {
	OnDocument func(path string)
	OnError    func(err error)
}

// NewReplayWatcher creates a watcher for the given replay directory.
func NewReplayWatcher(dir string, cfg WatcherConfig) (*ReplayWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &ReplayWatcher{
		Dir:        dir,
		watcher:    w,
		done:       make(chan struct{}),
		seen:       make(map[string]int64),
		onDocument: cfg.OnDocument,
		onError:    cfg.OnError,
	}, nil
}

// Start begins watching for document changes. Documents already present in
// the directory are dispatched once before events are processed.
func (rw *ReplayWatcher) Start() error {
	slog.Info("replay watcher starting", "dir", rw.Dir)
	if err := rw.watcher.Add(rw.Dir); err != nil {
		return fmt.Errorf("watch directory %s: %w", rw.Dir, err)
	}

	rw.scanExisting()

	go rw.watchLoop()
	return nil
}

// Stop stops the watcher.
func (rw *ReplayWatcher) Stop() {
	rw.stopOnce.Do(func() {
		slog.Info("replay watcher stopped", "dir", rw.Dir)
		close(rw.done)
		_ = rw.watcher.Close()
	})
}

func (rw *ReplayWatcher) watchLoop() {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-rw.done:
			return
		case event, ok := <-rw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isReplayDocument(event.Name) {
				continue
			}
			rw.dispatchIfChanged(event.Name)
		case err, ok := <-rw.watcher.Errors:
			if !ok {
				return
			}
			if rw.onError != nil {
				rw.onError(err)
			}
		case <-ticker.C:
			// Periodic poll as fallback for platforms with unreliable
			// directory events.
			rw.scanExisting()
		}
	}
}

// scanExisting dispatches every replay document currently in the directory
// that has not been dispatched at its current size.
func (rw *ReplayWatcher) scanExisting() {
	for _, p := range collectReplayFiles(rw.Dir) {
		rw.dispatchIfChanged(p)
	}
}

func (rw *ReplayWatcher) dispatchIfChanged(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	rw.mu.Lock()
	prev, ok := rw.seen[path]
	if ok && prev == info.Size() {
		rw.mu.Unlock()
		return
	}
	rw.seen[path] = info.Size()
	rw.mu.Unlock()

	if rw.onDocument != nil {
		slog.Debug("replay document detected", "path", path, "size", info.Size())
		rw.onDocument(path)
	}
}

// collectReplayFiles lists the replay documents under dir, oldest first by
// modification time so replays land in arrival order.
func collectReplayFiles(dir string) []string {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil
	}

	modTimes := make(map[string]time.Time, len(matches))
	for _, p := range matches {
		if info, err := os.Stat(p); err == nil {
			modTimes[p] = info.ModTime()
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return modTimes[matches[i]].Before(modTimes[matches[j]])
	})
	return matches
}

func isReplayDocument(path string) bool {
	name := filepath.Base(path)
	matched, err := filepath.Match("*.json", name)
	return err == nil && matched
}
