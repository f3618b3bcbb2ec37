package indexer

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/ctxextract/internal/extractor"
	"github.com/dshills/ctxextract/pkg/types"
)

// DefaultDebounce is the quiet period before changed files are re-extracted
const DefaultDebounce = 500 * time.Millisecond

// Watcher re-extracts files under a root directory when they are created or written.
// Removals are ignored: records are keyed by content, not by path.
type Watcher struct {
	indexer   *Indexer
	projectID string
	rootDir   string
	ignore    ignoreMatcher
	maxSize   int64
	debounce  time.Duration

	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	doneCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool

	// onFlush, when set, receives the per-flush statistics
	onFlush func(*Statistics)
}

// NewWatcher creates a watcher over rootDir using cfg's ignore patterns and size limit
func NewWatcher(idx *Indexer, projectID, rootDir string, cfg *Config) (*Watcher, error) {
	cfg = idx.normalizeConfig(cfg)
	ignore, err := compileIgnore(cfg.Ignore)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		indexer:   idx,
		projectID: projectID,
		rootDir:   rootDir,
		ignore:    ignore,
		maxSize:   cfg.MaxFileSize,
		debounce:  DefaultDebounce,
		watcher:   fw,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}

	if err := w.addDirectoriesRecursively(rootDir); err != nil {
		_ = fw.Close()
		return nil, err
	}

	return w, nil
}

// Start begins watching for file changes. Later calls are no-ops.
func (w *Watcher) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.started.Store(true)
		go w.watch(ctx)
	})
}

// Stop stops the watcher, waits for the event loop to exit if Start ran,
// and releases the fsnotify handle
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.started.Load() {
			<-w.doneCh
		}
		_ = w.watcher.Close()
	})
}

func (w *Watcher) watch(ctx context.Context) {
	defer close(w.doneCh)

	var timer *time.Timer
	flushCh := make(chan struct{}, 1)
	changed := make(map[string]struct{})

	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			return

		case <-w.stopCh:
			stopTimer()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			info, err := os.Stat(event.Name)
			if err != nil {
				continue
			}
			if info.IsDir() {
				if event.Op&fsnotify.Create != 0 && w.shouldWatchDirectory(event.Name) {
					if err := w.addDirectoriesRecursively(event.Name); err != nil {
						w.indexer.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
				}
				continue
			}
			if !w.shouldProcessFile(event.Name, info) {
				continue
			}
			changed[event.Name] = struct{}{}

			stopTimer()
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case flushCh <- struct{}{}:
				default:
				}
			})

		case <-flushCh:
			w.flush(ctx, changed)
			changed = make(map[string]struct{})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.indexer.logger.Warn("file watcher error", "error", err)
		}
	}
}

// flush re-extracts every changed file as one batch
func (w *Watcher) flush(ctx context.Context, changed map[string]struct{}) {
	if len(changed) == 0 {
		return
	}

	paths := make([]string, 0, len(changed))
	for p := range changed {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	reqs := make([]Request, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			w.indexer.logger.Warn("failed to read changed file", "path", p, "error", err)
			continue
		}
		rel, err := filepath.Rel(w.rootDir, p)
		if err != nil {
			rel = p
		}
		reqs = append(reqs, Request{
			ProjectID: w.projectID,
			FileName:  filepath.Base(p),
			FilePath:  filepath.ToSlash(rel),
			Content:   string(content),
		})
	}

	stats, err := w.indexer.ExtractBatch(ctx, reqs, nil)
	if err != nil {
		w.indexer.logger.Error("re-extraction failed", "files", len(reqs), "error", err)
		return
	}
	w.indexer.logger.Info("re-extracted changed files",
		"files", len(reqs), "created", stats.FilesCreated, "updated", stats.FilesUpdated, "failed", stats.FilesFailed)

	if w.onFlush != nil {
		w.onFlush(stats)
	}
}

func (w *Watcher) relPath(path string) (string, bool) {
	rel, err := filepath.Rel(w.rootDir, path)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// shouldProcessFile applies the same filters as directory indexing
func (w *Watcher) shouldProcessFile(path string, info os.FileInfo) bool {
	rel, ok := w.relPath(path)
	if !ok || w.ignore.Match(rel) {
		return false
	}
	if !info.Mode().IsRegular() || info.Size() > w.maxSize {
		return false
	}
	return extractor.LanguageForFile(info.Name()) != types.LangUnknown
}

// shouldWatchDirectory skips hidden and ignored directories
func (w *Watcher) shouldWatchDirectory(path string) bool {
	if path == w.rootDir {
		return true
	}
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	rel, ok := w.relPath(path)
	return ok && !w.ignore.MatchDir(rel)
}

// addDirectoriesRecursively adds all directories in the tree to the watcher
func (w *Watcher) addDirectoriesRecursively(rootPath string) error {
	return filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == rootPath {
				return err
			}
			w.indexer.logger.Warn("error accessing path", "path", path, "error", err)
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if !w.shouldWatchDirectory(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.indexer.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}
