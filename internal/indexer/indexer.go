package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/ctxextract/internal/cache"
	"github.com/dshills/ctxextract/internal/extractor"
	"github.com/dshills/ctxextract/internal/logging"
	"github.com/dshills/ctxextract/internal/storage"
	"github.com/dshills/ctxextract/pkg/types"
)

var (
	// ErrPersistence marks failures of the storage collaborator
	ErrPersistence = errors.New("persistence failure")
	// ErrIndexingInProgress is returned when a directory index is already running
	ErrIndexingInProgress = errors.New("indexing already in progress")
)

// PersistenceError reports a storage failure after extraction succeeded.
// It matches both ErrPersistence and the underlying cause with errors.Is.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// Request is one file submitted for extraction
type Request struct {
	ProjectID string `json:"projectId"`
	FileName  string `json:"fileName"`
	FilePath  string `json:"filePath"`
	Content   string `json:"content"`
}

// Validate rejects requests with an empty identifying field. Empty content is
// allowed; it hashes and extracts like any other text.
func (r Request) Validate() error {
	switch {
	case r.ProjectID == "":
		return fmt.Errorf("%w: projectId", types.ErrMissingField)
	case r.FileName == "":
		return fmt.Errorf("%w: fileName", types.ErrMissingField)
	case r.FilePath == "":
		return fmt.Errorf("%w: filePath", types.ErrMissingField)
	}
	return nil
}

// Result is the outcome of one extraction
type Result struct {
	Record  *types.ExtractionRecord `json:"record"`
	Created bool                    `json:"created"`
}

// Indexer coordinates the extraction pipeline: hash -> language -> scan -> upsert
type Indexer struct {
	storage  storage.Storage
	strategy extractor.Strategy
	cache    *cache.Cache
	logger   *slog.Logger

	// Worker pool configuration
	workers int

	lock IndexLock
}

// Option configures an Indexer
type Option func(*Indexer)

// WithLogger sets the logger; the default discards output
func WithLogger(logger *slog.Logger) Option {
	return func(idx *Indexer) {
		if logger != nil {
			idx.logger = logger
		}
	}
}

// WithCache sets the extraction cache. A nil cache disables caching.
func WithCache(c *cache.Cache) Option {
	return func(idx *Indexer) {
		idx.cache = c
	}
}

// WithStrategy replaces the pattern strategy
func WithStrategy(s extractor.Strategy) Option {
	return func(idx *Indexer) {
		if s != nil {
			idx.strategy = s
		}
	}
}

// WithWorkers sets the default worker count for batch operations
func WithWorkers(n int) Option {
	return func(idx *Indexer) {
		if n > 0 {
			idx.workers = n
		}
	}
}

// New creates a new Indexer instance
func New(store storage.Storage, opts ...Option) *Indexer {
	idx := &Indexer{
		storage:  store,
		strategy: extractor.NewPattern(),
		cache:    cache.New(cache.DefaultSize),
		logger:   logging.Discard(),
		workers:  runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Config contains configuration for batch and directory extraction
type Config struct {
	Workers     int      // Number of concurrent workers (default: runtime.NumCPU())
	BatchSize   int      // Number of records to commit per transaction (default: 20)
	MaxFileSize int64    // Files larger than this are skipped (default: 1 MiB)
	Ignore      []string // Glob patterns matched against slash-separated relative paths

	// Progress, when set, is called after each file is processed
	Progress func(done, total int)
}

const (
	defaultBatchSize   = 20
	defaultMaxFileSize = 1 << 20
)

func (idx *Indexer) normalizeConfig(cfg *Config) *Config {
	out := Config{}
	if cfg != nil {
		out = *cfg
	}
	if out.Workers <= 0 {
		out.Workers = idx.workers
	}
	if out.BatchSize <= 0 {
		out.BatchSize = defaultBatchSize
	}
	if out.MaxFileSize <= 0 {
		out.MaxFileSize = defaultMaxFileSize
	}
	return &out
}

// Statistics contains statistics about a batch or directory operation
type Statistics struct {
	FilesExtracted int           `json:"filesExtracted"`
	FilesCreated   int           `json:"filesCreated"`
	FilesUpdated   int           `json:"filesUpdated"`
	FilesSkipped   int           `json:"filesSkipped"`
	FilesFailed    int           `json:"filesFailed"`
	Duration       time.Duration `json:"duration"`
	ErrorMessages  []string      `json:"errorMessages"`
}

// buildRecord runs extraction for a validated request. It never touches storage.
func (idx *Indexer) buildRecord(req Request) *types.ExtractionRecord {
	hash := types.ComputeCodeHash(req.Content)
	lang := extractor.LanguageForFile(req.FileName)

	var ec types.ExtractedContext
	key := cache.Key(lang, hash)
	hit := false
	if idx.cache != nil {
		ec, hit = idx.cache.Get(key)
	}
	if !hit {
		ec = idx.strategy.Extract(req.Content, req.FileName)
		ec.Normalize()
		if idx.cache != nil {
			idx.cache.Set(key, ec)
		}
	}

	return &types.ExtractionRecord{
		ProjectID:        req.ProjectID,
		FileName:         req.FileName,
		FilePath:         req.FilePath,
		Content:          req.Content,
		CodeHash:         hash,
		Context:          ec,
		ExtractorVersion: idx.strategy.Name(),
	}
}

// Extract validates req, extracts its context and upserts the record by content hash.
// Validation failures wrap types.ErrMissingField; storage failures are *PersistenceError.
func (idx *Indexer) Extract(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rec := idx.buildRecord(req)

	created, err := idx.storage.UpsertExtraction(ctx, rec)
	if err != nil {
		idx.logger.Error("failed to persist extraction",
			"project_id", req.ProjectID, "file_path", req.FilePath, "error", err)
		return nil, &PersistenceError{Op: "upsert extraction", Err: err}
	}

	idx.logger.Debug("extraction stored",
		"id", rec.ID, "project_id", rec.ProjectID, "file_path", rec.FilePath,
		"language", rec.Context.Language, "created", created)

	return &Result{Record: rec, Created: created}, nil
}

// extracted pairs a request's record with its position for error reporting
type extracted struct {
	label  string
	record *types.ExtractionRecord
}

// ExtractBatch extracts reqs concurrently and persists them in transactions of
// cfg.BatchSize. Per-item failures are reported in Statistics, not returned.
func (idx *Indexer) ExtractBatch(ctx context.Context, reqs []Request, cfg *Config) (*Statistics, error) {
	cfg = idx.normalizeConfig(cfg)
	startTime := time.Now()
	stats := &Statistics{ErrorMessages: make([]string, 0)}

	items := make([]*extracted, len(reqs))
	var mu sync.Mutex // Protect stats.ErrorMessages

	var processed int32
	err := idx.runWorkers(ctx, len(reqs), cfg.Workers, func(i int) error {
		req := reqs[i]
		label := req.FilePath
		if label == "" {
			label = fmt.Sprintf("request %d", i)
		}
		if err := req.Validate(); err != nil {
			mu.Lock()
			stats.FilesFailed++
			stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", label, err))
			mu.Unlock()
		} else {
			items[i] = &extracted{label: label, record: idx.buildRecord(req)}
		}
		if cfg.Progress != nil {
			cfg.Progress(int(atomic.AddInt32(&processed, 1)), len(reqs))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := idx.persist(ctx, items, cfg.BatchSize, stats); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(startTime)
	return stats, nil
}

// runWorkers calls fn for every index in [0, n) on at most workers goroutines.
// fn errors abort the run; cancellation of ctx stops scheduling new work.
func (idx *Indexer) runWorkers(ctx context.Context, n, workers int, fn func(i int) error) error {
	// Create worker pool with semaphore
	semaphore := make(chan struct{}, workers)
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < n; i++ {
		select {
		case <-gctx.Done():
			_ = g.Wait()
			return gctx.Err()
		case semaphore <- struct{}{}:
			// Acquire semaphore
		}

		g.Go(func() error {
			defer func() { <-semaphore }() // Release semaphore
			return fn(i)
		})
	}

	return g.Wait()
}

// persist writes records in transactions of batchSize. A record that fails is
// counted and reported; the rest of its batch still commits.
func (idx *Indexer) persist(ctx context.Context, items []*extracted, batchSize int, stats *Statistics) error {
	pending := make([]*extracted, 0, len(items))
	for _, it := range items {
		if it != nil {
			pending = append(pending, it)
		}
	}

	for i := 0; i < len(pending); i += batchSize {
		end := i + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		if err := idx.persistBatch(ctx, pending[i:end], stats); err != nil {
			return err
		}
	}
	return nil
}

// persistBatch upserts one batch inside a transaction
func (idx *Indexer) persistBatch(ctx context.Context, batch []*extracted, stats *Statistics) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return &PersistenceError{Op: "begin transaction", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	var created, updated int
	var failures []string
	for _, it := range batch {
		ok, err := tx.UpsertExtraction(ctx, it.record)
		if err != nil {
			// The upsert rolls back its own savepoint, so the rest of the batch still commits
			failures = append(failures, fmt.Sprintf("%s: %v", it.label, err))
			continue
		}
		if ok {
			created++
		} else {
			updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: "commit batch", Err: err}
	}

	stats.FilesExtracted += created + updated
	stats.FilesCreated += created
	stats.FilesUpdated += updated
	stats.FilesFailed += len(failures)
	stats.ErrorMessages = append(stats.ErrorMessages, failures...)

	idx.logger.Debug("batch committed", "records", len(batch), "created", created, "updated", updated, "failed", len(failures))
	return nil
}

// IndexDirectory walks root and extracts every file with a recognised extension.
// Hidden directories, ignored paths and oversized files are skipped. Only one
// directory index may run at a time per Indexer.
func (idx *Indexer) IndexDirectory(ctx context.Context, projectID, root string, cfg *Config) (*Statistics, error) {
	if projectID == "" {
		return nil, fmt.Errorf("%w: projectId", types.ErrMissingField)
	}
	if !idx.lock.TryAcquire() {
		return nil, ErrIndexingInProgress
	}
	defer idx.lock.Release()

	cfg = idx.normalizeConfig(cfg)
	startTime := time.Now()

	matcher, err := compileIgnore(cfg.Ignore)
	if err != nil {
		return nil, err
	}

	files, skipped, err := discoverFiles(root, matcher, cfg.MaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	idx.logger.Info("indexing directory", "root", root, "project_id", projectID, "files", len(files), "skipped", skipped)

	reqs := make([]Request, 0, len(files))
	var readErrors []string
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			readErrors = append(readErrors, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		reqs = append(reqs, Request{
			ProjectID: projectID,
			FileName:  filepath.Base(path),
			FilePath:  filepath.ToSlash(rel),
			Content:   string(content),
		})
	}

	stats, err := idx.ExtractBatch(ctx, reqs, cfg)
	if err != nil {
		return nil, err
	}

	stats.FilesSkipped += skipped
	stats.FilesFailed += len(readErrors)
	stats.ErrorMessages = append(stats.ErrorMessages, readErrors...)
	stats.Duration = time.Since(startTime)

	idx.logger.Info("directory indexed", "root", root,
		"extracted", stats.FilesExtracted, "created", stats.FilesCreated,
		"updated", stats.FilesUpdated, "skipped", stats.FilesSkipped,
		"failed", stats.FilesFailed, "duration", stats.Duration)

	return stats, nil
}

// Indexing reports whether a directory index is running
func (idx *Indexer) Indexing() bool {
	return idx.lock.Held()
}

// ignoreMatcher reports whether a slash-separated relative path is excluded
type ignoreMatcher []glob.Glob

func compileIgnore(patterns []string) (ignoreMatcher, error) {
	m := make(ignoreMatcher, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("%w: invalid ignore pattern %q: %v", types.ErrInvalidRequest, p, err)
		}
		m = append(m, g)
	}
	return m, nil
}

func (m ignoreMatcher) Match(rel string) bool {
	for _, g := range m {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// MatchDir also tries rel with a trailing slash so "dir/**" excludes dir itself
func (m ignoreMatcher) MatchDir(rel string) bool {
	return m.Match(rel) || m.Match(rel+"/")
}

// discoverFiles finds candidate files under root. It returns the count of
// regular files it skipped (unknown language, oversized or ignored).
func discoverFiles(root string, ignore ignoreMatcher, maxSize int64) ([]string, int, error) {
	var files []string
	skipped := 0

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if path == root {
				return nil
			}
			// Skip hidden directories
			if strings.HasPrefix(info.Name(), ".") || ignore.MatchDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		if ignore.Match(rel) ||
			extractor.LanguageForFile(info.Name()) == types.LangUnknown ||
			info.Size() > maxSize {
			skipped++
			return nil
		}

		files = append(files, path)
		return nil
	})

	return files, skipped, err
}
