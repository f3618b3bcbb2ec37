// Package indexer coordinates extraction and persistence of source files.
//
// A single extraction runs: validate request -> SHA-256 of content ->
// language from the file extension -> scanners (or cache) -> upsert keyed by
// the hash. Storage failures come back as *PersistenceError, distinct from
// validation errors and from an extraction that simply matched nothing.
//
// # Basic Usage
//
//	idx := indexer.New(store, indexer.WithLogger(logger))
//
//	res, err := idx.Extract(ctx, indexer.Request{
//	    ProjectID: "web",
//	    FileName:  "app.ts",
//	    FilePath:  "src/app.ts",
//	    Content:   src,
//	})
//	if errors.Is(err, indexer.ErrPersistence) {
//	    // storage is unavailable
//	}
//	fmt.Println(res.Created, res.Record.Context.Functions)
//
// # Directory Indexing
//
// IndexDirectory walks a tree, skipping hidden directories, paths matched by
// Config.Ignore globs, files over Config.MaxFileSize and files whose language
// is unknown:
//
//	stats, err := idx.IndexDirectory(ctx, "web", "/src/web", &indexer.Config{
//	    Workers:   8,
//	    BatchSize: 50,
//	    Ignore:    []string{"node_modules/**", "**/*.min.js"},
//	})
//
// Files are scanned concurrently by a semaphore-bounded worker pool and then
// committed in transactions of BatchSize records. Only one directory index
// runs at a time; a concurrent call returns ErrIndexingInProgress.
//
// # Watching
//
// Watcher re-extracts created or modified files after a short debounce:
//
//	w, err := indexer.NewWatcher(idx, "web", "/src/web", cfg)
//	w.Start(ctx)
//	defer w.Stop()
package indexer
