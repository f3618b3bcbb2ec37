// Package storage provides SQLite-based persistence for extraction records.
//
// One row exists per unique content hash. Re-extracting identical content
// updates that row in place: the id and created_at survive, everything else
// is taken from the newer extraction.
//
// # Database Schema
//
// Tables:
//   - extractions: records keyed by id, unique on code_hash
//   - extraction_symbols: functions, methods and classes for name search
//   - extraction_imports: module specifiers for reverse import lookups
//   - schema_version: applied migrations
//
// Child rows are deleted with their extraction (ON DELETE CASCADE).
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage(".ctxextract/ctxextract.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	rec := &types.ExtractionRecord{ProjectID: "p1", FileName: "a.js", Content: src}
//	rec.ComputeHash()
//	created, err := db.UpsertExtraction(ctx, rec)
//
// # Transactions
//
// UpsertExtraction on SQLiteStorage runs in its own transaction. Use BeginTx
// to group several records into one commit:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	for _, rec := range batch {
//	    if _, err := tx.UpsertExtraction(ctx, rec); err != nil {
//	        return err
//	    }
//	}
//	return tx.Commit()
//
// # Build Tags
//
// The default build uses the pure Go modernc.org/sqlite driver. Building with
// the cgo_sqlite tag switches to github.com/mattn/go-sqlite3:
//
//	CGO_ENABLED=1 go build -tags "cgo_sqlite"
package storage
