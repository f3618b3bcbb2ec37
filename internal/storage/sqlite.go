package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/ctxextract/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Single writer; also keeps ":memory:" databases on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens dbPath and brings its schema up to date
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) querier() querier {
	return t.tx
}

func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Extraction operations

const extractionColumns = `
	id, project_id, file_name, file_path, content, code_hash,
	extracted_context, extractor_version, created_at, updated_at
`

// upsertExtractionWithQuerier writes rec keyed by its code hash. When the hash
// already exists the row keeps its id and created_at and takes everything else
// from rec. Symbol and import rows are replaced to match the new context.
// The writes run under a savepoint, so a failure leaves q as it was.
func (s *SQLiteStorage) upsertExtractionWithQuerier(ctx context.Context, q querier, rec *types.ExtractionRecord) (created bool, err error) {
	if _, err := q.ExecContext(ctx, "SAVEPOINT upsert_extraction"); err != nil {
		return false, fmt.Errorf("failed to open savepoint: %w", err)
	}
	defer func() {
		if err != nil {
			_, _ = q.ExecContext(ctx, "ROLLBACK TO upsert_extraction")
		}
		if _, relErr := q.ExecContext(ctx, "RELEASE upsert_extraction"); relErr != nil && err == nil {
			created, err = false, fmt.Errorf("failed to release savepoint: %w", relErr)
		}
	}()

	return s.writeExtractionWithQuerier(ctx, q, rec)
}

func (s *SQLiteStorage) writeExtractionWithQuerier(ctx context.Context, q querier, rec *types.ExtractionRecord) (bool, error) {
	if rec == nil {
		return false, errors.New("nil extraction record")
	}
	rec.Context.Normalize()
	if err := rec.Validate(); err != nil {
		return false, fmt.Errorf("invalid extraction record: %w", err)
	}

	contextJSON, err := json.Marshal(rec.Context)
	if err != nil {
		return false, fmt.Errorf("failed to encode extracted context: %w", err)
	}

	// The connection is held by q, so nothing can insert this hash in between
	var existingID string
	err = q.QueryRowContext(ctx, "SELECT id FROM extractions WHERE code_hash = ?", rec.CodeHash).Scan(&existingID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return false, fmt.Errorf("failed to look up code hash: %w", err)
	}
	created := existingID == ""

	proposedID := rec.ID
	if proposedID == "" {
		proposedID = uuid.NewString()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO extractions (id, project_id, file_name, file_path, content, code_hash,
		                         language, extracted_context, extractor_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code_hash) DO UPDATE SET
			project_id = excluded.project_id,
			file_name = excluded.file_name,
			file_path = excluded.file_path,
			content = excluded.content,
			language = excluded.language,
			extracted_context = excluded.extracted_context,
			extractor_version = excluded.extractor_version,
			updated_at = excluded.updated_at
		RETURNING id
	`
	var id string
	err = q.QueryRowContext(ctx, query,
		proposedID, rec.ProjectID, rec.FileName, rec.FilePath, rec.Content, rec.CodeHash,
		string(rec.Context.Language), string(contextJSON), rec.ExtractorVersion, now, now,
	).Scan(&id)
	if err != nil {
		return false, fmt.Errorf("failed to upsert extraction: %w", err)
	}

	if err := s.replaceChildrenWithQuerier(ctx, q, id, rec.Context); err != nil {
		return false, err
	}

	// Read back so the caller sees the surviving id and created_at
	stored, err := s.getExtractionWithQuerier(ctx, q, "id", id)
	if err != nil {
		return false, fmt.Errorf("failed to reload extraction: %w", err)
	}
	*rec = *stored
	return created, nil
}

// replaceChildrenWithQuerier rewrites the symbol and import rows of one extraction
func (s *SQLiteStorage) replaceChildrenWithQuerier(ctx context.Context, q querier, extractionID string, ec types.ExtractedContext) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM extraction_symbols WHERE extraction_id = ?", extractionID); err != nil {
		return fmt.Errorf("failed to clear symbols: %w", err)
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM extraction_imports WHERE extraction_id = ?", extractionID); err != nil {
		return fmt.Errorf("failed to clear imports: %w", err)
	}

	const symbolInsert = `INSERT INTO extraction_symbols (extraction_id, name, kind, line, parent) VALUES (?, ?, ?, ?, ?)`
	for _, fn := range ec.Functions {
		if _, err := q.ExecContext(ctx, symbolInsert, extractionID, fn.Name, string(fn.Type), fn.Line, nil); err != nil {
			return fmt.Errorf("failed to insert symbol %s: %w", fn.Name, err)
		}
	}
	for _, cls := range ec.Classes {
		var parent interface{}
		if p := cls.ParentName(); p != "" {
			parent = p
		}
		if _, err := q.ExecContext(ctx, symbolInsert, extractionID, cls.Name, types.ClassType, cls.Line, parent); err != nil {
			return fmt.Errorf("failed to insert symbol %s: %w", cls.Name, err)
		}
	}

	for _, module := range ec.Imports {
		if _, err := q.ExecContext(ctx, "INSERT INTO extraction_imports (extraction_id, module) VALUES (?, ?)", extractionID, module); err != nil {
			return fmt.Errorf("failed to insert import %s: %w", module, err)
		}
	}
	return nil
}

// UpsertExtraction runs the upsert and child row replacement in one transaction
func (s *SQLiteStorage) UpsertExtraction(ctx context.Context, rec *types.ExtractionRecord) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	created, err := s.upsertExtractionWithQuerier(ctx, tx, rec)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit extraction: %w", err)
	}
	return created, nil
}

func scanExtraction(row rowScanner) (*types.ExtractionRecord, error) {
	var rec types.ExtractionRecord
	var contextJSON string
	err := row.Scan(
		&rec.ID, &rec.ProjectID, &rec.FileName, &rec.FilePath, &rec.Content, &rec.CodeHash,
		&contextJSON, &rec.ExtractorVersion, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(contextJSON), &rec.Context); err != nil {
		return nil, fmt.Errorf("failed to decode extracted context for %s: %w", rec.ID, err)
	}
	rec.Context.Normalize()
	return &rec, nil
}

// getExtractionWithQuerier looks a record up by column, which is "id" or "code_hash"
func (s *SQLiteStorage) getExtractionWithQuerier(ctx context.Context, q querier, column, value string) (*types.ExtractionRecord, error) {
	query := `SELECT ` + extractionColumns + ` FROM extractions WHERE ` + column + ` = ?`
	rec, err := scanExtraction(q.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStorage) GetExtraction(ctx context.Context, id string) (*types.ExtractionRecord, error) {
	return s.getExtractionWithQuerier(ctx, s.querier(), "id", id)
}

func (s *SQLiteStorage) GetExtractionByHash(ctx context.Context, codeHash string) (*types.ExtractionRecord, error) {
	return s.getExtractionWithQuerier(ctx, s.querier(), "code_hash", codeHash)
}

// listExtractionsWithQuerier returns records newest first
func (s *SQLiteStorage) listExtractionsWithQuerier(ctx context.Context, q querier, filter ListFilter) ([]*types.ExtractionRecord, error) {
	var where []string
	var args []interface{}
	if filter.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.Language != "" {
		where = append(where, "language = ?")
		args = append(args, string(filter.Language))
	}

	query := `SELECT ` + extractionColumns + ` FROM extractions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC, id LIMIT ? OFFSET ?"

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, clampLimit(filter.Limit, DefaultListLimit, MaxListLimit), offset)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list extractions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]*types.ExtractionRecord, 0)
	for rows.Next() {
		rec, err := scanExtraction(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStorage) ListExtractions(ctx context.Context, filter ListFilter) ([]*types.ExtractionRecord, error) {
	return s.listExtractionsWithQuerier(ctx, s.querier(), filter)
}

func (s *SQLiteStorage) deleteExtractionWithQuerier(ctx context.Context, q querier, id string) error {
	result, err := q.ExecContext(ctx, "DELETE FROM extractions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete extraction: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteExtraction(ctx context.Context, id string) error {
	return s.deleteExtractionWithQuerier(ctx, s.querier(), id)
}

// Query operations

// escapeLike escapes LIKE wildcards so the query matches literally
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *SQLiteStorage) searchSymbolsWithQuerier(ctx context.Context, q querier, sq SymbolQuery) ([]SymbolMatch, error) {
	query := `
		SELECT s.name, s.kind, s.line, s.parent, e.id, e.project_id, e.file_name, e.file_path, e.language
		FROM extraction_symbols s
		JOIN extractions e ON s.extraction_id = e.id
		WHERE s.name LIKE ? ESCAPE '\'
	`
	args := []interface{}{"%" + escapeLike(sq.Query) + "%"}
	if sq.ProjectID != "" {
		query += " AND e.project_id = ?"
		args = append(args, sq.ProjectID)
	}
	if sq.Kind != "" {
		query += " AND s.kind = ?"
		args = append(args, sq.Kind)
	}
	// Exact matches first, then shorter names
	query += " ORDER BY (s.name = ?) DESC, length(s.name), s.name, e.file_path, s.line LIMIT ?"
	args = append(args, sq.Query, clampLimit(sq.Limit, DefaultSymbolLimit, MaxListLimit))

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search symbols: %w", err)
	}
	defer func() { _ = rows.Close() }()

	matches := make([]SymbolMatch, 0)
	for rows.Next() {
		var m SymbolMatch
		var parent sql.NullString
		var lang string
		if err := rows.Scan(&m.Name, &m.Kind, &m.Line, &parent, &m.ExtractionID,
			&m.ProjectID, &m.FileName, &m.FilePath, &lang); err != nil {
			return nil, err
		}
		if parent.Valid {
			m.Parent = parent.String
		}
		m.Language = types.Language(lang)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *SQLiteStorage) SearchSymbols(ctx context.Context, query SymbolQuery) ([]SymbolMatch, error) {
	return s.searchSymbolsWithQuerier(ctx, s.querier(), query)
}

func (s *SQLiteStorage) listImportersWithQuerier(ctx context.Context, q querier, module, projectID string) ([]Summary, error) {
	query := `
		SELECT DISTINCT e.id, e.project_id, e.file_name, e.file_path, e.language, e.code_hash, e.updated_at
		FROM extraction_imports i
		JOIN extractions e ON i.extraction_id = e.id
		WHERE i.module = ?
	`
	args := []interface{}{module}
	if projectID != "" {
		query += " AND e.project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY e.file_path, e.id"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list importers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summaries := make([]Summary, 0)
	for rows.Next() {
		var sum Summary
		var lang string
		if err := rows.Scan(&sum.ID, &sum.ProjectID, &sum.FileName, &sum.FilePath,
			&lang, &sum.CodeHash, &sum.UpdatedAt); err != nil {
			return nil, err
		}
		sum.Language = types.Language(lang)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

func (s *SQLiteStorage) ListImporters(ctx context.Context, module string, projectID string) ([]Summary, error) {
	return s.listImportersWithQuerier(ctx, s.querier(), module, projectID)
}

// Status operations

// projectClause returns a WHERE fragment on alias.project_id, empty for all projects
func projectClause(alias, projectID string) (string, []interface{}) {
	if projectID == "" {
		return "", nil
	}
	return " WHERE " + alias + ".project_id = ?", []interface{}{projectID}
}

func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier, projectID string) (*Status, error) {
	status := &Status{
		ProjectID:  projectID,
		ByLanguage: make(map[string]int),
	}
	where, args := projectClause("e", projectID)

	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM extractions e"+where, args...).Scan(&status.ExtractionsCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count extractions: %w", err)
	}

	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM extraction_symbols s
		JOIN extractions e ON s.extraction_id = e.id`+where, args...).Scan(&status.SymbolsCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count symbols: %w", err)
	}

	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM extraction_imports i
		JOIN extractions e ON i.extraction_id = e.id`+where, args...).Scan(&status.ImportsCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count imports: %w", err)
	}

	rows, err := q.QueryContext(ctx, "SELECT e.language, COUNT(*) FROM extractions e"+where+" GROUP BY e.language", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count languages: %w", err)
	}
	for rows.Next() {
		var lang string
		var n int
		if err := rows.Scan(&lang, &n); err != nil {
			_ = rows.Close()
			return nil, err
		}
		status.ByLanguage[lang] = n
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	// MAX() drops the column type, so read the newest row instead
	var last sql.NullTime
	err = q.QueryRowContext(ctx, "SELECT e.updated_at FROM extractions e"+where+" ORDER BY e.updated_at DESC LIMIT 1", args...).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read last update: %w", err)
	}
	if last.Valid {
		t := last.Time
		status.LastUpdatedAt = &t
	}

	version, err := schemaVersion(ctx, q)
	if err != nil {
		return nil, err
	}
	status.SchemaVersion = version
	status.Health = HealthStatus{DatabaseAccessible: true}

	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context, projectID string) (*Status, error) {
	return s.getStatusWithQuerier(ctx, s.querier(), projectID)
}

// Transaction implementations run every statement on the transaction

func (t *sqliteTx) UpsertExtraction(ctx context.Context, rec *types.ExtractionRecord) (bool, error) {
	return t.storage.upsertExtractionWithQuerier(ctx, t.querier(), rec)
}

func (t *sqliteTx) GetExtraction(ctx context.Context, id string) (*types.ExtractionRecord, error) {
	return t.storage.getExtractionWithQuerier(ctx, t.querier(), "id", id)
}

func (t *sqliteTx) GetExtractionByHash(ctx context.Context, codeHash string) (*types.ExtractionRecord, error) {
	return t.storage.getExtractionWithQuerier(ctx, t.querier(), "code_hash", codeHash)
}

func (t *sqliteTx) ListExtractions(ctx context.Context, filter ListFilter) ([]*types.ExtractionRecord, error) {
	return t.storage.listExtractionsWithQuerier(ctx, t.querier(), filter)
}

func (t *sqliteTx) DeleteExtraction(ctx context.Context, id string) error {
	return t.storage.deleteExtractionWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) SearchSymbols(ctx context.Context, query SymbolQuery) ([]SymbolMatch, error) {
	return t.storage.searchSymbolsWithQuerier(ctx, t.querier(), query)
}

func (t *sqliteTx) ListImporters(ctx context.Context, module string, projectID string) ([]Summary, error) {
	return t.storage.listImportersWithQuerier(ctx, t.querier(), module, projectID)
}

func (t *sqliteTx) GetStatus(ctx context.Context, projectID string) (*Status, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier(), projectID)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite has no nested transactions; savepoints are not exposed
	return nil, errors.New("nested transactions not supported")
}
