package storage

import (
	"context"
	"time"

	"github.com/dshills/ctxextract/pkg/types"
)

// Storage defines the interface for persisting and querying extraction records
type Storage interface {
	// Extraction operations
	UpsertExtraction(ctx context.Context, rec *types.ExtractionRecord) (created bool, err error)
	GetExtraction(ctx context.Context, id string) (*types.ExtractionRecord, error)
	GetExtractionByHash(ctx context.Context, codeHash string) (*types.ExtractionRecord, error)
	ListExtractions(ctx context.Context, filter ListFilter) ([]*types.ExtractionRecord, error)
	DeleteExtraction(ctx context.Context, id string) error

	// Query operations
	SearchSymbols(ctx context.Context, query SymbolQuery) ([]SymbolMatch, error)
	ListImporters(ctx context.Context, module string, projectID string) ([]Summary, error)

	// Status operations
	GetStatus(ctx context.Context, projectID string) (*Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage
}

// ListFilter narrows ListExtractions. Zero values mean "no filter".
type ListFilter struct {
	ProjectID string
	Language  types.Language
	Limit     int
	Offset    int
}

// SymbolQuery searches function, method and class names by substring
type SymbolQuery struct {
	Query     string
	ProjectID string
	Kind      string // "function", "method" or "class"
	Limit     int
}

// SymbolMatch is one symbol hit with the record it belongs to
type SymbolMatch struct {
	Name         string         `json:"name"`
	Kind         string         `json:"kind"`
	Line         int            `json:"line"`
	Parent       string         `json:"parent,omitempty"`
	ExtractionID string         `json:"extractionId"`
	ProjectID    string         `json:"projectId"`
	FileName     string         `json:"fileName"`
	FilePath     string         `json:"filePath"`
	Language     types.Language `json:"language"`
}

// Summary identifies a record without its content or context
type Summary struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"projectId"`
	FileName  string         `json:"fileName"`
	FilePath  string         `json:"filePath"`
	Language  types.Language `json:"language"`
	CodeHash  string         `json:"codeHash"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Status contains statistics about stored extractions
type Status struct {
	ProjectID        string         `json:"projectId,omitempty"`
	ExtractionsCount int            `json:"extractionsCount"`
	SymbolsCount     int            `json:"symbolsCount"`
	ImportsCount     int            `json:"importsCount"`
	ByLanguage       map[string]int `json:"byLanguage"`
	LastUpdatedAt    *time.Time     `json:"lastUpdatedAt,omitempty"`
	SchemaVersion    string         `json:"schemaVersion"`
	Health           HealthStatus   `json:"health"`
}

// HealthStatus represents the health of the database
type HealthStatus struct {
	DatabaseAccessible bool `json:"databaseAccessible"`
}

const (
	// DefaultListLimit applies when ListFilter.Limit is not positive
	DefaultListLimit = 100
	// MaxListLimit caps ListFilter.Limit
	MaxListLimit = 1000
	// DefaultSymbolLimit applies when SymbolQuery.Limit is not positive
	DefaultSymbolLimit = 50
)

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
