package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ExtractionRecord is the persisted result of extracting one unique file content
type ExtractionRecord struct {
	// Identification
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`

	// Source
	FileName string `json:"fileName"`
	FilePath string `json:"filePath"`
	Content  string `json:"content"`
	CodeHash string `json:"codeHash"` // hex SHA-256 of Content, dedup key

	// Result
	Context          ExtractedContext `json:"extractedContext"`
	ExtractorVersion string           `json:"extractorVersion"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ComputeCodeHash returns the hex SHA-256 digest of content
func ComputeCodeHash(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}

// ComputeHash sets CodeHash from Content
func (r *ExtractionRecord) ComputeHash() {
	r.CodeHash = ComputeCodeHash(r.Content)
}

// Validate performs the checks storage relies on
func (r *ExtractionRecord) Validate() error {
	if r.CodeHash == "" {
		return ErrEmptyHash
	}
	if r.CodeHash != ComputeCodeHash(r.Content) {
		return fmt.Errorf("code hash does not match content")
	}
	if r.FileName == "" {
		return fmt.Errorf("%w: fileName", ErrMissingField)
	}
	return r.Context.Validate()
}
