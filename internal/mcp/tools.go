package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/ctxextract/internal/indexer"
	"github.com/dshills/ctxextract/internal/storage"
	"github.com/dshills/ctxextract/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotFound           = -32004 // Requested record does not exist
)

const (
	defaultListLimit   = 20
	maxListLimit       = storage.MaxListLimit
	defaultSymbolLimit = 20
	maxSymbolLimit     = 100
)

// handleExtractContext handles the extract_context tool invocation
func (s *Server) handleExtractContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	req := indexer.Request{}
	for _, field := range []struct {
		key  string
		dest *string
	}{
		{"project_id", &req.ProjectID},
		{"file_name", &req.FileName},
		{"file_path", &req.FilePath},
		{"content", &req.Content},
	} {
		val, ok := args[field.key].(string)
		if !ok {
			return nil, missingParam(field.key)
		}
		*field.dest = val
	}

	res, err := s.indexer.Extract(ctx, req)
	if err != nil {
		return nil, toMCPError("extraction failed", err)
	}

	response := map[string]interface{}{
		"created": res.Created,
		"record":  res.Record,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetContext handles the get_context tool invocation
func (s *Server) handleGetContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id := strings.TrimSpace(getStringDefault(args, "id", ""))
	hash := strings.TrimSpace(getStringDefault(args, "code_hash", ""))

	var (
		rec *types.ExtractionRecord
		err error
	)
	switch {
	case id != "":
		rec, err = s.storage.GetExtraction(ctx, id)
	case hash != "":
		rec, err = s.storage.GetExtractionByHash(ctx, strings.ToLower(hash))
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "id or code_hash parameter is required", map[string]interface{}{
			"param":  "id",
			"reason": "missing or empty",
		})
	}
	if err != nil {
		return nil, toMCPError("failed to get extraction", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{"record": rec})), nil
}

// handleListContexts handles the list_contexts tool invocation
func (s *Server) handleListContexts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}

	filter := storage.ListFilter{
		ProjectID: strings.TrimSpace(getStringDefault(args, "project_id", "")),
		Limit:     getIntDefault(args, "limit", defaultListLimit),
		Offset:    getIntDefault(args, "offset", 0),
	}
	if filter.Limit < 1 || filter.Limit > maxListLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", maxListLimit), map[string]interface{}{
			"param": "limit",
			"value": filter.Limit,
		})
	}
	if filter.Offset < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "offset must not be negative", map[string]interface{}{
			"param": "offset",
			"value": filter.Offset,
		})
	}
	if lang := getStringDefault(args, "language", ""); lang != "" {
		filter.Language = types.Language(strings.ToLower(lang))
		if !filter.Language.Valid() {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid language", map[string]interface{}{
				"param":   "language",
				"value":   lang,
				"allowed": languageEnum(),
			})
		}
	}

	records, err := s.storage.ListExtractions(ctx, filter)
	if err != nil {
		return nil, toMCPError("failed to list extractions", err)
	}

	response := map[string]interface{}{
		"extractions": records,
		"count":       len(records),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchSymbols handles the search_symbols tool invocation
func (s *Server) handleSearchSymbols(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", defaultSymbolLimit)
	if limit < 1 || limit > maxSymbolLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", maxSymbolLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	kind := getStringDefault(args, "kind", "")
	switch kind {
	case "", string(types.KindFunction), string(types.KindMethod), types.ClassType:
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid kind", map[string]interface{}{
			"param":   "kind",
			"value":   kind,
			"allowed": []string{string(types.KindFunction), string(types.KindMethod), types.ClassType},
		})
	}

	matches, err := s.storage.SearchSymbols(ctx, storage.SymbolQuery{
		Query:     strings.TrimSpace(query),
		ProjectID: strings.TrimSpace(getStringDefault(args, "project_id", "")),
		Kind:      kind,
		Limit:     limit,
	})
	if err != nil {
		return nil, toMCPError("symbol search failed", err)
	}

	response := map[string]interface{}{
		"query":   query,
		"matches": matches,
		"count":   len(matches),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleFindImporters handles the find_importers tool invocation
func (s *Server) handleFindImporters(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	module, ok := args["module"].(string)
	if !ok || strings.TrimSpace(module) == "" {
		return nil, missingParam("module")
	}
	module = strings.TrimSpace(module)

	importers, err := s.storage.ListImporters(ctx, module, strings.TrimSpace(getStringDefault(args, "project_id", "")))
	if err != nil {
		return nil, toMCPError("importer lookup failed", err)
	}

	response := map[string]interface{}{
		"module":    module,
		"importers": importers,
		"count":     len(importers),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleIndexDirectory handles the index_directory tool invocation
func (s *Server) handleIndexDirectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, missingParam("path")
	}
	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	projectID := strings.TrimSpace(getStringDefault(args, "project_id", ""))
	if projectID == "" {
		projectID = filepath.Base(filepath.Clean(path))
	}

	cfg := indexer.Config{}
	if s.indexCfg != nil {
		cfg = *s.indexCfg
	}
	cfg.Progress = nil
	cfg.Ignore = append(append([]string{}, cfg.Ignore...), getStringSlice(args, "ignore")...)

	stats, err := s.indexer.IndexDirectory(ctx, projectID, path, &cfg)
	if err != nil {
		return nil, toMCPError("indexing failed", err)
	}

	response := map[string]interface{}{
		"indexed":         true,
		"project_id":      projectID,
		"files_extracted": stats.FilesExtracted,
		"files_created":   stats.FilesCreated,
		"files_updated":   stats.FilesUpdated,
		"files_skipped":   stats.FilesSkipped,
		"files_failed":    stats.FilesFailed,
		"duration_ms":     stats.Duration.Milliseconds(),
	}

	if len(stats.ErrorMessages) > 0 {
		// Include first few errors
		errorCount := len(stats.ErrorMessages)
		if errorCount > 5 {
			response["errors"] = stats.ErrorMessages[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}

	status, err := s.storage.GetStatus(ctx, strings.TrimSpace(getStringDefault(args, "project_id", "")))
	if err != nil {
		return nil, toMCPError("failed to get status", err)
	}

	response := map[string]interface{}{
		"statistics": map[string]interface{}{
			"extractions_count": status.ExtractionsCount,
			"symbols_count":     status.SymbolsCount,
			"imports_count":     status.ImportsCount,
			"by_language":       status.ByLanguage,
		},
		"schema_version": status.SchemaVersion,
		"health": map[string]interface{}{
			"database_accessible": status.Health.DatabaseAccessible,
			"indexing":            s.indexer.Indexing(),
		},
	}
	if status.ProjectID != "" {
		response["project_id"] = status.ProjectID
	}
	if status.LastUpdatedAt != nil {
		response["last_updated_at"] = status.LastUpdatedAt.Format("2006-01-02T15:04:05Z07:00")
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func missingParam(name string) error {
	return newMCPError(ErrorCodeInvalidParams, name+" parameter is required", map[string]interface{}{
		"param":  name,
		"reason": "missing or empty",
	})
}

// toMCPError maps domain errors onto MCP error codes
func toMCPError(message string, err error) error {
	code := ErrorCodeInternalError
	switch {
	case errors.Is(err, types.ErrMissingField), errors.Is(err, types.ErrInvalidRequest):
		code = ErrorCodeInvalidParams
	case errors.Is(err, storage.ErrNotFound):
		code = ErrorCodeNotFound
	case errors.Is(err, indexer.ErrIndexingInProgress):
		code = ErrorCodeIndexingInProgress
	}
	return newMCPError(code, message, map[string]interface{}{
		"error": err.Error(),
	})
}

// validatePath checks that path is an absolute, readable directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter, skipping non-string items
func getStringSlice(args map[string]interface{}, key string) []string {
	switch val := args[key].(type) {
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
