package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ctxextract/internal/indexer"
	"github.com/dshills/ctxextract/internal/storage"
	"github.com/dshills/ctxextract/pkg/types"
)

// brokenStorage fails every write
type brokenStorage struct {
	storage.Storage
}

func (b *brokenStorage) UpsertExtraction(ctx context.Context, rec *types.ExtractionRecord) (bool, error) {
	return false, errors.New("disk I/O error")
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewServer(indexer.New(store), store)
}

func callRequest(args interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func requireMCPError(t *testing.T, err error, code int) *MCPError {
	t.Helper()
	require.Error(t, err)
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr), "expected *MCPError, got %T", err)
	assert.Equal(t, code, mcpErr.Code)
	return mcpErr
}

func extract(t *testing.T, s *Server, projectID, name, content string) map[string]interface{} {
	t.Helper()
	result, err := s.handleExtractContext(context.Background(), callRequest(map[string]interface{}{
		"project_id": projectID,
		"file_name":  name,
		"file_path":  "src/" + name,
		"content":    content,
	}))
	require.NoError(t, err)
	return decodeResult(t, result)
}

func TestNewServer(t *testing.T) {
	s := newTestServer(t)

	assert.NotNil(t, s.mcp, "MCP server should be initialized")
	assert.NotNil(t, s.storage, "Storage should be initialized")
	assert.NotNil(t, s.indexer, "Indexer should be initialized")
	assert.NotNil(t, s.logger)
}

func TestHandleExtractContext(t *testing.T) {
	s := newTestServer(t)

	out := extract(t, s, "p1", "dog.py", "class Dog(Animal):\n    def bark(self):\n        pass\n")
	assert.Equal(t, true, out["created"])

	record := out["record"].(map[string]interface{})
	ctx := record["extractedContext"].(map[string]interface{})
	assert.Equal(t, "python", ctx["language"])
	classes := ctx["classes"].([]interface{})
	require.Len(t, classes, 1)
	assert.Equal(t, map[string]interface{}{
		"name": "Dog", "inherits": "Animal", "type": "class", "line": float64(1),
	}, classes[0])

	again := extract(t, s, "p1", "dog.py", "class Dog(Animal):\n    def bark(self):\n        pass\n")
	assert.Equal(t, false, again["created"])
	assert.Equal(t, record["id"], again["record"].(map[string]interface{})["id"])
}

func TestHandleExtractContext_Errors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	t.Run("arguments not an object", func(t *testing.T) {
		_, err := s.handleExtractContext(ctx, callRequest("not a map"))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("content absent", func(t *testing.T) {
		_, err := s.handleExtractContext(ctx, callRequest(map[string]interface{}{
			"project_id": "p", "file_name": "a.js", "file_path": "a.js",
		}))
		mcpErr := requireMCPError(t, err, ErrorCodeInvalidParams)
		assert.Equal(t, "content parameter is required", mcpErr.Message)
	})

	t.Run("empty project_id", func(t *testing.T) {
		_, err := s.handleExtractContext(ctx, callRequest(map[string]interface{}{
			"project_id": "", "file_name": "a.js", "file_path": "a.js", "content": "x",
		}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("persistence failure", func(t *testing.T) {
		store, err := storage.NewSQLiteStorage(":memory:")
		require.NoError(t, err)
		defer store.Close()
		broken := &brokenStorage{Storage: store}
		bs := NewServer(indexer.New(broken), broken)

		_, err = bs.handleExtractContext(ctx, callRequest(map[string]interface{}{
			"project_id": "p", "file_name": "a.js", "file_path": "a.js", "content": "x",
		}))
		requireMCPError(t, err, ErrorCodeInternalError)
	})
}

func TestToolArgumentsAreSnakeCase(t *testing.T) {
	snake := regexp.MustCompile(`^[a-z]+(_[a-z]+)*$`)
	for _, tool := range []mcp.Tool{
		extractContextTool(), getContextTool(), listContextsTool(), searchSymbolsTool(),
		findImportersTool(), indexDirectoryTool(), getStatusTool(),
	} {
		for key := range tool.InputSchema.Properties {
			assert.Regexp(t, snake, key, "tool %s", tool.Name)
		}
		for _, key := range tool.InputSchema.Required {
			assert.Contains(t, tool.InputSchema.Properties, key, "tool %s", tool.Name)
		}
	}

	// The HTTP body spelling is not accepted as a tool argument
	s := newTestServer(t)
	_, err := s.handleExtractContext(context.Background(), callRequest(map[string]interface{}{
		"projectId": "p", "fileName": "a.js", "filePath": "a.js", "content": "x",
	}))
	mcpErr := requireMCPError(t, err, ErrorCodeInvalidParams)
	assert.Equal(t, "project_id parameter is required", mcpErr.Message)
}

func TestHandleGetContext(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	created := extract(t, s, "p1", "main.rs", "fn main() {}")["record"].(map[string]interface{})

	result, err := s.handleGetContext(ctx, callRequest(map[string]interface{}{"id": created["id"]}))
	require.NoError(t, err)
	got := decodeResult(t, result)["record"].(map[string]interface{})
	assert.Equal(t, created["codeHash"], got["codeHash"])

	// Recognised language without scanners yields empty arrays
	ec := got["extractedContext"].(map[string]interface{})
	assert.Equal(t, "rust", ec["language"])
	assert.Equal(t, []interface{}{}, ec["functions"])

	result, err = s.handleGetContext(ctx, callRequest(map[string]interface{}{"code_hash": created["codeHash"]}))
	require.NoError(t, err)
	assert.Equal(t, created["id"], decodeResult(t, result)["record"].(map[string]interface{})["id"])

	_, err = s.handleGetContext(ctx, callRequest(map[string]interface{}{"id": "missing"}))
	requireMCPError(t, err, ErrorCodeNotFound)

	_, err = s.handleGetContext(ctx, callRequest(map[string]interface{}{}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestHandleListContexts(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	extract(t, s, "p1", "a.js", "function a() {}")
	extract(t, s, "p1", "b.py", "def b():\n    pass\n")
	extract(t, s, "p2", "C.java", "public class C {}")

	tests := []struct {
		name  string
		args  interface{}
		count int
	}{
		{"no arguments", nil, 3},
		{"by project", map[string]interface{}{"project_id": "p1"}, 2},
		{"by language", map[string]interface{}{"language": "Java"}, 1},
		{"limit", map[string]interface{}{"limit": float64(2)}, 2},
		{"offset", map[string]interface{}{"offset": float64(2)}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.handleListContexts(ctx, callRequest(tt.args))
			require.NoError(t, err)
			out := decodeResult(t, result)
			assert.Equal(t, float64(tt.count), out["count"])
			assert.Len(t, out["extractions"], tt.count)
		})
	}

	for _, bad := range []map[string]interface{}{
		{"limit": float64(0)},
		{"limit": float64(5000)},
		{"offset": float64(-1)},
		{"language": "cobol"},
	} {
		_, err := s.handleListContexts(ctx, callRequest(bad))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	}
}

func TestHandleSearchSymbols(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	extract(t, s, "p1", "greet.js", "function greet(name) {}\nclass Greeter extends Base {}\n")
	extract(t, s, "p2", "util.py", "def greeting():\n    pass\n")

	result, err := s.handleSearchSymbols(ctx, callRequest(map[string]interface{}{"query": "greet"}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, float64(3), out["count"])
	first := out["matches"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "greet", first["name"])

	result, err = s.handleSearchSymbols(ctx, callRequest(map[string]interface{}{
		"query": "greet", "kind": "class",
	}))
	require.NoError(t, err)
	out = decodeResult(t, result)
	require.Equal(t, float64(1), out["count"])
	match := out["matches"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Greeter", match["name"])
	assert.Equal(t, "Base", match["parent"])

	result, err = s.handleSearchSymbols(ctx, callRequest(map[string]interface{}{
		"query": "greet", "project_id": "p2",
	}))
	require.NoError(t, err)
	assert.Equal(t, float64(1), decodeResult(t, result)["count"])

	_, err = s.handleSearchSymbols(ctx, callRequest(map[string]interface{}{"query": "  "}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = s.handleSearchSymbols(ctx, callRequest(map[string]interface{}{"query": "g", "kind": "struct"}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = s.handleSearchSymbols(ctx, callRequest(map[string]interface{}{"query": "g", "limit": float64(101)}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestHandleFindImporters(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	extract(t, s, "p1", "app.ts", "import React from 'react';\nimport { x } from './x';\n")
	extract(t, s, "p1", "page.tsx", "import 'react';\n")
	extract(t, s, "p1", "other.ts", "import lodash from 'lodash';\n")

	result, err := s.handleFindImporters(ctx, callRequest(map[string]interface{}{"module": "react"}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, "react", out["module"])
	assert.Equal(t, float64(2), out["count"])

	_, err = s.handleFindImporters(ctx, callRequest(map[string]interface{}{}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestHandleIndexDirectory(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vendor"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "app.js"), []byte("function app() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "util.py"), []byte("import os\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "vendor", "lib.js"), []byte("function lib() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# readme\n"), 0o644))

	result, err := s.handleIndexDirectory(ctx, callRequest(map[string]interface{}{
		"path":       root,
		"project_id": "demo",
		"ignore":     []interface{}{"vendor/**"},
	}))
	require.NoError(t, err)
	out := decodeResult(t, result)
	assert.Equal(t, "demo", out["project_id"])
	assert.Equal(t, float64(2), out["files_extracted"])
	assert.Equal(t, float64(2), out["files_created"])

	list, err := s.handleListContexts(ctx, callRequest(map[string]interface{}{"project_id": "demo"}))
	require.NoError(t, err)
	assert.Equal(t, float64(2), decodeResult(t, list)["count"])

	t.Run("project id defaults to directory name", func(t *testing.T) {
		result, err := s.handleIndexDirectory(ctx, callRequest(map[string]interface{}{"path": root}))
		require.NoError(t, err)
		assert.Equal(t, filepath.Base(root), decodeResult(t, result)["project_id"])
	})

	t.Run("relative path", func(t *testing.T) {
		_, err := s.handleIndexDirectory(ctx, callRequest(map[string]interface{}{"path": "relative/dir"}))
		mcpErr := requireMCPError(t, err, ErrorCodeInvalidParams)
		assert.Equal(t, ErrPathNotAbsolute.Error(), mcpErr.Data.(map[string]interface{})["reason"])
	})

	t.Run("file instead of directory", func(t *testing.T) {
		_, err := s.handleIndexDirectory(ctx, callRequest(map[string]interface{}{"path": filepath.Join(root, "README.md")}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})

	t.Run("invalid ignore pattern", func(t *testing.T) {
		_, err := s.handleIndexDirectory(ctx, callRequest(map[string]interface{}{
			"path": root, "ignore": []interface{}{"[unclosed"},
		}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	})
}

func TestHandleGetStatus(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	result, err := s.handleGetStatus(ctx, callRequest(nil))
	require.NoError(t, err)
	out := decodeResult(t, result)
	stats := out["statistics"].(map[string]interface{})
	assert.Equal(t, float64(0), stats["extractions_count"])
	assert.NotContains(t, out, "last_updated_at")

	extract(t, s, "p1", "a.js", "import x from 'y';\nfunction a() {}\n")

	result, err = s.handleGetStatus(ctx, callRequest(map[string]interface{}{"project_id": "p1"}))
	require.NoError(t, err)
	out = decodeResult(t, result)
	stats = out["statistics"].(map[string]interface{})
	assert.Equal(t, "p1", out["project_id"])
	assert.Equal(t, float64(1), stats["extractions_count"])
	assert.Equal(t, float64(1), stats["symbols_count"])
	assert.Equal(t, float64(1), stats["imports_count"])
	assert.Equal(t, storage.CurrentSchemaVersion, out["schema_version"])
	assert.Contains(t, out, "last_updated_at")

	health := out["health"].(map[string]interface{})
	assert.Equal(t, true, health["database_accessible"])
	assert.Equal(t, false, health["indexing"])
}

func TestToMCPError(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{types.ErrMissingField, ErrorCodeInvalidParams},
		{storage.ErrNotFound, ErrorCodeNotFound},
		{indexer.ErrIndexingInProgress, ErrorCodeIndexingInProgress},
		{&indexer.PersistenceError{Op: "upsert", Err: errors.New("boom")}, ErrorCodeInternalError},
	}

	for _, tt := range tests {
		var mcpErr *MCPError
		require.True(t, errors.As(toMCPError("failed", tt.err), &mcpErr))
		assert.Equal(t, tt.code, mcpErr.Code, tt.err.Error())
	}
}

func TestArgumentHelpers(t *testing.T) {
	args := map[string]interface{}{
		"n":     float64(7),
		"i":     3,
		"s":     "x",
		"slice": []interface{}{"a", 1, "b"},
	}

	assert.Equal(t, 7, getIntDefault(args, "n", 0))
	assert.Equal(t, 3, getIntDefault(args, "i", 0))
	assert.Equal(t, 9, getIntDefault(args, "missing", 9))
	assert.Equal(t, "x", getStringDefault(args, "s", ""))
	assert.Equal(t, "d", getStringDefault(args, "n", "d"))
	assert.Equal(t, []string{"a", "b"}, getStringSlice(args, "slice"))
	assert.Nil(t, getStringSlice(args, "missing"))
}
