package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/ctxextract/pkg/types"
)

// languageEnum lists every language tag a record can carry
func languageEnum() []string {
	langs := types.AllLanguages
	out := make([]string, len(langs))
	for i, l := range langs {
		out[i] = string(l)
	}
	return out
}

// extractContextTool returns the tool definition for extract_context
func extractContextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "extract_context",
		Description: "Extract functions, imports, exports and classes from one source file and store the result keyed by content hash",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Project the file belongs to",
				},
				"file_name": map[string]interface{}{
					"type":        "string",
					"description": "File name; its extension selects the language",
				},
				"file_path": map[string]interface{}{
					"type":        "string",
					"description": "Path of the file within the project",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Full file content (may be empty)",
				},
			},
			Required: []string{"project_id", "file_name", "file_path", "content"},
		},
	}
}

// getContextTool returns the tool definition for get_context
func getContextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_context",
		Description: "Fetch one stored extraction by id or by code hash",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Record id",
				},
				"code_hash": map[string]interface{}{
					"type":        "string",
					"description": "Hex SHA-256 of the content, used when id is not given",
				},
			},
		},
	}
}

// listContextsTool returns the tool definition for list_contexts
func listContextsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_contexts",
		Description: "List stored extractions, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Only records of this project",
				},
				"language": map[string]interface{}{
					"type":        "string",
					"description": "Only records of this language",
					"enum":        languageEnum(),
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of records to return (1-1000)",
					"default":     20,
					"minimum":     1,
					"maximum":     1000,
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Number of records to skip",
					"default":     0,
					"minimum":     0,
				},
			},
		},
	}
}

// searchSymbolsTool returns the tool definition for search_symbols
func searchSymbolsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_symbols",
		Description: "Find functions, methods and classes whose name contains the query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Substring to search for in symbol names",
				},
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Only symbols of this project",
				},
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "Only symbols of this kind",
					"enum":        []string{"function", "method", "class"},
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     20,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}

// findImportersTool returns the tool definition for find_importers
func findImportersTool() mcp.Tool {
	return mcp.Tool{
		Name:        "find_importers",
		Description: "List stored files that import the given module",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"module": map[string]interface{}{
					"type":        "string",
					"description": "Import specifier exactly as written, e.g. 'react' or 'java.util.List'",
				},
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Only files of this project",
				},
			},
			Required: []string{"module"},
		},
	}
}

// indexDirectoryTool returns the tool definition for index_directory
func indexDirectoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_directory",
		Description: "Extract every recognised source file under a directory",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the directory",
				},
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Project id for the stored records (defaults to the directory name)",
				},
				"ignore": map[string]interface{}{
					"type":        "array",
					"description": "Glob patterns relative to path to skip, e.g. 'node_modules/**'",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
			Required: []string{"path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report extraction counts and store health",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Only count records of this project",
				},
			},
		},
	}
}
