// Package mcp implements the Model Context Protocol (MCP) server for ctxextract.
//
// The MCP server exposes the extraction store to AI coding assistants:
//   - extract_context: Extract and store one file's functions, imports, exports and classes
//   - get_context: Fetch a stored extraction by id or code hash
//   - list_contexts: List stored extractions, newest first
//   - search_symbols: Find functions, methods and classes by name
//   - find_importers: List files importing a module
//   - index_directory: Extract every recognised file under a directory
//   - get_status: Report counts and store health
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is started via the mcp command:
//
//	ctxextract mcp
//
// # Tool: extract_context
//
// Tool arguments use snake_case keys. Stored records keep the camelCase JSON
// field names of the HTTP API.
//
//	Request:
//	{
//	  "name": "extract_context",
//	  "arguments": {
//	    "project_id": "web",
//	    "file_name": "app.js",
//	    "file_path": "src/app.js",
//	    "content": "function greet(name) {}\nconst add = (a, b) => a + b;"
//	  }
//	}
//
//	Response:
//	{
//	  "created": true,
//	  "record": {
//	    "id": "5f0c...",
//	    "codeHash": "9b1d...",
//	    "extractedContext": {
//	      "language": "javascript",
//	      "functions": [
//	        {"name": "greet", "type": "function", "line": 1},
//	        {"name": "add", "type": "function", "line": 2}
//	      ],
//	      "imports": [], "exports": [], "classes": [],
//	      "dependencies": [], "variables": [], "comments": []
//	    }
//	  }
//	}
//
// Submitting the same content again updates the existing record and reports
// "created": false.
//
// # Tool: search_symbols
//
//	Request:
//	{
//	  "name": "search_symbols",
//	  "arguments": {"query": "greet", "kind": "function", "limit": 10}
//	}
//
// Exact name matches rank first, then shorter names.
//
// # Tool: index_directory
//
//	Request:
//	{
//	  "name": "index_directory",
//	  "arguments": {
//	    "path": "/path/to/project",
//	    "project_id": "web",
//	    "ignore": ["node_modules/**", "**/*.min.js"]
//	  }
//	}
//
//	Response:
//	{
//	  "indexed": true,
//	  "files_extracted": 120,
//	  "files_created": 118,
//	  "files_updated": 2,
//	  "files_skipped": 40,
//	  "files_failed": 0,
//	  "duration_ms": 812
//	}
//
// # Error Handling
//
// Handlers return *MCPError values carrying JSON-RPC style codes:
//   - -32602: Invalid params (missing or invalid arguments)
//   - -32603: Internal error (persistence failure)
//   - -32002: Indexing in progress
//   - -32004: Record not found
//
// # Logging
//
// The MCP server logs to stderr (stdout is reserved for MCP protocol).
package mcp
