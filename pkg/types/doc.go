// Package types provides shared type definitions for the ctxextract service.
//
// # Core Types
//
// ExtractionRecord is one persisted extraction, keyed by the SHA-256 of its content:
//
//	rec := &types.ExtractionRecord{
//	    ProjectID: "proj-1",
//	    FileName:  "app.ts",
//	    FilePath:  "src/app.ts",
//	    Content:   source,
//	}
//	rec.ComputeHash()
//
// ExtractedContext is the structured summary produced by the scanners. Every slice is
// non-nil after Normalize, so JSON output never carries null arrays:
//
//	{
//	  "language": "python",
//	  "functions": [{"name": "main", "type": "function", "line": 3}],
//	  "imports": ["os"],
//	  "exports": [],
//	  "classes": [{"name": "Dog", "inherits": "Animal", "type": "class", "line": 7}],
//	  "dependencies": [], "variables": [], "comments": []
//	}
//
// # Classes
//
// A class parent is serialized under "extends" for JS/TS and Java and under "inherits"
// for Python, with null when the declaration names no parent.
//
// # Languages
//
// Language is a closed enumeration. LangUnknown is a valid result, not an error.
package types
