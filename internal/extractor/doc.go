// Package extractor infers the structure of a source file from its text.
//
// Extraction is pattern matching, not parsing. The file extension selects a language
// from a static table, the language selects a ScannerSet, and each scanner runs one
// regular expression over the whole text:
//
//	ctx, hash := extractor.Extract(source, "app.ts")
//	for _, fn := range ctx.Functions {
//	    fmt.Printf("%s %s (line %d)\n", fn.Type, fn.Name, fn.Line)
//	}
//
// # Supported Languages
//
// Scanners exist for TypeScript/JavaScript, Python and Java. The remaining languages
// (cpp, c, go, rust, php, ruby, swift, kotlin) are detected but yield empty arrays, and
// unrecognized extensions yield language "unknown". Neither case is an error.
//
// # Known Limitations
//
// Scanners do not track nesting, scope, strings or comments. A declaration-shaped
// string literal is reported as a declaration, Java's method pattern also reports
// constructors and calls such as `return foo(` or `new Foo(`, and Python base classes
// are kept as one raw string ("A, B"). Callers rely on this profile; a more precise
// extractor belongs behind the Strategy interface under a new version name.
//
// # Concurrency
//
// All functions are pure and safe for concurrent use.
package extractor
