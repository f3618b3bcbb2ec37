package extractor

import (
	"regexp"
	"strings"

	"github.com/dshills/ctxextract/pkg/types"
)

// ScannerSet holds the per-category scanners for one language.
// A nil scanner yields an empty result for its category.
type ScannerSet struct {
	Functions func(content string) []types.Function
	Imports   func(content string) []string
	Exports   func(content string) []string
	Classes   func(content string) []types.Class
}

var jsScanners = ScannerSet{
	Functions: scanJSFunctions,
	Imports:   scanJSImports,
	Exports:   scanJSExports,
	Classes:   scanJSClasses,
}

// scannerTable is the single dispatch point from language to scanners.
// Recognized languages missing from the table (cpp, go, rust, ...) extract nothing.
var scannerTable = map[types.Language]ScannerSet{
	types.LangTypeScript: jsScanners,
	types.LangJavaScript: jsScanners,
	types.LangPython: {
		Functions: scanPythonFunctions,
		Imports:   scanPythonImports,
		Classes:   scanPythonClasses,
	},
	types.LangJava: {
		Functions: scanJavaMethods,
		Imports:   scanJavaImports,
		Classes:   scanJavaClasses,
	},
}

// ScannersFor returns the scanner set registered for lang
func ScannersFor(lang types.Language) (ScannerSet, bool) {
	set, ok := scannerTable[lang]
	return set, ok
}

// Patterns are applied to the raw text in one pass. They do not know about scope,
// string literals or comments, so a declaration-shaped string is reported as a match.
var (
	jsFunctionPattern = regexp.MustCompile(
		`function\s+(\w+)\s*\(|const\s+(\w+)\s*=\s*(?:async\s+)?(?:function\b|\([^)]*\)\s*=>|\w+\s*=>)`)
	jsImportPattern = regexp.MustCompile(
		`import\s+(?:[\w*{}\s,$]+?\s+from\s+)?['"]([^'"]+)['"]`)
	jsExportPattern = regexp.MustCompile(
		`export\s+(?:default\s+)?(?:function|const|class)\s+(\w+)|export\s*\{([^}]*)\}`)
	jsClassPattern = regexp.MustCompile(
		`class\s+(\w+)(?:\s+extends\s+([\w.]+))?`)

	pyFunctionPattern = regexp.MustCompile(`def\s+(\w+)\s*\(`)
	pyImportPattern   = regexp.MustCompile(`from\s+([\w.]+)\s+import\b|import\s+([\w.]+)`)
	pyClassPattern    = regexp.MustCompile(`class\s+(\w+)\s*(?:\(([^)]*)\))?\s*:`)

	javaMethodPattern = regexp.MustCompile(
		`(?:(?:public|private|protected|static|final|abstract|synchronized|native)\s+)*[\w<>\[\],]+\s+(\w+)\s*\(`)
	javaImportPattern = regexp.MustCompile(`import\s+(?:static\s+)?([\w.]+(?:\.\*)?)\s*;`)
	javaClassPattern  = regexp.MustCompile(
		`(?:(?:public|private|protected|abstract|final|static)\s+)*class\s+(\w+)(?:<[^>]*>)?(?:\s+extends\s+([\w.]+))?`)
)

// lineIndex answers "which line does this byte offset sit on" for one content string
type lineIndex struct {
	starts []int
}

func newLineIndex(content string) lineIndex {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return lineIndex{starts: starts}
}

// lineAt returns the 1-based line of offset
func (li lineIndex) lineAt(offset int) int {
	lo, hi := 0, len(li.starts)
	for lo < hi {
		mid := (lo + hi) / 2
		if li.starts[mid] <= offset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// group returns the text of submatch n or "" when it did not participate
func group(content string, m []int, n int) (string, bool) {
	if 2*n+1 >= len(m) || m[2*n] < 0 {
		return "", false
	}
	return content[m[2*n]:m[2*n+1]], true
}

// firstGroup returns the first participating submatch among ns
func firstGroup(content string, m []int, ns ...int) string {
	for _, n := range ns {
		if s, ok := group(content, m, n); ok {
			return s
		}
	}
	return ""
}

func scanFunctions(content string, re *regexp.Regexp, kind types.FunctionKind, groups ...int) []types.Function {
	functions := make([]types.Function, 0)
	lines := newLineIndex(content)
	for _, m := range re.FindAllStringSubmatchIndex(content, -1) {
		name := firstGroup(content, m, groups...)
		if name == "" {
			continue
		}
		functions = append(functions, types.Function{
			Name: name,
			Type: kind,
			Line: lines.lineAt(m[0]),
		})
	}
	return functions
}

func scanStrings(content string, re *regexp.Regexp, groups ...int) []string {
	out := make([]string, 0)
	for _, m := range re.FindAllStringSubmatchIndex(content, -1) {
		if s := firstGroup(content, m, groups...); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func scanClasses(content string, re *regexp.Regexp, relation types.ParentRelation) []types.Class {
	classes := make([]types.Class, 0)
	lines := newLineIndex(content)
	for _, m := range re.FindAllStringSubmatchIndex(content, -1) {
		name, _ := group(content, m, 1)
		class := types.Class{
			Name:     name,
			Relation: relation,
			Line:     lines.lineAt(m[0]),
		}
		if parent, ok := group(content, m, 2); ok && strings.TrimSpace(parent) != "" {
			parent = strings.TrimSpace(parent)
			class.Parent = &parent
		}
		classes = append(classes, class)
	}
	return classes
}

// JavaScript / TypeScript

func scanJSFunctions(content string) []types.Function {
	return scanFunctions(content, jsFunctionPattern, types.KindFunction, 1, 2)
}

func scanJSImports(content string) []string {
	return scanStrings(content, jsImportPattern, 1)
}

func scanJSExports(content string) []string {
	exports := make([]string, 0)
	for _, m := range jsExportPattern.FindAllStringSubmatchIndex(content, -1) {
		if name, ok := group(content, m, 1); ok {
			exports = append(exports, name)
			continue
		}
		list, _ := group(content, m, 2)
		for _, part := range strings.Split(list, ",") {
			if part = strings.TrimSpace(part); part != "" {
				exports = append(exports, part)
			}
		}
	}
	return exports
}

func scanJSClasses(content string) []types.Class {
	return scanClasses(content, jsClassPattern, types.RelationExtends)
}

// Python

func scanPythonFunctions(content string) []types.Function {
	return scanFunctions(content, pyFunctionPattern, types.KindFunction, 1)
}

func scanPythonImports(content string) []string {
	return scanStrings(content, pyImportPattern, 1, 2)
}

func scanPythonClasses(content string) []types.Class {
	return scanClasses(content, pyClassPattern, types.RelationInherits)
}

// Java

func scanJavaMethods(content string) []types.Function {
	return scanFunctions(content, javaMethodPattern, types.KindMethod, 1)
}

func scanJavaImports(content string) []string {
	return scanStrings(content, javaImportPattern, 1)
}

func scanJavaClasses(content string) []types.Class {
	return scanClasses(content, javaClassPattern, types.RelationExtends)
}
