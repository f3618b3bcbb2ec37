package extractor

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/ctxextract/pkg/types"
)

// extensionTable maps lower-cased file extensions to language tags.
// Anything not listed resolves to types.LangUnknown.
var extensionTable = map[string]types.Language{
	"ts":    types.LangTypeScript,
	"tsx":   types.LangTypeScript,
	"mts":   types.LangTypeScript,
	"cts":   types.LangTypeScript,
	"js":    types.LangJavaScript,
	"jsx":   types.LangJavaScript,
	"mjs":   types.LangJavaScript,
	"cjs":   types.LangJavaScript,
	"py":    types.LangPython,
	"pyw":   types.LangPython,
	"java":  types.LangJava,
	"cpp":   types.LangCPP,
	"cc":    types.LangCPP,
	"cxx":   types.LangCPP,
	"hpp":   types.LangCPP,
	"hh":    types.LangCPP,
	"c":     types.LangC,
	"h":     types.LangC,
	"go":    types.LangGo,
	"rs":    types.LangRust,
	"php":   types.LangPHP,
	"rb":    types.LangRuby,
	"swift": types.LangSwift,
	"kt":    types.LangKotlin,
	"kts":   types.LangKotlin,
}

// Extension returns the lower-cased text after the last '.' of the file's base name.
// Names without a dot, or ending in one, have no extension.
func Extension(fileName string) string {
	base := filepath.Base(strings.ReplaceAll(fileName, `\`, "/"))
	idx := strings.LastIndex(base, ".")
	if idx < 0 || idx == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[idx+1:])
}

// DetectLanguage resolves an extension (without the dot) to a language tag
func DetectLanguage(ext string) types.Language {
	if lang, ok := extensionTable[strings.ToLower(strings.TrimPrefix(ext, "."))]; ok {
		return lang
	}
	return types.LangUnknown
}

// LanguageForFile combines Extension and DetectLanguage
func LanguageForFile(fileName string) types.Language {
	return DetectLanguage(Extension(fileName))
}

// SupportedExtensions returns every extension that resolves to a known language, sorted
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensionTable))
	for ext := range extensionTable {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
