package extractor

import (
	"github.com/dshills/ctxextract/pkg/types"
)

// PatternVersion names the regex scanner strategy stored with every record it produces
const PatternVersion = "pattern/v1"

// Strategy turns file text into an ExtractedContext.
// Implementations must be safe for concurrent use and must not fail on any string input.
type Strategy interface {
	Name() string
	Extract(content, fileName string) types.ExtractedContext
}

// Pattern is the regex-based strategy: extension lookup, then the language's scanners
type Pattern struct{}

// NewPattern returns the pattern strategy
func NewPattern() *Pattern {
	return &Pattern{}
}

// Name returns PatternVersion
func (p *Pattern) Name() string {
	return PatternVersion
}

// Extract detects the language from fileName and runs the matching scanners.
// Unknown or unsupported languages produce an empty, normalized context.
func (p *Pattern) Extract(content, fileName string) types.ExtractedContext {
	return ExtractLanguage(content, LanguageForFile(fileName))
}

// ExtractLanguage runs the scanners for an already resolved language
func ExtractLanguage(content string, lang types.Language) types.ExtractedContext {
	ec := types.ExtractedContext{Language: lang}

	if set, ok := ScannersFor(lang); ok {
		if set.Functions != nil {
			ec.Functions = set.Functions(content)
		}
		if set.Imports != nil {
			ec.Imports = set.Imports(content)
		}
		if set.Exports != nil {
			ec.Exports = set.Exports(content)
		}
		if set.Classes != nil {
			ec.Classes = set.Classes(content)
		}
	}

	ec.Normalize()
	return ec
}

// Extract runs the pattern strategy and returns the context with the content hash
func Extract(content, fileName string) (types.ExtractedContext, string) {
	return NewPattern().Extract(content, fileName), types.ComputeCodeHash(content)
}
