package types

// Language identifies which scanner set applies to a file
type Language string

const (
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangPython     Language = "python"
	LangJava       Language = "java"
	LangCPP        Language = "cpp"
	LangC          Language = "c"
	LangGo         Language = "go"
	LangRust       Language = "rust"
	LangPHP        Language = "php"
	LangRuby       Language = "ruby"
	LangSwift      Language = "swift"
	LangKotlin     Language = "kotlin"
	LangUnknown    Language = "unknown"
)

// AllLanguages lists every language tag, unknown last
var AllLanguages = []Language{
	LangTypeScript, LangJavaScript, LangPython, LangJava, LangCPP, LangC,
	LangGo, LangRust, LangPHP, LangRuby, LangSwift, LangKotlin, LangUnknown,
}

// Valid reports whether l is one of the known language tags (unknown included)
func (l Language) Valid() bool {
	for _, known := range AllLanguages {
		if l == known {
			return true
		}
	}
	return false
}

func (l Language) String() string {
	return string(l)
}
