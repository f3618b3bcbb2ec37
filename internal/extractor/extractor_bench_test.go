package extractor

import (
	"strings"
	"testing"
)

func BenchmarkExtract_TypeScript(b *testing.B) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("import { a } from './a';\nexport function f() {}\nclass C extends D {}\nconst g = (x) => x;\n")
	}
	content := sb.String()
	p := NewPattern()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = p.Extract(content, "bench.ts")
	}
}

func BenchmarkExtract_Java(b *testing.B) {
	var sb strings.Builder
	sb.WriteString("import java.util.List;\npublic class Big extends Base {\n")
	for i := 0; i < 200; i++ {
		sb.WriteString("    public int method(int x) { return x; }\n")
	}
	sb.WriteString("}\n")
	content := sb.String()
	p := NewPattern()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = p.Extract(content, "Big.java")
	}
}
