package extractor

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ctxextract/pkg/types"
)

func functionNames(fns []types.Function) []string {
	names := make([]string, 0, len(fns))
	for _, fn := range fns {
		names = append(names, fn.Name)
	}
	return names
}

func TestExtract_JSFunctions(t *testing.T) {
	content := "function greet(name) { return name; }\nconst add = (a,b) => a+b;"

	ctx := NewPattern().Extract(content, "util.js")

	assert.Equal(t, types.LangJavaScript, ctx.Language)
	require.Len(t, ctx.Functions, 2)
	assert.Equal(t, types.Function{Name: "greet", Type: types.KindFunction, Line: 1}, ctx.Functions[0])
	assert.Equal(t, types.Function{Name: "add", Type: types.KindFunction, Line: 2}, ctx.Functions[1])
}

func TestExtract_JSFunctionForms(t *testing.T) {
	content := `const a = function() {}
const b = async (x) => x
const c = async y => y
const d = z => z
const notAFunction = 42
function   spaced  (q) {}
`
	ctx := NewPattern().Extract(content, "forms.ts")

	assert.Equal(t, []string{"a", "b", "c", "d", "spaced"}, functionNames(ctx.Functions))
	assert.Equal(t, 6, ctx.Functions[4].Line)
}

func TestExtract_JSImports(t *testing.T) {
	content := `import React from "react";
import { useState, useEffect } from 'react';
import * as path from "path";
import "./styles.css";
import type { Config } from "./config";
const lazy = import("./lazy");
`
	ctx := NewPattern().Extract(content, "App.tsx")

	assert.Equal(t, types.LangTypeScript, ctx.Language)
	assert.Equal(t, []string{"react", "react", "path", "./styles.css", "./config"}, ctx.Imports)
}

func TestExtract_JSExports(t *testing.T) {
	content := `export function render() {}
export default class App {}
export const VERSION = "1";
export { alpha, beta ,gamma, }
export default 42;
`
	ctx := NewPattern().Extract(content, "index.js")

	assert.Equal(t, []string{"render", "App", "VERSION", "alpha", "beta", "gamma"}, ctx.Exports)
}

func TestExtract_JSDefaultExportWithoutName(t *testing.T) {
	ctx := NewPattern().Extract("export default 42;\nexport default () => {};", "a.js")
	assert.Empty(t, ctx.Exports)
	assert.NotNil(t, ctx.Exports)
}

func TestExtract_JSClasses(t *testing.T) {
	content := "class Animal {}\n\nclass Dog extends Animal {\n}"

	ctx := NewPattern().Extract(content, "zoo.ts")

	require.Len(t, ctx.Classes, 2)
	assert.Equal(t, "Animal", ctx.Classes[0].Name)
	assert.Nil(t, ctx.Classes[0].Parent)
	assert.Equal(t, 1, ctx.Classes[0].Line)
	assert.Equal(t, "Dog", ctx.Classes[1].Name)
	assert.Equal(t, "Animal", ctx.Classes[1].ParentName())
	assert.Equal(t, types.RelationExtends, ctx.Classes[1].Relation)
	assert.Equal(t, 3, ctx.Classes[1].Line)
}

func TestExtract_PythonImports(t *testing.T) {
	ctx := NewPattern().Extract("import os\nfrom collections import OrderedDict", "script.py")

	assert.Equal(t, types.LangPython, ctx.Language)
	assert.Equal(t, []string{"os", "collections"}, ctx.Imports)
}

func TestExtract_PythonRelativeAndDottedImports(t *testing.T) {
	content := "import os.path\nfrom .models import User\nfrom . import views\n"
	ctx := NewPattern().Extract(content, "app.py")

	assert.Equal(t, []string{"os.path", ".models", "."}, ctx.Imports)
}

func TestExtract_PythonClassInheritance(t *testing.T) {
	ctx := NewPattern().Extract("class Dog(Animal):", "pets.py")

	require.Len(t, ctx.Classes, 1)
	assert.Equal(t, "Dog", ctx.Classes[0].Name)
	assert.Equal(t, "Animal", ctx.Classes[0].ParentName())
	assert.Equal(t, types.RelationInherits, ctx.Classes[0].Relation)
}

func TestExtract_PythonMultipleBasesKeptRaw(t *testing.T) {
	content := "class Plain:\n    pass\nclass Empty():\n    pass\nclass Mixed(Base, Mixin):\n    pass\n"
	ctx := NewPattern().Extract(content, "m.py")

	require.Len(t, ctx.Classes, 3)
	assert.Nil(t, ctx.Classes[0].Parent)
	assert.Nil(t, ctx.Classes[1].Parent)
	assert.Equal(t, "Base, Mixin", ctx.Classes[2].ParentName())
	assert.Equal(t, 5, ctx.Classes[2].Line)
}

func TestExtract_PythonFunctions(t *testing.T) {
	content := "def main():\n    pass\n\nclass Svc:\n    def run(self, x):\n        return x\n"
	ctx := NewPattern().Extract(content, "svc.py")

	require.Len(t, ctx.Functions, 2)
	assert.Equal(t, types.Function{Name: "main", Type: types.KindFunction, Line: 1}, ctx.Functions[0])
	assert.Equal(t, types.Function{Name: "run", Type: types.KindFunction, Line: 5}, ctx.Functions[1])
	assert.Empty(t, ctx.Exports)
}

func TestExtract_Java(t *testing.T) {
	content := `package com.example;

import java.util.List;
import static org.junit.Assert.*;

public class Dog extends Animal {
    @Override
    public void speak() {
        System.out.println("woof");
    }

    private static List<String> names(int n) {
        return helper(n);
    }
}
`
	ctx := NewPattern().Extract(content, "Dog.java")

	assert.Equal(t, types.LangJava, ctx.Language)
	assert.Equal(t, []string{"java.util.List", "org.junit.Assert.*"}, ctx.Imports)

	require.Len(t, ctx.Classes, 1)
	assert.Equal(t, "Dog", ctx.Classes[0].Name)
	assert.Equal(t, "Animal", ctx.Classes[0].ParentName())
	assert.Equal(t, 6, ctx.Classes[0].Line)

	// "return helper(" matches the loose method shape and is reported too
	assert.Equal(t, []string{"speak", "names", "helper"}, functionNames(ctx.Functions))
	for _, fn := range ctx.Functions {
		assert.Equal(t, types.KindMethod, fn.Type)
	}
	assert.Equal(t, 8, ctx.Functions[0].Line)
	assert.Equal(t, 12, ctx.Functions[1].Line)
}

func TestExtract_JavaConstructorReportedAsMethod(t *testing.T) {
	content := "class Box<T> extends Base {\n  public Box(T value) {}\n}\nObject o = new Box(1);"
	ctx := NewPattern().Extract(content, "Box.java")

	require.Len(t, ctx.Classes, 1)
	assert.Equal(t, "Box", ctx.Classes[0].Name)
	assert.Equal(t, "Base", ctx.Classes[0].ParentName())
	assert.Equal(t, []string{"Box", "Box"}, functionNames(ctx.Functions))
}

func TestExtract_UnsupportedLanguage(t *testing.T) {
	content := "use std::io;\n\nfn main() {\n    println!(\"hi\");\n}\nstruct S;\nimpl S { fn f(&self) {} }\n"

	ctx := NewPattern().Extract(content, "main.rs")

	assert.Equal(t, types.LangRust, ctx.Language)
	assert.Empty(t, ctx.Functions)
	assert.Empty(t, ctx.Imports)
	assert.Empty(t, ctx.Exports)
	assert.Empty(t, ctx.Classes)
	assert.NotNil(t, ctx.Functions)
	assert.NotNil(t, ctx.Classes)
}

func TestExtract_UnknownExtension(t *testing.T) {
	ctx := NewPattern().Extract("function looksLikeJS() {}\nclass X {}", "notes.xyz")

	assert.Equal(t, types.LangUnknown, ctx.Language)
	assert.True(t, ctx.IsEmpty())
	assert.NotNil(t, ctx.Dependencies)
	assert.NotNil(t, ctx.Variables)
	assert.NotNil(t, ctx.Comments)
}

func TestExtract_LineNumbering(t *testing.T) {
	lines := []string{
		"// header",
		"",
		"import x from 'x';",
		"",
		"function fifth() {}",
		"",
		"",
		"",
		"",
		"",
	}
	ctx := NewPattern().Extract(strings.Join(lines, "\n"), "ten.js")

	require.Len(t, ctx.Functions, 1)
	assert.Equal(t, 5, ctx.Functions[0].Line)
}

func TestExtract_CRLFLineEndings(t *testing.T) {
	ctx := NewPattern().Extract("import os\r\n\r\ndef f():\r\n    pass\r\n", "w.py")

	require.Len(t, ctx.Functions, 1)
	assert.Equal(t, 3, ctx.Functions[0].Line)
}

// Scanners are pattern matchers; declaration-shaped text in strings and comments is
// reported as a declaration.
func TestExtract_KnownFalsePositives(t *testing.T) {
	t.Run("python string misrouted to js scanner", func(t *testing.T) {
		content := `template = "function foo() {}"`
		ctx := NewPattern().Extract(content, "template.js")
		assert.Equal(t, []string{"foo"}, functionNames(ctx.Functions))
	})

	t.Run("def inside python string", func(t *testing.T) {
		content := "code = \"def fake(): pass\"\n"
		ctx := NewPattern().Extract(content, "gen.py")
		assert.Equal(t, []string{"fake"}, functionNames(ctx.Functions))
	})

	t.Run("commented out js function", func(t *testing.T) {
		content := "// function legacy() {}\n/* class Old extends Base */"
		ctx := NewPattern().Extract(content, "old.ts")
		assert.Equal(t, []string{"legacy"}, functionNames(ctx.Functions))
		require.Len(t, ctx.Classes, 1)
		assert.Equal(t, "Old", ctx.Classes[0].Name)
	})

	t.Run("import word in python comment", func(t *testing.T) {
		ctx := NewPattern().Extract("# we import torch lazily\n", "lazy.py")
		assert.Equal(t, []string{"torch"}, ctx.Imports)
	})
}

func TestExtract_CategoriesIndependent(t *testing.T) {
	ctx := NewPattern().Extract("function onlyFunctions() {}\nrequire('fs');", "cjs.js")

	assert.Len(t, ctx.Functions, 1)
	assert.Empty(t, ctx.Imports)
	assert.Empty(t, ctx.Exports)
}

func TestExtract_HashIndependentOfName(t *testing.T) {
	content := "def f():\n    return 1\n"

	_, h1 := Extract(content, "a.py")
	_, h2 := Extract(content, "b.js")
	_, h3 := Extract(content+" ", "a.py")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Equal(t, types.ComputeCodeHash(content), h1)
}

func TestExtract_EmptyContent(t *testing.T) {
	ctx, hash := Extract("", "empty.ts")

	assert.Equal(t, types.LangTypeScript, ctx.Language)
	assert.True(t, ctx.IsEmpty())
	assert.NotEmpty(t, hash)
}

func TestExtract_Concurrent(t *testing.T) {
	p := NewPattern()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := p.Extract("class A(B):\n    def m(self): pass\n", "c.py")
			assert.Len(t, ctx.Classes, 1)
			assert.Len(t, ctx.Functions, 1)
		}()
	}
	wg.Wait()
}

func TestPattern_Name(t *testing.T) {
	var s Strategy = NewPattern()
	assert.Equal(t, PatternVersion, s.Name())
}

func TestScannersFor(t *testing.T) {
	for _, lang := range []types.Language{types.LangTypeScript, types.LangJavaScript, types.LangPython, types.LangJava} {
		_, ok := ScannersFor(lang)
		assert.True(t, ok, lang)
	}
	for _, lang := range []types.Language{types.LangGo, types.LangRust, types.LangCPP, types.LangUnknown} {
		_, ok := ScannersFor(lang)
		assert.False(t, ok, lang)
	}
}

func TestLineIndex(t *testing.T) {
	content := "a\nbb\n\nccc"
	li := newLineIndex(content)

	for offset := 0; offset <= len(content); offset++ {
		expected := strings.Count(content[:offset], "\n") + 1
		assert.Equal(t, expected, li.lineAt(offset), "offset %d", offset)
	}
}
