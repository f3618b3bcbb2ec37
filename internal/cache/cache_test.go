package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ctxextract/pkg/types"
)

func sampleContext() types.ExtractedContext {
	ec := types.NewExtractedContext(types.LangPython)
	ec.Imports = []string{"os"}
	ec.Functions = []types.Function{{Name: "main", Type: types.KindFunction, Line: 1}}
	return ec
}

func TestCache_SetGet(t *testing.T) {
	c := New(10)
	key := Key(types.LangPython, "abc")

	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Set(key, sampleContext())
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, []string{"os"}, got.Imports)
	assert.Equal(t, 1, c.Size())
}

func TestCache_GetReturnsCopy(t *testing.T) {
	c := New(10)
	key := Key(types.LangPython, "abc")
	c.Set(key, sampleContext())

	first, _ := c.Get(key)
	first.Imports[0] = "mutated"
	first.Functions[0].Name = "mutated"

	second, _ := c.Get(key)
	assert.Equal(t, "os", second.Imports[0])
	assert.Equal(t, "main", second.Functions[0].Name)
}

func TestCache_SetStoresCopy(t *testing.T) {
	c := New(10)
	key := Key(types.LangPython, "abc")
	ec := sampleContext()
	c.Set(key, ec)

	ec.Imports[0] = "mutated"

	got, _ := c.Get(key)
	assert.Equal(t, "os", got.Imports[0])
}

func TestCache_Eviction(t *testing.T) {
	c := New(2)
	c.Set("a", sampleContext())
	c.Set("b", sampleContext())
	c.Set("c", sampleContext())

	assert.Equal(t, 2, c.Size())
	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")
}

func TestCache_KeyIncludesLanguage(t *testing.T) {
	assert.NotEqual(t, Key(types.LangPython, "h"), Key(types.LangJavaScript, "h"))
}

func TestCache_DefaultSizeAndClear(t *testing.T) {
	c := New(0)
	c.Set("k", sampleContext())
	c.Clear()
	assert.Equal(t, 0, c.Size())
}
