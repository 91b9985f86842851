package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func doc(url string, size int) *Document {
	return NewDocument(url, make([]byte, size))
}

func TestDocumentCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewDocumentCache(2, 0)
	c.Put(doc("a", 1))
	c.Put(doc("b", 1))

	_, ok := c.Get("a")
	assert.True(t, ok)

	c.Put(doc("c", 1))
	_, ok = c.Get("b")
	assert.False(t, ok, "b was least recently used")
	assert.Equal(t, []string{"c", "a"}, c.Keys())
}

func TestDocumentCache_ByteBound(t *testing.T) {
	c := NewDocumentCache(10, 100)
	c.Put(doc("a", 40))
	c.Put(doc("b", 40))
	c.Put(doc("c", 40))

	assert.Equal(t, []string{"c", "b"}, c.Keys())
	assert.Equal(t, int64(80), c.Stats().Bytes)

	c.Put(doc("huge", 500))
	assert.Equal(t, []string{"huge"}, c.Keys(), "the newest entry is kept even when oversized")
}

func TestDocumentCache_Replace(t *testing.T) {
	c := NewDocumentCache(4, 0)
	c.Put(doc("a", 10))
	c.Put(doc("a", 30))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(30), c.Stats().Bytes)
}

func TestDocumentCache_Stats(t *testing.T) {
	c := NewDocumentCache(0, 0)
	c.Put(doc("a", 1))
	c.Get("a")
	c.Get("missing")

	s := c.Stats()
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, 50.0, s.HitRate)
	assert.Equal(t, 16, s.Capacity)
}
