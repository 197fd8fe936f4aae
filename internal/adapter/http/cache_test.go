package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderCache_BasicGetPut(t *testing.T) {
	c := newRenderCache(3)

	c.put("a", []byte("png-a"))
	c.put("b", []byte("png-b"))

	data, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, []byte("png-a"), data)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestRenderCache_Eviction(t *testing.T) {
	c := newRenderCache(2)

	c.put("a", []byte("A"))
	c.put("b", []byte("B"))
	c.put("c", []byte("C")) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	data, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, []byte("B"), data)

	data, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, []byte("C"), data)
}

func TestRenderCache_AccessPromotesEntry(t *testing.T) {
	c := newRenderCache(2)

	c.put("a", []byte("A"))
	c.put("b", []byte("B"))

	// Access "a" to promote it
	c.get("a")

	// Insert "c", which should evict "b" (LRU), not "a"
	c.put("c", []byte("C"))

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestRenderCache_UpdateExisting(t *testing.T) {
	c := newRenderCache(2)

	c.put("a", []byte("v1"))
	c.put("a", []byte("v2"))

	data, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, []byte("v2"), data)
}
