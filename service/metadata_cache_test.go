package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aigroupchat/voicechat-be/types"
)

func TestMetadataCache_SetGet(t *testing.T) {
	cache := NewMetadataCache()
	cache.Set("d1", types.DocumentMeta{Title: "Notes", Type: "text"})

	meta, ok := cache.Get("d1")
	require.True(t, ok)
	assert.Equal(t, "Notes", meta.Title)

	_, ok = cache.Get("unknown")
	assert.False(t, ok)
}

func TestMetadataCache_Invalidate(t *testing.T) {
	cache := NewMetadataCache()
	cache.Set("d1", types.DocumentMeta{Title: "Notes"})
	cache.Invalidate("d1")

	_, ok := cache.Get("d1")
	assert.False(t, ok)
}

func TestMetadataCache_TTLExpiry(t *testing.T) {
	cache := NewMetadataCache()
	current := time.Now()
	cache.now = func() time.Time { return current }

	cache.Set("d1", types.DocumentMeta{Title: "Notes"})

	current = current.Add(metadataTTL - time.Second)
	_, ok := cache.Get("d1")
	assert.True(t, ok)

	current = current.Add(2 * time.Second)
	_, ok = cache.Get("d1")
	assert.False(t, ok)

	// Expired entries are evicted, not just hidden.
	cache.mu.RLock()
	_, present := cache.entries["d1"]
	cache.mu.RUnlock()
	assert.False(t, present)
}

func TestMetadataCache_SetRefreshesTTL(t *testing.T) {
	cache := NewMetadataCache()
	current := time.Now()
	cache.now = func() time.Time { return current }

	cache.Set("d1", types.DocumentMeta{Title: "Old"})
	current = current.Add(metadataTTL - time.Second)
	cache.Set("d1", types.DocumentMeta{Title: "New"})

	current = current.Add(2 * time.Second)
	meta, ok := cache.Get("d1")
	require.True(t, ok)
	assert.Equal(t, "New", meta.Title)
}
