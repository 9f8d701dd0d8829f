package service

import (
	"sync"
	"time"

	"github.com/aigroupchat/voicechat-be/types"
)

const metadataTTL = 5 * time.Minute

type cachedMeta struct {
	meta       types.DocumentMeta
	insertedAt time.Time
}

// MetadataCache maps document ids to their title and type. Entries
// expire after a TTL and are evicted lazily on read.
type MetadataCache struct {
	mu      sync.RWMutex
	entries map[string]cachedMeta
	ttl     time.Duration
	now     func() time.Time
}

func NewMetadataCache() *MetadataCache {
	return &MetadataCache{
		entries: make(map[string]cachedMeta),
		ttl:     metadataTTL,
		now:     time.Now,
	}
}

func (c *MetadataCache) Get(documentID string) (types.DocumentMeta, bool) {
	c.mu.RLock()
	entry, ok := c.entries[documentID]
	c.mu.RUnlock()
	if !ok {
		return types.DocumentMeta{}, false
	}
	if c.now().Sub(entry.insertedAt) > c.ttl {
		c.mu.Lock()
		// Recheck under the write lock; a concurrent Set may have
		// refreshed the entry.
		if current, ok := c.entries[documentID]; ok && c.now().Sub(current.insertedAt) > c.ttl {
			delete(c.entries, documentID)
		}
		c.mu.Unlock()
		return types.DocumentMeta{}, false
	}
	return entry.meta, true
}

func (c *MetadataCache) Set(documentID string, meta types.DocumentMeta) {
	c.mu.Lock()
	c.entries[documentID] = cachedMeta{meta: meta, insertedAt: c.now()}
	c.mu.Unlock()
}

func (c *MetadataCache) Invalidate(documentID string) {
	c.mu.Lock()
	delete(c.entries, documentID)
	c.mu.Unlock()
}
