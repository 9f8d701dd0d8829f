package index

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/aigroupchat/voicechat-be/database"
	"github.com/aigroupchat/voicechat-be/types"
)

// Registry holds one BM25 snapshot per owner. Reads are lock-free
// pointer loads; rebuilds serialize per-owner and publish atomically, so
// queries never observe a partially built index.
type Registry struct {
	store  database.ChunkStore
	logger *zap.Logger

	mu     sync.Mutex
	owners map[string]*ownerIndex
}

type ownerIndex struct {
	rebuildMu sync.Mutex
	snap      atomic.Pointer[Snapshot]
}

func NewRegistry(store database.ChunkStore, logger *zap.Logger) *Registry {
	return &Registry{
		store:  store,
		logger: logger,
		owners: make(map[string]*ownerIndex),
	}
}

func (r *Registry) owner(ownerID string) *ownerIndex {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.owners[ownerID]
	if !ok {
		idx = &ownerIndex{}
		r.owners[ownerID] = idx
	}
	return idx
}

// Rebuild scans the owner's chunks and swaps in a fresh snapshot. Called
// after every ingest and delete, always off the query path.
func (r *Registry) Rebuild(ctx context.Context, ownerID string) error {
	idx := r.owner(ownerID)
	idx.rebuildMu.Lock()
	defer idx.rebuildMu.Unlock()

	chunks, err := r.store.GetAllChunks(ctx, ownerID)
	if err != nil {
		return err
	}
	snap := BuildSnapshot(chunks)
	idx.snap.Store(snap)

	r.logger.Debug("rebuilt keyword index",
		zap.String("owner_id", ownerID),
		zap.Int("chunks", snap.Size()))
	return nil
}

// Search queries the owner's current snapshot. An owner without an index
// yields an empty result.
func (r *Registry) Search(ownerID, query string, limit int, allowedDocIDs []string) []types.SearchResult {
	r.mu.Lock()
	idx, ok := r.owners[ownerID]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return idx.snap.Load().Search(query, limit, allowedDocIDs)
}
