package host

import (
	"fmt"
	"sync"
)

// ChunkEntry records the device chunk assigned to one block stack.
type ChunkEntry struct {
	ID             byte
	LastExpression string
}

// ChunkRegistry assigns device chunk ids to blocks. A block receives a
// fresh sequential id the first time it is saved; ids are reused only
// after the device's code is deleted wholesale. Blocks are keyed by a
// stable identity the editor provides, never by object address.
type ChunkRegistry struct {
	mu      sync.Mutex
	entries map[string]*ChunkEntry
	nextID  int
}

// NewChunkRegistry creates an empty registry.
func NewChunkRegistry() *ChunkRegistry {
	return &ChunkRegistry{entries: make(map[string]*ChunkEntry)}
}

// Assign returns the chunk id for blockKey, allocating the next
// sequential id on first use. It fails once all 256 ids are taken.
func (r *ChunkRegistry) Assign(blockKey string) (byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[blockKey]; ok {
		return e.ID, nil
	}
	if r.nextID > 255 {
		return 0, fmt.Errorf("host: chunk ids exhausted")
	}
	e := &ChunkEntry{ID: byte(r.nextID)}
	r.nextID++
	r.entries[blockKey] = e
	return e.ID, nil
}

// Lookup returns the entry for blockKey, if any.
func (r *ChunkRegistry) Lookup(blockKey string) (ChunkEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[blockKey]
	if !ok {
		return ChunkEntry{}, false
	}
	return *e, true
}

// BlockFor returns the block key owning the given chunk id.
func (r *ChunkRegistry) BlockFor(id byte) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, e := range r.entries {
		if e.ID == id {
			return key, true
		}
	}
	return "", false
}

// SetLastExpression records the source text last compiled for blockKey.
func (r *ChunkRegistry) SetLastExpression(blockKey, expr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[blockKey]; ok {
		e.LastExpression = expr
	}
}

// Reset drops every assignment; valid only after deleteAllCode, which
// is the one point where the device and host agree that ids are free.
func (r *ChunkRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]*ChunkEntry)
	r.nextID = 0
}

// Len returns the number of assigned blocks.
func (r *ChunkRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// snapshotEntries returns a copy of the registry state for snapshots.
func (r *ChunkRegistry) snapshotEntries() (map[string]ChunkEntry, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]ChunkEntry, len(r.entries))
	for k, e := range r.entries {
		out[k] = *e
	}
	return out, r.nextID
}

// restoreEntries replaces the registry state from a snapshot.
func (r *ChunkRegistry) restoreEntries(entries map[string]ChunkEntry, nextID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]*ChunkEntry, len(entries))
	for k, e := range entries {
		copied := e
		r.entries[k] = &copied
	}
	r.nextID = nextID
}
