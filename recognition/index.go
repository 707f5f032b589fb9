// Package recognition holds the identity-matching engine: the in-memory
// embedding index, the nearest-neighbor matcher and the client for the
// external face-detection service.
package recognition

import (
	"sort"
	"sync"

	"autoattend/models"
)

// EmbeddingIndex is a snapshot of the identities currently eligible for
// matching. Storage stays authoritative; callers reload the index from the
// stored encodings before every scan so it is never silently stale. All
// operations are safe for concurrent use.
type EmbeddingIndex struct {
	mu      sync.RWMutex
	vectors map[string][]float64
}

func NewEmbeddingIndex() *EmbeddingIndex {
	return &EmbeddingIndex{vectors: make(map[string][]float64)}
}

// Load replaces the whole index with the decoded form of the given stored
// encodings. Rows that fail to decode are skipped, mirroring how corrupt
// database rows are skipped during a scan.
func (x *EmbeddingIndex) Load(encoded map[string][]byte) int {
	fresh := make(map[string][]float64, len(encoded))
	for name, raw := range encoded {
		if len(raw) == 0 {
			continue
		}
		vec, err := models.DecodeVector(raw)
		if err != nil {
			continue
		}
		fresh[name] = vec
	}

	x.mu.Lock()
	x.vectors = fresh
	x.mu.Unlock()
	return len(fresh)
}

// Add inserts or replaces a single identity's vector.
func (x *EmbeddingIndex) Add(name string, vec []float64) {
	cp := make([]float64, len(vec))
	copy(cp, vec)

	x.mu.Lock()
	x.vectors[name] = cp
	x.mu.Unlock()
}

// Remove drops an identity from the index. Removing an absent name is a no-op.
func (x *EmbeddingIndex) Remove(name string) {
	x.mu.Lock()
	delete(x.vectors, name)
	x.mu.Unlock()
}

func (x *EmbeddingIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// Snapshot returns a copy of the current name→vector set, so a match call
// works against a consistent view even while the index is being mutated.
func (x *EmbeddingIndex) Snapshot() map[string][]float64 {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make(map[string][]float64, len(x.vectors))
	for name, vec := range x.vectors {
		out[name] = vec
	}
	return out
}

// Names returns the indexed identities in sorted order.
func (x *EmbeddingIndex) Names() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	names := make([]string, 0, len(x.vectors))
	for name := range x.vectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
