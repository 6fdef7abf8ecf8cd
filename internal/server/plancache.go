package server

import (
	"strconv"
	"sync"

	"github.com/zeebo/xxh3"

	"saptab/internal/catalog"
	"saptab/internal/chunk"
)

type planEntry struct {
	fields  []catalog.Field
	vchunks []chunk.VChunk
}

// planCache holds computed vchunk plans. Table shapes change rarely enough
// that entries live for the life of the process.
type planCache struct {
	mu sync.RWMutex
	m  map[uint64]planEntry
}

func newPlanCache() *planCache {
	return &planCache{m: make(map[uint64]planEntry)}
}

func (c *planCache) get(key uint64) (planEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.m[key]
	return entry, ok
}

func (c *planCache) put(key uint64, entry planEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = entry
}

// planKey hashes the inputs that determine a plan. Field order matters to
// the plan, so it matters to the key. NUL separators keep adjacent parts
// from colliding.
func planKey(gatewayURL, client, table string, fields []string, budget int) uint64 {
	h := xxh3.New()
	for _, part := range []string{gatewayURL, client, table} {
		h.WriteString(part)
		h.Write([]byte{0})
	}
	for _, f := range fields {
		h.WriteString(f)
		h.Write([]byte{0})
	}
	h.WriteString(strconv.Itoa(budget))
	return h.Sum64()
}
