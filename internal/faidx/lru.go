package faidx

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// seqCache is an LRU of whole uncompressed sequences keyed by record
// name. Capacity is a sequence count, sized for workloads where records
// are bacterial or metagenomic contigs that fit easily in memory.
type seqCache struct {
	mu        sync.Mutex
	capacity  int
	items     map[string]*list.Element
	evictList *list.List

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	name string
	seq  []byte
}

func newSeqCache(capacity int) *seqCache {
	if capacity < 1 {
		capacity = 1
	}
	return &seqCache{
		capacity:  capacity,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
	}
}

func (c *seqCache) get(name string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[name]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*cacheEntry).seq, true
	}
	c.misses.Add(1)
	return nil, false
}

func (c *seqCache) put(name string, seq []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[name]; ok {
		c.evictList.MoveToFront(ent)
		ent.Value.(*cacheEntry).seq = seq
		return
	}
	ent := c.evictList.PushFront(&cacheEntry{name: name, seq: seq})
	c.items[name] = ent
	for c.evictList.Len() > c.capacity {
		oldest := c.evictList.Back()
		if oldest == nil {
			break
		}
		c.evictList.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).name)
	}
}

// stats returns cumulative hit and miss counts.
func (c *seqCache) stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
