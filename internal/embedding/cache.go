package embedding

import (
	"container/list"
	"sync"
)

// vectorCache caches per-text embedding vectors with insertion-order
// eviction and built-in singleflight for concurrent loads of the same text.
type vectorCache struct {
	mu       sync.Mutex
	items    map[string]*list.Element
	order    *list.List // front = newest inserted
	capacity int

	inflight map[string]*call
}

type cacheEntry struct {
	key string
	vec []float32
}

type call struct {
	wg  sync.WaitGroup
	vec []float32
	err error
}

func newVectorCache(capacity int) *vectorCache {
	if capacity <= 0 {
		capacity = 1000
	}
	return &vectorCache{
		items:    make(map[string]*list.Element),
		order:    list.New(),
		capacity: capacity,
		inflight: make(map[string]*call),
	}
}

func (c *vectorCache) get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	return el.Value.(*cacheEntry).vec, true
}

func (c *vectorCache) set(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry).vec = vec
		return
	}

	el := c.order.PushFront(&cacheEntry{key: key, vec: vec})
	c.items[key] = el

	// Evict oldest-inserted on overflow. Lookups do not refresh position.
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		delete(c.items, oldest.Value.(*cacheEntry).key)
		c.order.Remove(oldest)
	}
}

// getOrLoad returns the cached vector for key, or calls loadFn to compute
// it. Concurrent calls for the same key share a single load.
func (c *vectorCache) getOrLoad(key string, loadFn func() ([]float32, error)) ([]float32, error) {
	if v, ok := c.get(key); ok {
		return v, nil
	}

	c.mu.Lock()
	if cl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		cl.wg.Wait()
		return cl.vec, cl.err
	}

	cl := &call{}
	cl.wg.Add(1)
	c.inflight[key] = cl
	c.mu.Unlock()

	cl.vec, cl.err = loadFn()
	if cl.err == nil {
		c.set(key, cl.vec)
	}
	cl.wg.Done()

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()

	return cl.vec, cl.err
}

func (c *vectorCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
