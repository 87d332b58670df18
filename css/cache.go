package css

import (
	"cmp"
	"sync"
	"time"

	"github.com/segmentio/agecache"
)

// resultCache stores Select results per (selector, root). Entries of a document are
// invalidated wholesale by bumping its generation; the stale ones age out of the LRU.
type resultCache struct {
	lru      *agecache.Cache
	debounce time.Duration
	docs     map[Node]*docState
	epoch    uint64
	sync.Mutex
}

type docState struct {
	gen    uint64
	paused bool
	timer  *time.Timer
}

type resultKey struct {
	selector string
	root     Node
	gen      uint64
	epoch    uint64
}

func newResultCache(o Options) *resultCache {
	return &resultCache{
		lru: agecache.New(agecache.Config{
			Capacity:           cmp.Or(o.CacheCapacity, 512),
			MaxAge:             cmp.Or(o.CacheMaxAge, time.Minute),
			ExpirationType:     agecache.PassiveExpration,
			ExpirationInterval: time.Minute,
		}),
		debounce: o.Debounce,
		docs:     map[Node]*docState{},
	}
}

// key returns the cache key for a query and false while caching is paused for doc.
func (c *resultCache) key(selector string, root, doc Node) (resultKey, bool) {
	c.Lock()
	defer c.Unlock()
	k := resultKey{selector: selector, root: root, epoch: c.epoch}
	if s := c.docs[doc]; s != nil {
		if s.paused {
			return k, false
		}
		k.gen = s.gen
	}
	return k, true
}

func (c *resultCache) get(k resultKey) ([]Node, bool) {
	v, ok := c.lru.Get(k)
	if !ok {
		return nil, false
	}
	return v.([]Node), true
}

func (c *resultCache) set(k resultKey, ns []Node) {
	c.lru.Set(k, ns)
}

// invalidate drops the entries of doc and pauses caching for it until no further
// invalidation happened for the debounce interval.
func (c *resultCache) invalidate(doc Node) uint64 {
	c.Lock()
	defer c.Unlock()
	s := c.docs[doc]
	if s == nil {
		s = &docState{}
		c.docs[doc] = s
	}
	s.gen++
	if c.debounce <= 0 {
		return s.gen
	}
	s.paused = true
	if s.timer == nil {
		s.timer = time.AfterFunc(c.debounce, func() {
			c.Lock()
			s.paused = false
			c.Unlock()
		})
	} else {
		s.timer.Reset(c.debounce)
	}
	return s.gen
}

func (c *resultCache) expire() {
	c.Lock()
	c.epoch++
	c.Unlock()
}

func (c *resultCache) paused(doc Node) bool {
	c.Lock()
	defer c.Unlock()
	s := c.docs[doc]
	return s != nil && s.paused
}
