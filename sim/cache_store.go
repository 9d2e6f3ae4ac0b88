// sim/cache_store.go
package sim

import "fmt"

// DefaultCacheCapacity is the number of data items a host cache holds before access-driven
// or placement-driven insertions start evicting.
const DefaultCacheCapacity = 100

// cacheEntry is a node in the insertion-order list.
type cacheEntry struct {
	Item string
	Prev *cacheEntry
	Next *cacheEntry
}

// CacheStore is a bounded set of data items cached on one host.
// Eviction is insertion-order FIFO: the oldest inserted item leaves first. Reading an
// item or re-inserting one that is already present does not move it.
//
// Prewarm ignores the capacity, so a store can sit above capacity until the next
// Insert or BulkInsert trims it.
type CacheStore struct {
	capacity int
	entries  map[string]*cacheEntry
	head     *cacheEntry // oldest
	tail     *cacheEntry // newest
	evicted  int64
}

// NewCacheStore creates an empty store. Panics if capacity < 1.
func NewCacheStore(capacity int) *CacheStore {
	if capacity < 1 {
		panic(fmt.Sprintf("NewCacheStore: capacity must be >= 1, got %d", capacity))
	}
	return &CacheStore{
		capacity: capacity,
		entries:  make(map[string]*cacheEntry),
	}
}

// Contains reports whether item is cached. Pure query.
func (cs *CacheStore) Contains(item string) bool {
	_, ok := cs.entries[item]
	return ok
}

// Insert adds an item on behalf of a data access and evicts the oldest items until the
// store is back at capacity.
func (cs *CacheStore) Insert(item string) {
	cs.add(item)
	cs.trim()
}

// BulkInsert adds every item (placement-time warming), then trims once so that the
// newest Capacity() items survive.
func (cs *CacheStore) BulkInsert(items []string) {
	for _, item := range items {
		cs.add(item)
	}
	cs.trim()
}

// Prewarm adds an item without enforcing capacity.
func (cs *CacheStore) Prewarm(item string) {
	cs.add(item)
}

// Len returns the number of cached items.
func (cs *CacheStore) Len() int { return len(cs.entries) }

// Capacity returns the configured capacity.
func (cs *CacheStore) Capacity() int { return cs.capacity }

// Evicted returns the number of items evicted over the store's lifetime.
func (cs *CacheStore) Evicted() int64 { return cs.evicted }

// Items returns cached items in eviction order (oldest first).
func (cs *CacheStore) Items() []string {
	items := make([]string, 0, len(cs.entries))
	for e := cs.head; e != nil; e = e.Next {
		items = append(items, e.Item)
	}
	return items
}

// Overlap counts how many of items are cached.
func (cs *CacheStore) Overlap(items []string) int {
	n := 0
	for _, item := range items {
		if cs.Contains(item) {
			n++
		}
	}
	return n
}

func (cs *CacheStore) add(item string) {
	if _, ok := cs.entries[item]; ok {
		return
	}
	e := &cacheEntry{Item: item}
	if cs.tail != nil {
		cs.tail.Next = e
		e.Prev = cs.tail
		cs.tail = e
	} else {
		cs.head = e
		cs.tail = e
	}
	cs.entries[item] = e
}

// trim evicts from the head until Len() <= capacity.
func (cs *CacheStore) trim() {
	for len(cs.entries) > cs.capacity {
		cs.remove(cs.head)
		cs.evicted++
	}
}

func (cs *CacheStore) remove(e *cacheEntry) {
	if e.Prev != nil {
		e.Prev.Next = e.Next
	} else {
		cs.head = e.Next
	}
	if e.Next != nil {
		e.Next.Prev = e.Prev
	} else {
		cs.tail = e.Prev
	}
	e.Prev = nil
	e.Next = nil
	delete(cs.entries, e.Item)
}
