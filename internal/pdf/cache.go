package pdf

import "sync"

// CacheStats describes document cache usage
type CacheStats struct {
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRate  float64 `json:"hitRate"`
	Entries  int     `json:"entries"`
	Bytes    int64   `json:"bytes"`
	Capacity int     `json:"capacity"`
	MaxBytes int64   `json:"maxBytes"`
}

// DocumentCache keeps fetched documents by URL, evicting the least recently used
// once either the entry count or the total byte size exceeds its bound.
type DocumentCache struct {
	mu       sync.Mutex
	capacity int
	maxBytes int64
	bytes    int64
	items    map[string]*cacheNode
	head     *cacheNode // most recently used side
	tail     *cacheNode
	hits     int64
	misses   int64
}

type cacheNode struct {
	doc        *Document
	prev, next *cacheNode
}

// NewDocumentCache creates a cache of at most capacity documents and maxBytes bytes.
// A non-positive maxBytes disables the byte bound.
func NewDocumentCache(capacity int, maxBytes int64) *DocumentCache {
	if capacity <= 0 {
		capacity = 16
	}
	c := &DocumentCache{
		capacity: capacity,
		maxBytes: maxBytes,
		items:    make(map[string]*cacheNode),
		head:     &cacheNode{},
		tail:     &cacheNode{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get returns the document cached for url and marks it as recently used
func (c *DocumentCache) Get(url string) (*Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[url]
	if !ok {
		c.misses++
		return nil, false
	}
	c.unlink(n)
	c.pushFront(n)
	c.hits++
	return n.doc, true
}

// Put stores doc under its URL, replacing any previous entry
func (c *DocumentCache) Put(doc *Document) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.items[doc.URL]; ok {
		c.bytes -= int64(n.doc.Size())
		c.unlink(n)
		delete(c.items, doc.URL)
	}
	n := &cacheNode{doc: doc}
	c.pushFront(n)
	c.items[doc.URL] = n
	c.bytes += int64(doc.Size())

	// the newest entry is always kept, even if it alone exceeds maxBytes
	for len(c.items) > 1 && (len(c.items) > c.capacity || (c.maxBytes > 0 && c.bytes > c.maxBytes)) {
		c.evict()
	}
}

// Len returns the number of cached documents
func (c *DocumentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns the cached URLs from most to least recently used
func (c *DocumentCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.items))
	for n := c.head.next; n != c.tail; n = n.next {
		keys = append(keys, n.doc.URL)
	}
	return keys
}

// Stats returns usage counters
func (c *DocumentCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var rate float64
	if total := c.hits + c.misses; total > 0 {
		rate = float64(c.hits) / float64(total) * 100
	}
	return CacheStats{
		Hits:     c.hits,
		Misses:   c.misses,
		HitRate:  rate,
		Entries:  len(c.items),
		Bytes:    c.bytes,
		Capacity: c.capacity,
		MaxBytes: c.maxBytes,
	}
}

func (c *DocumentCache) pushFront(n *cacheNode) {
	n.prev = c.head
	n.next = c.head.next
	c.head.next.prev = n
	c.head.next = n
}

func (c *DocumentCache) unlink(n *cacheNode) {
	n.prev.next = n.next
	n.next.prev = n.prev
}

func (c *DocumentCache) evict() {
	lru := c.tail.prev
	if lru == c.head {
		return
	}
	c.unlink(lru)
	delete(c.items, lru.doc.URL)
	c.bytes -= int64(lru.doc.Size())
}
