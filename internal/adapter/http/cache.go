package http

import "sync"

// renderCache is a simple thread-safe LRU cache for encoded surface PNGs.
type renderCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*renderEntry
	head       *renderEntry // most recently used
	tail       *renderEntry // least recently used
}

type renderEntry struct {
	key  string
	data []byte
	prev *renderEntry
	next *renderEntry
}

func newRenderCache(maxEntries int) *renderCache {
	return &renderCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*renderEntry),
	}
}

func (c *renderCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.data, true
}

func (c *renderCache) put(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.data = data
		c.moveToFront(e)
		return
	}

	e := &renderEntry{key: key, data: data}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *renderCache) moveToFront(e *renderEntry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *renderCache) addToFront(e *renderEntry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *renderCache) remove(e *renderEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *renderCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
