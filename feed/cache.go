package feed

import (
	"context"
	"sync"
	"time"
)

// FirstPageTTL is how long a memoized first page stays fresh.
const FirstPageTTL = 60 * time.Second

// FirstPageCache memoizes the canonical anonymous first page: no cursor, no
// exclusion set, no authenticated user. That request shape is identical for
// every visitor and is by far the hottest read, while every personalized,
// paginated or excluded request is unique enough that caching it would be
// ineffective, so this is deliberately the only cached path. Any write
// (post creation or deletion) invalidates unconditionally: staleness there
// is user visible.
type FirstPageCache interface {
	Get(ctx context.Context, limit int) (*Page, bool)
	Set(ctx context.Context, limit int, page *Page)
	Invalidate(ctx context.Context)
}

// Cacheable reports whether a request is the canonical anonymous first
// page.
func Cacheable(req *Request) bool {
	return req.UserID == "" &&
		req.Seed == nil &&
		req.Cursor == nil &&
		(req.Exclude == nil || req.Exclude.Len() == 0)
}

type memoEntry struct {
	page     *Page
	storedAt time.Time
}

// MemoryFirstPageCache is the in-process implementation, keyed by limit.
type MemoryFirstPageCache struct {
	mu      sync.Mutex
	entries map[int]memoEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryFirstPageCache() *MemoryFirstPageCache {
	return &MemoryFirstPageCache{
		entries: map[int]memoEntry{},
		ttl:     FirstPageTTL,
		now:     time.Now,
	}
}

func (c *MemoryFirstPageCache) Get(_ context.Context, limit int) (*Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[limit]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, limit)
		return nil, false
	}
	return entry.page, true
}

func (c *MemoryFirstPageCache) Set(_ context.Context, limit int, page *Page) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[limit] = memoEntry{page: page, storedAt: c.now()}
}

func (c *MemoryFirstPageCache) Invalidate(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[int]memoEntry{}
}
