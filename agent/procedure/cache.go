package procedure

import "github.com/puzpuzpuz/xsync/v3"

// Cache maps tool name to procedure text for the life of the process. Entries
// are never evicted. Writes are idempotent because the same tool name always
// retrieves the same document, so concurrent fills may race freely.
type Cache struct {
	entries *xsync.MapOf[string, string]
}

func NewCache() *Cache {
	return &Cache{entries: xsync.NewMapOf[string, string]()}
}

func (c *Cache) Get(tool string) (string, bool) {
	return c.entries.Load(tool)
}

// Put stores text under tool; last write wins.
func (c *Cache) Put(tool, text string) {
	c.entries.Store(tool, text)
}

func (c *Cache) Len() int {
	return c.entries.Size()
}
