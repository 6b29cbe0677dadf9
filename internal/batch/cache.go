package batch

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// Cache keeps recent file results keyed by content and options, so repeated
// runs over unchanged files skip the transform
type Cache struct {
	sync.Mutex
	cache *lru.Cache
}

// NewCache creates a cache holding up to n results. A zero size disables
// caching.
func NewCache(n int) (*Cache, error) {
	c := &Cache{}
	if n == 0 {
		return c, nil
	}
	var err error
	if c.cache, err = lru.New(n); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the cached result for key
func (c *Cache) Get(key string) (FileResult, bool) {
	if c == nil || c.cache == nil {
		return FileResult{}, false
	}
	c.Lock()
	defer c.Unlock()
	v, ok := c.cache.Get(key)
	if !ok {
		return FileResult{}, false
	}
	return v.(FileResult), true
}

// Add stores a result, reporting whether an older entry was evicted
func (c *Cache) Add(key string, result FileResult) bool {
	if c == nil || c.cache == nil {
		return false
	}
	c.Lock()
	defer c.Unlock()
	return c.cache.Add(key, result)
}

// Len is the number of cached results
func (c *Cache) Len() int {
	if c == nil || c.cache == nil {
		return 0
	}
	c.Lock()
	defer c.Unlock()
	return c.cache.Len()
}

// CacheKey hashes everything a result depends on
func CacheKey(mode Mode, path, content string, options any) string {
	h := sha256.New()
	h.Write([]byte(mode.String()))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write([]byte(content))
	h.Write([]byte{0})
	_ = json.NewEncoder(h).Encode(options)
	return hex.EncodeToString(h.Sum(nil))
}
