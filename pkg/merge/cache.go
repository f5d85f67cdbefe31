package merge

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// TemplateCache keeps parsed templates in memory, keyed by file identity or
// by content hash.
type TemplateCache struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// NewTemplateCache creates a new template cache with the global TTL
func NewTemplateCache() *TemplateCache {
	return NewTemplateCacheWithTTL(GetGlobalConfig().CacheTTL)
}

// NewTemplateCacheWithTTL creates a template cache whose entries expire after
// ttl. A ttl of 0 keeps entries until removed.
func NewTemplateCacheWithTTL(ttl time.Duration) *TemplateCache {
	expiration := gocache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiration = ttl
		cleanup = 2 * ttl
	}
	return &TemplateCache{
		cache: gocache.New(expiration, cleanup),
		ttl:   ttl,
	}
}

// Get returns a cached template.
func (c *TemplateCache) Get(key string) (*Template, bool) {
	if v, found := c.cache.Get(key); found {
		return v.(*Template), true
	}
	return nil, false
}

// Load returns the template cached under key, calling load on a miss.
func (c *TemplateCache) Load(key string, load func() (*Template, error)) (*Template, error) {
	if t, ok := c.Get(key); ok {
		Debug("template cache hit for %s", key)
		return t, nil
	}
	t, err := load()
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, t)
	return t, nil
}

// LoadFile returns the template at path. The key includes the modification
// time and size so an edited file is parsed again.
func (c *TemplateCache) LoadFile(path string) (*Template, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, NewDocumentError("stat", path, err)
	}
	key := fmt.Sprintf("file:%s:%d:%d", path, info.ModTime().UnixNano(), info.Size())
	return c.Load(key, func() (*Template, error) {
		return LoadTemplateFile(path)
	})
}

// LoadBytes returns the template for an uploaded package, keyed by content.
func (c *TemplateCache) LoadBytes(name string, data []byte) (*Template, error) {
	sum := sha256.Sum256(data)
	key := "sha256:" + hex.EncodeToString(sum[:])
	return c.Load(key, func() (*Template, error) {
		t, err := ParseTemplate(data)
		if err != nil {
			return nil, err
		}
		t.Name = name
		return t, nil
	})
}

// Remove drops a cached template
func (c *TemplateCache) Remove(key string) {
	c.cache.Delete(key)
}

// Clear removes every cached template
func (c *TemplateCache) Clear() {
	c.cache.Flush()
}

// Len returns the number of cached templates, expired ones included until
// the janitor runs.
func (c *TemplateCache) Len() int {
	return c.cache.ItemCount()
}
