package translate

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const DefaultCacheSize = 100

// Cache keeps recent translations, evicting the least recently used.
type Cache struct {
	lru *lru.Cache[string, string]
}

func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// cacheKey folds case so "Bonjour" and "bonjour" share an entry.
func cacheKey(text, source, target string) string {
	folded := cases.Lower(language.Und).String(strings.TrimSpace(text))
	return folded + "|" + source + "|" + target
}

func (c *Cache) Get(key string) (string, bool) { return c.lru.Get(key) }

func (c *Cache) Add(key, value string) { c.lru.Add(key, value) }

