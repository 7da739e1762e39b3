package query

import (
	"sync"
)

// tokenCache is a simple bounded cache that maps raw option values to their
// tokens. Repeated identical values, common for generated clients and
// parameter aliases, are lexed once.
//
// Eviction strategy: when the cache reaches its capacity limit the entire map is
// replaced. This is simpler than a true LRU and sufficient for a small number
// of distinct query templates repeated many times.
//
// Thread safety: all methods are safe for concurrent use. Cached tokens are
// shared and must not be modified.
type tokenCache struct {
	mu    sync.RWMutex
	items map[string][]*Token
	max   int
}

var globalTokenCache = &tokenCache{
	items: make(map[string][]*Token, 256),
	max:   256,
}

func (c *tokenCache) get(key string) ([]*Token, bool) {
	c.mu.RLock()
	v, ok := c.items[key]
	c.mu.RUnlock()
	return v, ok
}

func (c *tokenCache) put(key string, v []*Token) {
	c.mu.Lock()
	if len(c.items) >= c.max {
		c.items = make(map[string][]*Token, c.max)
	}
	c.items[key] = v
	c.mu.Unlock()
}

// cachedTokens returns the tokens of input, lexing it on a cache miss.
// Tokenizer errors are not cached.
func cachedTokens(option, input string) ([]*Token, error) {
	key := option + "\x00" + input
	if tokens, ok := globalTokenCache.get(key); ok {
		return tokens, nil
	}
	tokens, err := NewTokenizer(option, input).TokenizeAll()
	if err != nil {
		return nil, err
	}
	globalTokenCache.put(key, tokens)
	return tokens, nil
}
