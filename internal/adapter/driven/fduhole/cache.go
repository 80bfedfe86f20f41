package fduhole

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/gregjones/httpcache"
)

// tokenScopedCache namespaces httpcache entries by a digest of the current
// access token so a cached response is never replayed to another identity.
type tokenScopedCache struct {
	inner  httpcache.Cache
	tokens TokenSource
}

func newTokenScopedCache(inner httpcache.Cache, tokens TokenSource) *tokenScopedCache {
	return &tokenScopedCache{inner: inner, tokens: tokens}
}

func (c *tokenScopedCache) scope(key string) string {
	token := ""
	if c.tokens != nil {
		token = c.tokens.AccessToken()
	}
	if token == "" {
		return "anon " + key
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8]) + " " + key
}

func (c *tokenScopedCache) Get(key string) ([]byte, bool) {
	return c.inner.Get(c.scope(key))
}

func (c *tokenScopedCache) Set(key string, responseBytes []byte) {
	c.inner.Set(c.scope(key), responseBytes)
}

func (c *tokenScopedCache) Delete(key string) {
	c.inner.Delete(c.scope(key))
}
