package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	jose "github.com/go-jose/go-jose/v4"
)

// ErrKeySetUnavailable signals a transport or decode failure while fetching
// the provider's key set. Transient; the caller decides whether to retry.
var ErrKeySetUnavailable = errors.New("identity: key set unavailable")

// KeySet is an immutable snapshot of the provider's public signing keys,
// indexed by key id. A snapshot is never mutated after construction; a
// refresh produces a whole new snapshot.
type KeySet struct {
	jwks jose.JSONWebKeySet
}

// ByKeyID returns the public key published under the given kid.
func (k *KeySet) ByKeyID(kid string) (jose.JSONWebKey, bool) {
	matches := k.jwks.Key(kid)
	if len(matches) == 0 {
		return jose.JSONWebKey{}, false
	}
	return matches[0], true
}

// Len returns the number of keys in the snapshot.
func (k *KeySet) Len() int {
	return len(k.jwks.Keys)
}

// KeySetCache fetches the provider's JWKS document and holds the most
// recently fetched set as process-wide shared state. Concurrent readers see
// either the previous or the new snapshot, never a partial one.
type KeySetCache struct {
	jwksURL string
	client  *http.Client
	current atomic.Pointer[KeySet]
}

// NewKeySetCache builds a cache for the well-known JWKS endpoint of the
// given provider domain. The injected client bounds each fetch.
func NewKeySetCache(domain string, client *http.Client) *KeySetCache {
	return &KeySetCache{
		jwksURL: "https://" + domain + "/.well-known/jwks.json",
		client:  client,
	}
}

// Refresh downloads the key set and replaces the held snapshot wholesale.
// On failure the previous snapshot stays current and the returned error
// wraps ErrKeySetUnavailable. Refresh never retries internally.
func (c *KeySetCache) Refresh(ctx context.Context) (*KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrKeySetUnavailable, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeySetUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrKeySetUnavailable, resp.StatusCode)
	}

	var jwks jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrKeySetUnavailable, err)
	}

	set := &KeySet{jwks: jwks}
	c.current.Store(set)
	return set, nil
}

// Current returns the latest snapshot, or nil before the first successful
// Refresh.
func (c *KeySetCache) Current() *KeySet {
	return c.current.Load()
}
