// Package pubkeys resolves counterparty VASP key sets by domain and caches
// them in process.
package pubkeys

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/umagate/umagate/internal/cache"
	"github.com/umagate/umagate/internal/protocol"
)

const (
	wellKnownPath = "/.well-known/lnurlpubkey"
	defaultTTL    = time.Hour
	maxBodyBytes  = 1 << 16
)

type fetchingCache struct {
	client *http.Client
	cache  cache.Cache[string, *protocol.PubKeys]
	ttl    time.Duration
	// scheme is overridable for tests against httptest servers.
	scheme string
}

// Option tweaks the cache construction.
type Option func(*fetchingCache)

// WithHTTPClient substitutes the fetching client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *fetchingCache) { c.client = client }
}

// WithScheme overrides the URL scheme, for tests.
func WithScheme(scheme string) Option {
	return func(c *fetchingCache) { c.scheme = scheme }
}

// WithTTL overrides the cache TTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *fetchingCache) { c.ttl = ttl }
}

// New returns a PublicKeyCache backed by the counterparty's well-known
// endpoint.
func New(opts ...Option) protocol.PublicKeyCache {
	c := &fetchingCache{
		client: &http.Client{Timeout: 10 * time.Second},
		cache:  cache.NewTTLCache[string, *protocol.PubKeys](),
		ttl:    defaultTTL,
		scheme: "https",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *fetchingCache) Get(ctx context.Context, domain string) (*protocol.PubKeys, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return nil, fmt.Errorf("pubkeys: empty domain")
	}

	if keys, ok := c.cache.Get(domain); ok {
		return keys, nil
	}

	url := fmt.Sprintf("%s://%s%s", c.scheme, domain, wellKnownPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pubkeys: fetch %s: %w", domain, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pubkeys: fetch %s: status %d", domain, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	var keys protocol.PubKeys
	if err := json.Unmarshal(body, &keys); err != nil {
		return nil, fmt.Errorf("pubkeys: decode %s: %w", domain, err)
	}
	if keys.SigningPubKeyHex == "" {
		return nil, fmt.Errorf("pubkeys: %s published no signing key", domain)
	}

	ttl := c.ttl
	if keys.ExpirationTimestamp != nil {
		until := time.Until(time.Unix(*keys.ExpirationTimestamp, 0))
		if until <= 0 {
			// Already-expired key sets are usable for this request but
			// must not be cached.
			return &keys, nil
		}
		if until < ttl {
			ttl = until
		}
	}
	c.cache.Set(domain, &keys, ttl)

	return &keys, nil
}
