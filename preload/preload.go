// Package preload warms an in-memory image cache so carousel cross-fades do
// not show an unloaded frame.
package preload

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Cache holds fetched image bodies keyed by the reference they were requested
// with.
type Cache struct {
	lock    sync.RWMutex
	entries map[string][]byte
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string][]byte)}
}

// Get returns the cached body for uri.
func (c *Cache) Get(uri string) ([]byte, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	b, ok := c.entries[uri]

	return b, ok
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return len(c.entries)
}

func (c *Cache) put(uri string, body []byte) {
	c.lock.Lock()
	c.entries[uri] = body
	c.lock.Unlock()
}

// HTTPPrefetcher fetches images over HTTP in the background. Each reference
// is fetched once per Prefetch call, failures are logged and never retried.
type HTTPPrefetcher struct {
	client  *http.Client
	baseURL *url.URL
	cache   *Cache
	logger  *log.Logger

	wg sync.WaitGroup
}

// NewHTTPPrefetcher creates a prefetcher that resolves relative references
// against baseURL.
func NewHTTPPrefetcher(baseURL string, logger *log.Logger) (*HTTPPrefetcher, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("preload: parse base url: %w", err)
	}

	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &HTTPPrefetcher{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: base,
		cache:   NewCache(),
		logger:  logger,
	}, nil
}

// WithClient replaces the HTTP client.
func (p *HTTPPrefetcher) WithClient(client *http.Client) *HTTPPrefetcher {
	p.client = client
	return p
}

// Cache returns the cache the prefetcher fills.
func (p *HTTPPrefetcher) Cache() *Cache {
	return p.cache
}

// Prefetch starts fetching uri and returns immediately.
func (p *HTTPPrefetcher) Prefetch(uri string) {
	p.wg.Add(1)

	go func() {
		defer p.wg.Done()

		if err := p.fetch(uri); err != nil {
			p.logger.Printf("prefetch %s: %v", uri, err)
		}
	}()
}

// Wait blocks until every started fetch has finished.
func (p *HTTPPrefetcher) Wait() {
	p.wg.Wait()
}

func (p *HTTPPrefetcher) fetch(uri string) error {
	ref, err := url.Parse(uri)
	if err != nil {
		return err
	}

	target := p.baseURL.ResolveReference(ref)

	rsp, err := p.client.Get(target.String())
	if err != nil {
		return err
	}
	defer rsp.Body.Close()

	if rsp.StatusCode < 200 || rsp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, rsp.Body)
		return fmt.Errorf("unexpected status %s", rsp.Status)
	}

	body, err := io.ReadAll(rsp.Body)
	if err != nil {
		return err
	}

	p.cache.put(uri, body)

	return nil
}

// Nop is a prefetcher that does nothing. It is used for headless runs.
type Nop struct{}

// Prefetch does nothing.
func (Nop) Prefetch(string) {}
