package query

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var NowFunc = time.Now // mockable

type cacheEntry struct {
	key    Key
	result Result
}

// Client runs fetchers and caches their last result per key.
// Concurrent fetches of the same key share a single execution.
type Client struct {
	defaults Options

	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

func NewClient(defaults ...Option) *Client {
	return &Client{
		defaults: DefaultOptions().apply(defaults),
		entries:  make(map[string]cacheEntry),
	}
}

// Options returns the client defaults with opts applied.
func (c *Client) Options(opts ...Option) Options {
	return c.defaults.apply(opts)
}

// Fetch runs fn for key unless the query is disabled or its cached data is still fresh.
func (c *Client) Fetch(ctx context.Context, key Key, fn Fetcher, opts ...Option) Result {
	hash, err := key.Hash()
	if err != nil {
		return Result{Status: StatusError, Err: err}
	}
	return c.fetch(ctx, hash, key, fn, c.defaults.apply(opts))
}

func (c *Client) fetch(ctx context.Context, hash string, key Key, fn Fetcher, o Options) Result {
	cached, ok := c.lookup(hash)
	if !o.Enabled {
		if !ok {
			cached = Result{Status: StatusIdle}
		}
		cached.IsDisabled = true
		return cached
	}
	if ok && o.StaleTime > 0 && cached.IsSuccess() && NowFunc().Sub(cached.UpdatedAt) < o.StaleTime {
		return cached
	}

	// the shared execution outlives any single caller; each caller only stops waiting
	sctx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(hash, func() (interface{}, error) {
		res := c.run(sctx, fn, o)
		if res.IsError() {
			if prev, ok := c.lookup(hash); ok {
				res.Data = prev.Data // keep serving the last known data
			}
		}
		c.store(hash, key, res)
		return res, nil
	})
	select {
	case r := <-ch:
		return r.Val.(Result)
	case <-ctx.Done():
		return Result{Status: StatusError, Err: ctx.Err(), Data: cached.Data}
	}
}

func (c *Client) run(ctx context.Context, fn Fetcher, o Options) Result {
	var failureCount int
	for {
		data, err := fn(ctx)
		if err == nil {
			return Result{Status: StatusSuccess, Data: data, FailureCount: failureCount, UpdatedAt: NowFunc()}
		}
		if o.Retry == nil || !o.Retry(failureCount, err) || !wait(ctx, o.delay(failureCount)) {
			return Result{Status: StatusError, Err: err, FailureCount: failureCount + 1, UpdatedAt: NowFunc()}
		}
		failureCount++
	}
}

func (o Options) delay(failureCount int) time.Duration {
	if o.RetryDelay == nil {
		return 0
	}
	return o.RetryDelay(failureCount)
}

// wait sleeps for d, returning false if ctx is done first.
func wait(ctx context.Context, d time.Duration) bool {
	if err := ctx.Err(); err != nil {
		return false
	}
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Client) lookup(hash string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[hash]
	return entry.result, ok
}

func (c *Client) store(hash string, key Key, res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[hash] = cacheEntry{key: key, result: res}
}

// Data returns the cached result for key.
func (c *Client) Data(key Key) (Result, bool) {
	hash, err := key.Hash()
	if err != nil {
		return Result{}, false
	}
	return c.lookup(hash)
}

// SetData seeds the cache with a successful result.
func (c *Client) SetData(key Key, data interface{}) error {
	hash, err := key.Hash()
	if err != nil {
		return err
	}
	c.store(hash, key, Result{Status: StatusSuccess, Data: data, UpdatedAt: NowFunc()})
	return nil
}

// Invalidate drops every cached result whose key starts with prefix.
// It returns the number of dropped results.
func (c *Client) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	for hash, entry := range c.entries {
		if entry.key.HasPrefix(prefix) {
			delete(c.entries, hash)
			n++
		}
	}
	return n
}
