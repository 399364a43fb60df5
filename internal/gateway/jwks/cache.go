// Package jwks keeps the gateway's copy of the authority's public keys.
package jwks

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/jwtx"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTimeout    = 3 * time.Second
	DefaultMinRefresh = 10 * time.Second
)

// ErrRefreshThrottled is returned for an unknown kid when the last fetch
// was too recent to try again.
var ErrRefreshThrottled = errors.New("jwks: refresh throttled")

// FetchFunc retrieves the current key set from wherever it is published.
type FetchFunc func(ctx context.Context) (jwtx.JWKS, error)

// Options tunes a Cache.
type Options struct {
	// Timeout bounds a single fetch. Defaults to DefaultTimeout.
	Timeout time.Duration

	// MinRefresh is the minimum spacing between fetches, successful or not.
	// Defaults to DefaultMinRefresh.
	MinRefresh time.Duration

	// OnFetch, when set, is called after every fetch attempt.
	OnFetch func(err error)
}

// Cache resolves kids to RSA public keys, fetching the key set on a miss.
// Lookups are read-locked; concurrent misses share one fetch.
type Cache struct {
	fetch FetchFunc
	opts  Options
	keys  *jwtx.KeySet
	group singleflight.Group

	mu          sync.RWMutex
	lastAttempt time.Time
	loaded      bool
	waiting     int // callers inside Refresh

	now func() time.Time
}

// NewCache returns an empty cache around fetch.
func NewCache(fetch FetchFunc, opts Options) *Cache {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MinRefresh <= 0 {
		opts.MinRefresh = DefaultMinRefresh
	}
	return &Cache{
		fetch: fetch,
		opts:  opts,
		keys:  jwtx.NewKeySet(),
		now:   time.Now,
	}
}

// Key returns the public key for kid, fetching the key set when kid is
// unknown. Fetch errors, timeouts, cancellation and a kid that is still
// missing after a fetch all return an error.
func (c *Cache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, err := c.lookup(kid); err == nil {
		return key, nil
	}

	if c.throttled() {
		// A fetch may have landed between the first lookup and now.
		if key, err := c.lookup(kid); err == nil {
			return key, nil
		}
		return nil, fmt.Errorf("%w: kid %q", ErrRefreshThrottled, kid)
	}

	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}

	key, err := c.lookup(kid)
	if err != nil {
		return nil, fmt.Errorf("%w %q after refresh", jwtx.ErrUnknownKID, kid)
	}
	return key, nil
}

// Refresh fetches the key set now, sharing the fetch with any concurrent
// callers. The fetch runs under its own timeout; ctx only bounds how long
// this caller waits for it.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.waiting++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.waiting--
		c.mu.Unlock()
	}()

	ch := c.group.DoChan("jwks", func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.Timeout)
		defer cancel()

		c.mu.Lock()
		c.lastAttempt = c.now()
		c.mu.Unlock()

		set, err := c.fetch(fctx)
		if err == nil {
			err = c.keys.ResetFromJWKS(set)
		}
		if err == nil && c.keys.Len() == 0 {
			err = errors.New("jwks: key set has no usable signing keys")
		}
		if c.opts.OnFetch != nil {
			c.opts.OnFetch(err)
		}
		if err != nil {
			return nil, fmt.Errorf("jwks: fetch: %w", err)
		}

		c.mu.Lock()
		c.loaded = true
		c.mu.Unlock()
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return fmt.Errorf("jwks: waiting for fetch: %w", ctx.Err())
	}
}

// throttled reports whether a miss must not start a fetch. While a fetch is
// in flight a miss is never throttled: Refresh joins it instead.
func (c *Cache) throttled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.waiting > 0 {
		return false
	}
	return !c.lastAttempt.IsZero() && c.now().Sub(c.lastAttempt) < c.opts.MinRefresh
}

// Get implements jwtx.KeySource over whatever is cached. It never fetches.
func (c *Cache) Get(kid string) (any, error) {
	return c.keys.Get(kid)
}

// Ready reports whether at least one fetch has succeeded.
func (c *Cache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func (c *Cache) lookup(kid string) (*rsa.PublicKey, error) {
	k, err := c.keys.Get(kid)
	if err != nil {
		return nil, err
	}
	pub, ok := k.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("jwks: cached key is not RSA")
	}
	return pub, nil
}
