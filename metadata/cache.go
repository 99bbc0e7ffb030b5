// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package metadata

import (
	"sync"
	"time"
)

type cacheValue struct {
	table      *Table
	expiration time.Time
}

// cache holds fetched tables, keyed by location, for a fixed TTL. The
// TTL of an entry starts when it is set. Expired entries are deleted
// lazily by get.
type cache struct {
	mu      sync.Mutex
	entries map[string]cacheValue
	ttl     time.Duration
	now     func() time.Time
}

func newCache(ttl time.Duration) *cache {
	return &cache{
		entries: map[string]cacheValue{},
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *cache) get(key string) (*Table, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if ok && v.expiration.After(c.now()) {
		return v.table, true
	}
	if ok {
		delete(c.entries, key)
	}
	return nil, false
}

func (c *cache) set(key string, t *Table) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = cacheValue{
		table:      t,
		expiration: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
}
