// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package metadata

import (
	"context"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/metasub/utils/errors"
	"github.com/metasub/utils/internal/httputil"
	"github.com/metasub/utils/log"
	"github.com/metasub/utils/retry"
	"golang.org/x/net/context/ctxhttp"
)

// Default table locations.
const (
	CompleteTableURL   = "https://raw.githubusercontent.com/dcdanko/MetaSUB-metadata/master/complete_metadata.csv"
	UploadableTableURL = "https://raw.githubusercontent.com/dcdanko/MetaSUB-metadata/master/upload_metadata.csv"
	CanonicalCitiesURL = "https://raw.githubusercontent.com/dcdanko/MetaSUB-metadata/master/spreadsheets/city_names.csv"
)

// DefaultTTL is the time for which a Loader reuses a fetched table.
const DefaultTTL = 10 * time.Minute

var defaultRetryPolicy = retry.MaxRetries(retry.Jitter(retry.Backoff(500*time.Millisecond, 10*time.Second, 2), 0.25), 5)

// Loader fetches metadata tables from URLs or local paths. Fetched
// tables are cached for the loader's TTL, so repeated lookups within
// one command fetch each table once. Callers must not modify the
// returned tables; use Table.Copy.
type Loader struct {
	CompleteURL   string
	UploadableURL string
	CitiesURL     string
	// Client is used for http and https locations. If nil,
	// http.DefaultClient is used.
	Client *http.Client
	// Retry is the policy used to retry temporary fetch failures.
	Retry retry.Policy

	mu    sync.Mutex
	cache *cache
}

// NewLoader returns a loader for the default table locations.
func NewLoader() *Loader {
	return &Loader{
		CompleteURL:   CompleteTableURL,
		UploadableURL: UploadableTableURL,
		CitiesURL:     CanonicalCitiesURL,
		Retry:         defaultRetryPolicy,
		cache:         newCache(DefaultTTL),
	}
}

// SetTTL sets the cache TTL. A non-positive TTL disables caching.
func (l *Loader) SetTTL(ttl time.Duration) {
	l.mu.Lock()
	l.cache = newCache(ttl)
	l.mu.Unlock()
}

// Complete returns the complete metadata table.
func (l *Loader) Complete(ctx context.Context) (*Table, error) {
	return l.Load(ctx, l.CompleteURL)
}

// Uploadable returns the metadata table trimmed for upload to
// MetaGenScope. Its first column names the samples.
func (l *Loader) Uploadable(ctx context.Context) (*Table, error) {
	return l.Load(ctx, l.UploadableURL)
}

// CanonicalCities returns the sorted, distinct canonical city names,
// lowercased if lower is true. The names are the first column of the
// city table.
func (l *Loader) CanonicalCities(ctx context.Context, lower bool) ([]string, error) {
	t, err := l.Load(ctx, l.CitiesURL)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	for _, row := range t.Rows {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		name := row[0]
		if lower {
			name = strings.ToLower(name)
		}
		set[name] = true
	}
	return SortedKeys(set), nil
}

// SamplesFromCity returns the names (uuid column) of the samples of
// the complete table matching the city and project. Either criterion
// may be empty.
func (l *Loader) SamplesFromCity(ctx context.Context, city, project string) ([]string, error) {
	t, err := l.Complete(ctx)
	if err != nil {
		return nil, err
	}
	return t.Filter(city, project).Column(ColUUID)
}

// Load returns the table at loc, an http(s) URL or a local path.
func (l *Loader) Load(ctx context.Context, loc string) (*Table, error) {
	l.mu.Lock()
	c := l.cache
	if c == nil {
		c = newCache(DefaultTTL)
		l.cache = c
	}
	l.mu.Unlock()
	if t, ok := c.get(loc); ok {
		log.Debug.Printf("metadata: cached %s", loc)
		return t, nil
	}
	var t *Table
	policy := l.Retry
	if policy == nil {
		policy = defaultRetryPolicy
	}
	err := retry.Do(ctx, policy, func() error {
		var err error
		t, err = l.fetch(ctx, loc)
		if err != nil && errors.IsTemporary(err) {
			log.Printf("metadata: fetch %s: %v; retrying", loc, err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	c.set(loc, t)
	return t, nil
}

func (l *Loader) fetch(ctx context.Context, loc string) (*Table, error) {
	if !strings.HasPrefix(loc, "http://") && !strings.HasPrefix(loc, "https://") {
		f, err := os.Open(loc)
		if err != nil {
			return nil, errors.E("metadata: open", loc, err)
		}
		defer f.Close() // nolint: errcheck
		return ReadCSV(f)
	}
	log.Debug.Printf("metadata: fetching %s", loc)
	resp, err := ctxhttp.Get(ctx, l.Client, loc)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.E("metadata: fetch", loc, ctx.Err())
		}
		return nil, errors.E(errors.Net, errors.Temporary, "metadata: fetch", loc, err)
	}
	defer resp.Body.Close() // nolint: errcheck
	if err := httputil.CheckResponse(resp); err != nil {
		return nil, errors.E(err, "metadata: fetch", loc)
	}
	return ReadCSV(resp.Body)
}
