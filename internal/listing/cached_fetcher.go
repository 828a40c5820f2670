package listing

import (
	"context"
	"strconv"

	"github.com/bobmcallan/webtools-portal/internal/cache"
	"github.com/bobmcallan/webtools-portal/internal/models"
)

// CacheObserver is told about every cache lookup.
type CacheObserver interface {
	ObserveCacheLookup(hit bool)
}

// CachedFetcher serves FetchTools from a shared PageCache and falls through
// to the wrapped Fetcher on a miss. Only successful pages are stored.
type CachedFetcher struct {
	next     Fetcher
	cache    *cache.PageCache
	observer CacheObserver
}

// NewCachedFetcher wraps next with c. observer may be nil.
func NewCachedFetcher(next Fetcher, c *cache.PageCache, observer CacheObserver) *CachedFetcher {
	return &CachedFetcher{next: next, cache: c, observer: observer}
}

// FetchTools implements Fetcher.
func (f *CachedFetcher) FetchTools(ctx context.Context, tag string, page, limit int) (*models.Page, error) {
	key := cache.MakeKey(tag, limit, models.Token(strconv.Itoa(page)))
	if cached, ok := f.cache.Get(key); ok {
		f.observe(true)
		return &cached, nil
	}
	f.observe(false)

	result, err := f.next.FetchTools(ctx, tag, page, limit)
	if err != nil {
		return nil, err
	}
	f.cache.Set(key, *result)
	return result, nil
}

// InvalidateTag drops every cached page of the tag filter value.
func (f *CachedFetcher) InvalidateTag(tag string) {
	f.cache.InvalidateTag(tag)
}

func (f *CachedFetcher) observe(hit bool) {
	if f.observer != nil {
		f.observer.ObserveCacheLookup(hit)
	}
}
