// Package seed prefetches the data the listing needs for first paint and
// keeps it fresh.
package seed

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/webtools-portal/internal/models"
)

// Fetcher is the part of the tools client the seed needs.
type Fetcher interface {
	FetchTags(ctx context.Context) ([]string, error)
	FetchTools(ctx context.Context, tag string, page, limit int) (*models.Page, error)
}

// Prefetch fetches the tag list and the unfiltered first page in parallel.
// Either failure fails the whole prefetch.
func Prefetch(ctx context.Context, f Fetcher, limit int) (models.Seed, error) {
	var (
		tags []string
		page *models.Page
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tags, err = f.FetchTags(gctx)
		if err != nil {
			return fmt.Errorf("fetch tags: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		page, err = f.FetchTools(gctx, "", 1, limit)
		if err != nil {
			return fmt.Errorf("fetch first page: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.Seed{}, err
	}

	return models.Seed{
		Tags:      tags,
		Page:      *page,
		FetchedAt: time.Now().UTC(),
	}, nil
}
