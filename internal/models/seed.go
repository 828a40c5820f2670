package models

import "time"

// Seed is the data prefetched before first render: the tag list and the
// unfiltered first page.
type Seed struct {
	Tags      []string  `json:"tags"`
	Page      Page      `json:"page"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// IsZero reports whether the seed was never fetched.
func (s Seed) IsZero() bool {
	return s.FetchedAt.IsZero() && len(s.Tags) == 0 && len(s.Page.Tools) == 0
}
