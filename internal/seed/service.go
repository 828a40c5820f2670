package seed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bobmcallan/webtools-portal/internal/client"
	"github.com/bobmcallan/webtools-portal/internal/common"
	"github.com/bobmcallan/webtools-portal/internal/interfaces"
	"github.com/bobmcallan/webtools-portal/internal/models"
)

const (
	seedRetryAttempts = 3
	seedRetryDelay    = 2 * time.Second
)

// Recorder is told when a fresh seed was fetched.
type Recorder interface {
	SetSeedFetched(t time.Time)
}

// Service holds the current seed. Reads are safe from any goroutine.
type Service struct {
	fetcher  Fetcher
	store    interfaces.SeedStorage
	limit    int
	interval time.Duration
	recorder Recorder
	logger   *common.Logger

	retryAttempts int
	retryDelay    time.Duration

	mu      sync.RWMutex
	current models.Seed
}

// Option configures a Service.
type Option func(*Service)

// WithStorage persists every fresh seed to store and loads the last one at start.
func WithStorage(store interfaces.SeedStorage) Option {
	return func(s *Service) { s.store = store }
}

// WithRefreshInterval re-seeds every d. Zero disables refreshing.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) { s.interval = d }
}

// WithRecorder reports fetch times to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithRetry overrides the number of initial attempts and the delay between them.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.retryAttempts = attempts
		}
		s.retryDelay = delay
	}
}

// NewService creates a seed service fetching pages of limit tools.
func NewService(f Fetcher, limit int, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		fetcher:       f,
		limit:         limit,
		logger:        logger,
		retryAttempts: seedRetryAttempts,
		retryDelay:    seedRetryDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the current seed.
func (s *Service) Current() models.Seed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Tags returns the current seed's tag list.
func (s *Service) Tags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.current.Tags...)
}

// Start loads the persisted seed, then tries a fresh prefetch, retrying
// transient failures.
// It never fails: without a fresh or persisted seed the portal starts empty.
func (s *Service) Start(ctx context.Context) {
	if s.store != nil {
		stored, err := s.store.LoadSeed(ctx)
		if err != nil {
			s.logger.Warn().Str("error", err.Error()).Msg("seed: failed to load persisted seed")
		} else if stored != nil {
			s.set(*stored)
			s.logger.Info().
				Int("tags", len(stored.Tags)).
				Int("tools", len(stored.Page.Tools)).
				Str("fetched_at", stored.FetchedAt.Format(time.RFC3339)).
				Msg("seed: loaded persisted seed")
		}
	}

	var err error
	for attempt := 1; attempt <= s.retryAttempts; attempt++ {
		err = s.Refresh(ctx)
		if err == nil {
			return
		}
		if errors.Is(err, context.Canceled) || !client.IsRetryable(err) {
			break
		}
		s.logger.Warn().
			Int("attempt", attempt).
			Int("max_attempts", s.retryAttempts).
			Str("error", err.Error()).
			Msg("seed: prefetch failed, retrying")
		if attempt < s.retryAttempts {
			select {
			case <-ctx.Done():
				attempt = s.retryAttempts
			case <-time.After(s.retryDelay):
			}
		}
	}

	if s.Current().IsZero() {
		s.logger.Warn().Str("error", err.Error()).Msg("seed: no seed available, starting with an empty listing")
		return
	}
	s.logger.Warn().Str("error", err.Error()).Msg("seed: prefetch failed, serving persisted seed")
}

// Refresh prefetches a new seed and replaces the current one on success.
func (s *Service) Refresh(ctx context.Context) error {
	fresh, err := Prefetch(ctx, s.fetcher, s.limit)
	if err != nil {
		return err
	}
	s.set(fresh)

	if s.recorder != nil {
		s.recorder.SetSeedFetched(fresh.FetchedAt)
	}
	if s.store != nil {
		// The new seed is already live; a failed save only costs the next cold start.
		if err := s.store.SaveSeed(ctx, fresh); err != nil {
			s.logger.Warn().Str("error", err.Error()).Msg("seed: failed to persist seed")
		}
	}

	s.logger.Info().Int("tags", len(fresh.Tags)).Int("tools", len(fresh.Page.Tools)).Msg("seed: refreshed")
	return nil
}

// Run refreshes on the configured interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn().Str("error", err.Error()).Msg("seed: scheduled refresh failed")
			}
		}
	}
}

func (s *Service) set(seed models.Seed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = seed
}
