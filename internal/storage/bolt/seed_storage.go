package bolt

import (
	"context"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/bobmcallan/webtools-portal/internal/common"
	"github.com/bobmcallan/webtools-portal/internal/models"
)

const seedKey = "seed/current"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SeedStorage keeps the last seed as JSON under a single kv key.
type SeedStorage struct {
	kv     *KVStorage
	logger *common.Logger
}

// NewSeedStorage creates a seed store on top of kv.
func NewSeedStorage(kv *KVStorage, logger *common.Logger) *SeedStorage {
	return &SeedStorage{kv: kv, logger: logger}
}

// SaveSeed replaces the stored seed.
func (s *SeedStorage) SaveSeed(ctx context.Context, seed models.Seed) error {
	data, err := json.Marshal(seed)
	if err != nil {
		return fmt.Errorf("failed to encode seed: %w", err)
	}
	if err := s.kv.Set(ctx, seedKey, string(data)); err != nil {
		return err
	}
	s.logger.Debug().Int("tags", len(seed.Tags)).Int("tools", len(seed.Page.Tools)).Msg("seed saved")
	return nil
}

// LoadSeed returns the stored seed, or nil when none was saved.
func (s *SeedStorage) LoadSeed(ctx context.Context) (*models.Seed, error) {
	data, err := s.kv.Get(ctx, seedKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var seed models.Seed
	if err := json.Unmarshal([]byte(data), &seed); err != nil {
		return nil, fmt.Errorf("failed to decode stored seed: %w", err)
	}
	return &seed, nil
}
