package interfaces

import (
	"context"

	"github.com/bobmcallan/webtools-portal/internal/models"
)

// StorageManager provides access to domain-specific storage interfaces.
type StorageManager interface {
	SeedStorage() SeedStorage
	Close() error
}

// SeedStorage persists the last successful seed so a restart can paint
// before the tools API answers.
type SeedStorage interface {
	SaveSeed(ctx context.Context, seed models.Seed) error
	// LoadSeed returns nil and no error when nothing was saved.
	LoadSeed(ctx context.Context) (*models.Seed, error)
}
