package storage

import (
	"github.com/bobmcallan/webtools-portal/internal/common"
	"github.com/bobmcallan/webtools-portal/internal/config"
	"github.com/bobmcallan/webtools-portal/internal/interfaces"
	"github.com/bobmcallan/webtools-portal/internal/storage/bolt"
)

// NewStorageManager creates a new storage manager based on config.
func NewStorageManager(logger *common.Logger, cfg *config.Config) (interfaces.StorageManager, error) {
	return bolt.NewManager(logger, &cfg.Storage.Bolt)
}
