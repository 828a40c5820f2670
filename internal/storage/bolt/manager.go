package bolt

import (
	"github.com/bobmcallan/webtools-portal/internal/common"
	"github.com/bobmcallan/webtools-portal/internal/config"
	"github.com/bobmcallan/webtools-portal/internal/interfaces"
)

// Manager implements interfaces.StorageManager for bbolt.
type Manager struct {
	db     *BoltDB
	kv     *KVStorage
	seeds  *SeedStorage
	logger *common.Logger
}

// NewManager creates a new bbolt storage manager.
func NewManager(logger *common.Logger, cfg *config.BoltConfig) (interfaces.StorageManager, error) {
	db, err := NewBoltDB(logger, cfg)
	if err != nil {
		return nil, err
	}

	kv := NewKVStorage(db, logger)
	manager := &Manager{
		db:     db,
		kv:     kv,
		seeds:  NewSeedStorage(kv, logger),
		logger: logger,
	}

	logger.Debug().Msg("bolt storage manager initialized")

	return manager, nil
}

// SeedStorage returns the seed store.
func (m *Manager) SeedStorage() interfaces.SeedStorage {
	return m.seeds
}

// Close closes the database file.
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
