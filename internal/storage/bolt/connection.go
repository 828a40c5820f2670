package bolt

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/bobmcallan/webtools-portal/internal/common"
	"github.com/bobmcallan/webtools-portal/internal/config"
)

var kvBucket = []byte("kv")

// BoltDB manages the bbolt database file.
type BoltDB struct {
	db     *bolt.DB
	logger *common.Logger
	config *config.BoltConfig
}

// NewBoltDB opens (or creates) the database file and its buckets.
func NewBoltDB(logger *common.Logger, cfg *config.BoltConfig) (*BoltDB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("bolt path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	logger.Debug().Str("path", cfg.Path).Msg("opening bolt database")

	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(kvBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	logger.Debug().Str("path", cfg.Path).Msg("bolt database initialized")

	return &BoltDB{
		db:     db,
		logger: logger,
		config: cfg,
	}, nil
}

// DB returns the underlying bbolt handle.
func (b *BoltDB) DB() *bolt.DB {
	return b.db
}

// Close closes the database file.
func (b *BoltDB) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
