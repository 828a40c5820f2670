package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/bobmcallan/webtools-portal/internal/common"
	"github.com/bobmcallan/webtools-portal/internal/config"
	"github.com/bobmcallan/webtools-portal/internal/models"
)

func setupTestDB(t *testing.T) (*BoltDB, func()) {
	t.Helper()

	logger := common.NewSilentLogger()
	cfg := &config.BoltConfig{Path: filepath.Join(t.TempDir(), "nested", "test.db")}
	db, err := NewBoltDB(logger, cfg)
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return db, cleanup
}

func TestNewBoltDB_EmptyPath(t *testing.T) {
	_, err := NewBoltDB(common.NewSilentLogger(), &config.BoltConfig{})
	if err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestKVStorage_SetAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	kv := NewKVStorage(db, common.NewSilentLogger())
	ctx := context.Background()

	if err := kv.Set(ctx, "test-key", "test-value"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := kv.Get(ctx, "test-key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "test-value" {
		t.Errorf("expected test-value, got %s", val)
	}
}

func TestKVStorage_GetNotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	kv := NewKVStorage(db, common.NewSilentLogger())

	_, err := kv.Get(context.Background(), "nonexistent-key")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestKVStorage_Overwrite(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	kv := NewKVStorage(db, common.NewSilentLogger())
	ctx := context.Background()

	_ = kv.Set(ctx, "k", "v1")
	_ = kv.Set(ctx, "k", "v2")

	val, err := kv.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "v2" {
		t.Errorf("expected v2, got %s", val)
	}
}

func TestSeedStorage_LoadEmpty(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := common.NewSilentLogger()
	seeds := NewSeedStorage(NewKVStorage(db, logger), logger)

	got, err := seeds.LoadSeed(context.Background())
	if err != nil {
		t.Fatalf("LoadSeed failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil seed, got %+v", got)
	}
}

func TestSeedStorage_SaveAndLoad(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := common.NewSilentLogger()
	seeds := NewSeedStorage(NewKVStorage(db, logger), logger)
	ctx := context.Background()

	fetched := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	in := models.Seed{
		Tags: []string{"Video", "Audio"},
		Page: models.Page{
			Tools: []models.Tool{{Slug: "a", Name: "A", CreatedAt: fetched}},
			Info:  models.PageInfo{Count: 10, Pages: 2, Next: "2"},
		},
		FetchedAt: fetched,
	}
	if err := seeds.SaveSeed(ctx, in); err != nil {
		t.Fatalf("SaveSeed failed: %v", err)
	}

	out, err := seeds.LoadSeed(ctx)
	if err != nil {
		t.Fatalf("LoadSeed failed: %v", err)
	}
	if out == nil {
		t.Fatal("expected a seed")
	}
	if len(out.Tags) != 2 || out.Tags[0] != "Video" {
		t.Errorf("unexpected tags: %v", out.Tags)
	}
	if out.Page.Info.Next != "2" {
		t.Errorf("expected next 2, got %q", out.Page.Info.Next)
	}
	if !out.FetchedAt.Equal(fetched) {
		t.Errorf("expected fetchedAt %v, got %v", fetched, out.FetchedAt)
	}
}

func TestSeedStorage_CorruptValue(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	logger := common.NewSilentLogger()
	kv := NewKVStorage(db, logger)
	seeds := NewSeedStorage(kv, logger)
	ctx := context.Background()

	_ = kv.Set(ctx, seedKey, "not json")
	if _, err := seeds.LoadSeed(ctx); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestManager_PersistsAcrossReopen(t *testing.T) {
	logger := common.NewSilentLogger()
	cfg := &config.BoltConfig{Path: filepath.Join(t.TempDir(), "webtools.db")}
	ctx := context.Background()

	m, err := NewManager(logger, cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if err := m.SeedStorage().SaveSeed(ctx, models.Seed{Tags: []string{"Video"}, FetchedAt: time.Now()}); err != nil {
		t.Fatalf("SaveSeed failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	m, err = NewManager(logger, cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer m.Close()

	got, err := m.SeedStorage().LoadSeed(ctx)
	if err != nil || got == nil {
		t.Fatalf("LoadSeed after reopen: %v %v", got, err)
	}
	if got.Tags[0] != "Video" {
		t.Errorf("expected Video, got %v", got.Tags)
	}
}
