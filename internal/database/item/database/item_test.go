package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	sdb "github.com/itsu-games/itsu/internal/database"
	"github.com/itsu-games/itsu/internal/database/item/model"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := sdb.NewFromEnv(ctx, &sdb.Config{FilePath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close(ctx) })
	return New(db)
}

func TestStoreAndFetchAll(t *testing.T) {
	t.Parallel()
	db := testDB(t)

	items := []model.Item{
		{ID: "1", Name: "Lighthouse", Hints: []string{"Guides through the dark"}, IsActive: true},
		{ID: "2", Name: "Compass", Hints: []string{"Always points somewhere"}, IsActive: false},
	}
	for _, it := range items {
		if err := db.Store(it); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.FetchAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 items got %d", len(got))
	}
}

func TestRandomActiveSkipsInactive(t *testing.T) {
	t.Parallel()
	db := testDB(t)

	if err := db.Store(model.Item{ID: "1", Name: "Lighthouse", IsActive: true}); err != nil {
		t.Fatal(err)
	}
	if err := db.Store(model.Item{ID: "2", Name: "Compass", IsActive: false}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 20; i++ {
		it, err := db.RandomActive()
		if err != nil {
			t.Fatal(err)
		}
		if it.Name != "Lighthouse" {
			t.Fatalf("picked inactive item %q", it.Name)
		}
	}
}

func TestRandomActiveEmptyCatalog(t *testing.T) {
	t.Parallel()
	db := testDB(t)

	if _, err := db.RandomActive(); !errors.Is(err, ErrNoActiveItems) {
		t.Fatalf("expected ErrNoActiveItems got %v", err)
	}

	if err := db.Store(model.Item{ID: "1", Name: "Compass", IsActive: false}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.RandomActive(); !errors.Is(err, ErrNoActiveItems) {
		t.Fatalf("expected ErrNoActiveItems with only inactive items, got %v", err)
	}
}
