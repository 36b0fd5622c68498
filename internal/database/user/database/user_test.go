package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/itsu-games/itsu/internal/cache/cachelru"
	sdb "github.com/itsu-games/itsu/internal/database"
	"github.com/itsu-games/itsu/internal/database/user/model"
	bolt "go.etcd.io/bbolt"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := sdb.NewFromEnv(ctx, &sdb.Config{FilePath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close(ctx) })

	cache, err := cachelru.NewLRU(16)
	if err != nil {
		t.Fatal(err)
	}
	return New(db, cache)
}

func TestStoreAndFetch(t *testing.T) {
	t.Parallel()
	db := testDB(t)

	u := model.User{ID: "u1", Username: "ayu", WalletAddr: "wallet1"}
	if err := db.Store(u); err != nil {
		t.Fatal(err)
	}

	got, err := db.Fetch("u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Username != "ayu" || got.WalletAddr != "wallet1" {
		t.Fatalf("unexpected user %+v", got)
	}

	// second fetch is served from the cache
	if _, err := db.Fetch("u1"); err != nil {
		t.Fatal(err)
	}
}

func TestFetchMissing(t *testing.T) {
	t.Parallel()
	db := testDB(t)

	if _, err := db.Fetch("ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestCreditWinnings(t *testing.T) {
	t.Parallel()
	db := testDB(t)

	if err := db.Store(model.User{ID: "u1", Username: "ayu", TotalSolWon: 100}); err != nil {
		t.Fatal(err)
	}
	// warm the cache so the credit has something to evict
	if _, err := db.Fetch("u1"); err != nil {
		t.Fatal(err)
	}

	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		if err := db.CreditWinningsTx(tx, "u1", "SOL", 490000000); err != nil {
			return err
		}
		return db.CreditWinningsTx(tx, "u1", "SKR", 25)
	}); err != nil {
		t.Fatal(err)
	}

	got, err := db.Fetch("u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalSolWon != 490000100 {
		t.Fatalf("expected SOL total 490000100 got %d", got.TotalSolWon)
	}
	if got.TotalSkrWon != 25 {
		t.Fatalf("expected SKR total 25 got %d", got.TotalSkrWon)
	}
}

func TestCreditWinningsUnknownUser(t *testing.T) {
	t.Parallel()
	db := testDB(t)

	err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		return db.CreditWinningsTx(tx, "ghost", "SOL", 1)
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}
