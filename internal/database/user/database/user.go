package database

import (
	"encoding/json"
	"fmt"

	"github.com/itsu-games/itsu/internal/cache"
	"github.com/itsu-games/itsu/internal/database"
	"github.com/itsu-games/itsu/internal/database/user/model"
	bolt "go.etcd.io/bbolt"
)

var ErrNotFound = fmt.Errorf("not found")

const bucket = "users"

func New(db *database.DB, cache cache.Cache) *DB {
	return &DB{sDB: db, cache: cache}
}

type DB struct {
	sDB *database.DB

	cache cache.Cache
}

func (db *DB) Fetch(userID string) (model.User, error) {
	var u model.User
	if db.cache != nil {
		if v, ok := db.cache.Get(userID); ok {
			return v.(model.User), nil
		}
	}

	var bytes []byte
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return ErrNotFound
		}
		bytes = b.Get([]byte(userID))
		return nil
	}); err != nil {
		return u, fmt.Errorf("view transaction error: %w", err)
	}

	if len(bytes) == 0 {
		return u, ErrNotFound
	}

	if err := json.Unmarshal(bytes, &u); err != nil {
		return u, fmt.Errorf("unmarshal: %v", err)
	}

	if db.cache != nil {
		db.cache.Add(userID, u)
	}

	return u, nil
}

func (db *DB) Store(m model.User) error {
	bytes, err := json.Marshal(m)
	if err != nil {
		return err
	}

	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}

		if err := b.Put([]byte(m.ID), bytes); err != nil {
			return fmt.Errorf("put to bucket error: %w", err)
		}

		if db.cache != nil {
			db.cache.Add(m.ID, m)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %v", err)
	}

	return nil
}

// CreditWinningsTx increments the user's running total for the given currency
// inside the caller's write transaction.
func (db *DB) CreditWinningsTx(tx *bolt.Tx, userID, currency string, amount int64) error {
	b, err := tx.CreateBucketIfNotExists([]byte(bucket))
	if err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}

	bytes := b.Get([]byte(userID))
	if len(bytes) == 0 {
		return ErrNotFound
	}

	var u model.User
	if err := json.Unmarshal(bytes, &u); err != nil {
		return fmt.Errorf("unmarshal: %v", err)
	}

	switch currency {
	case "SOL":
		u.TotalSolWon += amount
	case "SKR":
		u.TotalSkrWon += amount
	}

	bytes, err = json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := b.Put([]byte(u.ID), bytes); err != nil {
		return fmt.Errorf("put to bucket error: %w", err)
	}

	if db.cache != nil {
		db.cache.Delete(u.ID)
	}

	return nil
}
