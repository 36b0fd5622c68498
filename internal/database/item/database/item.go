package database

import (
	"encoding/json"
	"fmt"

	"github.com/itsu-games/itsu/internal/database"
	"github.com/itsu-games/itsu/internal/database/item/model"
	"github.com/valyala/fastrand"
	bolt "go.etcd.io/bbolt"
)

var ErrNoActiveItems = fmt.Errorf("no active items found")

const bucket = "items"

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

type DB struct {
	sDB *database.DB
}

func (db *DB) Store(m model.Item) error {
	bytes, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}

		if err := b.Put([]byte(m.ID), bytes); err != nil {
			return fmt.Errorf("put to bucket error: %w", err)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %v", err)
	}

	return nil
}

func (db *DB) FetchAll() ([]model.Item, error) {
	var list []model.Item

	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}

		return b.ForEach(func(_, v []byte) error {
			var it model.Item
			if err := json.Unmarshal(v, &it); err != nil {
				return fmt.Errorf("unmarshal: %v", err)
			}
			list = append(list, it)
			return nil
		})
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	return list, nil
}

// RandomActive picks a uniformly random active item.
func (db *DB) RandomActive() (model.Item, error) {
	items, err := db.FetchAll()
	if err != nil {
		return model.Item{}, err
	}

	active := items[:0]
	for _, it := range items {
		if it.IsActive {
			active = append(active, it)
		}
	}

	if len(active) == 0 {
		return model.Item{}, ErrNoActiveItems
	}

	return active[fastrand.Uint32n(uint32(len(active)))], nil
}
