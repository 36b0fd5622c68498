package database

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/itsu-games/itsu/internal/byteutil"
	"github.com/itsu-games/itsu/internal/database"
	"github.com/itsu-games/itsu/internal/database/queue/model"
	bolt "go.etcd.io/bbolt"
)

var (
	ErrEntryNotFound = fmt.Errorf("not found")

	errAlreadyQueued = fmt.Errorf("already queued")
)

const bucket = "queue"

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

type DB struct {
	sDB *database.DB
}

// key prefixes entries with their arrival time so that a forward cursor
// scan yields oldest-first ordering.
func key(e model.Entry) []byte {
	k := byteutil.EncodeInt64ToBytes(e.JoinedAt.UnixNano())
	return append(k, []byte(e.UserID)...)
}

// AddTx inserts a queue entry inside the caller's write transaction. A user
// already waiting keeps their original slot.
func (db *DB) AddTx(tx *bolt.Tx, e model.Entry) error {
	b, err := tx.CreateBucketIfNotExists([]byte(bucket))
	if err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}

	if err := b.ForEach(func(_, v []byte) error {
		var cur model.Entry
		if err := json.Unmarshal(v, &cur); err != nil {
			return fmt.Errorf("unmarshal: %v", err)
		}
		if cur.UserID == e.UserID {
			return errAlreadyQueued
		}
		return nil
	}); err != nil {
		if errors.Is(err, errAlreadyQueued) {
			return nil
		}
		return err
	}

	enc, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := b.Put(key(e), enc); err != nil {
		return fmt.Errorf("put to bucket error: %w", err)
	}
	return nil
}

func (db *DB) Add(e model.Entry) error {
	return db.sDB.DB.Update(func(tx *bolt.Tx) error {
		return db.AddTx(tx, e)
	})
}

// ListOldest returns up to limit entries for the currency, oldest first.
func (db *DB) ListOldest(currency string, limit int) ([]model.Entry, error) {
	var list []model.Entry

	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}

		c := b.Cursor()
		for k, v := c.First(); k != nil && len(list) < limit; k, v = c.Next() {
			var e model.Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("unmarshal: %v", err)
			}
			if e.Currency != currency {
				continue
			}
			list = append(list, e)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	return list, nil
}

// DeleteByUserIDsTx removes the entries of the given users inside the
// caller's write transaction.
func (db *DB) DeleteByUserIDsTx(tx *bolt.Tx, userIDs []string) error {
	b := tx.Bucket([]byte(bucket))
	if b == nil {
		return nil
	}

	ids := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		ids[id] = struct{}{}
	}

	var keys [][]byte
	if err := b.ForEach(func(k, v []byte) error {
		var e model.Entry
		if err := json.Unmarshal(v, &e); err != nil {
			return fmt.Errorf("unmarshal: %v", err)
		}
		if _, ok := ids[e.UserID]; ok {
			keys = append(keys, bytes.Clone(k))
		}
		return nil
	}); err != nil {
		return err
	}

	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return fmt.Errorf("delete from bucket error: %w", err)
		}
	}

	return nil
}

// Delete removes a single user's entry, if any.
func (db *DB) Delete(userID string) error {
	return db.sDB.DB.Update(func(tx *bolt.Tx) error {
		return db.DeleteByUserIDsTx(tx, []string{userID})
	})
}
