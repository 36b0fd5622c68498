package database

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/itsu-games/itsu/internal/database"
	"github.com/itsu-games/itsu/internal/database/match/model"
	bolt "go.etcd.io/bbolt"
)

var ErrNotFound = fmt.Errorf("not found")

const (
	matchBucket       = "matches"
	playerBucket      = "players"
	transactionBucket = "transactions"
)

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

type DB struct {
	sDB *database.DB
}

func playerKey(matchID, userID string) []byte {
	return []byte(matchID + "/" + userID)
}

func putJSON(tx *bolt.Tx, bucket string, key []byte, v interface{}) error {
	b, err := tx.CreateBucketIfNotExists([]byte(bucket))
	if err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}

	bytes, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := b.Put(key, bytes); err != nil {
		return fmt.Errorf("put to bucket error: %w", err)
	}

	return nil
}

func (db *DB) CreateTx(tx *bolt.Tx, m model.Match) error {
	return putJSON(tx, matchBucket, []byte(m.ID), m)
}

func (db *DB) CreatePlayersTx(tx *bolt.Tx, players []model.Player) error {
	for _, p := range players {
		if err := putJSON(tx, playerBucket, playerKey(p.MatchID, p.UserID), p); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) CreateTransactionTx(tx *bolt.Tx, tr model.Transaction) error {
	return putJSON(tx, transactionBucket, []byte(tr.Reference), tr)
}

func (db *DB) Fetch(matchID string) (model.Match, error) {
	var m model.Match
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(matchBucket))
		if b == nil {
			return ErrNotFound
		}
		bytes := b.Get([]byte(matchID))
		if len(bytes) == 0 {
			return ErrNotFound
		}
		return json.Unmarshal(bytes, &m)
	}); err != nil {
		return m, err
	}

	return m, nil
}

func (db *DB) FetchPlayers(matchID string) ([]model.Player, error) {
	var list []model.Player
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(playerBucket))
		if b == nil {
			return nil
		}

		c := b.Cursor()
		prefix := []byte(matchID + "/")
		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Next() {
			var p model.Player
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("unmarshal: %v", err)
			}
			list = append(list, p)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	return list, nil
}

func (db *DB) FetchTransactions(matchID string) ([]model.Transaction, error) {
	var list []model.Transaction
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(transactionBucket))
		if b == nil {
			return nil
		}

		return b.ForEach(func(_, v []byte) error {
			var tr model.Transaction
			if err := json.Unmarshal(v, &tr); err != nil {
				return fmt.Errorf("unmarshal: %v", err)
			}
			if tr.MatchID == matchID {
				list = append(list, tr)
			}
			return nil
		})
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	return list, nil
}

func (db *DB) updatePlayer(tx *bolt.Tx, matchID, userID string, fn func(*model.Player)) error {
	b := tx.Bucket([]byte(playerBucket))
	if b == nil {
		return ErrNotFound
	}

	key := playerKey(matchID, userID)
	bytes := b.Get(key)
	if len(bytes) == 0 {
		return ErrNotFound
	}

	var p model.Player
	if err := json.Unmarshal(bytes, &p); err != nil {
		return fmt.Errorf("unmarshal: %v", err)
	}

	fn(&p)

	bytes, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	return b.Put(key, bytes)
}

// UpdatePlayerDeath records a player's elimination and how many full rounds
// they survived.
func (db *DB) UpdatePlayerDeath(matchID, userID string, roundsSurvived int) error {
	return db.sDB.DB.Update(func(tx *bolt.Tx) error {
		return db.updatePlayer(tx, matchID, userID, func(p *model.Player) {
			p.IsDead = true
			p.RoundsSurvived = roundsSurvived
		})
	})
}

func (db *DB) SetPlayerWinningsTx(tx *bolt.Tx, matchID, userID string, amount int64) error {
	return db.updatePlayer(tx, matchID, userID, func(p *model.Player) {
		p.Winnings = amount
	})
}

func (db *DB) FinishTx(tx *bolt.Tx, matchID, winnerRole string, endTime time.Time) error {
	return db.updateMatch(tx, matchID, func(m *model.Match) {
		m.Status = model.StatusFinished
		m.WinnerRole = winnerRole
		m.EndTime = endTime
	})
}

func (db *DB) UpdateStatus(matchID string, status model.Status) error {
	return db.sDB.DB.Update(func(tx *bolt.Tx) error {
		return db.updateMatch(tx, matchID, func(m *model.Match) {
			m.Status = status
		})
	})
}

func (db *DB) updateMatch(tx *bolt.Tx, matchID string, fn func(*model.Match)) error {
	b := tx.Bucket([]byte(matchBucket))
	if b == nil {
		return ErrNotFound
	}

	bytes := b.Get([]byte(matchID))
	if len(bytes) == 0 {
		return ErrNotFound
	}

	var m model.Match
	if err := json.Unmarshal(bytes, &m); err != nil {
		return fmt.Errorf("unmarshal: %v", err)
	}

	fn(&m)

	bytes, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	return b.Put([]byte(matchID), bytes)
}
