// Package ledger groups the per-domain bolt wrappers behind the durable
// operations the core needs to be atomic: match creation consuming queue
// entries, and payout settlement.
package ledger

import (
	"fmt"
	"time"

	"github.com/itsu-games/itsu/internal/database"
	matchdb "github.com/itsu-games/itsu/internal/database/match/database"
	matchmodel "github.com/itsu-games/itsu/internal/database/match/model"
	queuedb "github.com/itsu-games/itsu/internal/database/queue/database"
	queuemodel "github.com/itsu-games/itsu/internal/database/queue/model"
	userdb "github.com/itsu-games/itsu/internal/database/user/database"
	"github.com/itsu-games/itsu/internal/game"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

func New(db *database.DB, users *userdb.DB, matches *matchdb.DB, queue *queuedb.DB) *Ledger {
	return &Ledger{sDB: db, users: users, matches: matches, queue: queue}
}

type Ledger struct {
	sDB     *database.DB
	users   *userdb.DB
	matches *matchdb.DB
	queue   *queuedb.DB
}

// CreateMatch writes the match row and its human player rows and deletes
// the consumed queue entries in one transaction.
func (l *Ledger) CreateMatch(m matchmodel.Match, players []matchmodel.Player, consumedUserIDs []string) error {
	return l.sDB.DB.Update(func(tx *bolt.Tx) error {
		if err := l.matches.CreateTx(tx, m); err != nil {
			return fmt.Errorf("create match: %w", err)
		}
		if err := l.matches.CreatePlayersTx(tx, players); err != nil {
			return fmt.Errorf("create players: %w", err)
		}
		if err := l.queue.DeleteByUserIDsTx(tx, consumedUserIDs); err != nil {
			return fmt.Errorf("delete queue entries: %w", err)
		}
		return nil
	})
}

func (l *Ledger) MarkPlayerDead(matchID, userID string, roundsSurvived int) error {
	return l.matches.UpdatePlayerDeath(matchID, userID, roundsSurvived)
}

func (l *Ledger) MarkMatchFailed(matchID string) error {
	return l.matches.UpdateStatus(matchID, matchmodel.StatusFailed)
}

// Settle commits the whole payout in one transaction: match outcome,
// per-winner winnings, user running totals and one pending payout
// transaction row per winner. The reference key makes downstream
// settlement idempotent.
func (l *Ledger) Settle(s game.Settlement) error {
	return l.sDB.DB.Update(func(tx *bolt.Tx) error {
		if err := l.matches.FinishTx(tx, s.MatchID, string(s.WinnerRole), s.EndTime); err != nil {
			return fmt.Errorf("finish match: %w", err)
		}

		for _, w := range s.Winners {
			if err := l.matches.SetPlayerWinningsTx(tx, s.MatchID, w.UserID, w.Amount); err != nil {
				return fmt.Errorf("set winnings for %s: %w", w.UserID, err)
			}
			if err := l.users.CreditWinningsTx(tx, w.UserID, s.Currency, w.Amount); err != nil {
				return fmt.Errorf("credit %s: %w", w.UserID, err)
			}
			if err := l.matches.CreateTransactionTx(tx, matchmodel.Transaction{
				ID:        uuid.NewString(),
				UserID:    w.UserID,
				MatchID:   s.MatchID,
				Type:      matchmodel.TransactionTypePayout,
				Currency:  s.Currency,
				Amount:    w.Amount,
				Status:    matchmodel.TransactionStatusPending,
				Reference: fmt.Sprintf("PAYOUT_%s_%s", s.MatchID, w.UserID),
				CreatedAt: time.Now(),
			}); err != nil {
				return fmt.Errorf("create payout transaction for %s: %w", w.UserID, err)
			}
		}

		return nil
	})
}

// Enqueue adds a user to the join queue and records the pending stake
// transaction alongside it.
func (l *Ledger) Enqueue(e queuemodel.Entry, stake int64) error {
	return l.sDB.DB.Update(func(tx *bolt.Tx) error {
		if err := l.queue.AddTx(tx, e); err != nil {
			return fmt.Errorf("add queue entry: %w", err)
		}
		if err := l.matches.CreateTransactionTx(tx, matchmodel.Transaction{
			ID:        uuid.NewString(),
			UserID:    e.UserID,
			Type:      matchmodel.TransactionTypeStake,
			Currency:  e.Currency,
			Amount:    stake,
			Status:    matchmodel.TransactionStatusPending,
			Reference: fmt.Sprintf("STAKE_%s_%d", e.UserID, e.JoinedAt.UnixNano()),
			CreatedAt: time.Now(),
		}); err != nil {
			return fmt.Errorf("create stake transaction: %w", err)
		}
		return nil
	})
}

func (l *Ledger) Dequeue(userID string) error {
	return l.queue.Delete(userID)
}
