package matchmaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	matchmodel "github.com/itsu-games/itsu/internal/database/match/model"
	queuemodel "github.com/itsu-games/itsu/internal/database/queue/model"
	itemmodel "github.com/itsu-games/itsu/internal/database/item/model"
	"github.com/itsu-games/itsu/internal/game"
	"github.com/itsu-games/itsu/internal/logging"
	"github.com/google/uuid"
	"github.com/valyala/fastrand"
)

const (
	tickPeriod    = 5 * time.Second
	queueBatch    = 50
	matchSeats    = 6
	backfillAfter = 60 * time.Second
)

type Config struct {
	// Currency of the supported stake pool
	Currency string `envconfig:"ITSU_CURRENCY" default:"SOL"`

	// Stake per seat in the currency's smallest unit (0.5 SOL)
	StakeLamports int64 `envconfig:"ITSU_STAKE_LAMPORTS" default:"500000000"`
}

type Queue interface {
	ListOldest(currency string, limit int) ([]queuemodel.Entry, error)
}

type Items interface {
	RandomActive() (itemmodel.Item, error)
}

type Ledger interface {
	CreateMatch(m matchmodel.Match, players []matchmodel.Player, consumedUserIDs []string) error
	Enqueue(e queuemodel.Entry, stake int64) error
	Dequeue(userID string) error
}

type Seeder interface {
	Seed(ctx context.Context, m *game.Match)
}

func New(config Config, queue Queue, items Items, ledger Ledger, seeder Seeder, now func() time.Time) *Matchmaker {
	if now == nil {
		now = time.Now
	}
	return &Matchmaker{
		config:  config,
		queue:   queue,
		items:   items,
		ledger:  ledger,
		seeder:  seeder,
		now:     now,
		running: true,
		wake:    make(chan struct{}, 1),
	}
}

// Matchmaker drains the join queue into new matches on a fixed interval.
// It parks itself once the queue runs dry and wakes on the next join.
type Matchmaker struct {
	config Config

	queue  Queue
	items  Items
	ledger Ledger
	seeder Seeder
	now    func() time.Time

	mtx     sync.Mutex
	running bool
	wake    chan struct{}
}

func (m *Matchmaker) Run(ctx context.Context) {
	logger := logging.FromContext(ctx).Named("matchmaker.loop")
	ticker := time.NewTicker(tickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.wake:
		case <-ticker.C:
			if !m.isRunning() {
				continue
			}
		}

		// errors abort this tick only, the loop stays alive
		if err := m.tick(ctx); err != nil {
			logger.Errorf("matchmaker tick: %v", err)
		}
	}
}

// Trigger restarts a parked matchmaker. Called whenever a new queue entry
// is submitted.
func (m *Matchmaker) Trigger() {
	m.setRunning(true)
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Join enqueues the user for the next match and wakes the loop.
func (m *Matchmaker) Join(ctx context.Context, userID string) error {
	e := queuemodel.Entry{UserID: userID, Currency: m.config.Currency, JoinedAt: m.now()}
	if err := m.ledger.Enqueue(e, m.config.StakeLamports); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}

	m.Trigger()
	return nil
}

func (m *Matchmaker) Leave(ctx context.Context, userID string) error {
	return m.ledger.Dequeue(userID)
}

func (m *Matchmaker) tick(ctx context.Context) error {
	logger := logging.FromContext(ctx).Named("matchmaker.tick")

	entries, err := m.queue.ListOldest(m.config.Currency, queueBatch)
	if err != nil {
		return fmt.Errorf("list queue: %w", err)
	}

	var selected []queuemodel.Entry
	switch {
	case len(entries) >= matchSeats:
		selected = entries[:matchSeats]
	case len(entries) > 0 && m.now().Sub(entries[0].JoinedAt) >= backfillAfter:
		selected = entries
	}

	if len(selected) == 0 {
		if len(entries) == 0 {
			m.setRunning(false)
			logger.Debugf("queue empty, matchmaker parked")
		}
		return nil
	}

	item, err := m.items.RandomActive()
	if err != nil {
		return fmt.Errorf("pick item: %w", err)
	}

	var hint string
	if len(item.Hints) > 0 {
		hint = item.Hints[fastrand.Uint32n(uint32(len(item.Hints)))]
	}

	matchID := uuid.NewString()
	pot := m.config.StakeLamports * int64(len(selected))
	wolfSeat := int(fastrand.Uint32n(matchSeats))

	players := make([]game.Player, 0, matchSeats)
	var rows []matchmodel.Player
	userIDs := make([]string, 0, len(selected))

	for i := 0; i < matchSeats; i++ {
		role := game.RoleCitizen
		if i == wolfSeat {
			role = game.RoleWolf
		}

		if i < len(selected) {
			userID := selected[i].UserID
			userIDs = append(userIDs, userID)
			rows = append(rows, matchmodel.Player{MatchID: matchID, UserID: userID, Role: string(role)})
			players = append(players, game.Player{PlayerID: userID, Role: role})
		} else {
			// bot seat, held in memory only
			players = append(players, game.Player{PlayerID: "bot_" + uuid.NewString(), Role: role, IsBot: true})
		}
	}

	durable := matchmodel.Match{
		ID:        matchID,
		Currency:  m.config.Currency,
		ItemID:    item.ID,
		ItemName:  item.Name,
		Hint:      hint,
		PotAmount: pot,
		Status:    matchmodel.StatusOngoing,
		CreatedAt: m.now(),
	}

	if err := m.ledger.CreateMatch(durable, rows, userIDs); err != nil {
		return fmt.Errorf("create match: %w", err)
	}

	m.seeder.Seed(ctx, &game.Match{
		ID:        matchID,
		Currency:  m.config.Currency,
		Item:      item.Name,
		Hint:      hint,
		PotAmount: pot,
		Players:   players,
		Chat:      []game.ChatMessage{},
		Votes:     map[string]string{},
	})

	logger.Debugf("match %s initialized: %d humans, %d bots", matchID, len(selected), matchSeats-len(selected))
	return nil
}

func (m *Matchmaker) isRunning() bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.running
}

func (m *Matchmaker) setRunning(v bool) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.running = v
}
