package game

import (
	"context"
	"time"

	"github.com/itsu-games/itsu/internal/logging"
)

const (
	tickPeriod = 1 * time.Second

	lobbyDuration      = 30 * time.Second
	chatPhaseDuration  = 45 * time.Second
	nightPhaseDuration = 10 * time.Second
	votePhaseDuration  = 15 * time.Second

	platformFeePercent = 2
)

// Ledger is the durable collaborator behind the engine. Settle must apply
// all of its records in one atomic commit.
type Ledger interface {
	MarkPlayerDead(matchID, userID string, roundsSurvived int) error
	Settle(s Settlement) error
	MarkMatchFailed(matchID string) error
}

type Settlement struct {
	MatchID    string
	WinnerRole Role
	Currency   string
	EndTime    time.Time
	Winners    []Winner
}

type Winner struct {
	UserID string
	Amount int64
}

func NewEngine(registry *Registry, ledger Ledger, broadcaster Broadcaster, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		registry:    registry,
		ledger:      ledger,
		broadcaster: broadcaster,
		now:         now,
	}
}

// Engine advances live matches through their timed phases and applies
// player actions. It is the only writer of registry state.
type Engine struct {
	registry    *Registry
	ledger      Ledger
	broadcaster Broadcaster
	now         func() time.Time
}

// Run scans all live matches once per second and advances the ones whose
// phase deadline passed.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(tickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

func (e *Engine) Tick(ctx context.Context) {
	now := e.now()
	for _, id := range e.registry.IDs() {
		var snap Match
		var changed bool
		e.registry.WithMatch(id, func(m *Match) {
			if m.Status.Terminal() || now.Before(m.PhaseEndTime) {
				return
			}
			e.advance(ctx, m)
			snap = m.Snapshot()
			changed = true
		})
		if changed {
			e.broadcaster.OnMatchStateChanged(id, snap)
		}
	}
}

// Seed registers a freshly created match in LOBBY and announces it.
func (e *Engine) Seed(ctx context.Context, m *Match) {
	m.Status = StatusLobby
	m.PhaseEndTime = e.now().Add(lobbyDuration)
	if m.Votes == nil {
		m.Votes = map[string]string{}
	}
	e.registry.Create(m.ID, m)

	snap, ok := e.registry.Snapshot(m.ID)
	if ok {
		e.broadcaster.OnMatchStateChanged(m.ID, snap)
	}
}

// AddChat appends a chat line on behalf of an alive participant.
func (e *Engine) AddChat(ctx context.Context, matchID, senderID, text string) {
	logger := logging.FromContext(ctx).Named("game.Engine.AddChat")
	var snap Match
	var changed bool

	e.registry.WithMatch(matchID, func(m *Match) {
		if _, ok := m.alivePlayer(senderID); !ok {
			logger.Debugf("match %s: chat from %s dropped, not an alive participant", matchID, senderID)
			return
		}

		m.Chat = append(m.Chat, ChatMessage{SenderID: senderID, Text: text, Timestamp: e.now()})
		m.LastActivity = e.now()
		snap = m.Snapshot()
		changed = true
	})

	if changed {
		e.broadcaster.OnMatchStateChanged(matchID, snap)
	}
}

// AddVote records or overwrites the voter's choice during VOTE_PHASE.
func (e *Engine) AddVote(ctx context.Context, matchID, voterID, targetID string) {
	logger := logging.FromContext(ctx).Named("game.Engine.AddVote")
	var snap Match
	var changed bool

	e.registry.WithMatch(matchID, func(m *Match) {
		if m.Status != StatusVotePhase {
			logger.Debugf("match %s: vote from %s dropped, status is %s", matchID, voterID, m.Status)
			return
		}

		_, voterAlive := m.alivePlayer(voterID)
		_, targetAlive := m.alivePlayer(targetID)
		if !voterAlive || !targetAlive {
			logger.Debugf("match %s: vote %s -> %s dropped, not alive participants", matchID, voterID, targetID)
			return
		}

		m.Votes[voterID] = targetID
		m.LastActivity = e.now()
		snap = m.Snapshot()
		changed = true
	})

	if changed {
		e.broadcaster.OnMatchStateChanged(matchID, snap)
	}
}

// KillPlayer applies the wolf's night kill and persists the death in the
// background.
func (e *Engine) KillPlayer(ctx context.Context, matchID, wolfID, targetID string) {
	logger := logging.FromContext(ctx).Named("game.Engine.KillPlayer")
	var snap Match
	var changed bool

	e.registry.WithMatch(matchID, func(m *Match) {
		if m.Status != StatusNightPhase {
			logger.Debugf("match %s: kill from %s dropped, status is %s", matchID, wolfID, m.Status)
			return
		}

		wolf, ok := m.alivePlayer(wolfID)
		if !ok || wolf.Role != RoleWolf {
			logger.Debugf("match %s: kill from %s dropped, not the alive wolf", matchID, wolfID)
			return
		}

		target, ok := m.alivePlayer(targetID)
		if !ok {
			logger.Debugf("match %s: kill target %s dropped, not an alive participant", matchID, targetID)
			return
		}

		target.IsDead = true
		m.LastActivity = e.now()
		e.persistDeath(ctx, m, *target)
		e.checkFinished(ctx, m)
		snap = m.Snapshot()
		changed = true
	})

	if changed {
		e.broadcaster.OnMatchStateChanged(matchID, snap)
	}
}

// persistDeath mirrors an in-memory death to the ledger. The write is a
// supervised background task: the in-memory state and the ledger are
// eventually consistent, a failed write only loses the durable row.
func (e *Engine) persistDeath(ctx context.Context, m *Match, p Player) {
	if p.IsBot {
		return
	}

	logger := logging.FromContext(ctx).Named("game.Engine.persistDeath")
	matchID, userID, rounds := m.ID, p.PlayerID, m.TotalRounds
	go func() {
		if err := e.ledger.MarkPlayerDead(matchID, userID, rounds); err != nil {
			logger.Errorf("match %s: persisting death of %s: %v", matchID, userID, err)
		}
	}()
}

func (e *Engine) advance(ctx context.Context, m *Match) {
	now := e.now()

	switch m.Status {
	case StatusLobby:
		m.Status = StatusChatPhase
		m.PhaseEndTime = now.Add(chatPhaseDuration)
	case StatusChatPhase:
		m.Status = StatusNightPhase
		m.PhaseEndTime = now.Add(nightPhaseDuration)
	case StatusNightPhase:
		m.Status = StatusVotePhase
		m.PhaseEndTime = now.Add(votePhaseDuration)
	case StatusVotePhase:
		e.resolveVotes(ctx, m)

		if !e.checkFinished(ctx, m) {
			m.Status = StatusChatPhase
			m.TotalRounds++
			m.PhaseEndTime = now.Add(chatPhaseDuration)
		}
	}

	m.LastActivity = now
}

// resolveVotes eliminates the target with the strictly highest vote count.
// A tie for the maximum eliminates nobody. The votes map is cleared either
// way.
func (e *Engine) resolveVotes(ctx context.Context, m *Match) {
	counts := map[string]int{}
	for _, targetID := range m.Votes {
		counts[targetID]++
	}

	var topID string
	var topCount, topTies int
	for targetID, count := range counts {
		switch {
		case count > topCount:
			topID, topCount, topTies = targetID, count, 1
		case count == topCount:
			topTies++
		}
	}

	if topCount > 0 && topTies == 1 {
		if target, ok := m.alivePlayer(topID); ok {
			target.IsDead = true
			e.persistDeath(ctx, m, *target)
		}
	}

	m.Votes = map[string]string{}
}

// checkFinished evaluates the win conditions and, on a win, settles the
// pot. Returns true when the match reached a terminal state.
func (e *Engine) checkFinished(ctx context.Context, m *Match) bool {
	if m.Status.Terminal() {
		return true
	}

	wolf, ok := m.Wolf()
	if !ok {
		return false
	}

	switch {
	case wolf.IsDead:
		m.Status = StatusFinished
		e.settle(ctx, m, RoleCitizen)
		return true
	case len(m.AliveCitizens()) <= 1:
		m.Status = StatusFinished
		e.settle(ctx, m, RoleWolf)
		return true
	}

	return false
}

// settle computes the payout split and commits it as one durable
// transaction. The platform keeps 2% of the pot, the rest is divided
// evenly among alive human winners; integer rounding dust stays in the
// pot account.
func (e *Engine) settle(ctx context.Context, m *Match, winnerRole Role) {
	logger := logging.FromContext(ctx).Named("game.Engine.settle")

	platformFee := m.PotAmount * platformFeePercent / 100
	netPot := m.PotAmount - platformFee

	var winners []Winner
	for _, p := range m.Players {
		if p.Role == winnerRole && !p.IsDead && !p.IsBot {
			winners = append(winners, Winner{UserID: p.PlayerID})
		}
	}

	if len(winners) == 0 {
		logger.Infof("match %s won by bots, no payouts to process", m.ID)
	} else {
		amount := netPot / int64(len(winners))
		for i := range winners {
			winners[i].Amount = amount
		}
	}

	s := Settlement{
		MatchID:    m.ID,
		WinnerRole: winnerRole,
		Currency:   m.Currency,
		EndTime:    e.now(),
		Winners:    winners,
	}

	if err := e.ledger.Settle(s); err != nil {
		logger.Errorf("match %s: payout settlement failed: %v", m.ID, err)
		m.Status = StatusFailed
		if err := e.ledger.MarkMatchFailed(m.ID); err != nil {
			logger.Errorf("match %s: marking failed: %v", m.ID, err)
		}
		return
	}

	logger.Infof("match %s settled, winners: %d", m.ID, len(winners))
}
