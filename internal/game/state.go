package game

import "time"

type Status string

const (
	StatusLobby      Status = "LOBBY"
	StatusChatPhase  Status = "CHAT_PHASE"
	StatusNightPhase Status = "NIGHT_PHASE"
	StatusVotePhase  Status = "VOTE_PHASE"
	StatusFinished   Status = "FINISHED"
	StatusFailed     Status = "FAILED"
)

func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusFailed
}

type Role string

const (
	RoleWolf    Role = "WOLF"
	RoleCitizen Role = "CITIZEN"
)

type Player struct {
	PlayerID string `json:"playerId"`
	Role     Role   `json:"role"`
	IsDead   bool   `json:"isDead"`
	IsBot    bool   `json:"isBot"`
}

type ChatMessage struct {
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Match is the in-memory state of one live game. It is owned by the
// Registry and mutated only through Engine operations.
type Match struct {
	ID           string            `json:"id"`
	Status       Status            `json:"status"`
	Currency     string            `json:"currency"`
	Item         string            `json:"item"`
	Hint         string            `json:"hint"`
	PotAmount    int64             `json:"potAmount"`
	PhaseEndTime time.Time         `json:"phaseEndTime"`
	Players      []Player          `json:"players"`
	Chat         []ChatMessage     `json:"chat"`
	Votes        map[string]string `json:"votes"`
	TotalRounds  int               `json:"totalRounds"`
	LastActivity time.Time         `json:"lastActivity"`
}

// Snapshot returns a deep copy safe to hand to broadcast subscribers.
func (m *Match) Snapshot() Match {
	snap := *m
	snap.Players = make([]Player, len(m.Players))
	copy(snap.Players, m.Players)
	snap.Chat = make([]ChatMessage, len(m.Chat))
	copy(snap.Chat, m.Chat)
	snap.Votes = make(map[string]string, len(m.Votes))
	for k, v := range m.Votes {
		snap.Votes[k] = v
	}
	return snap
}

func (m *Match) alivePlayer(playerID string) (*Player, bool) {
	for i := range m.Players {
		p := &m.Players[i]
		if p.PlayerID == playerID && !p.IsDead {
			return p, true
		}
	}
	return nil, false
}

func (m *Match) AliveCitizens() []Player {
	var list []Player
	for _, p := range m.Players {
		if p.Role == RoleCitizen && !p.IsDead {
			list = append(list, p)
		}
	}
	return list
}

func (m *Match) Wolf() (Player, bool) {
	for _, p := range m.Players {
		if p.Role == RoleWolf {
			return p, true
		}
	}
	return Player{}, false
}
