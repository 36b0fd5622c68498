package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/itsu-games/itsu/internal/game"
	"github.com/itsu-games/itsu/internal/logging"
	"github.com/valyala/fastrand"
	"golang.org/x/sync/errgroup"
)

// Completer is the language generation collaborator. Its output is
// untrusted and parsed defensively.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteJSON(ctx context.Context, prompt string) (string, error)
}

// Actions are the engine entrypoints a bot action re-enters through,
// exactly like a human action would.
type Actions interface {
	AddChat(ctx context.Context, matchID, senderID, text string)
	AddVote(ctx context.Context, matchID, voterID, targetID string)
	KillPlayer(ctx context.Context, matchID, wolfID, targetID string)
}

type actionKind uint8

const (
	actionChat actionKind = iota + 1
	actionVote
	actionKill
)

func New(completer Completer, actions Actions) *Engine {
	return &Engine{
		completer:  completer,
		actions:    actions,
		ctx:        context.Background(),
		delayFn:    delayFor,
		dispatched: map[string]map[string]struct{}{},
	}
}

// Engine reacts to broadcast state transitions and produces at most one
// action per bot per phase.
type Engine struct {
	completer Completer
	actions   Actions
	ctx       context.Context
	delayFn   func(actionKind) time.Duration

	mtx        sync.Mutex
	dispatched map[string]map[string]struct{}
}

// Run binds the context under which asynchronous decisions execute.
// Call during wiring, before the match engine starts broadcasting.
func (e *Engine) Run(ctx context.Context) {
	e.ctx = ctx
}

var _ game.Broadcaster = (*Engine)(nil)

func (e *Engine) OnMatchStateChanged(matchID string, snapshot game.Match) {
	type job struct {
		bot  game.Player
		kind actionKind
	}

	var jobs []job
	for _, p := range snapshot.Players {
		if !p.IsBot || p.IsDead {
			continue
		}

		var kind actionKind
		switch snapshot.Status {
		case game.StatusChatPhase:
			kind = actionChat
		case game.StatusVotePhase:
			kind = actionVote
		case game.StatusNightPhase:
			if p.Role != game.RoleWolf {
				continue
			}
			kind = actionKill
		default:
			continue
		}

		if !e.claim(matchID, string(snapshot.Status)+"_"+p.PlayerID) {
			continue
		}

		jobs = append(jobs, job{bot: p, kind: kind})
	}

	if len(jobs) == 0 {
		return
	}

	ctx := e.ctx
	go func() {
		logger := logging.FromContext(ctx).Named("bot.Engine.dispatch")
		g := errgroup.Group{}
		for _, j := range jobs {
			j := j
			g.Go(func() error {
				return e.act(ctx, snapshot, j.bot, j.kind)
			})
		}
		// a failed or malformed generation means the bot abstains this phase
		if err := g.Wait(); err != nil {
			logger.Errorf("match %s: bot dispatch: %v", matchID, err)
		}
	}()
}

// claim reserves the (match, phase, bot) action token. Check and set are
// atomic so a re-broadcast cannot double-submit.
func (e *Engine) claim(matchID, token string) bool {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	tokens, ok := e.dispatched[matchID]
	if !ok {
		tokens = map[string]struct{}{}
		e.dispatched[matchID] = tokens
	}

	if _, ok := tokens[token]; ok {
		return false
	}

	tokens[token] = struct{}{}
	return true
}

// ClearMatch drops all action tokens of a match. Registered as a registry
// removal hook to bound memory growth.
func (e *Engine) ClearMatch(matchID string) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	delete(e.dispatched, matchID)
}

func (e *Engine) act(ctx context.Context, snapshot game.Match, bot game.Player, kind actionKind) error {
	if err := e.sleep(ctx, e.delayFn(kind)); err != nil {
		return err
	}

	switch kind {
	case actionChat:
		reply, err := e.completer.Complete(ctx, chatPrompt(snapshot, bot))
		if err != nil {
			return fmt.Errorf("bot %s chat completion: %w", bot.PlayerID, err)
		}
		reply = strings.TrimSpace(reply)
		if reply == "" {
			return fmt.Errorf("bot %s chat completion empty", bot.PlayerID)
		}
		e.actions.AddChat(ctx, snapshot.ID, bot.PlayerID, reply)
	case actionVote:
		targetID, err := e.decideTarget(ctx, votePrompt(snapshot, bot))
		if err != nil {
			return fmt.Errorf("bot %s vote decision: %w", bot.PlayerID, err)
		}
		if !validVoteTarget(snapshot, bot, targetID) {
			return fmt.Errorf("bot %s vote decision: target %q not in the live roster", bot.PlayerID, targetID)
		}
		e.actions.AddVote(ctx, snapshot.ID, bot.PlayerID, targetID)
	case actionKill:
		targetID, err := e.decideTarget(ctx, killPrompt(snapshot, bot))
		if err != nil {
			return fmt.Errorf("bot %s kill decision: %w", bot.PlayerID, err)
		}
		if !validKillTarget(snapshot, targetID) {
			return fmt.Errorf("bot %s kill decision: target %q not an alive citizen", bot.PlayerID, targetID)
		}
		e.actions.KillPlayer(ctx, snapshot.ID, bot.PlayerID, targetID)
	}

	return nil
}

func (e *Engine) decideTarget(ctx context.Context, prompt string) (string, error) {
	raw, err := e.completer.CompleteJSON(ctx, prompt)
	if err != nil {
		return "", err
	}

	var decision struct {
		TargetID string `json:"targetId"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &decision); err != nil {
		return "", fmt.Errorf("malformed decision %q: %v", raw, err)
	}
	if decision.TargetID == "" {
		return "", fmt.Errorf("decision %q missing targetId", raw)
	}

	return decision.TargetID, nil
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func delayFor(kind actionKind) time.Duration {
	var base, spread uint32
	switch kind {
	case actionChat:
		base, spread = 1000, 4000
	case actionVote:
		base, spread = 1000, 2000
	case actionKill:
		base, spread = 3000, 2000
	}
	return time.Duration(base+fastrand.Uint32n(spread)) * time.Millisecond
}

func validVoteTarget(m game.Match, bot game.Player, targetID string) bool {
	if targetID == bot.PlayerID {
		return false
	}
	for _, p := range m.Players {
		if p.PlayerID == targetID && !p.IsDead {
			return true
		}
	}
	return false
}

func validKillTarget(m game.Match, targetID string) bool {
	for _, p := range m.Players {
		if p.PlayerID == targetID && !p.IsDead && p.Role == game.RoleCitizen {
			return true
		}
	}
	return false
}
