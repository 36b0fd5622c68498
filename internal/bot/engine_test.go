package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/itsu-games/itsu/internal/game"
)

type fakeCompleter struct {
	mtx      sync.Mutex
	reply    string
	jsonBody string
	err      error
	prompts  []string
}

func (c *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.prompts = append(c.prompts, prompt)
	return c.reply, c.err
}

func (c *fakeCompleter) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.prompts = append(c.prompts, prompt)
	return c.jsonBody, c.err
}

type action struct {
	kind    string
	matchID string
	actorID string
	payload string
}

type recordingActions struct {
	mtx      sync.Mutex
	recorded []action
	notify   chan action
}

func newRecordingActions() *recordingActions {
	return &recordingActions{notify: make(chan action, 32)}
}

func (a *recordingActions) record(act action) {
	a.mtx.Lock()
	a.recorded = append(a.recorded, act)
	a.mtx.Unlock()
	a.notify <- act
}

func (a *recordingActions) AddChat(ctx context.Context, matchID, senderID, text string) {
	a.record(action{"chat", matchID, senderID, text})
}

func (a *recordingActions) AddVote(ctx context.Context, matchID, voterID, targetID string) {
	a.record(action{"vote", matchID, voterID, targetID})
}

func (a *recordingActions) KillPlayer(ctx context.Context, matchID, wolfID, targetID string) {
	a.record(action{"kill", matchID, wolfID, targetID})
}

func (a *recordingActions) wait(t *testing.T, n int) []action {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for i := 0; i < n; i++ {
		select {
		case <-a.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for %d actions", n)
		}
	}
	a.mtx.Lock()
	defer a.mtx.Unlock()
	out := make([]action, len(a.recorded))
	copy(out, a.recorded)
	return out
}

func (a *recordingActions) assertNone(t *testing.T) {
	t.Helper()
	select {
	case act := <-a.notify:
		t.Fatalf("unexpected action %+v", act)
	case <-time.After(100 * time.Millisecond):
	}
}

func newTestBotEngine(completer *fakeCompleter) (*Engine, *recordingActions) {
	actions := newRecordingActions()
	engine := New(completer, actions)
	engine.delayFn = func(actionKind) time.Duration { return 0 }
	engine.Run(context.Background())
	return engine, actions
}

func botSnapshot(status game.Status) game.Match {
	return game.Match{
		ID:     "m1",
		Status: status,
		Item:   "Lighthouse",
		Hint:   "Guides through the dark",
		Players: []game.Player{
			{PlayerID: "u1", Role: game.RoleCitizen},
			{PlayerID: "u2", Role: game.RoleCitizen},
			{PlayerID: "bot_wolf", Role: game.RoleWolf, IsBot: true},
			{PlayerID: "bot_c1", Role: game.RoleCitizen, IsBot: true},
		},
		Votes: map[string]string{},
	}
}

func TestChatPhaseDispatchesAliveBots(t *testing.T) {
	t.Parallel()
	completer := &fakeCompleter{reply: "I think it glows at night"}
	engine, actions := newTestBotEngine(completer)

	engine.OnMatchStateChanged("m1", botSnapshot(game.StatusChatPhase))

	recorded := actions.wait(t, 2)
	seen := map[string]bool{}
	for _, act := range recorded {
		if act.kind != "chat" {
			t.Fatalf("expected chat action got %+v", act)
		}
		if act.payload != "I think it glows at night" {
			t.Fatalf("unexpected chat text %q", act.payload)
		}
		seen[act.actorID] = true
	}
	if !seen["bot_wolf"] || !seen["bot_c1"] {
		t.Fatalf("expected both bots to chat, got %v", seen)
	}
}

func TestDuplicateBroadcastDispatchesOnce(t *testing.T) {
	t.Parallel()
	completer := &fakeCompleter{reply: "hmm"}
	engine, actions := newTestBotEngine(completer)

	snapshot := botSnapshot(game.StatusChatPhase)
	engine.OnMatchStateChanged("m1", snapshot)
	engine.OnMatchStateChanged("m1", snapshot)
	engine.OnMatchStateChanged("m1", snapshot)

	actions.wait(t, 2)
	actions.assertNone(t)
}

func TestNightPhaseOnlyWolfActs(t *testing.T) {
	t.Parallel()
	completer := &fakeCompleter{jsonBody: `{"targetId": "u1"}`}
	engine, actions := newTestBotEngine(completer)

	engine.OnMatchStateChanged("m1", botSnapshot(game.StatusNightPhase))

	recorded := actions.wait(t, 1)
	if len(recorded) != 1 {
		t.Fatalf("expected a single action got %d", len(recorded))
	}
	act := recorded[0]
	if act.kind != "kill" || act.actorID != "bot_wolf" || act.payload != "u1" {
		t.Fatalf("unexpected action %+v", act)
	}
	actions.assertNone(t)
}

func TestVotePhaseDispatchesVotes(t *testing.T) {
	t.Parallel()
	completer := &fakeCompleter{jsonBody: `{"targetId": "u2"}`}
	engine, actions := newTestBotEngine(completer)

	engine.OnMatchStateChanged("m1", botSnapshot(game.StatusVotePhase))

	recorded := actions.wait(t, 2)
	for _, act := range recorded {
		if act.kind != "vote" || act.payload != "u2" {
			t.Fatalf("unexpected action %+v", act)
		}
	}
}

func TestMalformedDecisionAbstains(t *testing.T) {
	t.Parallel()
	for _, body := range []string{"not json at all", `{"target": "u1"}`, `{"targetId": ""}`} {
		completer := &fakeCompleter{jsonBody: body}
		engine, actions := newTestBotEngine(completer)

		engine.OnMatchStateChanged("m1", botSnapshot(game.StatusVotePhase))
		actions.assertNone(t)
	}
}

func TestVoteTargetValidation(t *testing.T) {
	t.Parallel()

	// self vote
	completer := &fakeCompleter{jsonBody: `{"targetId": "bot_wolf"}`}
	engine, actions := newTestBotEngine(completer)
	snapshot := botSnapshot(game.StatusVotePhase)
	snapshot.Players = snapshot.Players[:3] // drop bot_c1, only the wolf bot votes
	engine.OnMatchStateChanged("m1", snapshot)
	actions.assertNone(t)

	// dead target
	completer = &fakeCompleter{jsonBody: `{"targetId": "u1"}`}
	engine, actions = newTestBotEngine(completer)
	snapshot = botSnapshot(game.StatusVotePhase)
	snapshot.Players[0].IsDead = true
	snapshot.Players = snapshot.Players[:3]
	engine.OnMatchStateChanged("m1", snapshot)
	actions.assertNone(t)
}

func TestKillTargetMustBeAliveCitizen(t *testing.T) {
	t.Parallel()

	// the wolf naming itself must be rejected
	completer := &fakeCompleter{jsonBody: `{"targetId": "bot_wolf"}`}
	engine, actions := newTestBotEngine(completer)
	engine.OnMatchStateChanged("m1", botSnapshot(game.StatusNightPhase))
	actions.assertNone(t)

	// a dead citizen must be rejected
	completer = &fakeCompleter{jsonBody: `{"targetId": "u1"}`}
	engine, actions = newTestBotEngine(completer)
	snapshot := botSnapshot(game.StatusNightPhase)
	snapshot.Players[0].IsDead = true
	engine.OnMatchStateChanged("m1", snapshot)
	actions.assertNone(t)
}

func TestDeadBotsDoNotAct(t *testing.T) {
	t.Parallel()
	completer := &fakeCompleter{reply: "quiet"}
	engine, actions := newTestBotEngine(completer)

	snapshot := botSnapshot(game.StatusChatPhase)
	for i := range snapshot.Players {
		if snapshot.Players[i].IsBot {
			snapshot.Players[i].IsDead = true
		}
	}
	engine.OnMatchStateChanged("m1", snapshot)
	actions.assertNone(t)
}

func TestLobbyAndTerminalStatesIgnored(t *testing.T) {
	t.Parallel()
	completer := &fakeCompleter{reply: "hi", jsonBody: `{"targetId": "u1"}`}
	engine, actions := newTestBotEngine(completer)

	for _, status := range []game.Status{game.StatusLobby, game.StatusFinished, game.StatusFailed} {
		engine.OnMatchStateChanged("m1", botSnapshot(status))
	}
	actions.assertNone(t)
}

func TestClearMatchAllowsRedispatch(t *testing.T) {
	t.Parallel()
	completer := &fakeCompleter{reply: "again"}
	engine, actions := newTestBotEngine(completer)

	engine.OnMatchStateChanged("m1", botSnapshot(game.StatusChatPhase))
	actions.wait(t, 2)

	engine.ClearMatch("m1")
	engine.OnMatchStateChanged("m1", botSnapshot(game.StatusChatPhase))
	actions.wait(t, 2)
}

func TestEmptyChatReplyAbstains(t *testing.T) {
	t.Parallel()
	completer := &fakeCompleter{reply: "   "}
	engine, actions := newTestBotEngine(completer)

	engine.OnMatchStateChanged("m1", botSnapshot(game.StatusChatPhase))
	actions.assertNone(t)
}

func TestChatPromptCarriesGameContext(t *testing.T) {
	t.Parallel()
	snapshot := botSnapshot(game.StatusChatPhase)
	snapshot.Chat = []game.ChatMessage{{SenderID: "u1", Text: "anyone near the coast?"}}

	prompt := chatPrompt(snapshot, snapshot.Players[3])
	for _, want := range []string{"Guides through the dark", "anyone near the coast?", "bot_c1"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("chat prompt missing %q:\n%s", want, prompt)
		}
	}

	wolfPrompt := chatPrompt(snapshot, snapshot.Players[2])
	if !strings.Contains(wolfPrompt, "Lighthouse") {
		t.Fatalf("the wolf must know the item:\n%s", wolfPrompt)
	}
}
