package room

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/codelafda/codelafda/internal/game"
	"go.uber.org/zap"
)

type fakeSender struct {
	id string

	mtx      sync.Mutex
	payloads [][]byte
	closed   bool
}

func (f *fakeSender) ID() string { return f.id }

func (f *fakeSender) Enqueue(payload []byte) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.payloads = append(f.payloads, append([]byte(nil), payload...))
}

func (f *fakeSender) Close() {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.closed = true
}

func (f *fakeSender) isClosed() bool {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.closed
}

// lastState decodes the newest state-update payload the sender received.
func (f *fakeSender) lastState(t *testing.T) *game.State {
	t.Helper()
	f.mtx.Lock()
	defer f.mtx.Unlock()

	for i := len(f.payloads) - 1; i >= 0; i-- {
		var msg struct {
			Type      string      `json:"type"`
			GameState *game.State `json:"gameState"`
		}
		if err := json.Unmarshal(f.payloads[i], &msg); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if msg.Type == "state-update" {
			return msg.GameState
		}
	}

	t.Fatal("no state-update received")
	return nil
}

func testGameConfig() game.Config {
	cfg := game.DefaultConfig()
	cfg.PrepareDelay = 0
	cfg.CompilersDelay = 0
	cfg.QuestionsDelay = 0
	cfg.AssignDelay = 0
	cfg.StartDelay = 0
	// keep scheduled callbacks out of the way
	cfg.ErrorClearDelay = time.Hour
	cfg.SabotageCooldown = time.Hour
	return cfg
}

func startTestRoom(t *testing.T) (*Room, chan struct{}) {
	t.Helper()

	emptied := make(chan struct{})
	r := New("test-room", testGameConfig(), game.NewPool(), func(*Room) {
		close(emptied)
	}, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go r.Run(ctx)

	return r, emptied
}

// sync waits until the room loop has drained everything queued before it.
func (r *Room) sync(t *testing.T) {
	t.Helper()

	done := make(chan struct{})
	select {
	case r.tasks <- func() { close(done) }:
	case <-r.closed:
		t.Fatal("room closed while syncing")
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("room loop did not drain in time")
	}
}

func joinTestPlayers(t *testing.T, r *Room, senders ...*fakeSender) {
	t.Helper()

	for i, s := range senders {
		if !r.Attach(s) {
			t.Fatalf("attach %s failed", s.id)
		}
		prefs := &game.Preferences{TechStacks: []string{"Python"}}
		if i > 0 {
			prefs = nil
		}
		r.Dispatch(s.id, ClientMessage{Type: MsgJoin, Username: "player-" + s.id, Preferences: prefs})
		r.Dispatch(s.id, ClientMessage{Type: MsgReady})
	}
	r.sync(t)
}

func TestRoomGameFlow(t *testing.T) {
	t.Parallel()

	r, _ := startTestRoom(t)

	a := &fakeSender{id: "a"}
	b := &fakeSender{id: "b"}
	c := &fakeSender{id: "c"}
	joinTestPlayers(t, r, a, b, c)

	s := b.lastState(t)
	if s.HostID != "a" {
		t.Fatalf("expected a to host, got %s", s.HostID)
	}
	if len(s.Players) != 3 {
		t.Fatalf("expected 3 players, got %d", len(s.Players))
	}

	r.Dispatch("a", ClientMessage{Type: MsgStartGame})
	r.sync(t)

	s = c.lastState(t)
	if s.Phase != game.PhaseCoding {
		t.Fatalf("expected CODING, got %s", s.Phase)
	}

	var impostorID string
	for id, p := range s.Players {
		if p.Role == game.RoleImpostor {
			impostorID = id
		}
	}
	if impostorID == "" {
		t.Fatal("no impostor assigned")
	}

	for _, id := range []string{"a", "b", "c"} {
		r.Dispatch(id, ClientMessage{Type: MsgVote, TargetID: impostorID})
	}
	r.sync(t)

	s = a.lastState(t)
	if s.Phase != game.PhaseResults {
		t.Errorf("expected RESULTS, got %s", s.Phase)
	}
	if s.Winner != game.WinnerHackers {
		t.Errorf("expected HACKERS win, got %q", s.Winner)
	}
	if s.Players[impostorID].IsAlive {
		t.Error("ejected impostor must be dead")
	}
}

func TestRoomRejectsNonHostStart(t *testing.T) {
	t.Parallel()

	r, _ := startTestRoom(t)

	a := &fakeSender{id: "a"}
	b := &fakeSender{id: "b"}
	c := &fakeSender{id: "c"}
	joinTestPlayers(t, r, a, b, c)

	r.Dispatch("b", ClientMessage{Type: MsgStartGame})
	r.sync(t)

	if s := a.lastState(t); s.Phase != game.PhaseLobby {
		t.Fatalf("phase must stay LOBBY, got %s", s.Phase)
	}

	b.mtx.Lock()
	defer b.mtx.Unlock()
	var gotError bool
	for _, payload := range b.payloads {
		var msg struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(payload, &msg) == nil && msg.Type == "error" {
			gotError = true
		}
	}
	if !gotError {
		t.Error("non-host starter must receive an error frame")
	}
}

func TestRoomDropsUnknownMessage(t *testing.T) {
	t.Parallel()

	r, _ := startTestRoom(t)

	a := &fakeSender{id: "a"}
	b := &fakeSender{id: "b"}
	c := &fakeSender{id: "c"}
	joinTestPlayers(t, r, a, b, c)

	r.Dispatch("a", ClientMessage{Type: "launch-missiles"})
	r.sync(t)

	if s := a.lastState(t); s.Phase != game.PhaseLobby {
		t.Errorf("unknown message must not touch state, got %s", s.Phase)
	}
}

func TestRoomClosesWhenEmpty(t *testing.T) {
	t.Parallel()

	r, emptied := startTestRoom(t)

	a := &fakeSender{id: "a"}
	b := &fakeSender{id: "b"}
	joinTestPlayers(t, r, a, b)

	r.Detach(a)
	r.Detach(b)

	select {
	case <-emptied:
	case <-time.After(5 * time.Second):
		t.Fatal("room did not close after last detach")
	}

	// the inbox buffer must never mask the closed state
	for i := 0; i < 10; i++ {
		if r.Dispatch("a", ClientMessage{Type: MsgReady}) {
			t.Fatal("dispatch into a closed room must report failure")
		}
	}
	if r.Attach(&fakeSender{id: "z"}) {
		t.Error("attach into a closed room must report failure")
	}
}

func TestRoomKickClosesConnection(t *testing.T) {
	t.Parallel()

	r, _ := startTestRoom(t)

	a := &fakeSender{id: "a"}
	b := &fakeSender{id: "b"}
	c := &fakeSender{id: "c"}
	joinTestPlayers(t, r, a, b, c)

	r.Dispatch("a", ClientMessage{Type: MsgKickPlayer, PlayerID: "c"})
	r.sync(t)

	if !c.isClosed() {
		t.Error("kicked player's connection must be closed")
	}
	if s := a.lastState(t); len(s.Players) != 2 {
		t.Errorf("expected 2 players after kick, got %d", len(s.Players))
	}
}

func TestRoomSyncsCodeOnAttach(t *testing.T) {
	t.Parallel()

	r, _ := startTestRoom(t)

	a := &fakeSender{id: "a"}
	if !r.Attach(a) {
		t.Fatal("attach failed")
	}
	r.sync(t)

	a.mtx.Lock()
	defer a.mtx.Unlock()
	if len(a.payloads) == 0 {
		t.Fatal("expected a frame on attach")
	}

	var msg struct {
		Type string `json:"type"`
		Code string `json:"code"`
	}
	if err := json.Unmarshal(a.payloads[0], &msg); err != nil {
		t.Fatalf("unmarshal first frame: %v", err)
	}
	if msg.Type != "code-sync" {
		t.Errorf("expected code-sync first, got %q", msg.Type)
	}
	if msg.Code == "" {
		t.Error("code-sync must carry the shared buffer")
	}
}

func TestRoomDetachReassignsHost(t *testing.T) {
	t.Parallel()

	r, _ := startTestRoom(t)

	a := &fakeSender{id: "a"}
	b := &fakeSender{id: "b"}
	c := &fakeSender{id: "c"}
	joinTestPlayers(t, r, a, b, c)

	r.Detach(a)
	r.sync(t)

	if s := b.lastState(t); s.HostID != "b" {
		t.Errorf("host must pass to the next joiner, got %s", s.HostID)
	}
}
