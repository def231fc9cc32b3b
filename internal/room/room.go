package room

import (
	"context"
	"encoding/json"
	"time"

	"github.com/codelafda/codelafda/internal/game"
	"go.uber.org/zap"
)

const inboxSize = 256

type envelope struct {
	from string
	msg  ClientMessage
}

// Room is the addressable unit of the coordinator: one game instance, one
// GameState, one goroutine. Every inbound message, scheduled callback and
// connection event funnels through its loop in arrival order, so the
// machine never sees concurrent mutation.
type Room struct {
	ID string

	machine *game.Machine
	conns   map[string]sender

	inbox    chan envelope
	attachCh chan sender
	detachCh chan sender
	tasks    chan func()
	closed   chan struct{}

	onEmpty func(*Room)
	logger  *zap.SugaredLogger

	admitted bool
}

func New(id string, cfg game.Config, questions game.Questions, onEmpty func(*Room), logger *zap.SugaredLogger) *Room {
	r := &Room{
		ID:       id,
		conns:    map[string]sender{},
		inbox:    make(chan envelope, inboxSize),
		attachCh: make(chan sender),
		detachCh: make(chan sender),
		tasks:    make(chan func(), 64),
		closed:   make(chan struct{}),
		onEmpty:  onEmpty,
		logger:   logger,
	}
	r.machine = game.NewMachine(cfg, questions, r, r, logger.Named("machine"))
	return r
}

// Run drains the room's mailbox until the room empties out or ctx closes.
func (r *Room) Run(ctx context.Context) {
	defer r.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-r.attachCh:
			r.conns[s.ID()] = s
			r.admitted = true
			r.syncCode(s)
		case s := <-r.detachCh:
			if _, ok := r.conns[s.ID()]; ok {
				delete(r.conns, s.ID())
				r.machine.HandleDisconnect(s.ID())
			}
			if len(r.conns) == 0 {
				return
			}
		case env := <-r.inbox:
			r.handle(env)
			// a kick may have closed the last connection
			if r.admitted && len(r.conns) == 0 {
				return
			}
		case task := <-r.tasks:
			task()
		}
	}
}

func (r *Room) shutdown() {
	close(r.closed)
	for _, s := range r.conns {
		s.Close()
	}
	if r.onEmpty != nil {
		r.onEmpty(r)
	}
	r.logger.Infof("room %s closed", r.ID)
}

// Attach hands a new connection to the room loop. It reports false when
// the room is already shutting down and cannot admit anyone.
func (r *Room) Attach(s sender) bool {
	select {
	case r.attachCh <- s:
		return true
	case <-r.closed:
		return false
	}
}

func (r *Room) Detach(s sender) {
	select {
	case r.detachCh <- s:
	case <-r.closed:
	}
}

// Dispatch queues one client message behind everything already in flight.
// The inbox is buffered, so a send can still succeed after the loop has
// exited; the up-front check keeps the closed verdict deterministic.
func (r *Room) Dispatch(from string, msg ClientMessage) bool {
	select {
	case <-r.closed:
		return false
	default:
	}

	select {
	case r.inbox <- envelope{from: from, msg: msg}:
		return true
	case <-r.closed:
		return false
	}
}

func (r *Room) handle(env envelope) {
	switch env.msg.Type {
	case MsgJoin:
		r.machine.HandleJoin(env.from, env.msg.Username, env.msg.Preferences)
	case MsgReady:
		r.machine.HandleReady(env.from)
	case MsgStartGame:
		r.machine.HandleStartGame(env.from)
	case MsgCodeChange:
		r.machine.HandleCodeChange(env.from, env.msg.Code)
	case MsgSabotage:
		r.machine.HandleSabotage(env.from, env.msg.SabotageType, env.msg.TargetID)
	case MsgVote:
		r.machine.HandleVote(env.from, env.msg.TargetID)
	case MsgKickPlayer:
		r.machine.HandleKickPlayer(env.from, env.msg.PlayerID)
	case MsgEndGame:
		r.machine.HandleEndGame(env.from)
	default:
		r.logger.Infof("room %s dropped message with unknown tag %q", r.ID, env.msg.Type)
	}
}

// game.Notifier, called only from the room loop.

var _ game.Notifier = (*Room)(nil)

func (r *Room) BroadcastState(s *game.State) {
	r.broadcast(stateUpdateMessage{Type: "state-update", GameState: s})
}

func (r *Room) BroadcastChat(senderID, text string) {
	r.broadcast(chatMessage{Type: "chat", SenderID: senderID, Text: text})
}

func (r *Room) NotifyCompilers(message string) {
	r.broadcast(loadCompilerMessage{Type: "load-compiler", Message: message})
}

func (r *Room) SendError(playerID, message string) {
	s, ok := r.conns[playerID]
	if !ok {
		return
	}

	payload, err := json.Marshal(errorMessage{Type: "error", Message: message})
	if err != nil {
		r.logger.Errorf("marshal error message: %v", err)
		return
	}

	s.Enqueue(payload)
}

func (r *Room) ClosePlayer(playerID string) {
	if s, ok := r.conns[playerID]; ok {
		delete(r.conns, playerID)
		s.Close()
	}
}

// syncCode seeds a fresh connection with the shared buffer so an editor
// reconnecting mid-round renders code before its join is processed.
func (r *Room) syncCode(s sender) {
	payload, err := json.Marshal(codeSyncMessage{Type: "code-sync", Code: r.machine.State().Code})
	if err != nil {
		r.logger.Errorf("marshal code sync: %v", err)
		return
	}

	s.Enqueue(payload)
}

func (r *Room) broadcast(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		r.logger.Errorf("marshal broadcast: %v", err)
		return
	}

	for _, s := range r.conns {
		s.Enqueue(payload)
	}
}

// game.Scheduler. The callback re-enters through the tasks channel, so it
// runs serialized with every other room message.

var _ game.Scheduler = (*Room)(nil)

func (r *Room) After(d time.Duration, fn func()) {
	time.AfterFunc(d, func() {
		select {
		case <-r.closed:
			return
		default:
		}

		select {
		case r.tasks <- fn:
		case <-r.closed:
		}
	})
}
