package room

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/codelafda/codelafda/internal/game"
	"github.com/codelafda/codelafda/internal/logging"
	"github.com/gorilla/websocket"
)

// Manager is the session registry: it maps room ids to live room actors,
// creating one on first connection and forgetting it once it empties.
type Manager struct {
	mtx   sync.RWMutex
	rooms map[string]*Room

	ctx       context.Context
	cfg       game.Config
	questions game.Questions
	upgrader  websocket.Upgrader
}

func NewManager(ctx context.Context, cfg game.Config, questions game.Questions) *Manager {
	return &Manager{
		rooms:     map[string]*Room{},
		ctx:       ctx,
		cfg:       cfg,
		questions: questions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleWS upgrades the connection and binds it to the room named in the
// path (/ws/{room}). It blocks on the read pump for the connection's life.
func (m *Manager) HandleWS(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context()).Named("room.manager")

	roomID := strings.TrimPrefix(r.URL.Path, "/ws/")
	if roomID == "" || strings.Contains(roomID, "/") {
		http.Error(w, "room id required", http.StatusBadRequest)
		return
	}

	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("upgrade: %v", err)
		return
	}

	for {
		room := m.getOrCreate(roomID)
		c := newClient(room, ws)
		if room.Attach(c) {
			c.run()
			return
		}
		// lost the race against a dying room, spin up a fresh one
		m.forget(room)
	}
}

func (m *Manager) getOrCreate(roomID string) *Room {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if room, ok := m.rooms[roomID]; ok {
		return room
	}

	logger := logging.FromContext(m.ctx).Named("room")
	room := New(roomID, m.cfg, m.questions, m.remove, logger)
	m.rooms[roomID] = room
	go room.Run(m.ctx)

	logger.Infof("room %s created", roomID)
	return room
}

// remove is the room's onEmpty callback.
func (m *Manager) remove(room *Room) {
	m.forget(room)
}

func (m *Manager) forget(room *Room) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.rooms[room.ID] == room {
		delete(m.rooms, room.ID)
	}
}

// RoomCount reports how many rooms are live, for diagnostics.
func (m *Manager) RoomCount() int {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return len(m.rooms)
}
