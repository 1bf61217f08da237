// Package session exposes the operations a front end calls: one Session per
// player, each with its own game state and its own saved document.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tatianab/waystation/internal/engine"
	"github.com/tatianab/waystation/internal/logging"
	"github.com/tatianab/waystation/internal/models"
)

// HistoryLines is how much of the story log a View carries.
const HistoryLines = 50

// Session serialises every operation on one game state.
type Session struct {
	mu        sync.Mutex
	resolving atomic.Bool
	engine    *engine.Engine
	state     *models.GameState
}

// View is a read-only copy of what a front end shows.
type View struct {
	ID      string
	Turn    int
	Player  models.PlayerState
	World   models.WorldState
	Scene   *models.Scene
	History []string
	Context map[string]any
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ID
}

// CurrentScene returns the committed scene, generating one first if needed.
func (s *Session) CurrentScene(ctx context.Context) models.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.EnsureScene(ctx, s.state).Value
}

// Choose plays the choice at idx. engine.ErrInvalidChoice is the only
// error it returns.
func (s *Session) Choose(ctx context.Context, idx int) (engine.TurnSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolving.Store(true)
	defer s.resolving.Store(false)
	return s.engine.Choose(ctx, s.state, idx)
}

// Phase reports where the session is in the turn cycle. It does not wait
// for a turn in flight; that turn reports engine.Resolving.
func (s *Session) Phase() engine.State {
	if s.resolving.Load() {
		return engine.Resolving
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return engine.Phase(s.state)
}

// Reset starts the session over and returns its first scene.
func (s *Session) Reset(ctx context.Context) models.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Reset(ctx, s.state).Value
}

// SetPlayerName renames the player; blank names are ignored.
func (s *Session) SetPlayerName(ctx context.Context, name string) models.PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SetPlayerName(ctx, s.state, name)
	return s.state.Player.Clone()
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.state.Snapshot()
	return View{
		ID:      snap.ID,
		Turn:    snap.Turn,
		Player:  snap.Player,
		World:   snap.World,
		Scene:   snap.CurrentScene,
		History: snap.LogTail(HistoryLines),
		Context: snap.Context,
	}
}

// Manager hands out sessions by id. Opening the same id twice returns the
// same Session.
type Manager struct {
	mu       sync.Mutex
	engine   *engine.Engine
	store    Store[*models.GameState]
	sessions map[string]*Session
}

func NewManager(e *engine.Engine, store Store[*models.GameState]) *Manager {
	return &Manager{
		engine:   e,
		store:    store,
		sessions: make(map[string]*Session),
	}
}

// Open loads the session saved under id, or starts a new one. An empty id
// picks a fresh one from the store. A save that cannot be read is replaced
// by a new game. Loading and the first scene happen outside the manager
// lock, so a slow generator only delays callers of the same id.
func (m *Manager) Open(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		id = m.store.NewID()
	}
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	if s, ok := m.lookup(id); ok {
		return s, nil
	}

	st, ok, err := m.store.Get(ctx, id)
	if err != nil {
		logging.Warn("failed to load session, starting over", err, logging.Fields{"session": id})
		ok = false
	}
	if !ok || st == nil {
		st = models.NewGameState(id)
		logging.Info("new session", logging.Fields{"session": id})
	}
	st.ID = id

	m.engine.Bootstrap(ctx, st)
	s := &Session{engine: m.engine, state: st}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[id]; ok {
		return existing, nil
	}
	m.sessions[id] = s
	return s, nil
}

func (m *Manager) lookup(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}
