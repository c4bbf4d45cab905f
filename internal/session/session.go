// Package session holds the per-game state container and the registry of
// live games. A Session owns its role bindings, spectator set, move log, and
// rule-engine handle; the registry maps unguessable ids to sessions.
package session

import (
	"sync"
	"time"

	"realtime-chess/internal/engine"
)

// Role is what a connection was granted inside a session.
type Role string

const (
	RoleWhite     Role = "white"
	RoleBlack     Role = "black"
	RoleSpectator Role = "spectator"
)

// State tracks the session lifecycle.
type State string

const (
	StateWaiting  State = "waiting"
	StateActive   State = "active"
	StateFinished State = "finished"
)

// Result is the kind of terminal outcome.
type Result string

const (
	ResultCheckmate   Result = "checkmate"
	ResultStalemate   Result = "stalemate"
	ResultDraw        Result = "draw"
	ResultResignation Result = "resignation"
)

// Outcome is set once when a session reaches a terminal state.
// Winner is "White" or "Black", empty for drawn results.
type Outcome struct {
	Result Result `json:"result"`
	Winner string `json:"winner,omitempty"`
}

// Snapshot is the full-resync payload sent to clients.
type Snapshot struct {
	FEN       string              `json:"fen"`
	History   []engine.MoveRecord `json:"history"`
	WhiteName string              `json:"whiteName"`
	BlackName string              `json:"blackName"`
}

// Session is one waiting, active, or finished game. All mutable state is
// guarded by the internal mutex; ID, Name, and CreatedAt are immutable.
type Session struct {
	ID        string
	Name      string
	CreatedAt time.Time

	mu            sync.RWMutex
	game          *engine.Game
	moves         []engine.MoveRecord
	white         string // connection id, "" when unbound
	black         string
	spectators    map[string]struct{}
	state         State
	outcome       *Outcome
	drawOfferFrom engine.Color // "" when no offer pending
}

func newSession(id, name string) *Session {
	return &Session{
		ID:         id,
		Name:       name,
		CreatedAt:  time.Now(),
		game:       engine.NewGame(),
		spectators: make(map[string]struct{}),
		state:      StateWaiting,
	}
}

// Join grants a role to connID per the assignment policy: a connection
// already holding a slot keeps it; otherwise white fills first, then black,
// then spectator. bound reports whether a player slot was newly occupied.
func (s *Session) Join(connID string) (role Role, bound bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch connID {
	case s.white:
		if s.white != "" {
			return RoleWhite, false
		}
	case s.black:
		if s.black != "" {
			return RoleBlack, false
		}
	}
	if _, ok := s.spectators[connID]; ok {
		return RoleSpectator, false
	}

	switch {
	case s.white == "":
		s.white = connID
		role, bound = RoleWhite, true
	case s.black == "":
		s.black = connID
		role, bound = RoleBlack, true
	default:
		s.spectators[connID] = struct{}{}
		return RoleSpectator, false
	}
	if s.white != "" && s.black != "" && s.state == StateWaiting {
		s.state = StateActive
	}
	return role, bound
}

// bind attaches the creator to the requested side at creation time.
func (s *Session) bind(side engine.Color, connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if side == engine.White {
		s.white = connID
	} else {
		s.black = connID
	}
}

// SideOf returns the side a connection is bound to as a player.
func (s *Session) SideOf(connID string) (engine.Color, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case connID != "" && connID == s.white:
		return engine.White, true
	case connID != "" && connID == s.black:
		return engine.Black, true
	}
	return "", false
}

// ConnForSide returns the connection bound to a side, "" when vacant.
func (s *Session) ConnForSide(side engine.Color) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if side == engine.White {
		return s.white
	}
	return s.black
}

// Contains reports whether connID participates in this session in any role.
func (s *Session) Contains(connID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if connID != "" && (connID == s.white || connID == s.black) {
		return true
	}
	_, ok := s.spectators[connID]
	return ok
}

// Vacate removes connID from the session. For players only the held slot is
// cleared; the opponent and the move log are untouched.
func (s *Session) Vacate(connID string) (side engine.Color, wasPlayer bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case connID != "" && connID == s.white:
		s.white = ""
		return engine.White, true
	case connID != "" && connID == s.black:
		s.black = ""
		return engine.Black, true
	}
	delete(s.spectators, connID)
	return "", false
}

// Empty reports whether both slots are unbound and no spectators remain,
// which makes the session eligible for the abandonment sweep.
func (s *Session) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.white == "" && s.black == "" && len(s.spectators) == 0
}

// Game returns the rule-engine handle. Callers must serialize move
// application; the coordinator's single-writer lock does.
func (s *Session) Game() *engine.Game {
	return s.game
}

// AppendMove records an accepted move. The log is append-only.
func (s *Session) AppendMove(rec engine.MoveRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moves = append(s.moves, rec)
}

// Moves returns a copy of the move log.
func (s *Session) Moves() []engine.MoveRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]engine.MoveRecord, len(s.moves))
	copy(out, s.moves)
	return out
}

// Finish marks the terminal outcome. It succeeds only once; later calls
// report false so a second gameOver is never broadcast.
func (s *Session) Finish(o Outcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome != nil {
		return false
	}
	s.outcome = &o
	s.state = StateFinished
	return true
}

// Finished reports whether a terminal outcome was recorded.
func (s *Session) Finished() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outcome != nil
}

// Outcome returns the recorded terminal outcome, if any.
func (s *Session) Outcome() (Outcome, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.outcome == nil {
		return Outcome{}, false
	}
	return *s.outcome, true
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetDrawOffer records a pending draw offer from side. Pass "" to clear.
func (s *Session) SetDrawOffer(side engine.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawOfferFrom = side
}

// DrawOfferFrom returns the side with a pending offer, "" when none.
func (s *Session) DrawOfferFrom() engine.Color {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.drawOfferFrom
}

// Recipients returns every connection attached to the session, players and
// spectators alike, for room-scoped broadcast.
func (s *Session) Recipients() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, 2+len(s.spectators))
	if s.white != "" {
		out = append(out, s.white)
	}
	if s.black != "" {
		out = append(out, s.black)
	}
	for id := range s.spectators {
		out = append(out, id)
	}
	return out
}

// Snapshot builds the full-resync payload with the default slot labels.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		FEN:       s.game.FEN(),
		History:   append([]engine.MoveRecord(nil), s.moves...),
		WhiteName: "Waiting...",
		BlackName: "Waiting...",
	}
	if s.white != "" {
		snap.WhiteName = "Player 1"
	}
	if s.black != "" {
		snap.BlackName = "Player 2"
	}
	return snap
}

// Summary is the lobby-facing view of a session.
type Summary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	WhiteOccupied bool   `json:"whiteOccupied"`
	BlackOccupied bool   `json:"blackOccupied"`
}

// Summary returns the occupancy view used by the lobby feed.
func (s *Session) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Summary{
		ID:            s.ID,
		Name:          s.Name,
		WhiteOccupied: s.white != "",
		BlackOccupied: s.black != "",
	}
}
