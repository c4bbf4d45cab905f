// Package game contains the coordinator: the single orchestration point for
// joins, moves, resignations, draw offers, disconnects, and the abandonment
// sweep. All session mutation is serialized through its mutex.
package game

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"realtime-chess/internal/engine"
	"realtime-chess/internal/metrics"
	"realtime-chess/internal/session"
)

// Server-to-client event names, matching the lobby/game client protocol.
const (
	EventGamesList   = "gamesList"
	EventGameCreated = "gameCreated"
	EventPlayerRole  = "playerRole"
	EventGameState   = "gameState"
	EventGameOver    = "gameOver"
	EventDrawOffered = "drawOffered"
	EventInvalidMove = "invalidMove"
	EventError       = "error"
)

// Coordinator owns the registry and applies every participant action under a
// single lock, so no two actions ever mutate the same session concurrently.
type Coordinator struct {
	mu    sync.Mutex
	reg   *session.Registry
	feed  *LobbyFeed
	bc    Broadcaster
	grace time.Duration

	// afterFunc is swappable so sweep tests can fire timers synchronously.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

func NewCoordinator(reg *session.Registry, grace time.Duration) *Coordinator {
	return &Coordinator{
		reg:       reg,
		feed:      NewLobbyFeed(reg),
		grace:     grace,
		afterFunc: time.AfterFunc,
	}
}

// SetBroadcaster wires the transport in after construction; the hub and the
// coordinator reference each other, so one of the two is attached late.
func (c *Coordinator) SetBroadcaster(bc Broadcaster) {
	c.bc = bc
	c.feed.bc = bc
}

// Connect is invoked by the transport when a connection opens.
func (c *Coordinator) Connect(connID string) {
	metrics.ConnectionsActive.Inc()
	log.Debug().Str("conn", connID).Msg("client connected")
}

// ListGames sends the lobby snapshot to the requesting connection.
func (c *Coordinator) ListGames(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bc.SendTo(connID, EventGamesList, c.feed.Snapshot())
}

// CreateGame allocates a session, binds the creator to the requested side
// ("either" resolves randomly), replies with the granted role and the new
// session id, and republishes the lobby.
func (c *Coordinator) CreateGame(connID, name string, side string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, role := c.reg.Create(name, session.Side(side), connID)
	metrics.SessionsCreated.Inc()
	metrics.SessionsActive.Inc()
	log.Info().Str("session", s.ID).Str("name", name).Str("role", string(role)).Msg("session created")

	c.bc.SendTo(connID, EventPlayerRole, map[string]any{"role": role})
	c.bc.SendTo(connID, EventGameCreated, map[string]any{"gameId": s.ID})
	c.feed.Republish()
}

// JoinGame grants a role (idempotently for a connection already bound) and
// sends the full state snapshot. The lobby is republished only when a player
// slot was newly occupied.
func (c *Coordinator) JoinGame(connID, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.reg.Get(sessionID)
	if !ok {
		c.sendNotFound(connID, sessionID)
		return
	}
	role, bound := s.Join(connID)
	log.Info().Str("session", s.ID).Str("conn", connID).Str("role", string(role)).Msg("joined")

	c.bc.SendTo(connID, EventPlayerRole, map[string]any{"role": role})
	c.bc.SendTo(connID, EventGameState, s.Snapshot())
	if bound {
		c.feed.Republish()
	}
}

// Move applies a move intent. Unknown session ids are reported to the caller
// only; out-of-turn attempts are dropped without any observable effect; rule
// rejections echo the move back as invalidMove. Accepted moves are appended
// to the log and the new snapshot is broadcast to the whole session, followed
// by a gameOver broadcast when the move ends the game.
func (c *Coordinator) Move(connID, sessionID, from, to, promotion string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.reg.Get(sessionID)
	if !ok {
		c.sendNotFound(connID, sessionID)
		return
	}
	echo := map[string]any{"gameId": sessionID, "from": from, "to": to, "promotion": promotion}
	if s.Finished() {
		c.bc.SendTo(connID, EventInvalidMove, echo)
		return
	}
	side, isPlayer := s.SideOf(connID)
	if !isPlayer || side != s.Game().Turn() {
		// Deliberately silent: an unauthorized actor learns nothing about
		// whose turn it is.
		log.Debug().Str("session", s.ID).Str("conn", connID).Msg("unauthorized move dropped")
		return
	}

	rec, err := s.Game().ApplyMove(from, to, promotion)
	if err != nil {
		metrics.MovesRejected.Inc()
		log.Debug().Str("session", s.ID).Str("conn", connID).
			Str("from", from).Str("to", to).Msg("move rejected")
		c.bc.SendTo(connID, EventInvalidMove, echo)
		return
	}
	s.AppendMove(rec)
	s.SetDrawOffer("")
	metrics.MovesApplied.Inc()
	log.Info().Str("session", s.ID).Str("san", rec.San).Str("color", string(rec.Color)).Msg("move applied")

	c.broadcast(s, EventGameState, s.Snapshot())

	switch s.Game().Status() {
	case engine.Checkmate:
		// The mover delivered mate; the side now to move lost.
		c.finish(s, session.Outcome{Result: session.ResultCheckmate, Winner: winnerLabel(rec.Color)})
	case engine.Stalemate:
		c.finish(s, session.Outcome{Result: session.ResultStalemate})
	case engine.Draw:
		c.finish(s, session.Outcome{Result: session.ResultDraw})
	}
}

// Resign ends the game in favor of the opponent. Spectators resigning is a
// no-op, as is resigning an already finished game.
func (c *Coordinator) Resign(connID, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.reg.Get(sessionID)
	if !ok {
		c.sendNotFound(connID, sessionID)
		return
	}
	side, isPlayer := s.SideOf(connID)
	if !isPlayer || s.Finished() {
		return
	}
	log.Info().Str("session", s.ID).Str("color", string(side)).Msg("resignation")
	c.finish(s, session.Outcome{Result: session.ResultResignation, Winner: winnerLabel(side.Opponent())})
}

// OfferDraw forwards a draw offer to the opponent's connection only; it is
// never broadcast to the room. Offers require a bound opponent.
func (c *Coordinator) OfferDraw(connID, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.reg.Get(sessionID)
	if !ok {
		c.sendNotFound(connID, sessionID)
		return
	}
	side, isPlayer := s.SideOf(connID)
	if !isPlayer || s.Finished() {
		return
	}
	opp := s.ConnForSide(side.Opponent())
	if opp == "" {
		return
	}
	s.SetDrawOffer(side)
	c.bc.SendTo(opp, EventDrawOffered, map[string]any{"gameId": s.ID})
}

// AcceptDraw ends the game as drawn, provided the accepter is a bound player
// with a pending offer from the opponent.
func (c *Coordinator) AcceptDraw(connID, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.reg.Get(sessionID)
	if !ok {
		c.sendNotFound(connID, sessionID)
		return
	}
	side, isPlayer := s.SideOf(connID)
	if !isPlayer || s.Finished() {
		return
	}
	if s.DrawOfferFrom() != side.Opponent() {
		return
	}
	s.SetDrawOffer("")
	c.finish(s, session.Outcome{Result: session.ResultDraw})
}

// Disconnect vacates every slot and spectator membership the connection
// held. Vacated player slots are announced with a "Disconnected" label;
// sessions left fully empty are scheduled for the abandonment sweep. The
// lobby is republished once at the end.
func (c *Coordinator) Disconnect(connID string) {
	metrics.ConnectionsActive.Dec()

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range c.reg.Sessions() {
		if !s.Contains(connID) {
			continue
		}
		side, wasPlayer := s.Vacate(connID)
		if wasPlayer {
			snap := s.Snapshot()
			if side == engine.White {
				snap.WhiteName = "Disconnected"
			} else {
				snap.BlackName = "Disconnected"
			}
			c.broadcast(s, EventGameState, snap)
		}
		if s.Empty() {
			c.scheduleSweep(s.ID)
		}
	}
	c.feed.Republish()
	log.Debug().Str("conn", connID).Msg("client disconnected")
}

// scheduleSweep arms the grace-period timer for an abandoned session. The
// timer re-validates emptiness under the lock; a reoccupied or already
// deleted session makes the sweep a no-op.
func (c *Coordinator) scheduleSweep(sessionID string) {
	c.afterFunc(c.grace, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		s, ok := c.reg.Get(sessionID)
		if !ok || !s.Empty() {
			return
		}
		c.reg.Delete(sessionID)
		metrics.SessionsSwept.Inc()
		metrics.SessionsActive.Dec()
		log.Info().Str("session", sessionID).Msg("abandoned session deleted")
		c.feed.Republish()
	})
}

// finish records the terminal outcome once and broadcasts gameOver.
func (c *Coordinator) finish(s *session.Session, o session.Outcome) {
	if !s.Finish(o) {
		return
	}
	log.Info().Str("session", s.ID).Str("result", string(o.Result)).Str("winner", o.Winner).Msg("game over")
	c.broadcast(s, EventGameOver, o)
}

func (c *Coordinator) broadcast(s *session.Session, event string, data any) {
	for _, connID := range s.Recipients() {
		c.bc.SendTo(connID, event, data)
	}
}

func (c *Coordinator) sendNotFound(connID, sessionID string) {
	log.Debug().Str("session", sessionID).Str("conn", connID).Msg("unknown session")
	c.bc.SendTo(connID, EventError, map[string]any{"message": "Game not found"})
}

func winnerLabel(side engine.Color) string {
	if side == engine.White {
		return "White"
	}
	return "Black"
}
