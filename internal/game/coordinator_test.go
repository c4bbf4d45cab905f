package game

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-chess/internal/engine"
	"realtime-chess/internal/session"
	"realtime-chess/internal/store"
)

type sentEvent struct {
	ConnID string // "*" for broadcast-to-all
	Event  string
	Data   any
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []sentEvent
}

func (f *fakeBroadcaster) SendTo(connID, event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sentEvent{ConnID: connID, Event: event, Data: data})
}

func (f *fakeBroadcaster) SendToAll(event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sentEvent{ConnID: "*", Event: event, Data: data})
}

func (f *fakeBroadcaster) all() []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentEvent(nil), f.events...)
}

func (f *fakeBroadcaster) count(connID, event string) int {
	n := 0
	for _, e := range f.all() {
		if e.ConnID == connID && e.Event == event {
			n++
		}
	}
	return n
}

func (f *fakeBroadcaster) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
}

// harness wires a coordinator to a fake broadcaster and captures sweep
// timers so tests fire them synchronously.
type harness struct {
	coord  *Coordinator
	reg    *session.Registry
	bc     *fakeBroadcaster
	sweeps []func()
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		reg: session.NewRegistry(store.NewMemoryStore()),
		bc:  &fakeBroadcaster{},
	}
	h.coord = NewCoordinator(h.reg, time.Minute)
	h.coord.SetBroadcaster(h.bc)
	h.coord.afterFunc = func(d time.Duration, f func()) *time.Timer {
		h.sweeps = append(h.sweeps, f)
		return time.NewTimer(time.Hour)
	}
	return h
}

// createGame creates a session bound to conn as white and returns its id.
func (h *harness) createGame(t *testing.T, conn, name string) string {
	t.Helper()
	h.coord.CreateGame(conn, name, "white")
	list := h.reg.List()
	require.NotEmpty(t, list)
	return list[0].ID
}

func TestCreateGameRepliesAndRepublishes(t *testing.T) {
	h := newHarness(t)
	id := h.createGame(t, "conn-a", "T1")

	events := h.bc.all()
	require.Len(t, events, 3)
	assert.Equal(t, sentEvent{"conn-a", EventPlayerRole, map[string]any{"role": session.RoleWhite}}, events[0])
	assert.Equal(t, sentEvent{"conn-a", EventGameCreated, map[string]any{"gameId": id}}, events[1])
	assert.Equal(t, "*", events[2].ConnID)
	assert.Equal(t, EventGamesList, events[2].Event)

	list := h.reg.List()
	require.Len(t, list, 1)
	assert.Equal(t, "T1", list[0].Name)
	assert.True(t, list[0].WhiteOccupied)
	assert.False(t, list[0].BlackOccupied)
}

func TestJoinGrantsBlackThenSpectator(t *testing.T) {
	h := newHarness(t)
	id := h.createGame(t, "conn-a", "T1")
	h.bc.reset()

	h.coord.JoinGame("conn-b", id)
	h.coord.JoinGame("conn-c", id)

	events := h.bc.all()
	// conn-b: role + state + lobby republish; conn-c: role + state, no republish.
	assert.Equal(t, sentEvent{"conn-b", EventPlayerRole, map[string]any{"role": session.RoleBlack}}, events[0])
	assert.Equal(t, "conn-b", events[1].ConnID)
	assert.Equal(t, EventGameState, events[1].Event)
	assert.Equal(t, 1, h.bc.count("*", EventGamesList))
	assert.Equal(t, sentEvent{"conn-c", EventPlayerRole, map[string]any{"role": session.RoleSpectator}}, events[3])

	list := h.reg.List()
	assert.True(t, list[0].WhiteOccupied)
	assert.True(t, list[0].BlackOccupied)
}

func TestJoinIdempotentRejoinDoesNotRepublish(t *testing.T) {
	h := newHarness(t)
	id := h.createGame(t, "conn-a", "T1")
	h.bc.reset()

	h.coord.JoinGame("conn-a", id)

	assert.Equal(t, 1, h.bc.count("conn-a", EventPlayerRole))
	assert.Equal(t, 1, h.bc.count("conn-a", EventGameState))
	assert.Equal(t, 0, h.bc.count("*", EventGamesList))
}

func TestJoinUnknownSession(t *testing.T) {
	h := newHarness(t)
	h.coord.JoinGame("conn-a", "no-such-id")

	events := h.bc.all()
	require.Len(t, events, 1)
	assert.Equal(t, sentEvent{"conn-a", EventError, map[string]any{"message": "Game not found"}}, events[0])
}

func TestMoveAppliedAndBroadcast(t *testing.T) {
	h := newHarness(t)
	id := h.createGame(t, "conn-a", "T1")
	h.coord.JoinGame("conn-b", id)
	h.coord.JoinGame("conn-spec", id)
	h.bc.reset()

	h.coord.Move("conn-a", id, "e2", "e4", "")

	for _, conn := range []string{"conn-a", "conn-b", "conn-spec"} {
		assert.Equal(t, 1, h.bc.count(conn, EventGameState), conn)
	}

	s, ok := h.reg.Get(id)
	require.True(t, ok)
	require.Len(t, s.Moves(), 1)
	assert.Equal(t, "e4", s.Moves()[0].San)
}

func TestMoveLogReplaysToLivePosition(t *testing.T) {
	h := newHarness(t)
	id := h.createGame(t, "conn-a", "T1")
	h.coord.JoinGame("conn-b", id)

	moves := []struct{ conn, from, to string }{
		{"conn-a", "e2", "e4"},
		{"conn-b", "e7", "e5"},
		{"conn-a", "g1", "f3"},
		{"conn-b", "b8", "c6"},
	}
	for _, m := range moves {
		h.coord.Move(m.conn, id, m.from, m.to, "")
	}

	s, _ := h.reg.Get(id)
	log := s.Moves()
	require.Len(t, log, len(moves))

	replay := engine.NewGame()
	for _, rec := range log {
		_, err := replay.ApplyMove(rec.From, rec.To, rec.Promotion)
		require.NoError(t, err)
	}
	assert.Equal(t, s.Game().FEN(), replay.FEN())
}

func TestMoveOutOfTurnIsSilent(t *testing.T) {
	h := newHarness(t)
	id := h.createGame(t, "conn-a", "T1")
	h.coord.JoinGame("conn-b", id)
	h.coord.JoinGame("conn-spec", id)
	h.bc.reset()

	h.coord.Move("conn-b", id, "e7", "e5", "") // not black's turn
	h.coord.Move("conn-spec", id, "e2", "e4", "")

	assert.Empty(t, h.bc.all(), "unauthorized moves must have no observable effect")
	s, _ := h.reg.Get(id)
	assert.Empty(t, s.Moves())
}

func TestMoveRejectionGoesToCallerOnly(t *testing.T) {
	h := newHarness(t)
	id := h.createGame(t, "conn-a", "T1")
	h.coord.JoinGame("conn-b", id)
	h.bc.reset()

	h.coord.Move("conn-a", id, "e2", "e5", "")

	events := h.bc.all()
	require.Len(t, events, 1)
	assert.Equal(t, "conn-a", events[0].ConnID)
	assert.Equal(t, EventInvalidMove, events[0].Event)
	s, _ := h.reg.Get(id)
	assert.Empty(t, s.Moves())
}

func TestCheckmateBroadcastsGameOverAndBlocksMoves(t *testing.T) {
	h := newHarness(t)
	id := h.createGame(t, "conn-a", "T1")
	h.coord.JoinGame("conn-b", id)

	// Fool's mate, black delivers it.
	h.coord.Move("conn-a", id, "f2", "f3", "")
	h.coord.Move("conn-b", id, "e7", "e5", "")
	h.coord.Move("conn-a", id, "g2", "g4", "")
	h.bc.reset()
	h.coord.Move("conn-b", id, "d8", "h4", "")

	assert.Equal(t, 1, h.bc.count("conn-a", EventGameOver))
	assert.Equal(t, 1, h.bc.count("conn-b", EventGameOver))
	for _, e := range h.bc.all() {
		if e.Event == EventGameOver {
			o := e.Data.(session.Outcome)
			assert.Equal(t, session.ResultCheckmate, o.Result)
			assert.Equal(t, "Black", o.Winner)
		}
	}
	s, _ := h.reg.Get(id)
	assert.Equal(t, session.StateFinished, s.State())

	// Further move attempts are rejected, not applied.
	h.bc.reset()
	h.coord.Move("conn-a", id, "e2", "e4", "")
	events := h.bc.all()
	require.Len(t, events, 1)
	assert.Equal(t, EventInvalidMove, events[0].Event)
	assert.Len(t, s.Moves(), 4)
}

func TestResignation(t *testing.T) {
	h := newHarness(t)
	id := h.createGame(t, "conn-a", "T1")
	h.coord.JoinGame("conn-b", id)
	h.coord.JoinGame("conn-spec", id)
	h.bc.reset()

	// Spectator resignation is a no-op.
	h.coord.Resign("conn-spec", id)
	assert.Empty(t, h.bc.all())

	h.coord.Resign("conn-b", id)
	assert.Equal(t, 1, h.bc.count("conn-a", EventGameOver))
	assert.Equal(t, 1, h.bc.count("conn-spec", EventGameOver))
	for _, e := range h.bc.all() {
		if e.Event == EventGameOver {
			o := e.Data.(session.Outcome)
			assert.Equal(t, session.ResultResignation, o.Result)
			assert.Equal(t, "White", o.Winner)
		}
	}

	// A second resignation after the game ended changes nothing.
	h.bc.reset()
	h.coord.Resign("conn-a", id)
	assert.Empty(t, h.bc.all())
}

func TestDrawOfferIsPointToPoint(t *testing.T) {
	h := newHarness(t)
	id := h.createGame(t, "conn-a", "T1")
	h.coord.JoinGame("conn-b", id)
	h.coord.JoinGame("conn-spec", id)
	h.bc.reset()

	h.coord.OfferDraw("conn-a", id)

	events := h.bc.all()
	require.Len(t, events, 1)
	assert.Equal(t, sentEvent{"conn-b", EventDrawOffered, map[string]any{"gameId": id}}, events[0])
}

func TestAcceptDrawRequiresPendingOffer(t *testing.T) {
	h := newHarness(t)
	id := h.createGame(t, "conn-a", "T1")
	h.coord.JoinGame("conn-b", id)
	h.bc.reset()

	// No offer pending: nothing happens.
	h.coord.AcceptDraw("conn-b", id)
	assert.Empty(t, h.bc.all())

	h.coord.OfferDraw("conn-a", id)
	// The offerer cannot accept their own offer.
	h.coord.AcceptDraw("conn-a", id)
	assert.Equal(t, 0, h.bc.count("conn-a", EventGameOver))

	h.coord.AcceptDraw("conn-b", id)
	assert.Equal(t, 1, h.bc.count("conn-a", EventGameOver))
	assert.Equal(t, 1, h.bc.count("conn-b", EventGameOver))
	for _, e := range h.bc.all() {
		if e.Event == EventGameOver {
			o := e.Data.(session.Outcome)
			assert.Equal(t, session.ResultDraw, o.Result)
			assert.Empty(t, o.Winner)
		}
	}
}

func TestDrawOfferClearedByMove(t *testing.T) {
	h := newHarness(t)
	id := h.createGame(t, "conn-a", "T1")
	h.coord.JoinGame("conn-b", id)

	h.coord.OfferDraw("conn-a", id)
	h.coord.Move("conn-a", id, "e2", "e4", "")
	h.bc.reset()

	h.coord.AcceptDraw("conn-b", id)
	assert.Equal(t, 0, h.bc.count("conn-b", EventGameOver))
}

func TestOfferDrawWithoutOpponentIsSilent(t *testing.T) {
	h := newHarness(t)
	id := h.createGame(t, "conn-a", "T1")
	h.bc.reset()

	h.coord.OfferDraw("conn-a", id)
	assert.Empty(t, h.bc.all())
}

func TestDisconnectVacatesSlotAndAnnounces(t *testing.T) {
	h := newHarness(t)
	id := h.createGame(t, "conn-a", "T1")
	h.coord.JoinGame("conn-b", id)
	h.coord.JoinGame("conn-spec", id)
	h.coord.Move("conn-a", id, "e2", "e4", "")
	h.bc.reset()

	h.coord.Disconnect("conn-a")

	found := false
	for _, e := range h.bc.all() {
		if e.ConnID == "conn-b" && e.Event == EventGameState {
			snap := e.Data.(session.Snapshot)
			assert.Equal(t, "Disconnected", snap.WhiteName)
			assert.Equal(t, "Player 2", snap.BlackName)
			assert.Len(t, snap.History, 1)
			found = true
		}
	}
	assert.True(t, found, "remaining player must see the disconnect snapshot")
	assert.Equal(t, 1, h.bc.count("*", EventGamesList))
	assert.Empty(t, h.sweeps, "occupied session must not be scheduled for sweep")

	s, _ := h.reg.Get(id)
	sum := s.Summary()
	assert.False(t, sum.WhiteOccupied)
	assert.True(t, sum.BlackOccupied)
	assert.Len(t, s.Moves(), 1)

	// The vacated slot is available to the next joiner.
	h.coord.JoinGame("conn-x", id)
	side, ok := s.SideOf("conn-x")
	require.True(t, ok)
	assert.Equal(t, engine.White, side)
}

func TestDisconnectSpectatorHasNoGameStateBroadcast(t *testing.T) {
	h := newHarness(t)
	id := h.createGame(t, "conn-a", "T1")
	h.coord.JoinGame("conn-b", id)
	h.coord.JoinGame("conn-spec", id)
	h.bc.reset()

	h.coord.Disconnect("conn-spec")

	assert.Equal(t, 0, h.bc.count("conn-a", EventGameState))
	assert.Equal(t, 0, h.bc.count("conn-b", EventGameState))
	assert.Equal(t, 1, h.bc.count("*", EventGamesList))
}

func TestAbandonmentSweepDeletesEmptySession(t *testing.T) {
	h := newHarness(t)
	id := h.createGame(t, "conn-a", "T1")

	h.coord.Disconnect("conn-a")
	require.Len(t, h.sweeps, 1)
	h.bc.reset()

	h.sweeps[0]()

	_, ok := h.reg.Get(id)
	assert.False(t, ok, "abandoned session must be deleted at recheck")
	assert.Equal(t, 1, h.bc.count("*", EventGamesList))
}

func TestAbandonmentSweepSkipsReoccupiedSession(t *testing.T) {
	h := newHarness(t)
	id := h.createGame(t, "conn-a", "T1")

	h.coord.Disconnect("conn-a")
	require.Len(t, h.sweeps, 1)

	h.coord.JoinGame("conn-b", id)
	h.bc.reset()
	h.sweeps[0]()

	_, ok := h.reg.Get(id)
	assert.True(t, ok, "reoccupied session must survive the sweep")
	assert.Equal(t, 0, h.bc.count("*", EventGamesList))
}

func TestSweepAfterDeletionIsNoOp(t *testing.T) {
	h := newHarness(t)
	id := h.createGame(t, "conn-a", "T1")

	h.coord.Disconnect("conn-a")
	require.Len(t, h.sweeps, 1)
	h.reg.Delete(id)
	h.bc.reset()

	h.sweeps[0]()
	assert.Empty(t, h.bc.all())
}

func TestActionsOnUnknownSessionReportToCallerOnly(t *testing.T) {
	h := newHarness(t)
	h.bc.reset()

	h.coord.Move("conn-a", "missing", "e2", "e4", "")
	h.coord.Resign("conn-a", "missing")
	h.coord.OfferDraw("conn-a", "missing")
	h.coord.AcceptDraw("conn-a", "missing")

	events := h.bc.all()
	require.Len(t, events, 4)
	for _, e := range events {
		assert.Equal(t, "conn-a", e.ConnID)
		assert.Equal(t, EventError, e.Event)
	}
}
