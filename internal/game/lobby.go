package game

import "realtime-chess/internal/session"

// LobbyFeed derives the public games listing from the registry and pushes it
// to every connection whenever occupancy changes.
type LobbyFeed struct {
	reg *session.Registry
	bc  Broadcaster
}

func NewLobbyFeed(reg *session.Registry) *LobbyFeed {
	return &LobbyFeed{reg: reg}
}

// Snapshot builds the listing fresh from the registry, most recent first.
func (f *LobbyFeed) Snapshot() []session.Summary {
	return f.reg.List()
}

// Republish sends the current snapshot to all connected clients.
func (f *LobbyFeed) Republish() {
	if f.bc == nil {
		return
	}
	f.bc.SendToAll(EventGamesList, f.Snapshot())
}
