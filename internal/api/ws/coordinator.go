package ws

// Coordinator is the hub's view of the game orchestration core. Every
// decoded client event is dispatched through it with the connection id the
// hub assigned at upgrade time.
type Coordinator interface {
	Connect(connID string)
	ListGames(connID string)
	CreateGame(connID, name, side string)
	JoinGame(connID, sessionID string)
	Move(connID, sessionID, from, to, promotion string)
	Resign(connID, sessionID string)
	OfferDraw(connID, sessionID string)
	AcceptDraw(connID, sessionID string)
	Disconnect(connID string)
}
