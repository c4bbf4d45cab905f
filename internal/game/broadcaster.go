package game

// Broadcaster is the transport capability the coordinator relies on. Sends
// are best-effort; delivery failures to dead connections are the transport's
// problem, not the coordinator's.
type Broadcaster interface {
	SendTo(connID string, event string, data any)
	SendToAll(event string, data any)
}
