package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// client is one websocket connection. Gorilla connections do not allow
// concurrent writers, so every write goes through the client's mutex.
type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(event string, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(map[string]any{"event": event, "data": data})
}

// Hub owns all live connections, assigns each a uuid, decodes inbound
// {event,data} envelopes, and dispatches them to the coordinator.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*client
	coord    Coordinator
	upgrader websocket.Upgrader
}

func NewHub(allowedOrigin string) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return allowedOrigin == "*" || r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

// SetCoordinator wires the dispatch target in after construction; the hub
// and the coordinator reference each other.
func (h *Hub) SetCoordinator(c Coordinator) {
	h.coord = c
}

// HandleWS upgrades the request, registers the connection, and runs its read
// loop until the peer goes away.
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	cl := &client{id: uuid.NewString(), conn: conn}
	h.mu.Lock()
	h.clients[cl.id] = cl
	h.mu.Unlock()
	h.coord.Connect(cl.id)

	defer func() {
		h.mu.Lock()
		delete(h.clients, cl.id)
		h.mu.Unlock()
		_ = conn.Close()
		h.coord.Disconnect(cl.id)
	}()

	for {
		var msg struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("conn", cl.id).Msg("read loop ended")
			}
			return
		}
		h.dispatch(cl.id, msg.Event, msg.Data)
	}
}

func (h *Hub) dispatch(connID, event string, data json.RawMessage) {
	switch event {
	case "listGames":
		h.coord.ListGames(connID)
	case "createGame":
		var req struct {
			Name string `json:"name"`
			Side string `json:"side"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			log.Debug().Err(err).Str("event", event).Msg("bad payload")
			return
		}
		h.coord.CreateGame(connID, req.Name, req.Side)
	case "joinGame":
		var req struct {
			GameID string `json:"gameId"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			log.Debug().Err(err).Str("event", event).Msg("bad payload")
			return
		}
		h.coord.JoinGame(connID, req.GameID)
	case "move":
		var req struct {
			GameID    string `json:"gameId"`
			From      string `json:"from"`
			To        string `json:"to"`
			Promotion string `json:"promotion"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			log.Debug().Err(err).Str("event", event).Msg("bad payload")
			return
		}
		h.coord.Move(connID, req.GameID, req.From, req.To, req.Promotion)
	case "resign", "offerDraw", "acceptDraw":
		var req struct {
			GameID string `json:"gameId"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			log.Debug().Err(err).Str("event", event).Msg("bad payload")
			return
		}
		switch event {
		case "resign":
			h.coord.Resign(connID, req.GameID)
		case "offerDraw":
			h.coord.OfferDraw(connID, req.GameID)
		default:
			h.coord.AcceptDraw(connID, req.GameID)
		}
	default:
		log.Debug().Str("event", event).Msg("unknown event")
	}
}

// SendTo delivers an event to one connection. Failures are ignored; the read
// loop notices dead peers and triggers the disconnect path.
func (h *Hub) SendTo(connID string, event string, data any) {
	h.mu.RLock()
	cl, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if err := cl.send(event, data); err != nil {
		log.Debug().Err(err).Str("conn", connID).Str("event", event).Msg("send failed")
	}
}

// SendToAll delivers an event to every connection, best-effort.
func (h *Hub) SendToAll(event string, data any) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, cl := range h.clients {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()

	for _, cl := range clients {
		if err := cl.send(event, data); err != nil {
			log.Debug().Err(err).Str("conn", cl.id).Str("event", event).Msg("send failed")
		}
	}
}
