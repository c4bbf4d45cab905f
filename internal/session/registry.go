package session

import (
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"realtime-chess/internal/engine"
)

// Side is the side requested at creation time.
type Side string

const (
	SideWhite  Side = "white"
	SideBlack  Side = "black"
	SideEither Side = "either"
)

// Store persists sessions. The only implementation is the in-memory store;
// the interface mirrors what the registry needs and nothing more.
type Store interface {
	GetSession(id string) (*Session, bool)
	SaveSession(s *Session)
	DeleteSession(id string)
	ListSessions() []*Session
}

// Registry allocates, looks up, and enumerates sessions.
type Registry struct {
	store Store
	rng   *rand.Rand
}

func NewRegistry(store Store) *Registry {
	return &Registry{
		store: store,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Create allocates a session with a fresh uuid, starting position, and the
// creator bound to the requested side. SideEither resolves by coin flip.
// The assigned role is returned alongside the session.
func (r *Registry) Create(name string, side Side, connID string) (*Session, Role) {
	s := newSession(uuid.NewString(), name)

	resolved := side
	if resolved != SideWhite && resolved != SideBlack {
		if r.rng.Intn(2) == 0 {
			resolved = SideWhite
		} else {
			resolved = SideBlack
		}
	}
	role := RoleWhite
	if resolved == SideBlack {
		role = RoleBlack
	}
	if resolved == SideBlack {
		s.bind(engine.Black, connID)
	} else {
		s.bind(engine.White, connID)
	}

	r.store.SaveSession(s)
	return s, role
}

// Get looks up a session by id.
func (r *Registry) Get(id string) (*Session, bool) {
	return r.store.GetSession(id)
}

// Delete removes a session; deleting an unknown id is a no-op.
func (r *Registry) Delete(id string) {
	r.store.DeleteSession(id)
}

// Sessions returns every live session, for the disconnect sweep.
func (r *Registry) Sessions() []*Session {
	return r.store.ListSessions()
}

// List snapshots every session as a lobby summary, most recent first.
func (r *Registry) List() []Summary {
	sessions := r.store.ListSessions()
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	out := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Summary())
	}
	return out
}
