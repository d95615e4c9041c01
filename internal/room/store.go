package room

import (
	"slices"
	"strings"
	"sync"

	"github.com/susu3304/warikan/internal/ledger"
)

// Store owns every room of the process. Rooms are created on first join and
// live until the process exits.
type Store struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	roster *ledger.Roster
	opts   options
}

func NewStore(roster *ledger.Roster, opts ...Option) *Store {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{
		rooms:  make(map[string]*Room),
		roster: roster,
		opts:   o,
	}
}

func (s *Store) Roster() *ledger.Roster {
	return s.roster
}

// Ensure returns the room with id, creating it when it does not exist yet.
func (s *Store) Ensure(id string) *Room {
	id = strings.TrimSpace(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[id]
	if ok {
		return r
	}
	r = newRoom(id, s.roster, &s.opts)
	s.rooms[id] = r
	return r
}

// Get returns an existing room or ErrRoomNotFound.
func (s *Store) Get(id string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[strings.TrimSpace(id)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// IDs lists the known room ids in lexical order.
func (s *Store) IDs() []string {
	s.mu.Lock()
	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	slices.Sort(ids)
	return ids
}
