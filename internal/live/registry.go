package live

import (
	"sync"

	"github.com/andresuchdata/pricetrack/backend-go/internal/tracker"
)

// Registry maps session ids to running dashboard sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*tracker.Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*tracker.Session)}
}

func (r *Registry) Add(s *tracker.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s
}

func (r *Registry) Get(id string) (*tracker.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
