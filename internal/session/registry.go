package session

import "sync"

// Registry holds the trackers for sessions that are currently in flight.
// Cross-session synchronization is limited to this map; each tracker
// guards its own state.
type Registry struct {
	mu       sync.RWMutex
	trackers map[string]*Tracker
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{trackers: make(map[string]*Tracker)}
}

// Add registers a tracker under its session ID.
func (r *Registry) Add(t *Tracker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trackers[t.Session().ID] = t
}

// Get returns the tracker for the session ID, or nil.
func (r *Registry) Get(id string) *Tracker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.trackers[id]
}

// Remove drops the tracker for the session ID.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.trackers, id)
}

// DeckInUse reports whether any non-ended session references the deck.
// Decks cannot be deleted while an active session uses them.
func (r *Registry) DeckInUse(deckID int64) bool {
	r.mu.RLock()
	trackers := make([]*Tracker, 0, len(r.trackers))
	for _, t := range r.trackers {
		trackers = append(trackers, t)
	}
	r.mu.RUnlock()

	// State() may lazily end idle sessions, so evaluate outside the map lock.
	for _, t := range trackers {
		s := t.Session()
		if s.DeckID == deckID && !s.Ended() {
			return true
		}
	}
	return false
}
