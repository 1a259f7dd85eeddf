package usecase

import (
	"sync"
	"time"

	"cinema-booking/internal/apperr"
	"cinema-booking/internal/data/entity"
)

type sessionEntry struct {
	mu      sync.Mutex
	session *entity.BookingSession
}

// SessionStore keeps live sessions in memory. Each session has its own
// mutex; the store lock only guards the maps.
type SessionStore struct {
	mu      sync.RWMutex
	byID    map[string]*sessionEntry
	byOrder map[string]string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		byID:    make(map[string]*sessionEntry),
		byOrder: make(map[string]string),
	}
}

func (st *SessionStore) add(s *entity.BookingSession) *sessionEntry {
	e := &sessionEntry{session: s}
	st.mu.Lock()
	st.byID[s.ID] = e
	st.mu.Unlock()
	return e
}

func (st *SessionStore) entry(id string) (*sessionEntry, error) {
	st.mu.RLock()
	e, ok := st.byID[id]
	st.mu.RUnlock()
	if !ok {
		return nil, apperr.ErrSessionNotFound
	}
	return e, nil
}

func (st *SessionStore) indexOrder(orderRef, sessionID string) {
	st.mu.Lock()
	st.byOrder[orderRef] = sessionID
	st.mu.Unlock()
}

func (st *SessionStore) byOrderRef(orderRef string) (*sessionEntry, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	id, ok := st.byOrder[orderRef]
	if !ok {
		return nil, false
	}
	e, ok := st.byID[id]
	return e, ok
}

func (st *SessionStore) entries() []*sessionEntry {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]*sessionEntry, 0, len(st.byID))
	for _, e := range st.byID {
		out = append(out, e)
	}
	return out
}

// purge drops terminal sessions closed before cutoff. Busy entries wait
// for the next pass.
func (st *SessionStore) purge(cutoff time.Time) int {
	var stale []*entity.BookingSession
	for _, e := range st.entries() {
		if !e.mu.TryLock() {
			continue
		}
		s := e.session
		if s.State.Terminal() && s.ClosedAt != nil && s.ClosedAt.Before(cutoff) {
			stale = append(stale, s)
		}
		e.mu.Unlock()
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	for _, s := range stale {
		delete(st.byID, s.ID)
		if s.OrderRef != "" {
			delete(st.byOrder, s.OrderRef)
		}
	}
	return len(stale)
}

// Len reports sessions currently held, terminal ones included.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.byID)
}
