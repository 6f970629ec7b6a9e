package registration

import (
	"context"
	"sync"
	"time"

	"github.com/ehr/intake/internal/platform/metrics"
)

// SessionStore holds live sessions in memory. Sessions idle for longer than
// the TTL are dropped unless a submission is in flight.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	metrics  *metrics.Metrics
}

// NewSessionStore returns a store. A ttl <= 0 keeps sessions until removed.
func NewSessionStore(ttl time.Duration, m *metrics.Metrics) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		metrics:  m,
	}
}

// SetClock replaces the clock expiry is measured against. It must be the
// clock session timestamps are taken from.
func (st *SessionStore) SetClock(clock func() time.Time) {
	if clock == nil {
		clock = time.Now
	}
	st.mu.Lock()
	st.now = clock
	st.mu.Unlock()
}

func (st *SessionStore) Add(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.id] = s
	st.metrics.SetActiveSessions(len(st.sessions))
}

func (st *SessionStore) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if st.expired(s) {
		delete(st.sessions, id)
		st.metrics.SetActiveSessions(len(st.sessions))
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (st *SessionStore) Remove(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	st.metrics.SetActiveSessions(len(st.sessions))
	return ok
}

func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (st *SessionStore) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for id, s := range st.sessions {
		if st.expired(s) {
			delete(st.sessions, id)
			n++
		}
	}
	st.metrics.SetActiveSessions(len(st.sessions))
	return n
}

// Run sweeps every interval until ctx is done.
func (st *SessionStore) Run(ctx context.Context, interval time.Duration) {
	if st.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}

func (st *SessionStore) expired(s *Session) bool {
	if st.ttl <= 0 {
		return false
	}
	last, busy := s.lastActive()
	return !busy && st.now().Sub(last) > st.ttl
}
