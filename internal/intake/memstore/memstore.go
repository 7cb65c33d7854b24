// Package memstore provides an in-memory implementation of intake.Store.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/linnemanlabs/carepath/internal/intake"
)

// Store holds intake sessions in memory. Suitable for dev/testing and
// single-replica deployments.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*intake.SessionRecord
	ttl      time.Duration
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides intake.DefaultTTL.
func WithTTL(d time.Duration) Option {
	return func(s *Store) { s.ttl = d }
}

// WithClock overrides the clock used to stamp and expire records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New initializes a new in-memory Store.
func New(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*intake.SessionRecord),
		ttl:      intake.DefaultTTL,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get returns a copy of the session state. An expired session is removed
// and reported as absent.
func (s *Store) Get(_ context.Context, id string) (*intake.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sr, ok := s.sessions[id]
	if !ok {
		return nil, false, nil
	}
	if sr.Expired(s.now()) {
		delete(s.sessions, id)
		return nil, false, nil
	}
	return sr.State.Clone(), true, nil
}

// Set stores a copy of r and slides the expiry to now + TTL.
func (s *Store) Set(_ context.Context, id string, r *intake.Record, userID string) error {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &intake.SessionRecord{
		SessionID: id,
		UserID:    userID,
		State:     *r.Clone(),
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	return nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// SweepExpired removes every session expired at now.
func (s *Store) SweepExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sr := range s.sessions {
		if sr.Expired(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// Stats counts active and expired-but-present sessions at now.
func (s *Store) Stats(_ context.Context, now time.Time) (intake.StoreStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st intake.StoreStats
	for _, sr := range s.sessions {
		if sr.Expired(now) {
			st.Expired++
		} else {
			st.Active++
		}
	}
	return st, nil
}
