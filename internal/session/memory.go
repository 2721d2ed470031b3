// Package session holds the token-to-user bindings in process memory,
// deliberately outside the relational store. A session carries only the
// user id; callers re-resolve the full user record on every request.
package session

import (
	"sync"
	"time"

	"picshare/internal/auth"
)

type entry struct {
	userID    int64
	createdAt time.Time
	lastSeen  time.Time
}

type Store struct {
	mu       sync.Mutex
	sessions map[string]entry
	idle     time.Duration
	absolute time.Duration
	lastGC   time.Time
	now      func() time.Time
}

func NewStore(idle, absolute time.Duration) *Store {
	return &Store{
		sessions: map[string]entry{},
		idle:     idle,
		absolute: absolute,
		lastGC:   time.Now().UTC(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create binds a fresh opaque token to the user id and returns the raw
// token for the cookie. Only the token's hash is kept.
func (s *Store) Create(userID int64) (string, error) {
	raw, hash, err := auth.NewOpaqueToken()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.gcLocked(now)
	s.sessions[hash] = entry{userID: userID, createdAt: now, lastSeen: now}
	return raw, nil
}

// Resolve maps a raw token back to a user id, refreshing the idle
// window. Expired or unknown tokens resolve to anonymous.
func (s *Store) Resolve(rawToken string) (int64, bool) {
	hash := auth.HashToken(rawToken)
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	e, ok := s.sessions[hash]
	if !ok {
		return 0, false
	}
	if now.Sub(e.lastSeen) >= s.idle || now.Sub(e.createdAt) >= s.absolute {
		delete(s.sessions, hash)
		return 0, false
	}
	e.lastSeen = now
	s.sessions[hash] = e
	return e.userID, true
}

// Revoke destroys a session; revoking an unknown token is a no-op.
func (s *Store) Revoke(rawToken string) {
	hash := auth.HashToken(rawToken)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, hash)
}

// RevokeUser drops every session bound to the user.
func (s *Store) RevokeUser(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, e := range s.sessions {
		if e.userID == userID {
			delete(s.sessions, hash)
		}
	}
}

func (s *Store) gcLocked(now time.Time) {
	if now.Sub(s.lastGC) < time.Minute {
		return
	}
	for hash, e := range s.sessions {
		if now.Sub(e.lastSeen) >= s.idle || now.Sub(e.createdAt) >= s.absolute {
			delete(s.sessions, hash)
		}
	}
	s.lastGC = now
}
