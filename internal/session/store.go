// Package session implements the session store (C2): session records keyed
// by a UUIDv4 session id, backed by the unified cache pool, with a
// per-user index of active session ids.
package session

import (
	"fmt"
	"time"

	"github.com/chatbuddy/core/internal/domain"
	"github.com/google/uuid"
)

const namespace = "session"

func sessionKey(sessionID string) string { return "session:" + sessionID }
func userIndexKey(userID string) string  { return "user_sessions:" + userID }

// Store implements domain.SessionStore on top of a domain.CachePool.
type Store struct {
	cache domain.CachePool
	ttl   time.Duration
}

// NewStore builds a session store with the namespace's default TTL (30
// minutes) unless ttl is overridden with a positive value.
func NewStore(cache domain.CachePool, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{cache: cache, ttl: ttl}
}

// CreateSession generates a fresh UUIDv4 session id, writes the session
// record, and appends the id to the user's index.
func (s *Store) CreateSession(ctx domain.Context, userID, deviceInfo, ip, userAgent string) (string, error) {
	now := time.Now()
	sess := domain.Session{
		SessionID:    uuid.NewString(),
		UserID:       userID,
		DeviceInfo:   deviceInfo,
		IP:           ip,
		UserAgent:    userAgent,
		StartedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(s.ttl),
		Context:      map[string]any{},
	}

	if err := s.cache.Set(ctx, sessionKey(sess.SessionID), sess, namespace, s.ttl); err != nil {
		return "", fmt.Errorf("op=session.CreateSession: %w", err)
	}
	if err := s.addToIndex(ctx, userID, sess.SessionID); err != nil {
		return "", fmt.Errorf("op=session.CreateSession: %w", err)
	}
	return sess.SessionID, nil
}

// GetSession reads the session record and bumps last_activity as a
// side-effect of access, rewriting the record under its remaining TTL
// (expires_at is not extended).
func (s *Store) GetSession(ctx domain.Context, sessionID string) (domain.Session, bool, error) {
	var sess domain.Session
	found, err := s.cache.Get(ctx, sessionKey(sessionID), namespace, &sess)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("op=session.GetSession: %w", err)
	}
	if !found {
		return domain.Session{}, false, nil
	}
	if !sess.Active() {
		return domain.Session{}, false, nil
	}

	sess.LastActivity = time.Now()
	if err := s.cache.Set(ctx, sessionKey(sessionID), sess, namespace, time.Until(sess.ExpiresAt)); err != nil {
		return domain.Session{}, false, fmt.Errorf("op=session.GetSession: bump activity: %w", err)
	}
	return sess, true, nil
}

// UpdateSession persists an updated session record under its existing TTL.
func (s *Store) UpdateSession(ctx domain.Context, sess domain.Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		ttl = s.ttl
	}
	if err := s.cache.Set(ctx, sessionKey(sess.SessionID), sess, namespace, ttl); err != nil {
		return fmt.Errorf("op=session.UpdateSession: %w", err)
	}
	return nil
}

// DeleteSession removes the session record and its user-index entry. The
// user id is read from the record, so when the record is already gone the
// index is left as it is; GetUserSessions drops such stale ids on read.
func (s *Store) DeleteSession(ctx domain.Context, sessionID string) error {
	var sess domain.Session
	found, _ := s.cache.Get(ctx, sessionKey(sessionID), namespace, &sess)

	if err := s.cache.Delete(ctx, sessionKey(sessionID), namespace); err != nil {
		return fmt.Errorf("op=session.DeleteSession: %w", err)
	}

	if found {
		if err := s.removeFromIndex(ctx, sess.UserID, sessionID); err != nil {
			return fmt.Errorf("op=session.DeleteSession: %w", err)
		}
	}
	return nil
}

// GetUserSessions returns every active session for userID, filtering any
// index entries whose record has expired or is gone.
func (s *Store) GetUserSessions(ctx domain.Context, userID string) ([]domain.Session, error) {
	ids, err := s.readIndex(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("op=session.GetUserSessions: %w", err)
	}

	sessions := make([]domain.Session, 0, len(ids))
	live := make([]string, 0, len(ids))
	for _, id := range ids {
		var sess domain.Session
		found, err := s.cache.Get(ctx, sessionKey(id), namespace, &sess)
		if err != nil {
			return nil, fmt.Errorf("op=session.GetUserSessions: %w", err)
		}
		if !found || !sess.Active() {
			continue
		}
		sessions = append(sessions, sess)
		live = append(live, id)
	}

	if len(live) != len(ids) {
		if err := s.writeIndex(ctx, userID, live); err != nil {
			return nil, fmt.Errorf("op=session.GetUserSessions: prune index: %w", err)
		}
	}
	return sessions, nil
}

func (s *Store) readIndex(ctx domain.Context, userID string) ([]string, error) {
	var ids []string
	_, err := s.cache.Get(ctx, userIndexKey(userID), namespace, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) writeIndex(ctx domain.Context, userID string, ids []string) error {
	return s.cache.Set(ctx, userIndexKey(userID), ids, namespace, s.ttl)
}

func (s *Store) addToIndex(ctx domain.Context, userID, sessionID string) error {
	ids, err := s.readIndex(ctx, userID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == sessionID {
			return nil
		}
	}
	ids = append(ids, sessionID)
	return s.writeIndex(ctx, userID, ids)
}

func (s *Store) removeFromIndex(ctx domain.Context, userID, sessionID string) error {
	ids, err := s.readIndex(ctx, userID)
	if err != nil {
		return err
	}
	filtered := ids[:0]
	for _, id := range ids {
		if id != sessionID {
			filtered = append(filtered, id)
		}
	}
	return s.writeIndex(ctx, userID, filtered)
}

var _ domain.SessionStore = (*Store)(nil)
