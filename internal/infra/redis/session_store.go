package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ctscan-quiz/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Controllers own live timers, so sessions stay in a local map; Redis holds a
// liveness marker per session (player and mode) that other instances and
// operators can inspect.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	log      *zap.Logger
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration, log *zap.Logger) *SessionStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		log:      log,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
	// the marker is advisory; the local map stays authoritative
	ctx := context.Background()
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key(session.ID()), "player", session.Player(), "mode", string(session.Mode()), "started_at", session.StartedAt().Unix())
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(session.ID()), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn("redis session marker write failed", zap.String("session", session.ID()), zap.Error(err))
	}
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return
	}
	delete(s.sessions, sessionID)
	if err := s.client.Del(context.Background(), s.key(sessionID)).Err(); err != nil {
		s.log.Warn("redis session marker delete failed", zap.String("session", sessionID), zap.Error(err))
	}
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
