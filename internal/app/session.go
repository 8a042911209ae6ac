package app

import (
	"time"

	"ctscan-quiz/internal/domain"
	"ctscan-quiz/internal/game"
)

// Session binds a player to the controller running their game.
type Session struct {
	id        string
	player    string
	mode      domain.GameMode
	startedAt time.Time
	ctrl      *game.Controller
}

// NewSession is exported for infrastructure layers and tests.
func NewSession(id, player string, mode domain.GameMode, startedAt time.Time, ctrl *game.Controller) *Session {
	return &Session{id: id, player: player, mode: mode, startedAt: startedAt, ctrl: ctrl}
}

func (s *Session) ID() string { return s.id }
func (s *Session) Player() string { return s.player }
func (s *Session) Mode() domain.GameMode { return s.mode }
func (s *Session) StartedAt() time.Time { return s.startedAt }
func (s *Session) Snapshot() game.Snapshot { return s.ctrl.Snapshot() }
func (s *Session) Ended() bool { return s.ctrl.Snapshot().Ended }

// Close stops the session's timers.
func (s *Session) Close() {
	s.ctrl.Close()
}
