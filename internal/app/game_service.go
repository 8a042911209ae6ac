package app

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"ctscan-quiz/internal/clock"
	"ctscan-quiz/internal/domain"
	"ctscan-quiz/internal/game"
	"ctscan-quiz/internal/leaderboard"
)

// QuestionRepository loads and stores the question bank (cache in front of a
// backing store, or the backing store itself).
type QuestionRepository interface {
	Load(ctx context.Context) ([]domain.Question, error)
	Save(ctx context.Context, questions []domain.Question) error
}

// SessionRepository abstracts where running sessions live (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// StatsRepository accumulates finished games per player.
type StatsRepository interface {
	Record(ctx context.Context, result domain.Result) (domain.PlayerStats, error)
	Get(ctx context.Context, player string) (domain.PlayerStats, error)
}

// LeaderboardSubmitter publishes exam results.
type LeaderboardSubmitter interface {
	Submit(ctx context.Context, result domain.Result) error
}

// Metrics extends the controller counters with service level ones.
type Metrics interface {
	game.Metrics
	LeaderboardFailed()
}

type nopMetrics struct{}

func (nopMetrics) GameStarted(domain.GameMode) {}
func (nopMetrics) GameEnded(domain.EndReason) {}
func (nopMetrics) Answered(string) {}
func (nopMetrics) FinalizationIgnored() {}
func (nopMetrics) LeaderboardFailed() {}

// ServiceOption configures a GameService.
type ServiceOption func(*GameService)

func WithLeaderboard(board LeaderboardSubmitter, timeout time.Duration) ServiceOption {
	return func(s *GameService) {
		s.board = board
		s.submitTimeout = timeout
	}
}

func WithServiceLogger(log *zap.Logger) ServiceOption {
	return func(s *GameService) { s.log = log }
}

func WithServiceMetrics(m Metrics) ServiceOption {
	return func(s *GameService) { s.metrics = m }
}

// WithServiceClock sets the clock shared by every session; tests pass a clock.Manual.
func WithServiceClock(c clock.Clock) ServiceOption {
	return func(s *GameService) { s.clock = c }
}

// WithEndedRetention sets how long a finished session stays readable before it
// is removed from the session repository.
func WithEndedRetention(d time.Duration) ServiceOption {
	return func(s *GameService) { s.endedRetention = d }
}

// WithRandSource makes question draws reproducible.
func WithRandSource(newRand func() *rand.Rand) ServiceOption {
	return func(s *GameService) { s.newRand = newRand }
}

// GameService contains the quiz use cases around individual sessions.
type GameService struct {
	cfg       game.Config
	questions QuestionRepository
	sessions  SessionRepository
	stats     StatsRepository

	board         LeaderboardSubmitter
	submitTimeout time.Duration
	log           *zap.Logger
	metrics       Metrics
	clock         clock.Clock
	newRand       func() *rand.Rand

	endedRetention time.Duration

	// mu orders session replacement and removal, and guards closed.
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewGameService(cfg game.Config, questions QuestionRepository, sessions SessionRepository, stats StatsRepository, opts ...ServiceOption) (*GameService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &GameService{
		cfg:            cfg,
		questions:      questions,
		sessions:       sessions,
		stats:          stats,
		submitTimeout:  5 * time.Second,
		endedRetention: time.Minute,
		log:            zap.NewNop(),
		metrics:        nopMetrics{},
		clock:          clock.System,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// StartGame loads the bank and starts a session for player. An existing
// session with the same id is closed and replaced. listener may be nil.
func (s *GameService) StartGame(ctx context.Context, sessionID, player string, mode domain.GameMode, listener game.Listener) (game.Snapshot, error) {
	if s.isClosed() {
		return game.Snapshot{}, domain.ErrServiceClosed
	}
	bank, err := s.loadBank(ctx)
	if err != nil {
		return game.Snapshot{}, err
	}

	session := NewSession(sessionID, player, mode, s.clock.Now(), nil)
	ctrl, err := game.New(s.cfg, bank,
		game.WithClock(s.clock),
		game.WithRand(s.newRand()),
		game.WithLogger(s.log.With(zap.String("session", sessionID))),
		game.WithMetrics(s.metrics),
		game.WithListener(s.listen(session, listener)),
	)
	if err != nil {
		return game.Snapshot{}, err
	}
	session.ctrl = ctrl

	s.mu.Lock()
	prev, replaced := s.sessions.Get(sessionID)
	if replaced {
		s.sessions.Delete(sessionID)
	}
	s.mu.Unlock()
	if replaced {
		prev.Close()
	}

	if _, err := ctrl.Start(mode); err != nil {
		return game.Snapshot{}, err
	}
	s.mu.Lock()
	s.sessions.Put(session)
	s.mu.Unlock()
	return ctrl.Snapshot(), nil
}

// Select records a tentative answer for the current question.
func (s *GameService) Select(_ context.Context, sessionID, optionID string) (game.Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return game.Snapshot{}, domain.ErrSessionNotFound
	}
	if err := session.ctrl.Select(optionID); err != nil {
		return game.Snapshot{}, err
	}
	return session.ctrl.Snapshot(), nil
}

// Submit finalizes the selected answer.
func (s *GameService) Submit(_ context.Context, sessionID string) (game.Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return game.Snapshot{}, domain.ErrSessionNotFound
	}
	if err := session.ctrl.Submit(); err != nil {
		return game.Snapshot{}, err
	}
	return session.ctrl.Snapshot(), nil
}

// Next moves past a resolved question.
func (s *GameService) Next(_ context.Context, sessionID string) (game.Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return game.Snapshot{}, domain.ErrSessionNotFound
	}
	if err := session.ctrl.Next(); err != nil {
		return game.Snapshot{}, err
	}
	return session.ctrl.Snapshot(), nil
}

func (s *GameService) Snapshot(_ context.Context, sessionID string) (game.Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return game.Snapshot{}, domain.ErrSessionNotFound
	}
	return session.ctrl.Snapshot(), nil
}

// Abandon stops a session without recording a result.
func (s *GameService) Abandon(_ context.Context, sessionID string) {
	s.mu.Lock()
	session, ok := s.sessions.Get(sessionID)
	if ok {
		s.sessions.Delete(sessionID)
	}
	s.mu.Unlock()
	if ok {
		session.Close()
	}
}

// Stats returns the accumulated statistics of player.
func (s *GameService) Stats(ctx context.Context, player string) (domain.PlayerStats, error) {
	return s.stats.Get(ctx, player)
}

// Questions returns the current bank, falling back to the built-in one.
func (s *GameService) Questions(ctx context.Context) ([]domain.Question, error) {
	return s.loadBank(ctx)
}

// SaveQuestions validates and stores a new bank. Running sessions keep the
// bank they started with.
func (s *GameService) SaveQuestions(ctx context.Context, questions []domain.Question) error {
	if err := domain.ValidateBank(questions); err != nil {
		return err
	}
	return s.questions.Save(ctx, questions)
}

// Wait blocks until background result processing has finished. Tests call it
// between games; shutdown uses Close.
func (s *GameService) Wait() {
	s.wg.Wait()
}

// Close stops accepting games and waits for pending results. Games that end
// afterwards are not recorded.
func (s *GameService) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *GameService) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *GameService) loadBank(ctx context.Context) ([]domain.Question, error) {
	bank, err := s.questions.Load(ctx)
	switch {
	case errors.Is(err, domain.ErrBankNotFound):
		s.log.Info("no stored question bank, using built-in questions")
		return domain.SeedQuestions(), nil
	case err != nil:
		return nil, err
	}
	if err := domain.ValidateBank(bank); err != nil {
		s.log.Warn("stored question bank is invalid, using built-in questions", zap.Error(err))
		return domain.SeedQuestions(), nil
	}
	return bank, nil
}

// listen wraps the caller's listener. It runs under the controller lock, so
// result handling is moved to a goroutine.
func (s *GameService) listen(session *Session, next game.Listener) game.Listener {
	return func(ev game.Event) {
		if next != nil {
			next(ev)
		}
		if ev.Kind != game.EventEnded {
			return
		}
		s.clock.AfterFunc(s.endedRetention, func() { s.remove(session) })

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			s.log.Warn("service closed, result dropped", zap.String("session", session.ID()))
			return
		}
		s.wg.Add(1)
		s.mu.Unlock()

		result := s.buildResult(session.Player(), ev.Snapshot)
		go func() {
			defer s.wg.Done()
			s.finish(session.ID(), result)
		}()
	}
}

// remove drops an ended session unless it was already replaced.
func (s *GameService) remove(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.sessions.Get(session.ID()); ok && cur == session {
		s.sessions.Delete(session.ID())
	}
}

func (s *GameService) buildResult(player string, snap game.Snapshot) domain.Result {
	at := s.clock.Now()
	return domain.Result{
		PlayerName:          player,
		Score:               snap.Score,
		TotalQuestions:      snap.Answered,
		CorrectAnswers:      snap.Correct,
		Percentage:          domain.Percentage(snap.Correct, snap.Answered),
		GameMode:            snap.Mode,
		IncorrectlyAnswered: snap.Incorrect,
		CompletedAt:         at,
		SubmissionID:        leaderboard.NewSubmissionID(at),
		MaxLevel:            snap.Level,
		EndReason:           snap.EndReason,
	}
}

func (s *GameService) finish(sessionID string, result domain.Result) {
	log := s.log.With(zap.String("session", sessionID), zap.String("player", result.PlayerName))

	if _, err := s.stats.Record(context.Background(), result); err != nil {
		log.Error("record player stats", zap.Error(err))
	}

	if result.GameMode != domain.ModeExam || s.board == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.submitTimeout)
	defer cancel()
	if err := s.board.Submit(ctx, result); err != nil {
		s.metrics.LeaderboardFailed()
		log.Warn("leaderboard submit failed", zap.Error(err))
		return
	}
	log.Info("result submitted to leaderboard",
		zap.String("submission", result.SubmissionID),
		zap.Int("score", result.Score),
	)
}
