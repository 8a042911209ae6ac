// Package game drives a single quiz session: question sequencing, scoring,
// lives, levels and the per-question countdown.
package game

import (
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"ctscan-quiz/internal/clock"
	"ctscan-quiz/internal/domain"
	"ctscan-quiz/internal/timer"
)

// Metrics receives counters from the controller.
type Metrics interface {
	GameStarted(mode domain.GameMode)
	GameEnded(reason domain.EndReason)
	Answered(result string)
	FinalizationIgnored()
}

// Answer results reported to Metrics.
const (
	ResultCorrect   = "correct"
	ResultIncorrect = "incorrect"
	ResultTimedOut  = "timed_out"
)

type nopMetrics struct{}

func (nopMetrics) GameStarted(domain.GameMode) {}
func (nopMetrics) GameEnded(domain.EndReason) {}
func (nopMetrics) Answered(string) {}
func (nopMetrics) FinalizationIgnored() {}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the tick source; tests pass a clock.Manual.
func WithClock(c clock.Clock) Option {
	return func(ctrl *Controller) { ctrl.clock = c }
}

// WithRand sets the shuffle source.
func WithRand(rnd *rand.Rand) Option {
	return func(ctrl *Controller) { ctrl.rnd = rnd }
}

func WithLogger(log *zap.Logger) Option {
	return func(ctrl *Controller) { ctrl.log = log }
}

func WithListener(l Listener) Option {
	return func(ctrl *Controller) { ctrl.listener = l }
}

func WithMetrics(m Metrics) Option {
	return func(ctrl *Controller) { ctrl.metrics = m }
}

type transition int

const (
	transitionNone transition = iota
	transitionAdvance
	transitionLevelUp
)

// Controller owns one quiz session. All transitions happen under mu; the
// sequence number seq identifies the live question so late timer callbacks
// for an earlier question are dropped.
type Controller struct {
	cfg      Config
	bank     []domain.Question
	clock    clock.Clock
	rnd      *rand.Rand
	log      *zap.Logger
	listener Listener
	metrics  Metrics

	mu            sync.Mutex
	seq           uint64
	state         State
	mode          domain.GameMode
	level         int
	levelsVisited []int
	questions     []domain.Question
	index         int
	score         int
	lives         int
	selected      string
	countdown     *timer.Countdown
	remaining     int
	lastOutcome   *domain.Outcome
	incorrect     []domain.IncorrectAnswer
	answered      int
	correct       int
	ignored       int
	endReason     domain.EndReason
	pending       transition
	nextLevel     []domain.Question
	advanceTimer  clock.Timer
}

// New validates cfg and returns an idle controller over a read-only bank.
func New(cfg Config, bank []domain.Question, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		cfg:     cfg,
		bank:    bank,
		clock:   clock.System,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		log:     zap.NewNop(),
		metrics: nopMetrics{},
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start discards any previous session and prepares a new one in mode. It
// returns the number of questions prepared for the first level; zero comes
// with domain.ErrNoQuestions and leaves the controller idle.
func (c *Controller) Start(mode domain.GameMode) (int, error) {
	if !mode.Valid() {
		return 0, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidConfig, mode)
	}

	c.mu.Lock()
	c.haltLocked()
	c.seq++
	c.resetLocked()

	questions := c.drawLocked(1)
	if len(questions) == 0 {
		c.mu.Unlock()
		c.log.Warn("no questions available to start a game", zap.String("mode", string(mode)))
		return 0, domain.ErrNoQuestions
	}

	c.mode = mode
	c.level = 1
	c.levelsVisited = []int{1}
	c.questions = questions
	if c.cfg.LivesEnabled {
		c.lives = c.cfg.InitialLives
	}
	c.metrics.GameStarted(mode)
	c.log.Info("game started", zap.String("mode", string(mode)), zap.Int("questions", len(questions)))

	start := c.beginQuestionLocked()
	c.mu.Unlock()

	start()
	return len(questions), nil
}

// Select records the option the player is leaning towards. The choice can
// change until the question is finalized.
func (c *Controller) Select(optionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateEnded:
		return domain.ErrSessionEnded
	case StateAwaitingSelection, StateAwaitingSubmission:
	default:
		return domain.ErrNotPlaying
	}
	if !c.questions[c.index].HasOption(optionID) {
		return domain.ErrOptionNotFound
	}
	c.selected = optionID
	c.state = StateAwaitingSubmission
	if c.cfg.AnswerFlow == FlowSelect {
		c.finalizeLocked(false)
	}
	return nil
}

// Submit finalizes the selected option. Submitting after the question was
// already finalized is ignored and counted.
func (c *Controller) Submit() error {
	c.mu.Lock()
	var start func()
	defer func() {
		c.mu.Unlock()
		if start != nil {
			start()
		}
	}()

	switch c.state {
	case StateResolved, StateEnded:
		c.ignoreLocked("submit")
		return nil
	case StateIdle:
		return domain.ErrNotPlaying
	case StateAwaitingSelection:
		return domain.ErrNoSelection
	}
	start = c.finalizeLocked(false)
	return nil
}

// Next leaves a resolved question. Practice sessions call it after showing
// feedback; exam sessions advance on their own but accept it early.
func (c *Controller) Next() error {
	c.mu.Lock()
	switch c.state {
	case StateEnded:
		c.mu.Unlock()
		return domain.ErrSessionEnded
	case StateResolved:
	default:
		c.mu.Unlock()
		return domain.ErrNotResolved
	}
	start := c.advanceLocked()
	c.mu.Unlock()

	if start != nil {
		start()
	}
	return nil
}

// Close stops the countdown and any pending auto-advance.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.haltLocked()
	c.seq++
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// onTick handles a countdown update. A countdown that outlived its question
// is stopped on its first stale tick.
func (c *Controller) onTick(seq uint64, cd *timer.Countdown, remaining int) {
	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		cd.Stop()
		return
	}
	if c.state != StateAwaitingSelection && c.state != StateAwaitingSubmission {
		c.mu.Unlock()
		return
	}
	c.remaining = remaining
	c.emitLocked(Event{Kind: EventTick, Remaining: remaining, Band: c.bandLocked()})
	c.mu.Unlock()
}

func (c *Controller) onTimeUp(seq uint64) func() {
	return func() {
		c.mu.Lock()
		var start func()
		defer func() {
			c.mu.Unlock()
			if start != nil {
				start()
			}
		}()

		if seq != c.seq {
			return
		}
		if c.state != StateAwaitingSelection && c.state != StateAwaitingSubmission {
			c.ignoreLocked("timeout")
			return
		}
		start = c.finalizeLocked(true)
	}
}

func (c *Controller) onAutoAdvance(seq uint64) func() {
	return func() {
		c.mu.Lock()
		var start func()
		if seq == c.seq && c.state == StateResolved {
			c.advanceTimer = nil
			start = c.advanceLocked()
		}
		c.mu.Unlock()
		if start != nil {
			start()
		}
	}
}

// beginQuestionLocked presents questions[index]. The returned function starts
// the countdown and must run after mu is released, because the countdown
// reports its first value synchronously.
func (c *Controller) beginQuestionLocked() func() {
	c.seq++
	seq := c.seq
	c.state = StateAwaitingSelection
	c.selected = ""

	duration := c.cfg.TimeFor(c.level)
	var cd *timer.Countdown
	cd = timer.New(c.clock, func(remaining int) { c.onTick(seq, cd, remaining) }, c.onTimeUp(seq))
	cd.Reset(strconv.FormatUint(seq, 10), duration)
	c.countdown = cd
	c.remaining = duration

	c.emitLocked(Event{Kind: EventQuestion, Remaining: duration, Band: timer.BandSafe})
	return func() { cd.SetPlaying(true) }
}

// finalizeLocked resolves the live question exactly once. A timed-out
// question discards any pending selection.
func (c *Controller) finalizeLocked(timedOut bool) func() {
	q := c.questions[c.index]
	remaining := 0
	if c.countdown != nil {
		c.countdown.Stop()
		if !timedOut {
			remaining = c.countdown.Remaining()
		}
	}
	c.remaining = remaining

	selected := c.selected
	if timedOut {
		selected = domain.TimedOut
	}
	correct := !timedOut && selected == q.CorrectOptionID
	points := c.cfg.Points(correct, remaining)

	c.score += points
	c.answered++
	result := ResultCorrect
	if correct {
		c.correct++
	} else {
		result = ResultIncorrect
		if timedOut {
			result = ResultTimedOut
		}
		c.incorrect = append(c.incorrect, domain.IncorrectAnswer{
			Question:         q,
			SelectedOptionID: selected,
			TimeRemaining:    remaining,
		})
		if c.cfg.LivesEnabled && c.lives > 0 {
			c.lives--
		}
	}
	c.metrics.Answered(result)

	outcome := &domain.Outcome{
		QuestionID:       q.ID,
		SelectedOptionID: selected,
		CorrectOptionID:  q.CorrectOptionID,
		Correct:          correct,
		TimedOut:         timedOut,
		TimeRemaining:    remaining,
		Points:           points,
		RevealCorrect:    c.mode == domain.ModePractice,
	}
	c.lastOutcome = outcome
	c.selected = ""
	c.state = StateResolved

	reason := c.planLocked()
	c.emitLocked(Event{Kind: EventResolved, Remaining: remaining, Band: c.bandLocked(), Outcome: outcome})
	if reason != domain.EndNone {
		c.endLocked(reason)
		return nil
	}

	if c.mode == domain.ModeExam {
		c.advanceTimer = c.clock.AfterFunc(c.cfg.FeedbackDelay, c.onAutoAdvance(c.seq))
		return nil
	}
	if timedOut {
		return c.advanceLocked()
	}
	return nil
}

// planLocked decides what follows the resolved question. It returns a
// non-empty reason when the session must end now.
func (c *Controller) planLocked() domain.EndReason {
	c.pending = transitionNone
	c.nextLevel = nil

	if c.cfg.LivesEnabled && c.lives <= 0 {
		return domain.EndExhaustedLives
	}
	if c.index < len(c.questions)-1 {
		c.pending = transitionAdvance
		return domain.EndNone
	}
	if !c.cfg.LevelsEnabled || c.level >= c.cfg.MaxLevel {
		return domain.EndExhaustedQuestions
	}
	next := c.drawLocked(c.level + 1)
	if len(next) == 0 {
		c.log.Warn("no questions available for next level, ending game", zap.Int("level", c.level+1))
		return domain.EndExhaustedQuestions
	}
	c.pending = transitionLevelUp
	c.nextLevel = next
	return domain.EndNone
}

func (c *Controller) advanceLocked() func() {
	if c.advanceTimer != nil {
		c.advanceTimer.Stop()
		c.advanceTimer = nil
	}
	switch c.pending {
	case transitionAdvance:
		c.index++
	case transitionLevelUp:
		c.level++
		c.levelsVisited = append(c.levelsVisited, c.level)
		c.questions = c.nextLevel
		c.index = 0
		c.log.Info("level up", zap.Int("level", c.level), zap.Int("questions", len(c.questions)))
		c.emitLocked(Event{Kind: EventLevelUp, Band: timer.BandSafe})
	default:
		return nil
	}
	c.pending = transitionNone
	c.nextLevel = nil
	return c.beginQuestionLocked()
}

func (c *Controller) endLocked(reason domain.EndReason) {
	c.haltLocked()
	c.state = StateEnded
	c.endReason = reason
	c.metrics.GameEnded(reason)
	c.log.Info("game ended",
		zap.String("reason", string(reason)),
		zap.Int("score", c.score),
		zap.Int("answered", c.answered),
		zap.Int("level", c.level),
	)
	c.emitLocked(Event{Kind: EventEnded, Band: c.bandLocked()})
}

func (c *Controller) resetLocked() {
	c.state = StateIdle
	c.mode = ""
	c.level = 0
	c.levelsVisited = nil
	c.questions = nil
	c.index = 0
	c.score = 0
	c.lives = 0
	c.selected = ""
	c.countdown = nil
	c.remaining = 0
	c.lastOutcome = nil
	c.incorrect = nil
	c.answered = 0
	c.correct = 0
	c.ignored = 0
	c.endReason = domain.EndNone
	c.pending = transitionNone
	c.nextLevel = nil
}

func (c *Controller) haltLocked() {
	if c.countdown != nil {
		c.countdown.Stop()
	}
	if c.advanceTimer != nil {
		c.advanceTimer.Stop()
		c.advanceTimer = nil
	}
}

func (c *Controller) ignoreLocked(source string) {
	c.ignored++
	c.metrics.FinalizationIgnored()
	c.log.Debug("finalization ignored, question already resolved",
		zap.String("source", source),
		zap.Int("ignored", c.ignored),
	)
}

func (c *Controller) drawLocked(level int) []domain.Question {
	return Draw(c.bank, level, c.cfg.QuestionsPerLevel, c.cfg.LevelsEnabled, c.rnd)
}

func (c *Controller) bandLocked() timer.Band {
	duration := c.cfg.TimeFor(c.level)
	return timer.BandFor(float64(c.remaining) / float64(duration))
}

func (c *Controller) emitLocked(ev Event) {
	if c.listener == nil {
		return
	}
	ev.Snapshot = c.snapshotLocked()
	c.listener(ev)
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:                c.state,
		Mode:                 c.mode,
		Level:                c.level,
		LevelsVisited:        append([]int(nil), c.levelsVisited...),
		Lives:                c.lives,
		Score:                c.score,
		QuestionIndex:        c.index,
		QuestionCount:        len(c.questions),
		SelectedOptionID:     c.selected,
		Remaining:            c.remaining,
		Incorrect:            append([]domain.IncorrectAnswer(nil), c.incorrect...),
		Answered:             c.answered,
		Correct:              c.correct,
		IgnoredFinalizations: c.ignored,
		Ended:                c.state == StateEnded,
		EndReason:            c.endReason,
	}
	if c.cfg.LevelsEnabled {
		snap.MaxLevel = c.cfg.MaxLevel
	}
	if c.state != StateIdle && c.level > 0 {
		snap.Duration = c.cfg.TimeFor(c.level)
		snap.Band = c.bandLocked()
	}
	if c.state != StateIdle && c.state != StateEnded && c.index < len(c.questions) {
		q := c.questions[c.index]
		snap.Question = &q
	}
	if c.lastOutcome != nil {
		o := *c.lastOutcome
		snap.LastOutcome = &o
	}
	return snap
}
