package game

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"ctscan-quiz/internal/clock"
	"ctscan-quiz/internal/domain"
)

type harness struct {
	ctrl   *Controller
	clock  *clock.Manual
	events []Event
}

func newHarness(t *testing.T, cfg Config, bank []domain.Question) *harness {
	t.Helper()
	h := &harness{clock: clock.NewManual(time.Unix(0, 0))}
	ctrl, err := New(cfg, bank,
		WithClock(h.clock),
		WithRand(rand.New(rand.NewSource(7))),
		WithListener(func(ev Event) { h.events = append(h.events, ev) }),
	)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	h.ctrl = ctrl
	return h
}

func (h *harness) start(t *testing.T, mode domain.GameMode) int {
	t.Helper()
	n, err := h.ctrl.Start(mode)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return n
}

func (h *harness) answer(t *testing.T, optionID string) {
	t.Helper()
	if err := h.ctrl.Select(optionID); err != nil {
		t.Fatalf("select %s: %v", optionID, err)
	}
	if err := h.ctrl.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
}

func (h *harness) current(t *testing.T) domain.Question {
	t.Helper()
	snap := h.ctrl.Snapshot()
	if snap.Question == nil {
		t.Fatalf("expected a current question in state %s", snap.State)
	}
	return *snap.Question
}

func (h *harness) kinds() []EventKind {
	kinds := make([]EventKind, 0, len(h.events))
	for _, ev := range h.events {
		if ev.Kind != EventTick {
			kinds = append(kinds, ev.Kind)
		}
	}
	return kinds
}

// levelBank builds perLevel questions for each level; option "a" is always correct.
func levelBank(levels, perLevel int) []domain.Question {
	var bank []domain.Question
	for level := 1; level <= levels; level++ {
		for i := 1; i <= perLevel; i++ {
			bank = append(bank, domain.Question{
				ID:              fmt.Sprintf("l%d-q%d", level, i),
				Text:            fmt.Sprintf("level %d question %d", level, i),
				Options:         []domain.Option{{ID: "a", Text: "right"}, {ID: "b", Text: "wrong"}},
				CorrectOptionID: "a",
				Level:           level,
			})
		}
	}
	return bank
}

func singleLevelConfig(questions, lives int) Config {
	cfg := DefaultConfig()
	cfg.QuestionsPerLevel = questions
	cfg.MaxLevel = 1
	cfg.InitialLives = lives
	return cfg
}

func TestConcreteScenarioPracticeCorrectThenTimeout(t *testing.T) {
	h := newHarness(t, singleLevelConfig(2, 5), levelBank(1, 2))
	if n := h.start(t, domain.ModePractice); n != 2 {
		t.Fatalf("expected 2 prepared questions, got %d", n)
	}

	h.clock.Advance(5 * time.Second)
	q1 := h.current(t)
	h.answer(t, q1.CorrectOptionID)

	snap := h.ctrl.Snapshot()
	if snap.Score != 10 {
		t.Fatalf("expected score 10 with 25s remaining, got %d", snap.Score)
	}
	if snap.LastOutcome == nil || !snap.LastOutcome.Correct || snap.LastOutcome.TimeRemaining != 25 {
		t.Fatalf("unexpected outcome %+v", snap.LastOutcome)
	}
	if !snap.LastOutcome.RevealCorrect {
		t.Fatalf("practice mode must reveal the correct option")
	}
	if snap.State != StateResolved {
		t.Fatalf("practice mode must wait for next, state=%s", snap.State)
	}

	if err := h.ctrl.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	h.clock.Advance(30 * time.Second)

	snap = h.ctrl.Snapshot()
	if snap.Lives != 4 {
		t.Fatalf("expected 4 lives, got %d", snap.Lives)
	}
	if snap.Score != 10 {
		t.Fatalf("expected score to stay 10, got %d", snap.Score)
	}
	if len(snap.Incorrect) != 1 || snap.Incorrect[0].SelectedOptionID != domain.TimedOut {
		t.Fatalf("expected one timed out review item, got %+v", snap.Incorrect)
	}
	if !snap.Ended || snap.EndReason != domain.EndExhaustedQuestions {
		t.Fatalf("expected exhausted-questions, got ended=%v reason=%q", snap.Ended, snap.EndReason)
	}
}

func TestTimeBasedScoringThreshold(t *testing.T) {
	cfg := singleLevelConfig(2, 5)
	h := newHarness(t, cfg, levelBank(1, 2))
	h.start(t, domain.ModePractice)

	h.clock.Advance(10 * time.Second) // 20 remaining
	h.answer(t, "a")
	if got := h.ctrl.Snapshot().Score; got != 10 {
		t.Fatalf("expected 10 points at exactly 20s, got %d", got)
	}
	if err := h.ctrl.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}

	h.clock.Advance(11 * time.Second) // 19 remaining
	h.answer(t, "a")
	if got := h.ctrl.Snapshot().Score; got != 15 {
		t.Fatalf("expected 5 more points at 19s, got total %d", got)
	}
}

func TestFlatScoring(t *testing.T) {
	cfg := singleLevelConfig(1, 5)
	cfg.Scoring = ScoringFlat
	h := newHarness(t, cfg, levelBank(1, 1))
	h.start(t, domain.ModePractice)

	h.clock.Advance(25 * time.Second)
	h.answer(t, "a")
	if got := h.ctrl.Snapshot().Score; got != 10 {
		t.Fatalf("expected flat 10 points, got %d", got)
	}
}

func TestScoreEqualsSumOfAwardedPoints(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for trial := 0; trial < 25; trial++ {
		cfg := singleLevelConfig(8, 100)
		h := newHarness(t, cfg, levelBank(1, 8))
		h.start(t, domain.ModeExam)

		expected := 0
		previous := 0
		for i := 0; i < 8; i++ {
			wait := rnd.Intn(32)
			h.clock.Advance(time.Duration(wait) * time.Second)
			snap := h.ctrl.Snapshot()
			if snap.State == StateAwaitingSelection {
				option := "b"
				if rnd.Intn(2) == 0 {
					option = "a"
				}
				h.answer(t, option)
				snap = h.ctrl.Snapshot()
			}
			expected += snap.LastOutcome.Points
			if snap.LastOutcome.Correct {
				want := 5
				if snap.LastOutcome.TimeRemaining >= 20 {
					want = 10
				}
				if snap.LastOutcome.Points != want {
					t.Fatalf("trial %d: wrong points %d for %ds remaining", trial, snap.LastOutcome.Points, snap.LastOutcome.TimeRemaining)
				}
			} else if snap.LastOutcome.Points != 0 {
				t.Fatalf("trial %d: incorrect answer awarded %d", trial, snap.LastOutcome.Points)
			}
			if snap.Score < previous {
				t.Fatalf("trial %d: score decreased from %d to %d", trial, previous, snap.Score)
			}
			previous = snap.Score
			if snap.Ended {
				break
			}
			h.clock.Advance(cfg.FeedbackDelay)
		}
		if got := h.ctrl.Snapshot().Score; got != expected {
			t.Fatalf("trial %d: expected score %d, got %d", trial, expected, got)
		}
	}
}

func TestSubmitAfterTimeoutIsIgnored(t *testing.T) {
	h := newHarness(t, singleLevelConfig(2, 5), levelBank(1, 2))
	h.start(t, domain.ModeExam)

	h.clock.Advance(30 * time.Second)
	snap := h.ctrl.Snapshot()
	if snap.State != StateResolved || !snap.LastOutcome.TimedOut {
		t.Fatalf("expected timed out resolution, got %s %+v", snap.State, snap.LastOutcome)
	}

	if err := h.ctrl.Select("a"); !errors.Is(err, domain.ErrNotPlaying) {
		t.Fatalf("expected select to be rejected after resolution, got %v", err)
	}
	if err := h.ctrl.Submit(); err != nil {
		t.Fatalf("late submit must be a silent no-op, got %v", err)
	}

	snap = h.ctrl.Snapshot()
	if snap.Score != 0 || len(snap.Incorrect) != 1 || snap.Answered != 1 {
		t.Fatalf("late submit changed the session: %+v", snap)
	}
	if snap.IgnoredFinalizations != 1 {
		t.Fatalf("expected 1 ignored finalization, got %d", snap.IgnoredFinalizations)
	}
}

func TestTimeoutAfterSubmitIsIgnored(t *testing.T) {
	h := newHarness(t, singleLevelConfig(2, 5), levelBank(1, 2))
	h.start(t, domain.ModePractice)

	h.ctrl.mu.Lock()
	seq := h.ctrl.seq
	timeUp := h.ctrl.onTimeUp(seq)
	h.ctrl.mu.Unlock()

	h.answer(t, "a")
	timeUp() // expiry racing the submission in the same tick window

	snap := h.ctrl.Snapshot()
	if snap.Score != 10 || len(snap.Incorrect) != 0 || snap.Lives != 5 || snap.Answered != 1 {
		t.Fatalf("late timeout changed the session: %+v", snap)
	}
	if snap.IgnoredFinalizations != 1 {
		t.Fatalf("expected 1 ignored finalization, got %d", snap.IgnoredFinalizations)
	}

	if err := h.ctrl.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	timeUp() // a callback from the previous question must not touch the new one
	snap = h.ctrl.Snapshot()
	if snap.State != StateAwaitingSelection || snap.Answered != 1 {
		t.Fatalf("stale timeout affected the next question: %+v", snap)
	}
}

func TestSubmitWithoutSelectionIsRejected(t *testing.T) {
	h := newHarness(t, singleLevelConfig(2, 5), levelBank(1, 2))
	if err := h.ctrl.Submit(); !errors.Is(err, domain.ErrNotPlaying) {
		t.Fatalf("expected ErrNotPlaying before start, got %v", err)
	}
	h.start(t, domain.ModePractice)

	if err := h.ctrl.Submit(); !errors.Is(err, domain.ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
	if err := h.ctrl.Select("zzz"); !errors.Is(err, domain.ErrOptionNotFound) {
		t.Fatalf("expected ErrOptionNotFound, got %v", err)
	}
	snap := h.ctrl.Snapshot()
	if snap.State != StateAwaitingSelection || snap.Answered != 0 {
		t.Fatalf("invalid submission changed state: %+v", snap)
	}
	if err := h.ctrl.Next(); !errors.Is(err, domain.ErrNotResolved) {
		t.Fatalf("expected ErrNotResolved, got %v", err)
	}
}

func TestSelectionCanChangeUntilSubmitted(t *testing.T) {
	h := newHarness(t, singleLevelConfig(1, 5), levelBank(1, 1))
	h.start(t, domain.ModePractice)

	if err := h.ctrl.Select("b"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if got := h.ctrl.Snapshot().State; got != StateAwaitingSubmission {
		t.Fatalf("expected awaiting submission, got %s", got)
	}
	if err := h.ctrl.Select("a"); err != nil {
		t.Fatalf("reselect: %v", err)
	}
	if err := h.ctrl.Submit(); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out := h.ctrl.Snapshot().LastOutcome; out == nil || !out.Correct || out.SelectedOptionID != "a" {
		t.Fatalf("expected final selection a to count, got %+v", out)
	}
}

func TestTimeoutDiscardsPendingSelection(t *testing.T) {
	h := newHarness(t, singleLevelConfig(2, 5), levelBank(1, 2))
	h.start(t, domain.ModeExam)

	if err := h.ctrl.Select("a"); err != nil {
		t.Fatalf("select: %v", err)
	}
	h.clock.Advance(30 * time.Second)

	snap := h.ctrl.Snapshot()
	out := snap.LastOutcome
	if out == nil || !out.TimedOut || out.Correct || out.SelectedOptionID != domain.TimedOut || out.Points != 0 {
		t.Fatalf("expected timed_out sentinel outcome, got %+v", out)
	}
	if snap.Lives != 4 {
		t.Fatalf("expected a life lost, got %d", snap.Lives)
	}
}

func TestAutoFinalizeOnSelectFlow(t *testing.T) {
	cfg := singleLevelConfig(2, 5)
	cfg.AnswerFlow = FlowSelect
	h := newHarness(t, cfg, levelBank(1, 2))
	h.start(t, domain.ModePractice)

	if err := h.ctrl.Select("b"); err != nil {
		t.Fatalf("select: %v", err)
	}
	snap := h.ctrl.Snapshot()
	if snap.State != StateResolved || snap.LastOutcome.Correct {
		t.Fatalf("expected immediate incorrect resolution, got %s %+v", snap.State, snap.LastOutcome)
	}
}

func TestLivesExhaustionEndsSession(t *testing.T) {
	cfg := singleLevelConfig(10, 3)
	h := newHarness(t, cfg, levelBank(1, 10))
	h.start(t, domain.ModePractice)

	pattern := []string{"b", "a", "b", "a", "b"}
	for i, option := range pattern {
		h.answer(t, option)
		snap := h.ctrl.Snapshot()
		if i < len(pattern)-1 {
			if snap.Ended {
				t.Fatalf("session ended early after answer %d", i+1)
			}
			if err := h.ctrl.Next(); err != nil {
				t.Fatalf("next: %v", err)
			}
		}
	}

	snap := h.ctrl.Snapshot()
	if !snap.Ended || snap.EndReason != domain.EndExhaustedLives {
		t.Fatalf("expected exhausted-lives, got ended=%v reason=%q", snap.Ended, snap.EndReason)
	}
	if snap.Lives != 0 || snap.Answered != 5 || len(snap.Incorrect) != 3 {
		t.Fatalf("unexpected final state %+v", snap)
	}
	if snap.Question != nil {
		t.Fatalf("no question may be presented after the end")
	}
	if err := h.ctrl.Next(); !errors.Is(err, domain.ErrSessionEnded) {
		t.Fatalf("expected ErrSessionEnded, got %v", err)
	}
	if err := h.ctrl.Select("a"); !errors.Is(err, domain.ErrSessionEnded) {
		t.Fatalf("expected ErrSessionEnded, got %v", err)
	}
	h.clock.Advance(time.Minute)
	if got := h.ctrl.Snapshot().Answered; got != 5 {
		t.Fatalf("timer kept running after the end, answered=%d", got)
	}
}

func TestLivesDisabledNeverEndsOnMistakes(t *testing.T) {
	cfg := singleLevelConfig(4, 1)
	cfg.LivesEnabled = false
	h := newHarness(t, cfg, levelBank(1, 4))
	h.start(t, domain.ModePractice)

	for i := 0; i < 4; i++ {
		h.answer(t, "b")
		if i < 3 {
			if err := h.ctrl.Next(); err != nil {
				t.Fatalf("next after answer %d: %v", i+1, err)
			}
		}
	}
	snap := h.ctrl.Snapshot()
	if snap.EndReason != domain.EndExhaustedQuestions || len(snap.Incorrect) != 4 {
		t.Fatalf("expected all questions answered, got %+v", snap)
	}
}

func TestLevelProgressionVisitsEachLevelOnce(t *testing.T) {
	cfg := DefaultConfig()
	h := newHarness(t, cfg, levelBank(3, 10))
	h.start(t, domain.ModePractice)

	var seenLevels []int
	for i := 0; i < 30; i++ {
		q := h.current(t)
		snap := h.ctrl.Snapshot()
		if q.Level != snap.Level {
			t.Fatalf("question %s from level %d shown at level %d", q.ID, q.Level, snap.Level)
		}
		if len(seenLevels) == 0 || seenLevels[len(seenLevels)-1] != q.Level {
			seenLevels = append(seenLevels, q.Level)
		}
		option := "a"
		if i%8 == 0 {
			option = "b" // four mistakes, one life left
		}
		h.answer(t, option)
		if i < 29 {
			if err := h.ctrl.Next(); err != nil {
				t.Fatalf("next after %d: %v", i+1, err)
			}
		}
	}

	snap := h.ctrl.Snapshot()
	if !snap.Ended || snap.EndReason != domain.EndExhaustedQuestions {
		t.Fatalf("expected exhausted-questions, got %q", snap.EndReason)
	}
	if fmt.Sprint(seenLevels) != "[1 2 3]" || fmt.Sprint(snap.LevelsVisited) != "[1 2 3]" {
		t.Fatalf("expected levels 1,2,3 once each, got seen=%v visited=%v", seenLevels, snap.LevelsVisited)
	}
	if snap.Answered != 30 || snap.Lives != 1 {
		t.Fatalf("unexpected totals %+v", snap)
	}

	var levelUps int
	for _, k := range h.kinds() {
		if k == EventLevelUp {
			levelUps++
		}
	}
	if levelUps != 2 {
		t.Fatalf("expected 2 level_up events, got %d", levelUps)
	}
}

func TestPerLevelTimeBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QuestionsPerLevel = 1
	cfg.LevelTimes = map[int]int{2: 15}
	h := newHarness(t, cfg, levelBank(2, 1))
	h.start(t, domain.ModePractice)

	h.answer(t, "a")
	if err := h.ctrl.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	snap := h.ctrl.Snapshot()
	if snap.Level != 2 || snap.Remaining != 15 || snap.Duration != 15 {
		t.Fatalf("expected level 2 with 15s, got level=%d remaining=%d duration=%d", snap.Level, snap.Remaining, snap.Duration)
	}
}

func TestEmptyPoolAtStart(t *testing.T) {
	h := newHarness(t, DefaultConfig(), nil)
	n, err := h.ctrl.Start(domain.ModePractice)
	if n != 0 || !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected 0 and ErrNoQuestions, got %d %v", n, err)
	}
	if snap := h.ctrl.Snapshot(); snap.State != StateIdle || snap.Question != nil {
		t.Fatalf("expected idle controller, got %+v", snap)
	}
	if len(h.events) != 0 {
		t.Fatalf("expected no events for a failed start, got %d", len(h.events))
	}
}

func TestEmptyNextLevelEndsSession(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QuestionsPerLevel = 1
	h := newHarness(t, cfg, levelBank(1, 1))
	h.start(t, domain.ModePractice)

	h.answer(t, "a")
	snap := h.ctrl.Snapshot()
	if !snap.Ended || snap.EndReason != domain.EndExhaustedQuestions {
		t.Fatalf("expected the game to end when level 2 has no questions, got %+v", snap)
	}
}

func TestStartRejectsUnknownMode(t *testing.T) {
	h := newHarness(t, DefaultConfig(), levelBank(1, 1))
	if _, err := h.ctrl.Start("arcade"); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestExamModeAutoAdvancesAfterFeedbackDelay(t *testing.T) {
	h := newHarness(t, singleLevelConfig(2, 5), levelBank(1, 2))
	h.start(t, domain.ModeExam)

	h.answer(t, "b")
	out := h.ctrl.Snapshot().LastOutcome
	if out.RevealCorrect {
		t.Fatalf("exam mode must not reveal the correct option")
	}

	h.clock.Advance(1499 * time.Millisecond)
	if got := h.ctrl.Snapshot().State; got != StateResolved {
		t.Fatalf("advanced before the feedback delay, state=%s", got)
	}
	h.clock.Advance(time.Millisecond)
	snap := h.ctrl.Snapshot()
	if snap.State != StateAwaitingSelection || snap.QuestionIndex != 1 {
		t.Fatalf("expected auto-advance to question 2, got %s index=%d", snap.State, snap.QuestionIndex)
	}
}

func TestExamModeManualNextCancelsAutoAdvance(t *testing.T) {
	h := newHarness(t, singleLevelConfig(3, 5), levelBank(1, 3))
	h.start(t, domain.ModeExam)

	h.answer(t, "a")
	if err := h.ctrl.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	h.clock.Advance(2 * time.Second)
	if got := h.ctrl.Snapshot().QuestionIndex; got != 1 {
		t.Fatalf("pending auto-advance skipped a question, index=%d", got)
	}
}

func TestPracticeWaitsForNextButAutoAdvancesOnTimeout(t *testing.T) {
	h := newHarness(t, singleLevelConfig(3, 5), levelBank(1, 3))
	h.start(t, domain.ModePractice)

	h.answer(t, "a")
	h.clock.Advance(time.Minute)
	if snap := h.ctrl.Snapshot(); snap.State != StateResolved || snap.QuestionIndex != 0 {
		t.Fatalf("practice advanced without Next: %+v", snap)
	}
	if err := h.ctrl.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}

	h.clock.Advance(30 * time.Second)
	snap := h.ctrl.Snapshot()
	if snap.State != StateAwaitingSelection || snap.QuestionIndex != 2 {
		t.Fatalf("expected timeout to auto-advance to question 3, got %s index=%d", snap.State, snap.QuestionIndex)
	}
}

func TestFreshCountdownAfterTimeout(t *testing.T) {
	h := newHarness(t, singleLevelConfig(3, 5), levelBank(1, 3))
	h.start(t, domain.ModePractice)

	h.clock.Advance(30 * time.Second)
	snap := h.ctrl.Snapshot()
	if snap.Answered != 1 || snap.Remaining != 30 {
		t.Fatalf("expected question B to start at 30s, got answered=%d remaining=%d", snap.Answered, snap.Remaining)
	}

	h.clock.Advance(29 * time.Second)
	if got := h.ctrl.Snapshot().Answered; got != 1 {
		t.Fatalf("question B timed out early")
	}
	h.clock.Advance(time.Second)
	if got := h.ctrl.Snapshot().Answered; got != 2 {
		t.Fatalf("expected question B to time out after 30 ticks, answered=%d", got)
	}
}

func TestListenerReceivesOrderedEvents(t *testing.T) {
	h := newHarness(t, singleLevelConfig(2, 5), levelBank(1, 2))
	h.start(t, domain.ModePractice)
	h.clock.Advance(3 * time.Second)
	h.answer(t, "a")
	if err := h.ctrl.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	h.answer(t, "a")

	want := []EventKind{EventQuestion, EventResolved, EventQuestion, EventResolved, EventEnded}
	if got := h.kinds(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}

	var ticks []int
	for _, ev := range h.events {
		if ev.Kind == EventTick && ev.Snapshot.QuestionIndex == 0 {
			ticks = append(ticks, ev.Remaining)
		}
	}
	if fmt.Sprint(ticks) != "[30 29 28 27]" {
		t.Fatalf("unexpected tick sequence %v", ticks)
	}
	for _, ev := range h.events {
		if ev.Kind == EventResolved && ev.Outcome == nil {
			t.Fatalf("resolved event without outcome")
		}
	}
}

func TestRestartDiscardsPreviousSession(t *testing.T) {
	h := newHarness(t, singleLevelConfig(2, 5), levelBank(1, 2))
	h.start(t, domain.ModeExam)
	h.answer(t, "b")

	h.start(t, domain.ModePractice)
	snap := h.ctrl.Snapshot()
	if snap.Score != 0 || snap.Lives != 5 || len(snap.Incorrect) != 0 || snap.Mode != domain.ModePractice {
		t.Fatalf("expected a fresh session, got %+v", snap)
	}
	h.clock.Advance(2 * time.Second)
	if got := h.ctrl.Snapshot().QuestionIndex; got != 0 {
		t.Fatalf("auto-advance from the old session leaked, index=%d", got)
	}
}

func TestCloseStopsTimers(t *testing.T) {
	h := newHarness(t, singleLevelConfig(2, 5), levelBank(1, 2))
	h.start(t, domain.ModePractice)
	h.ctrl.Close()
	h.clock.Advance(time.Minute)
	if got := h.ctrl.Snapshot().Answered; got != 0 {
		t.Fatalf("closed controller kept timing, answered=%d", got)
	}
}
