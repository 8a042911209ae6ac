package game

import (
	"fmt"
	"time"

	"ctscan-quiz/internal/domain"
)

// Scoring selects the per-question points policy.
type Scoring string

const (
	// ScoringTimed awards FullPoints for fast correct answers and ReducedPoints otherwise.
	ScoringTimed Scoring = "time"
	// ScoringFlat awards FlatPoints for every correct answer.
	ScoringFlat Scoring = "flat"
)

// AnswerFlow selects how a selection becomes final.
type AnswerFlow string

const (
	// FlowSubmit requires an explicit Submit after Select.
	FlowSubmit AnswerFlow = "submit"
	// FlowSelect finalizes as soon as an option is selected.
	FlowSelect AnswerFlow = "select"
)

// Config holds the rules of a session. Times are whole seconds; LevelTimes
// overrides TimePerQuestion for individual levels.
type Config struct {
	QuestionsPerLevel int
	MaxLevel          int
	LevelsEnabled     bool
	LivesEnabled      bool
	InitialLives      int
	TimePerQuestion   int
	LevelTimes        map[int]int
	Scoring           Scoring
	FastAnswerSeconds int
	FullPoints        int
	ReducedPoints     int
	FlatPoints        int
	AnswerFlow        AnswerFlow
	FeedbackDelay     time.Duration
}

// DefaultConfig returns the rules of the leveled, lives-enabled game.
func DefaultConfig() Config {
	return Config{
		QuestionsPerLevel: 10,
		MaxLevel:          3,
		LevelsEnabled:     true,
		LivesEnabled:      true,
		InitialLives:      5,
		TimePerQuestion:   30,
		Scoring:           ScoringTimed,
		FastAnswerSeconds: 20,
		FullPoints:        10,
		ReducedPoints:     5,
		FlatPoints:        10,
		AnswerFlow:        FlowSubmit,
		FeedbackDelay:     1500 * time.Millisecond,
	}
}

// Validate rejects configurations the controller cannot run.
func (c Config) Validate() error {
	if c.QuestionsPerLevel <= 0 {
		return fmt.Errorf("%w: questions per level must be positive", domain.ErrInvalidConfig)
	}
	if c.LevelsEnabled && c.MaxLevel < 1 {
		return fmt.Errorf("%w: max level must be at least 1", domain.ErrInvalidConfig)
	}
	if c.LivesEnabled && c.InitialLives < 1 {
		return fmt.Errorf("%w: initial lives must be at least 1", domain.ErrInvalidConfig)
	}
	if c.TimePerQuestion <= 0 {
		return fmt.Errorf("%w: time per question must be positive", domain.ErrInvalidConfig)
	}
	for level, secs := range c.LevelTimes {
		if secs <= 0 {
			return fmt.Errorf("%w: time for level %d must be positive", domain.ErrInvalidConfig, level)
		}
	}
	switch c.Scoring {
	case ScoringTimed, ScoringFlat:
	default:
		return fmt.Errorf("%w: unknown scoring %q", domain.ErrInvalidConfig, c.Scoring)
	}
	switch c.AnswerFlow {
	case FlowSubmit, FlowSelect:
	default:
		return fmt.Errorf("%w: unknown answer flow %q", domain.ErrInvalidConfig, c.AnswerFlow)
	}
	if c.FeedbackDelay < 0 {
		return fmt.Errorf("%w: feedback delay must not be negative", domain.ErrInvalidConfig)
	}
	return nil
}

// TimeFor returns the countdown duration in seconds for a level.
func (c Config) TimeFor(level int) int {
	if secs, ok := c.LevelTimes[level]; ok && secs > 0 {
		return secs
	}
	return c.TimePerQuestion
}

// Points scores one finalized question. Incorrect and timed-out answers earn 0.
func (c Config) Points(correct bool, remaining int) int {
	if !correct {
		return 0
	}
	if c.Scoring == ScoringFlat {
		return c.FlatPoints
	}
	if remaining >= c.FastAnswerSeconds {
		return c.FullPoints
	}
	return c.ReducedPoints
}
