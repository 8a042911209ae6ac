package domain

import (
	"fmt"
	"math"
	"time"
)

// TimedOut replaces the selected option ID when a question expired unanswered.
const TimedOut = "timed_out"

// GameMode selects how feedback is presented during a session.
type GameMode string

const (
	// ModePractice reveals the correct option after every answer.
	ModePractice GameMode = "practice"
	// ModeExam shows only a neutral indicator and auto-advances.
	ModeExam GameMode = "exam"
)

// Valid reports whether m is a known mode.
func (m GameMode) Valid() bool {
	return m == ModePractice || m == ModeExam
}

// EndReason records why a session became terminal.
type EndReason string

const (
	EndNone               EndReason = ""
	EndExhaustedQuestions EndReason = "exhausted-questions"
	EndExhaustedLives     EndReason = "exhausted-lives"
)

// Option represents a possible answer for a question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question models an MCQ item. Questions are immutable during a session.
type Question struct {
	ID              string   `json:"id"`
	Text            string   `json:"text"`
	Options         []Option `json:"options"`
	CorrectOptionID string   `json:"correctOptionId"`
	Explanation     string   `json:"explanation,omitempty"`
	Category        string   `json:"category,omitempty"`
	Level           int      `json:"level,omitempty"`
}

// HasOption reports whether optionID belongs to the question.
func (q Question) HasOption(optionID string) bool {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

// Validate checks the structural invariants of a question.
func (q Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidQuestion)
	}
	if q.Text == "" {
		return fmt.Errorf("%w: question %s has no text", ErrInvalidQuestion, q.ID)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: question %s needs at least two options", ErrInvalidQuestion, q.ID)
	}
	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if opt.ID == "" {
			return fmt.Errorf("%w: question %s has an option without id", ErrInvalidQuestion, q.ID)
		}
		if _, dup := seen[opt.ID]; dup {
			return fmt.Errorf("%w: question %s repeats option %s", ErrInvalidQuestion, q.ID, opt.ID)
		}
		seen[opt.ID] = struct{}{}
	}
	if _, ok := seen[q.CorrectOptionID]; !ok {
		return fmt.Errorf("%w: question %s correct option %q is not an option", ErrInvalidQuestion, q.ID, q.CorrectOptionID)
	}
	if q.Level < 0 {
		return fmt.Errorf("%w: question %s has negative level", ErrInvalidQuestion, q.ID)
	}
	return nil
}

// ValidateBank validates every question and rejects duplicate IDs.
func ValidateBank(questions []Question) error {
	ids := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return err
		}
		if _, dup := ids[q.ID]; dup {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidQuestion, q.ID)
		}
		ids[q.ID] = struct{}{}
	}
	return nil
}

// Outcome is the finalized result of one question.
type Outcome struct {
	QuestionID       string `json:"questionId"`
	SelectedOptionID string `json:"selectedOptionId"`
	CorrectOptionID  string `json:"correctOptionId"`
	Correct          bool   `json:"correct"`
	TimedOut         bool   `json:"timedOut"`
	TimeRemaining    int    `json:"timeRemaining"`
	Points           int    `json:"points"`
	// RevealCorrect is false in exam mode; the UI then shows only Correct.
	RevealCorrect bool `json:"revealCorrect"`
}

// IncorrectAnswer is kept for the review-mistakes screen.
type IncorrectAnswer struct {
	Question         Question `json:"question"`
	SelectedOptionID string   `json:"userAnswerId"`
	TimeRemaining    int      `json:"timeRemaining"`
}

// Result is the record submitted to the leaderboard when a session ends.
type Result struct {
	PlayerName          string            `json:"playerName"`
	Score               int               `json:"score"`
	TotalQuestions      int               `json:"totalQuestions"`
	CorrectAnswers      int               `json:"correctAnswers"`
	Percentage          int               `json:"percentage"`
	GameMode            GameMode          `json:"gameMode"`
	IncorrectlyAnswered []IncorrectAnswer `json:"incorrectlyAnswered"`
	CompletedAt         time.Time         `json:"completedAt"`
	SubmissionID        string            `json:"submissionId"`
	MaxLevel            int               `json:"maxLevel,omitempty"`
	EndReason           EndReason         `json:"endReason,omitempty"`
}

// Percentage returns the rounded share of correct answers, 0 when nothing was asked.
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// Rating maps a percentage to the results screen feedback tier.
func Rating(percentage, total int) string {
	switch {
	case total == 0:
		return "none"
	case percentage >= 80:
		return "excellent"
	case percentage >= 60:
		return "good"
	case percentage >= 40:
		return "fair"
	default:
		return "needs-study"
	}
}

// PlayerStats aggregates finished games for one player.
type PlayerStats struct {
	PlayerName      string `json:"playerName"`
	GamesPlayed     int    `json:"totalGamesPlayed"`
	BestScore       int    `json:"bestScore"`
	MaxLevelReached int    `json:"maxLevelReached"`
	TotalCorrect    int    `json:"totalCorrectAnswers"`
	TotalQuestions  int    `json:"totalQuestions"`
}

// LeaderboardEntry is a row returned by the remote leaderboard.
type LeaderboardEntry struct {
	ID              string    `json:"id"`
	PlayerName      string    `json:"playerName"`
	Score           int       `json:"score"`
	TotalQuestions  int       `json:"totalQuestions"`
	CorrectAnswers  int       `json:"correctAnswers"`
	Percentage      int       `json:"percentage"`
	GameMode        GameMode  `json:"gameMode"`
	CompletedAt     time.Time `json:"completedAt"`
	SubmissionID    string    `json:"submissionId,omitempty"`
	ProfileImageURL string    `json:"profileImageUrl,omitempty"`
}
