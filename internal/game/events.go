package game

import (
	"ctscan-quiz/internal/domain"
	"ctscan-quiz/internal/timer"
)

// State is the per-question phase of the controller.
type State string

const (
	StateIdle               State = "idle"
	StateAwaitingSelection  State = "awaiting_selection"
	StateAwaitingSubmission State = "awaiting_submission"
	StateResolved           State = "resolved"
	StateEnded              State = "ended"
)

// EventKind names the notifications sent to a Listener.
type EventKind string

const (
	EventQuestion EventKind = "question"
	EventTick     EventKind = "tick"
	EventResolved EventKind = "resolved"
	EventLevelUp  EventKind = "level_up"
	EventEnded    EventKind = "ended"
)

// Event is delivered to the Listener. Outcome is set for EventResolved.
type Event struct {
	Kind      EventKind
	Remaining int
	Band      timer.Band
	Outcome   *domain.Outcome
	Snapshot  Snapshot
}

// Listener receives controller events. It runs while the controller holds its
// lock, so it must not call back into the Controller.
type Listener func(Event)

// Snapshot is a copy of the session state safe to hand to other goroutines.
type Snapshot struct {
	State                State                    `json:"state"`
	Mode                 domain.GameMode          `json:"mode"`
	Level                int                      `json:"level"`
	MaxLevel             int                      `json:"maxLevel"`
	LevelsVisited        []int                    `json:"levelsVisited"`
	Lives                int                      `json:"lives"`
	Score                int                      `json:"score"`
	QuestionIndex        int                      `json:"questionIndex"`
	QuestionCount        int                      `json:"questionCount"`
	Question             *domain.Question         `json:"question,omitempty"`
	SelectedOptionID     string                   `json:"selectedOptionId,omitempty"`
	Remaining            int                      `json:"remaining"`
	Duration             int                      `json:"duration"`
	Band                 timer.Band               `json:"band"`
	LastOutcome          *domain.Outcome          `json:"lastOutcome,omitempty"`
	Incorrect            []domain.IncorrectAnswer `json:"incorrect"`
	Answered             int                      `json:"answered"`
	Correct              int                      `json:"correct"`
	IgnoredFinalizations int                      `json:"ignoredFinalizations"`
	Ended                bool                     `json:"ended"`
	EndReason            domain.EndReason         `json:"endReason,omitempty"`
}
