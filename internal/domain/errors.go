package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a game session has not been started.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrQuestionNotFound indicates a question ID is unknown to the bank.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrBankNotFound is returned by question stores that hold no bank yet.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrOptionNotFound indicates a selected option ID is not part of the current question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrNoQuestions is returned when no questions could be prepared for a level.
	ErrNoQuestions = errors.New("no questions available")
	// ErrNoSelection rejects a submit with nothing selected.
	ErrNoSelection = errors.New("no option selected")
	// ErrNotPlaying indicates the session is not waiting for an answer.
	ErrNotPlaying = errors.New("session is not awaiting an answer")
	// ErrNotResolved indicates Next was called before the current question was finalized.
	ErrNotResolved = errors.New("current question is not resolved")
	// ErrSessionEnded is returned for actions on a terminal session.
	ErrSessionEnded = errors.New("session has ended")
	// ErrInvalidQuestion wraps question bank validation failures.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrInvalidConfig wraps game configuration validation failures.
	ErrInvalidConfig = errors.New("invalid game config")
	// ErrLeaderboardUnavailable indicates the remote leaderboard rejected or failed a request.
	ErrLeaderboardUnavailable = errors.New("leaderboard unavailable")
	// ErrServiceClosed rejects new games during shutdown.
	ErrServiceClosed = errors.New("game service closed")
)
