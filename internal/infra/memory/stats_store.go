package memory

import (
	"context"
	"sync"

	"ctscan-quiz/internal/domain"
)

// StatsStore aggregates finished games per player in memory.
type StatsStore struct {
	mu    sync.Mutex
	stats map[string]domain.PlayerStats
}

func NewStatsStore() *StatsStore {
	return &StatsStore{stats: make(map[string]domain.PlayerStats)}
}

func (s *StatsStore) Record(_ context.Context, result domain.Result) (domain.PlayerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats[result.PlayerName]
	st.PlayerName = result.PlayerName
	st.GamesPlayed++
	st.TotalCorrect += result.CorrectAnswers
	st.TotalQuestions += result.TotalQuestions
	if result.Score > st.BestScore {
		st.BestScore = result.Score
	}
	if result.MaxLevel > st.MaxLevelReached {
		st.MaxLevelReached = result.MaxLevel
	}
	s.stats[result.PlayerName] = st
	return st, nil
}

// Get returns zero stats for players that never finished a game.
func (s *StatsStore) Get(_ context.Context, player string) (domain.PlayerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stats[player]
	if !ok {
		return domain.PlayerStats{PlayerName: player}, nil
	}
	return st, nil
}
