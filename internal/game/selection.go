package game

import (
	"math/rand"

	"ctscan-quiz/internal/domain"
)

// Draw shuffles the eligible part of pool and keeps at most count questions.
// With levelled set only questions of that level are eligible. The pool is
// never modified. count <= 0 keeps every eligible question.
func Draw(pool []domain.Question, level, count int, levelled bool, rnd *rand.Rand) []domain.Question {
	eligible := make([]domain.Question, 0, len(pool))
	for _, q := range pool {
		if levelled && q.Level != level {
			continue
		}
		eligible = append(eligible, q)
	}
	rnd.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})
	if count > 0 && count < len(eligible) {
		eligible = eligible[:count]
	}
	return eligible
}
