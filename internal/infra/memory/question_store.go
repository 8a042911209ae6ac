package memory

import (
	"context"
	"sync"

	"ctscan-quiz/internal/domain"
)

// QuestionStore keeps the bank in process memory. A store created with a nil
// bank reports domain.ErrBankNotFound until something is saved.
type QuestionStore struct {
	mu   sync.RWMutex
	bank []domain.Question
}

func NewQuestionStore(bank []domain.Question) *QuestionStore {
	return &QuestionStore{bank: cloneBank(bank)}
}

func (s *QuestionStore) Load(_ context.Context) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.bank == nil {
		return nil, domain.ErrBankNotFound
	}
	return cloneBank(s.bank), nil
}

func (s *QuestionStore) Save(_ context.Context, questions []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bank = cloneBank(questions)
	if s.bank == nil {
		s.bank = []domain.Question{}
	}
	return nil
}

func cloneBank(bank []domain.Question) []domain.Question {
	if bank == nil {
		return nil
	}
	out := make([]domain.Question, len(bank))
	for i, q := range bank {
		q.Options = append([]domain.Option(nil), q.Options...)
		out[i] = q
	}
	return out
}
