package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ctscan-quiz/internal/domain"
)

// QuestionStore keeps the bank in Postgres: one JSONB row per question plus a
// question_bank marker row that tells "never saved" apart from "saved empty".
type QuestionStore struct {
	pool *pgxpool.Pool
}

func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

func (s *QuestionStore) Load(ctx context.Context) ([]domain.Question, error) {
	var saved bool
	err := s.pool.QueryRow(ctx, `SELECT id FROM question_bank`).Scan(&saved)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBankNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT data FROM questions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	bank := []domain.Question{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		bank = append(bank, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return bank, nil
}

// Save replaces the whole bank in one transaction.
func (s *QuestionStore) Save(ctx context.Context, questions []domain.Question) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM questions`); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}
	for i, q := range questions {
		data, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("marshal question %s: %w", q.ID, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO questions (id, position, level, data) VALUES ($1, $2, $3, $4::jsonb)`,
			q.ID, i, q.Level, string(data),
		); err != nil {
			return fmt.Errorf("insert question %s: %w", q.ID, err)
		}
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO question_bank (id, saved_at) VALUES (TRUE, now()) ON CONFLICT (id) DO UPDATE SET saved_at = EXCLUDED.saved_at`,
	); err != nil {
		return fmt.Errorf("mark question bank: %w", err)
	}
	return tx.Commit(ctx)
}
