package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"footy-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionLoader reads questions with their answers aggregated as JSON.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

const questionColumns = `
SELECT q.id, q.category_id, q.question_text,
       COALESCE(
         json_agg(json_build_object('id', a.id, 'text', a.answer_text, 'isCorrect', a.is_correct)
                  ORDER BY a.position) FILTER (WHERE a.id IS NOT NULL),
         '[]') AS answers
FROM questions q
LEFT JOIN answers a ON a.question_id = q.id`

// LoadQuestions returns up to limit questions from the categories, oldest first.
func (l *QuestionLoader) LoadQuestions(ctx context.Context, categoryIDs []string, limit int) ([]domain.Question, error) {
	if len(categoryIDs) == 0 {
		return []domain.Question{}, nil
	}
	rows, err := l.pool.Query(ctx, questionColumns+`
WHERE q.category_id = ANY($1)
GROUP BY q.id
ORDER BY q.created_at, q.id
LIMIT $2`, categoryIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return scanQuestions(rows)
}

// QuestionsByIDs returns the referenced questions with all their answers.
func (l *QuestionLoader) QuestionsByIDs(ctx context.Context, ids []string) ([]domain.Question, error) {
	if len(ids) == 0 {
		return []domain.Question{}, nil
	}
	rows, err := l.pool.Query(ctx, questionColumns+`
WHERE q.id = ANY($1)
GROUP BY q.id
ORDER BY q.created_at, q.id`, ids)
	if err != nil {
		return nil, fmt.Errorf("questions by id: %w", err)
	}
	return scanQuestions(rows)
}

func scanQuestions(rows pgx.Rows) ([]domain.Question, error) {
	defer rows.Close()
	out := make([]domain.Question, 0)
	for rows.Next() {
		var (
			q   domain.Question
			raw []byte
		)
		if err := rows.Scan(&q.ID, &q.CategoryID, &q.Text, &raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(raw, &q.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}
