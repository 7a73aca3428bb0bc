package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"footy-quiz-service/internal/domain"
	"footy-quiz-service/internal/infra/memory"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Store is the bun-backed persistence for catalog, sessions and profiles.
type Store struct {
	db    *bun.DB
	newID func() string
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db, newID: uuid.NewString}
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var rows []categoryRow
	if err := s.db.NewSelect().Model(&rows).Order("name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]domain.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) CategoryByName(ctx context.Context, name string) (domain.Category, error) {
	var row categoryRow
	err := s.db.NewSelect().Model(&row).Where("name = ?", name).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	if err != nil {
		return domain.Category{}, fmt.Errorf("category by name: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) QuizzesByCategory(ctx context.Context, categoryID string) ([]domain.Quiz, error) {
	var rows []quizRow
	err := s.db.NewSelect().Model(&rows).
		Where("? = ANY(category_ids)", categoryID).
		Where("is_custom = false").
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("quizzes by category: %w", err)
	}
	out := make([]domain.Quiz, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) CountQuestions(ctx context.Context, categoryID string) (int, error) {
	n, err := s.db.NewSelect().Model((*questionRow)(nil)).Where("category_id = ?", categoryID).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return n, nil
}

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	quiz.ID = s.newID()
	row := quizFromDomain(quiz)
	if _, err := s.db.NewInsert().Model(&row).Returning("*").Exec(ctx); err != nil {
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	row := quizRow{ID: quizID}
	err := s.db.NewSelect().Model(&row).WherePK().Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("get quiz: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) CreateSession(ctx context.Context, session domain.QuizSession) (domain.QuizSession, error) {
	row := sessionRow{
		ID:             s.newID(),
		UserID:         session.UserID,
		QuizID:         session.QuizID,
		TotalQuestions: session.TotalQuestions,
		StartedAt:      session.StartedAt,
	}
	if _, err := s.db.NewInsert().Model(&row).Returning("*").Exec(ctx); err != nil {
		return domain.QuizSession{}, fmt.Errorf("create session: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) RecordAnswer(ctx context.Context, answer domain.UserAnswer) error {
	row := userAnswerRow{
		ID:               answer.ID,
		SessionID:        answer.SessionID,
		QuestionID:       answer.QuestionID,
		SelectedAnswerID: answer.SelectedAnswerID,
		IsCorrect:        answer.IsCorrect,
		TimeTakenMS:      answer.TimeTakenMS,
		CreatedAt:        answer.CreatedAt,
	}
	if row.ID == "" {
		row.ID = s.newID()
	}
	_, err := s.db.NewInsert().Model(&row).Exec(ctx)
	if isForeignKeyViolation(err) {
		return domain.ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("record answer: %w", err)
	}
	return nil
}

func (s *Store) FinalizeSession(ctx context.Context, sessionID string, res domain.SessionResult) error {
	completed := res.CompletedAt
	row := sessionRow{
		ID:             sessionID,
		CorrectCount:   res.CorrectCount,
		IncorrectCount: res.IncorrectCount,
		Score:          res.Score,
		Passed:         res.Passed,
		DurationMS:     res.DurationMS,
		CompletedAt:    &completed,
	}
	result, err := s.db.NewUpdate().Model(&row).
		Column("correct_count", "incorrect_count", "score", "passed", "duration_ms", "completed_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("finalize session: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (domain.QuizSession, error) {
	row := sessionRow{ID: sessionID}
	err := s.db.NewSelect().Model(&row).WherePK().Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.QuizSession{}, fmt.Errorf("get session: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) SessionAnswers(ctx context.Context, sessionID string) ([]domain.UserAnswer, error) {
	var rows []userAnswerRow
	err := s.db.NewSelect().Model(&rows).
		Where("session_id = ?", sessionID).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("session answers: %w", err)
	}
	out := make([]domain.UserAnswer, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) CompletedSessions(ctx context.Context, userID string) ([]domain.QuizSession, error) {
	var rows []sessionRow
	err := s.db.NewSelect().Model(&rows).
		Where("user_id = ?", userID).
		Where("completed_at IS NOT NULL").
		Order("completed_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("completed sessions: %w", err)
	}
	out := make([]domain.QuizSession, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) LeaderboardSessions(ctx context.Context, totalQuestions int) ([]domain.LeaderboardSession, error) {
	var rows []sessionRow
	err := s.db.NewSelect().Model(&rows).
		Column("user_id", "correct_count", "total_questions", "passed").
		Where("total_questions = ?", totalQuestions).
		Where("user_id IS NOT NULL").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("leaderboard sessions: %w", err)
	}
	out := make([]domain.LeaderboardSession, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.LeaderboardSession{
			UserID:         r.UserID,
			CorrectCount:   r.CorrectCount,
			TotalQuestions: r.TotalQuestions,
			Passed:         r.Passed,
		})
	}
	return out, nil
}

func (s *Store) Usernames(ctx context.Context, userIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []profileRow
	err := s.db.NewSelect().Model(&rows).
		Column("id", "username").
		Where("id IN (?)", bun.In(userIDs)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("usernames: %w", err)
	}
	for _, r := range rows {
		if r.Username != "" {
			out[r.ID] = r.Username
		}
	}
	return out, nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	row := profileRow{ID: userID}
	err := s.db.NewSelect().Model(&row).WherePK().Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) UpdateProfile(ctx context.Context, userID string, u domain.ProfileUpdate) (domain.Profile, error) {
	row := profileRow{ID: userID, Username: u.Username, FirstName: u.FirstName, LastName: u.LastName, AvatarURL: u.AvatarURL}
	result, err := s.db.NewUpdate().Model(&row).
		Column("username", "first_name", "last_name", "avatar_url").
		WherePK().
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return row.toDomain(), nil
}

// UpsertProfile creates or replaces a profile row.
func (s *Store) UpsertProfile(ctx context.Context, p domain.Profile) error {
	row := profileRow{ID: p.ID, Username: p.Username, FirstName: p.FirstName, LastName: p.LastName, AvatarURL: p.AvatarURL, CreatedAt: p.CreatedAt}
	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("username = EXCLUDED.username").
		Set("first_name = EXCLUDED.first_name").
		Set("last_name = EXCLUDED.last_name").
		Set("avatar_url = EXCLUDED.avatar_url").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// UserRole defaults to the plain user role when none is assigned.
func (s *Store) UserRole(ctx context.Context, userID string) (domain.Role, error) {
	row := roleRow{UserID: userID}
	err := s.db.NewSelect().Model(&row).WherePK().Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RoleUser, nil
	}
	if err != nil {
		return "", fmt.Errorf("user role: %w", err)
	}
	return domain.Role(row.Role), nil
}

// ImportCatalog inserts categories, questions, answers and quizzes in one
// transaction. Rows that already exist are left untouched.
func (s *Store) ImportCatalog(ctx context.Context, cat memory.Catalog) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, c := range cat.Categories {
			row := categoryRow{ID: c.ID, Name: c.Name, Description: c.Description, ImageURL: c.ImageURL}
			if _, err := tx.NewInsert().Model(&row).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
				return fmt.Errorf("insert category %s: %w", c.ID, err)
			}
		}
		for _, q := range cat.Questions {
			row := questionRow{ID: q.ID, CategoryID: q.CategoryID, Text: q.Text}
			if _, err := tx.NewInsert().Model(&row).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
				return fmt.Errorf("insert question %s: %w", q.ID, err)
			}
			for i, a := range q.Answers {
				ans := answerRow{ID: a.ID, QuestionID: q.ID, Text: a.Text, IsCorrect: a.IsCorrect, Position: i}
				if _, err := tx.NewInsert().Model(&ans).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
					return fmt.Errorf("insert answer %s: %w", a.ID, err)
				}
			}
		}
		for _, q := range cat.Quizzes {
			row := quizFromDomain(q)
			if _, err := tx.NewInsert().Model(&row).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
				return fmt.Errorf("insert quiz %s: %w", q.ID, err)
			}
		}
		return nil
	})
}

func isForeignKeyViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23503"
}
