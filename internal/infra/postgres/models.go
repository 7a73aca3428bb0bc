package postgres

import (
	"time"

	"footy-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

type categoryRow struct {
	bun.BaseModel `bun:"table:question_categories"`

	ID          string `bun:"id,pk"`
	Name        string `bun:"name"`
	Description string `bun:"description"`
	ImageURL    string `bun:"image_url"`
}

func (r categoryRow) toDomain() domain.Category {
	return domain.Category{ID: r.ID, Name: r.Name, Description: r.Description, ImageURL: r.ImageURL}
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID         string    `bun:"id,pk"`
	CategoryID string    `bun:"category_id"`
	Text       string    `bun:"question_text"`
	CreatedAt  time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

type answerRow struct {
	bun.BaseModel `bun:"table:answers"`

	ID         string `bun:"id,pk"`
	QuestionID string `bun:"question_id"`
	Text       string `bun:"answer_text"`
	IsCorrect  bool   `bun:"is_correct"`
	Position   int    `bun:"position"`
}

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID            string    `bun:"id,pk"`
	Name          string    `bun:"name"`
	Description   string    `bun:"description"`
	CategoryIDs   []string  `bun:"category_ids,array"`
	QuestionCount int       `bun:"question_count"`
	Difficulty    string    `bun:"difficulty"`
	IsCustom      bool      `bun:"is_custom"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

func quizFromDomain(q domain.Quiz) quizRow {
	return quizRow{
		ID:            q.ID,
		Name:          q.Name,
		Description:   q.Description,
		CategoryIDs:   q.CategoryIDs,
		QuestionCount: q.QuestionCount,
		Difficulty:    q.Difficulty,
		IsCustom:      q.IsCustom,
		CreatedAt:     q.CreatedAt,
	}
}

func (r quizRow) toDomain() domain.Quiz {
	return domain.Quiz{
		ID:            r.ID,
		Name:          r.Name,
		Description:   r.Description,
		CategoryIDs:   r.CategoryIDs,
		QuestionCount: r.QuestionCount,
		Difficulty:    r.Difficulty,
		IsCustom:      r.IsCustom,
		CreatedAt:     r.CreatedAt,
	}
}

type sessionRow struct {
	bun.BaseModel `bun:"table:quiz_sessions"`

	ID             string     `bun:"id,pk"`
	UserID         string     `bun:"user_id,nullzero"`
	QuizID         string     `bun:"quiz_id"`
	TotalQuestions int        `bun:"total_questions"`
	CorrectCount   int        `bun:"correct_count"`
	IncorrectCount int        `bun:"incorrect_count"`
	Score          float64    `bun:"score"`
	Passed         bool       `bun:"passed"`
	DurationMS     int64      `bun:"duration_ms"`
	StartedAt      time.Time  `bun:"started_at,nullzero,default:current_timestamp"`
	CompletedAt    *time.Time `bun:"completed_at"`
}

func (r sessionRow) toDomain() domain.QuizSession {
	return domain.QuizSession{
		ID:             r.ID,
		UserID:         r.UserID,
		QuizID:         r.QuizID,
		TotalQuestions: r.TotalQuestions,
		CorrectCount:   r.CorrectCount,
		IncorrectCount: r.IncorrectCount,
		Score:          r.Score,
		Passed:         r.Passed,
		DurationMS:     r.DurationMS,
		StartedAt:      r.StartedAt,
		CompletedAt:    r.CompletedAt,
	}
}

type userAnswerRow struct {
	bun.BaseModel `bun:"table:user_answers"`

	ID               string    `bun:"id,pk"`
	SessionID        string    `bun:"session_id"`
	QuestionID       string    `bun:"question_id"`
	SelectedAnswerID string    `bun:"selected_answer_id,nullzero"`
	IsCorrect        bool      `bun:"is_correct"`
	TimeTakenMS      int64     `bun:"time_taken_ms"`
	CreatedAt        time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

func (r userAnswerRow) toDomain() domain.UserAnswer {
	return domain.UserAnswer{
		ID:               r.ID,
		SessionID:        r.SessionID,
		QuestionID:       r.QuestionID,
		SelectedAnswerID: r.SelectedAnswerID,
		IsCorrect:        r.IsCorrect,
		TimeTakenMS:      r.TimeTakenMS,
		CreatedAt:        r.CreatedAt,
	}
}

type profileRow struct {
	bun.BaseModel `bun:"table:profiles"`

	ID        string    `bun:"id,pk"`
	Username  string    `bun:"username"`
	FirstName string    `bun:"first_name"`
	LastName  string    `bun:"last_name"`
	AvatarURL string    `bun:"avatar_url"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

func (r profileRow) toDomain() domain.Profile {
	return domain.Profile{
		ID:        r.ID,
		Username:  r.Username,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		AvatarURL: r.AvatarURL,
		CreatedAt: r.CreatedAt,
	}
}

type roleRow struct {
	bun.BaseModel `bun:"table:user_roles"`

	UserID string `bun:"user_id,pk"`
	Role   string `bun:"role"`
}
