package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"footy-quiz-service/internal/domain"
)

const (
	// DefaultCustomQuestionCount is used when the builder does not pick a size.
	DefaultCustomQuestionCount = 10
	// MaxCustomQuestionCount caps custom quizzes.
	MaxCustomQuestionCount = 100
)

// CatalogRepository reads categories and quizzes and stores custom quizzes.
type CatalogRepository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CategoryByName(ctx context.Context, name string) (domain.Category, error)
	QuizzesByCategory(ctx context.Context, categoryID string) ([]domain.Quiz, error)
	CountQuestions(ctx context.Context, categoryID string) (int, error)
	CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error)
}

// CatalogService backs the browsing views and the custom quiz builder.
type CatalogService struct {
	repo CatalogRepository
	now  func() time.Time
}

func NewCatalogService(repo CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo, now: time.Now}
}

// CategoryListing is a category with the quizzes that draw from it.
type CategoryListing struct {
	Category      domain.Category `json:"category"`
	Quizzes       []domain.Quiz   `json:"quizzes"`
	QuestionCount int             `json:"questionCount"`
}

// CustomQuizRequest is the builder's selection.
type CustomQuizRequest struct {
	CategoryIDs   []string `json:"categoryIds"`
	QuestionCount int      `json:"questionCount"`
}

// ListCategories returns every category ordered by name.
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

// CategoryQuizzes looks a category up by name and lists its quizzes.
func (s *CatalogService) CategoryQuizzes(ctx context.Context, name string) (CategoryListing, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return CategoryListing{}, domain.ErrCategoryNotFound
	}
	category, err := s.repo.CategoryByName(ctx, name)
	if err != nil {
		return CategoryListing{}, err
	}
	quizzes, err := s.repo.QuizzesByCategory(ctx, category.ID)
	if err != nil {
		return CategoryListing{}, fmt.Errorf("list quizzes: %w", err)
	}
	count, err := s.repo.CountQuestions(ctx, category.ID)
	if err != nil {
		return CategoryListing{}, fmt.Errorf("count questions: %w", err)
	}
	return CategoryListing{Category: category, Quizzes: quizzes, QuestionCount: count}, nil
}

// CreateCustomQuiz stores a quiz drawing from the selected categories.
func (s *CatalogService) CreateCustomQuiz(ctx context.Context, req CustomQuizRequest) (domain.Quiz, error) {
	ids := dedupe(req.CategoryIDs)
	if len(ids) == 0 {
		return domain.Quiz{}, fmt.Errorf("%w: select at least one category", domain.ErrInvalidQuiz)
	}
	count := req.QuestionCount
	if count == 0 {
		count = DefaultCustomQuestionCount
	}
	if count < 1 || count > MaxCustomQuestionCount {
		return domain.Quiz{}, fmt.Errorf("%w: question count must be between 1 and %d", domain.ErrInvalidQuiz, MaxCustomQuestionCount)
	}
	return s.repo.CreateQuiz(ctx, domain.Quiz{
		Name:          "Custom Quiz",
		CategoryIDs:   ids,
		QuestionCount: count,
		IsCustom:      true,
		CreatedAt:     s.now(),
	})
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
