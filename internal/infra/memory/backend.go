package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"footy-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// Backend is an in-memory stand-in for the hosted database. It satisfies
// every repository the services and the engine need.
type Backend struct {
	mu    sync.RWMutex
	clock func() time.Time
	newID func() string

	categories map[string]domain.Category
	questions  map[string]domain.Question
	order      []string // question insertion order
	quizzes    map[string]domain.Quiz
	sessions   map[string]domain.QuizSession
	answers    map[string][]domain.UserAnswer
	profiles   map[string]domain.Profile
	roles      map[string]domain.Role
}

func NewBackend() *Backend {
	return &Backend{
		clock:      time.Now,
		newID:      uuid.NewString,
		categories: make(map[string]domain.Category),
		questions:  make(map[string]domain.Question),
		quizzes:    make(map[string]domain.Quiz),
		sessions:   make(map[string]domain.QuizSession),
		answers:    make(map[string][]domain.UserAnswer),
		profiles:   make(map[string]domain.Profile),
		roles:      make(map[string]domain.Role),
	}
}

// AddCategory stores a category, assigning an id when missing.
func (b *Backend) AddCategory(c domain.Category) domain.Category {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c.ID == "" {
		c.ID = b.newID()
	}
	b.categories[c.ID] = c
	return c
}

// AddQuestion stores a question and its answers.
func (b *Backend) AddQuestion(q domain.Question) domain.Question {
	b.mu.Lock()
	defer b.mu.Unlock()
	if q.ID == "" {
		q.ID = b.newID()
	}
	answers := make([]domain.Answer, len(q.Answers))
	for i, a := range q.Answers {
		if a.ID == "" {
			a.ID = b.newID()
		}
		answers[i] = a
	}
	q.Answers = answers
	if _, ok := b.questions[q.ID]; !ok {
		b.order = append(b.order, q.ID)
	}
	b.questions[q.ID] = q
	return q
}

// AddQuiz stores a quiz definition.
func (b *Backend) AddQuiz(q domain.Quiz) domain.Quiz {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.putQuiz(q)
}

func (b *Backend) putQuiz(q domain.Quiz) domain.Quiz {
	if q.ID == "" {
		q.ID = b.newID()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = b.clock()
	}
	q.CategoryIDs = append([]string(nil), q.CategoryIDs...)
	b.quizzes[q.ID] = q
	return q
}

// AddProfile stores a user profile.
func (b *Backend) AddProfile(p domain.Profile) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = b.clock()
	}
	b.profiles[p.ID] = p
}

// SetRole assigns a role to a user.
func (b *Backend) SetRole(userID string, role domain.Role) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roles[userID] = role
}

func (b *Backend) ListCategories(context.Context) ([]domain.Category, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Category, 0, len(b.categories))
	for _, c := range b.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (b *Backend) CategoryByName(_ context.Context, name string) (domain.Category, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, c := range b.categories {
		if c.Name == name {
			return c, nil
		}
	}
	return domain.Category{}, domain.ErrCategoryNotFound
}

// QuizzesByCategory lists non-custom quizzes drawing from the category, by name.
func (b *Backend) QuizzesByCategory(_ context.Context, categoryID string) ([]domain.Quiz, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Quiz, 0)
	for _, q := range b.quizzes {
		if q.IsCustom || !contains(q.CategoryIDs, categoryID) {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (b *Backend) CountQuestions(_ context.Context, categoryID string) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, q := range b.questions {
		if q.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

func (b *Backend) CreateQuiz(_ context.Context, q domain.Quiz) (domain.Quiz, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q.ID = ""
	return b.putQuiz(q), nil
}

func (b *Backend) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return q, nil
}

// LoadQuestions returns up to limit questions from the categories in
// insertion order.
func (b *Backend) LoadQuestions(_ context.Context, categoryIDs []string, limit int) ([]domain.Question, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Question, 0)
	for _, id := range b.order {
		q := b.questions[id]
		if !contains(categoryIDs, q.CategoryID) {
			continue
		}
		out = append(out, cloneQuestion(q))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (b *Backend) QuestionsByIDs(_ context.Context, ids []string) ([]domain.Question, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Question, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if q, ok := b.questions[id]; ok {
			out = append(out, cloneQuestion(q))
		}
	}
	return out, nil
}

func (b *Backend) CreateSession(_ context.Context, s domain.QuizSession) (domain.QuizSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s.ID = b.newID()
	if s.StartedAt.IsZero() {
		s.StartedAt = b.clock()
	}
	b.sessions[s.ID] = s
	return s, nil
}

func (b *Backend) RecordAnswer(_ context.Context, a domain.UserAnswer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.sessions[a.SessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	if a.ID == "" {
		a.ID = b.newID()
	}
	b.answers[a.SessionID] = append(b.answers[a.SessionID], a)
	return nil
}

func (b *Backend) FinalizeSession(_ context.Context, sessionID string, res domain.SessionResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	completed := res.CompletedAt
	s.CorrectCount = res.CorrectCount
	s.IncorrectCount = res.IncorrectCount
	s.Score = res.Score
	s.Passed = res.Passed
	s.DurationMS = res.DurationMS
	s.CompletedAt = &completed
	b.sessions[sessionID] = s
	return nil
}

func (b *Backend) GetSession(_ context.Context, sessionID string) (domain.QuizSession, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.sessions[sessionID]
	if !ok {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	return s, nil
}

func (b *Backend) SessionAnswers(_ context.Context, sessionID string) ([]domain.UserAnswer, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]domain.UserAnswer{}, b.answers[sessionID]...), nil
}

func (b *Backend) CompletedSessions(_ context.Context, userID string) ([]domain.QuizSession, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.QuizSession, 0)
	for _, s := range b.sessions {
		if s.UserID == userID && s.Completed() {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(*out[j].CompletedAt) })
	return out, nil
}

func (b *Backend) LeaderboardSessions(_ context.Context, totalQuestions int) ([]domain.LeaderboardSession, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.LeaderboardSession, 0)
	for _, s := range b.sessions {
		if s.UserID == "" || s.TotalQuestions != totalQuestions {
			continue
		}
		out = append(out, domain.LeaderboardSession{
			UserID:         s.UserID,
			CorrectCount:   s.CorrectCount,
			TotalQuestions: s.TotalQuestions,
			Passed:         s.Passed,
		})
	}
	return out, nil
}

func (b *Backend) Usernames(_ context.Context, userIDs []string) (map[string]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]string, len(userIDs))
	for _, id := range userIDs {
		if p, ok := b.profiles[id]; ok && p.Username != "" {
			out[id] = p.Username
		}
	}
	return out, nil
}

func (b *Backend) GetProfile(_ context.Context, userID string) (domain.Profile, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.profiles[userID]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return p, nil
}

func (b *Backend) UpdateProfile(_ context.Context, userID string, u domain.ProfileUpdate) (domain.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.profiles[userID]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	p.Username = u.Username
	p.FirstName = u.FirstName
	p.LastName = u.LastName
	p.AvatarURL = u.AvatarURL
	b.profiles[userID] = p
	return p, nil
}

// UserRole defaults to the plain user role.
func (b *Backend) UserRole(_ context.Context, userID string) (domain.Role, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if r, ok := b.roles[userID]; ok {
		return r, nil
	}
	return domain.RoleUser, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func cloneQuestion(q domain.Question) domain.Question {
	q.Answers = append([]domain.Answer(nil), q.Answers...)
	return q
}
