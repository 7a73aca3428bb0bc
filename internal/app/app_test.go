package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"footy-quiz-service/internal/app"
	"footy-quiz-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	categories []domain.Category
	quizzes    map[string][]domain.Quiz
	counts     map[string]int
	created    []domain.Quiz
}

func (f *fakeCatalog) ListCategories(context.Context) ([]domain.Category, error) {
	return f.categories, nil
}

func (f *fakeCatalog) CategoryByName(_ context.Context, name string) (domain.Category, error) {
	for _, c := range f.categories {
		if c.Name == name {
			return c, nil
		}
	}
	return domain.Category{}, domain.ErrCategoryNotFound
}

func (f *fakeCatalog) QuizzesByCategory(_ context.Context, id string) ([]domain.Quiz, error) {
	return f.quizzes[id], nil
}

func (f *fakeCatalog) CountQuestions(_ context.Context, id string) (int, error) {
	return f.counts[id], nil
}

func (f *fakeCatalog) CreateQuiz(_ context.Context, q domain.Quiz) (domain.Quiz, error) {
	q.ID = "custom-1"
	f.created = append(f.created, q)
	return q, nil
}

func TestCategoryQuizzesByName(t *testing.T) {
	repo := &fakeCatalog{
		categories: []domain.Category{{ID: "c1", Name: "Offside"}},
		quizzes:    map[string][]domain.Quiz{"c1": {{ID: "q1", Name: "Offside basics"}}},
		counts:     map[string]int{"c1": 30},
	}
	svc := app.NewCatalogService(repo)

	listing, err := svc.CategoryQuizzes(context.Background(), "Offside")
	require.NoError(t, err)
	assert.Equal(t, "c1", listing.Category.ID)
	assert.Len(t, listing.Quizzes, 1)
	assert.Equal(t, 30, listing.QuestionCount)

	_, err = svc.CategoryQuizzes(context.Background(), "Handball")
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
}

func TestCreateCustomQuizValidates(t *testing.T) {
	repo := &fakeCatalog{}
	svc := app.NewCatalogService(repo)
	ctx := context.Background()

	_, err := svc.CreateCustomQuiz(ctx, app.CustomQuizRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidQuiz)

	_, err = svc.CreateCustomQuiz(ctx, app.CustomQuizRequest{CategoryIDs: []string{"c1"}, QuestionCount: app.MaxCustomQuestionCount + 1})
	assert.ErrorIs(t, err, domain.ErrInvalidQuiz)

	quiz, err := svc.CreateCustomQuiz(ctx, app.CustomQuizRequest{CategoryIDs: []string{"c1", "c2", "c1", " "}})
	require.NoError(t, err)
	assert.True(t, quiz.IsCustom)
	assert.Equal(t, []string{"c1", "c2"}, quiz.CategoryIDs)
	assert.Equal(t, app.DefaultCustomQuestionCount, quiz.QuestionCount)
	assert.Len(t, repo.created, 1)
}

type fakeSessions struct {
	sessions map[string]domain.QuizSession
	answers  map[string][]domain.UserAnswer
}

func (f *fakeSessions) GetSession(_ context.Context, id string) (domain.QuizSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeSessions) SessionAnswers(_ context.Context, id string) ([]domain.UserAnswer, error) {
	return f.answers[id], nil
}

func (f *fakeSessions) CompletedSessions(_ context.Context, userID string) ([]domain.QuizSession, error) {
	var out []domain.QuizSession
	for _, s := range f.sessions {
		if s.UserID == userID && s.Completed() {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeQuestions struct {
	asked [][]string
}

func (f *fakeQuestions) QuestionsByIDs(_ context.Context, ids []string) ([]domain.Question, error) {
	f.asked = append(f.asked, ids)
	out := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Question{ID: id, Text: "question " + id})
	}
	return out, nil
}

type fakeProfiles struct {
	profiles map[string]domain.Profile
	roles    map[string]domain.Role
	roleErr  error
}

func (f *fakeProfiles) GetProfile(_ context.Context, id string) (domain.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeProfiles) UpdateProfile(_ context.Context, id string, u domain.ProfileUpdate) (domain.Profile, error) {
	p := f.profiles[id]
	p.Username, p.FirstName, p.LastName, p.AvatarURL = u.Username, u.FirstName, u.LastName, u.AvatarURL
	f.profiles[id] = p
	return p, nil
}

func (f *fakeProfiles) UserRole(_ context.Context, id string) (domain.Role, error) {
	if f.roleErr != nil {
		return "", f.roleErr
	}
	return f.roles[id], nil
}

func completedSession(id, user string, correct, total int) domain.QuizSession {
	done := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	score := domain.Percent(correct, total)
	return domain.QuizSession{
		ID:             id,
		UserID:         user,
		TotalQuestions: total,
		CorrectCount:   correct,
		IncorrectCount: total - correct,
		Score:          score,
		Passed:         score >= domain.PassThreshold,
		CompletedAt:    &done,
	}
}

func TestReviewLoadsReferencedQuestions(t *testing.T) {
	sessions := &fakeSessions{
		sessions: map[string]domain.QuizSession{"s1": completedSession("s1", "u1", 1, 2)},
		answers: map[string][]domain.UserAnswer{"s1": {
			{QuestionID: "q1", SelectedAnswerID: "a1", IsCorrect: true},
			{QuestionID: "q2", SelectedAnswerID: "a3"},
		}},
	}
	questions := &fakeQuestions{}
	svc := app.NewReviewService(sessions, questions, &fakeProfiles{}, 24)

	review, err := svc.Review(context.Background(), "s1", "u1")
	require.NoError(t, err)
	assert.Len(t, review.Answers, 2)
	assert.Len(t, review.Questions, 2)
	assert.Equal(t, [][]string{{"q1", "q2"}}, questions.asked)

	_, err = svc.Review(context.Background(), "s1", "someone-else")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestReviewWithoutAnswersSkipsQuestionLookup(t *testing.T) {
	sessions := &fakeSessions{
		sessions: map[string]domain.QuizSession{"s1": completedSession("s1", "", 0, 3)},
		answers:  map[string][]domain.UserAnswer{},
	}
	questions := &fakeQuestions{}
	svc := app.NewReviewService(sessions, questions, &fakeProfiles{}, 24)

	review, err := svc.Review(context.Background(), "s1", "")
	require.NoError(t, err)
	assert.Empty(t, review.Questions)
	assert.Empty(t, questions.asked)
}

func TestProfileStatsUseFullLengthSessionsOnly(t *testing.T) {
	sessions := &fakeSessions{sessions: map[string]domain.QuizSession{
		"a": completedSession("a", "u1", 24, 24),
		"b": completedSession("b", "u1", 18, 24),
		"c": completedSession("c", "u1", 10, 10), // custom length, ignored
		"d": {ID: "d", UserID: "u1", TotalQuestions: 24},
	}}
	profiles := &fakeProfiles{
		profiles: map[string]domain.Profile{"u1": {ID: "u1", Username: "ref", FirstName: "Pierluigi", LastName: "Collina"}},
		roles:    map[string]domain.Role{},
	}
	svc := app.NewReviewService(sessions, &fakeQuestions{}, profiles, 24)

	view, err := svc.Profile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, view.Role)
	assert.Equal(t, "Pierluigi Collina", view.DisplayName)
	assert.Equal(t, "PC", view.Initials)
	assert.Equal(t, domain.ProfileStats{TotalQuizzes: 2, AverageScore: 88, PassRate: 50, BestScore: 100}, view.Stats)

	_, err = svc.Profile(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestProfileRoleLookupFailureIsReturned(t *testing.T) {
	profiles := &fakeProfiles{
		profiles: map[string]domain.Profile{"u1": {ID: "u1", Username: "ref"}},
		roleErr:  errors.New("roles table unavailable"),
	}
	svc := app.NewReviewService(&fakeSessions{}, &fakeQuestions{}, profiles, 24)

	_, err := svc.Profile(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roles table unavailable")

	profiles.roleErr = nil
	profiles.roles = map[string]domain.Role{"u1": domain.RoleAdmin}
	view, err := svc.Profile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, view.Role)
}

func TestUpdateProfileRequiresUsername(t *testing.T) {
	profiles := &fakeProfiles{profiles: map[string]domain.Profile{"u1": {ID: "u1"}}}
	svc := app.NewReviewService(&fakeSessions{}, &fakeQuestions{}, profiles, 24)

	_, err := svc.UpdateProfile(context.Background(), "u1", domain.ProfileUpdate{Username: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidProfile)

	p, err := svc.UpdateProfile(context.Background(), "u1", domain.ProfileUpdate{Username: " linesman "})
	require.NoError(t, err)
	assert.Equal(t, "linesman", p.Username)
}

func TestAggregateLeaderboard(t *testing.T) {
	sessions := []domain.LeaderboardSession{
		{UserID: "u1", CorrectCount: 24, TotalQuestions: 24, Passed: true},
		{UserID: "u1", CorrectCount: 12, TotalQuestions: 24},
		{UserID: "u2", CorrectCount: 23, TotalQuestions: 24, Passed: true},
		{UserID: "", CorrectCount: 24, TotalQuestions: 24, Passed: true},
	}
	names := map[string]string{"u2": "var_ref"}

	entries := app.AggregateLeaderboard(sessions, names, 20)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.LeaderboardEntry{UserID: "u2", Username: "var_ref", TotalQuizzes: 1, AverageScore: 96, PassRate: 100}, entries[0])
	assert.Equal(t, domain.LeaderboardEntry{UserID: "u1", Username: "Anonymous", TotalQuizzes: 2, AverageScore: 75, PassRate: 50}, entries[1])
}

func TestAggregateLeaderboardKeepsTopLimit(t *testing.T) {
	var sessions []domain.LeaderboardSession
	for i := 0; i < 25; i++ {
		sessions = append(sessions, domain.LeaderboardSession{
			UserID:         string(rune('a' + i)),
			CorrectCount:   i,
			TotalQuestions: 24,
		})
	}
	entries := app.AggregateLeaderboard(sessions, nil, 20)
	require.Len(t, entries, 20)
	assert.Equal(t, string(rune('a'+24)), entries[0].UserID)
	for i := 1; i < len(entries); i++ {
		assert.GreaterOrEqual(t, entries[i-1].AverageScore, entries[i].AverageScore)
	}
}

func TestAggregateLeaderboardTieBreak(t *testing.T) {
	sessions := []domain.LeaderboardSession{
		{UserID: "u1", CorrectCount: 18, TotalQuestions: 24},
		{UserID: "u2", CorrectCount: 18, TotalQuestions: 24},
	}
	entries := app.AggregateLeaderboard(sessions, map[string]string{"u1": "zed", "u2": "amy"}, 0)
	require.Len(t, entries, 2)
	assert.Equal(t, "amy", entries[0].Username)
}

type fakeBoardRepo struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeBoardRepo) LeaderboardSessions(ctx context.Context, total int) ([]domain.LeaderboardSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return []domain.LeaderboardSession{{UserID: "u1", CorrectCount: total, TotalQuestions: total, Passed: true}}, nil
}

func (f *fakeBoardRepo) Usernames(context.Context, []string) (map[string]string, error) {
	return nil, errors.New("profiles unavailable")
}

type mapCache struct {
	entries []domain.LeaderboardEntry
	ttl     time.Duration
}

func (c *mapCache) Get(context.Context) ([]domain.LeaderboardEntry, bool) {
	return c.entries, c.entries != nil
}

func (c *mapCache) Set(_ context.Context, entries []domain.LeaderboardEntry, ttl time.Duration) {
	c.entries, c.ttl = entries, ttl
}

func TestLeaderboardLoadIgnoresCallerCancellation(t *testing.T) {
	repo := &fakeBoardRepo{}
	svc := app.NewLeaderboardService(repo, nil, 0, 20, 24, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	entries, err := svc.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "u1", entries[0].UserID)
}

func TestLeaderboardServiceCachesResult(t *testing.T) {
	repo := &fakeBoardRepo{}
	cache := &mapCache{}
	svc := app.NewLeaderboardService(repo, cache, time.Minute, 20, 24, nil)

	first, err := svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "Anonymous", first[0].Username)

	second, err := svc.Leaderboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, time.Minute, cache.ttl)
}

func TestLeaderboardServicePropagatesErrors(t *testing.T) {
	repo := &fakeBoardRepo{err: errors.New("db down")}
	svc := app.NewLeaderboardService(repo, nil, time.Minute, 20, 24, nil)

	_, err := svc.Leaderboard(context.Background())
	assert.Error(t, err)
}

func TestHistoryListsCompletedSessions(t *testing.T) {
	sessions := &fakeSessions{sessions: map[string]domain.QuizSession{
		"a": completedSession("a", "u1", 20, 24),
		"b": {ID: "b", UserID: "u1", TotalQuestions: 24},
	}}
	svc := app.NewReviewService(sessions, &fakeQuestions{}, &fakeProfiles{}, 24)

	history, err := svc.History(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "a", history[0].ID)
	assert.Equal(t, 83, history[0].ScorePercent)

	_, err = svc.History(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
