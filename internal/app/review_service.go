package app

import (
	"context"
	"fmt"
	"strings"

	"footy-quiz-service/internal/domain"
)

// ReviewRepository reads persisted sessions and their answers.
type ReviewRepository interface {
	GetSession(ctx context.Context, sessionID string) (domain.QuizSession, error)
	SessionAnswers(ctx context.Context, sessionID string) ([]domain.UserAnswer, error)
	// CompletedSessions returns the user's finalized sessions, newest first.
	CompletedSessions(ctx context.Context, userID string) ([]domain.QuizSession, error)
}

// QuestionFinder loads questions, with answers, by id.
type QuestionFinder interface {
	QuestionsByIDs(ctx context.Context, ids []string) ([]domain.Question, error)
}

// ProfileRepository reads and edits profiles and role assignments.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
	UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (domain.Profile, error)
	UserRole(ctx context.Context, userID string) (domain.Role, error)
}

// ReviewService backs the review, history and profile views.
type ReviewService struct {
	sessions   ReviewRepository
	questions  QuestionFinder
	profiles   ProfileRepository
	fullLength int
}

func NewReviewService(sessions ReviewRepository, questions QuestionFinder, profiles ProfileRepository, fullLength int) *ReviewService {
	if fullLength <= 0 {
		fullLength = domain.DefaultQuestionCount
	}
	return &ReviewService{sessions: sessions, questions: questions, profiles: profiles, fullLength: fullLength}
}

// Review returns a session with its answers and the questions they refer to.
// Sessions owned by another user are reported as not found.
func (s *ReviewService) Review(ctx context.Context, sessionID, viewerID string) (domain.Review, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Review{}, err
	}
	if session.UserID != "" && session.UserID != viewerID {
		return domain.Review{}, domain.ErrSessionNotFound
	}

	answers, err := s.sessions.SessionAnswers(ctx, sessionID)
	if err != nil {
		return domain.Review{}, fmt.Errorf("load answers: %w", err)
	}
	ids := make([]string, 0, len(answers))
	for _, a := range answers {
		ids = append(ids, a.QuestionID)
	}

	questions := []domain.Question{}
	if len(ids) > 0 {
		questions, err = s.questions.QuestionsByIDs(ctx, ids)
		if err != nil {
			return domain.Review{}, fmt.Errorf("load questions: %w", err)
		}
	}
	return domain.Review{Session: session, Answers: answers, Questions: questions}, nil
}

// History lists the user's completed sessions, newest first.
func (s *ReviewService) History(ctx context.Context, userID string) ([]domain.HistoryEntry, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	sessions, err := s.sessions.CompletedSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.HistoryEntry, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, domain.HistoryEntry{QuizSession: session, ScorePercent: session.ScorePercent()})
	}
	return out, nil
}

// ProfileView is the profile page payload.
type ProfileView struct {
	Profile     domain.Profile      `json:"profile"`
	DisplayName string              `json:"displayName"`
	Initials    string              `json:"initials"`
	Role        domain.Role         `json:"role"`
	Stats       domain.ProfileStats `json:"stats"`
}

// Profile returns the user's profile, role and full-length quiz stats.
func (s *ReviewService) Profile(ctx context.Context, userID string) (ProfileView, error) {
	if userID == "" {
		return ProfileView{}, domain.ErrUnauthorized
	}
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return ProfileView{}, err
	}
	role, err := s.profiles.UserRole(ctx, userID)
	if err != nil {
		return ProfileView{}, fmt.Errorf("load role: %w", err)
	}
	if role == "" {
		// Users without an assignment are plain users.
		role = domain.RoleUser
	}
	sessions, err := s.sessions.CompletedSessions(ctx, userID)
	if err != nil {
		return ProfileView{}, fmt.Errorf("load sessions: %w", err)
	}
	return ProfileView{
		Profile:     profile,
		DisplayName: profile.DisplayName(),
		Initials:    initials(profile),
		Role:        role,
		Stats:       Stats(sessions, s.fullLength),
	}, nil
}

// UpdateProfile edits the user's profile.
func (s *ReviewService) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (domain.Profile, error) {
	if userID == "" {
		return domain.Profile{}, domain.ErrUnauthorized
	}
	update.Username = strings.TrimSpace(update.Username)
	if update.Username == "" {
		return domain.Profile{}, fmt.Errorf("%w: username is required", domain.ErrInvalidProfile)
	}
	return s.profiles.UpdateProfile(ctx, userID, update)
}

// Stats summarises completed sessions of exactly fullLength questions.
func Stats(sessions []domain.QuizSession, fullLength int) domain.ProfileStats {
	var (
		total  int
		passed int
		sum    float64
		best   float64
	)
	for _, s := range sessions {
		if !s.Completed() || s.TotalQuestions != fullLength {
			continue
		}
		total++
		sum += s.Score
		if s.Passed {
			passed++
		}
		if s.Score > best {
			best = s.Score
		}
	}
	if total == 0 {
		return domain.ProfileStats{}
	}
	return domain.ProfileStats{
		TotalQuizzes: total,
		AverageScore: domain.RoundPercent(sum / float64(total)),
		PassRate:     domain.RoundPercent(domain.Percent(passed, total)),
		BestScore:    domain.RoundPercent(best),
	}
}

func initials(p domain.Profile) string {
	if p.FirstName != "" && p.LastName != "" {
		return strings.ToUpper(string([]rune(p.FirstName)[:1]) + string([]rune(p.LastName)[:1]))
	}
	if p.Username != "" {
		r := []rune(p.Username)
		if len(r) > 2 {
			r = r[:2]
		}
		return strings.ToUpper(string(r))
	}
	return "U"
}
