package app

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"footy-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// LeaderboardRepository reads ranking inputs.
type LeaderboardRepository interface {
	// LeaderboardSessions returns sessions with the given length and a non-empty user.
	LeaderboardSessions(ctx context.Context, totalQuestions int) ([]domain.LeaderboardSession, error)
	Usernames(ctx context.Context, userIDs []string) (map[string]string, error)
}

// LeaderboardCache stores the computed board between requests.
type LeaderboardCache interface {
	Get(ctx context.Context) ([]domain.LeaderboardEntry, bool)
	Set(ctx context.Context, entries []domain.LeaderboardEntry, ttl time.Duration)
}

// leaderboardLoadTimeout bounds a shared load, which outlives any one caller.
const leaderboardLoadTimeout = 10 * time.Second

// LeaderboardService ranks users across qualifying sessions.
type LeaderboardService struct {
	repo          LeaderboardRepository
	cache         LeaderboardCache
	ttl           time.Duration
	limit         int
	questionCount int
	log           *slog.Logger
	sf            singleflight.Group
}

// NewLeaderboardService builds the service; cache may be nil.
func NewLeaderboardService(repo LeaderboardRepository, cache LeaderboardCache, ttl time.Duration, limit, questionCount int, log *slog.Logger) *LeaderboardService {
	if log == nil {
		log = slog.Default()
	}
	return &LeaderboardService{
		repo:          repo,
		cache:         cache,
		ttl:           ttl,
		limit:         limit,
		questionCount: questionCount,
		log:           log.With("component", "leaderboard"),
	}
}

// Leaderboard returns the top users by average score.
func (s *LeaderboardService) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	if s.cache != nil {
		if entries, ok := s.cache.Get(ctx); ok {
			return entries, nil
		}
	}

	result, err, _ := s.sf.Do("leaderboard", func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), leaderboardLoadTimeout)
		defer cancel()
		sessions, err := s.repo.LeaderboardSessions(ctx, s.questionCount)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0)
		seen := make(map[string]struct{})
		for _, session := range sessions {
			if session.UserID == "" {
				continue
			}
			if _, ok := seen[session.UserID]; !ok {
				seen[session.UserID] = struct{}{}
				ids = append(ids, session.UserID)
			}
		}
		names, err := s.repo.Usernames(ctx, ids)
		if err != nil {
			// Ranking still works; names fall back to Anonymous.
			s.log.Warn("load usernames failed", "err", err)
			names = nil
		}
		entries := AggregateLeaderboard(sessions, names, s.limit)
		if s.cache != nil && s.ttl > 0 {
			s.cache.Set(ctx, entries, s.ttl)
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.LeaderboardEntry), nil
}

// AggregateLeaderboard groups sessions per user, averages their percentage
// scores and pass rates, and keeps the top limit users by average score.
func AggregateLeaderboard(sessions []domain.LeaderboardSession, usernames map[string]string, limit int) []domain.LeaderboardEntry {
	type stats struct {
		quizzes int
		score   float64
		passed  int
	}
	byUser := make(map[string]*stats)
	for _, s := range sessions {
		if s.UserID == "" || s.TotalQuestions <= 0 {
			continue
		}
		st, ok := byUser[s.UserID]
		if !ok {
			st = &stats{}
			byUser[s.UserID] = st
		}
		st.quizzes++
		st.score += domain.Percent(s.CorrectCount, s.TotalQuestions)
		if s.Passed {
			st.passed++
		}
	}

	entries := make([]domain.LeaderboardEntry, 0, len(byUser))
	for userID, st := range byUser {
		name := usernames[userID]
		if name == "" {
			name = "Anonymous"
		}
		entries = append(entries, domain.LeaderboardEntry{
			UserID:       userID,
			Username:     name,
			TotalQuizzes: st.quizzes,
			AverageScore: domain.RoundPercent(st.score / float64(st.quizzes)),
			PassRate:     domain.RoundPercent(domain.Percent(st.passed, st.quizzes)),
		})
	}

	// Ties keep a stable order: pass rate, then name, then id.
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.AverageScore != b.AverageScore {
			return a.AverageScore > b.AverageScore
		}
		if a.PassRate != b.PassRate {
			return a.PassRate > b.PassRate
		}
		if a.Username != b.Username {
			return a.Username < b.Username
		}
		return a.UserID < b.UserID
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
