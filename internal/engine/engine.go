package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"footy-quiz-service/internal/domain"
	"github.com/cenkalti/backoff/v4"
)

// QuestionTimeLimit is the countdown for every question, in seconds.
const QuestionTimeLimit = 45

// QuizFinder resolves the quiz a player asked for.
type QuizFinder interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuestionLoader draws up to limit questions from the given categories.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, categoryIDs []string, limit int) ([]domain.Question, error)
}

// SessionStore persists session lifecycle writes.
type SessionStore interface {
	CreateSession(ctx context.Context, session domain.QuizSession) (domain.QuizSession, error)
	RecordAnswer(ctx context.Context, answer domain.UserAnswer) error
	FinalizeSession(ctx context.Context, sessionID string, result domain.SessionResult) error
}

// Engine starts quiz attempts.
type Engine struct {
	quizzes      QuizFinder
	questions    QuestionLoader
	sessions     SessionStore
	log          *slog.Logger
	now          func() time.Time
	newTicker    TickerFunc
	shuffle      func([]domain.Question)
	backoff      func() backoff.BackOff
	writeTimeout time.Duration
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithTicker overrides the countdown ticker factory (tests).
func WithTicker(fn TickerFunc) Option {
	return func(e *Engine) { e.newTicker = fn }
}

// WithShuffle overrides how multi-category question sets are shuffled.
func WithShuffle(fn func([]domain.Question)) Option {
	return func(e *Engine) { e.shuffle = fn }
}

// WithLogger sets the engine logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithFinalizeBackoff sets the retry policy for the finalize write.
func WithFinalizeBackoff(fn func() backoff.BackOff) Option {
	return func(e *Engine) { e.backoff = fn }
}

// WithWriteTimeout bounds each backend write made during play.
func WithWriteTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.writeTimeout = d
		}
	}
}

func New(quizzes QuizFinder, questions QuestionLoader, sessions SessionStore, opts ...Option) *Engine {
	e := &Engine{
		quizzes:      quizzes,
		questions:    questions,
		sessions:     sessions,
		log:          slog.Default(),
		now:          time.Now,
		newTicker:    NewTimeTicker,
		shuffle:      randomShuffle(),
		backoff:      defaultBackoff,
		writeTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("component", "engine")
	return e
}

// StartRequest identifies what to play and who is playing. UserID is empty
// for anonymous play.
type StartRequest struct {
	QuizID string
	UserID string
}

// Start resolves the question set, creates the session record and begins the
// first question. An empty question set yields an attempt in the
// NoQuestionsAvailable state with no session and no timer.
func (e *Engine) Start(ctx context.Context, req StartRequest) (*Attempt, error) {
	quiz, err := e.quizzes.GetQuiz(ctx, req.QuizID)
	if err != nil {
		return nil, err
	}

	loaded, err := e.questions.LoadQuestions(ctx, quiz.CategoryIDs, quiz.QuestionLimit())
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(loaded) == 0 {
		e.log.Info("no questions available", "quiz_id", quiz.ID)
		return newEmptyAttempt(quiz.ID), nil
	}

	// loaded may be shared with a cache; never reorder it in place.
	questions := make([]domain.Question, len(loaded))
	copy(questions, loaded)
	if quiz.IsCustom || len(quiz.CategoryIDs) > 1 {
		e.shuffle(questions)
	}

	session, err := e.sessions.CreateSession(ctx, domain.QuizSession{
		UserID:         req.UserID,
		QuizID:         quiz.ID,
		TotalQuestions: len(questions),
		StartedAt:      e.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSessionNotCreated, err)
	}
	if session.ID == "" {
		return nil, domain.ErrSessionNotCreated
	}

	a := newAttempt(context.WithoutCancel(ctx), e, quiz.ID, session, questions)
	e.log.Info("quiz started", "quiz_id", quiz.ID, "session_id", session.ID, "questions", len(questions))
	a.start()
	return a, nil
}

func defaultBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 10 * time.Second
	return b
}

func randomShuffle() func([]domain.Question) {
	var mu sync.Mutex
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	return func(qs []domain.Question) {
		mu.Lock()
		defer mu.Unlock()
		rnd.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
	}
}
