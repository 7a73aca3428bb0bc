package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"footy-quiz-service/internal/app"
	"footy-quiz-service/internal/auth"
	"footy-quiz-service/internal/config"
	"footy-quiz-service/internal/engine"
	"footy-quiz-service/internal/infra/memory"
	"footy-quiz-service/internal/infra/postgres"
	infraredis "footy-quiz-service/internal/infra/redis"
	"footy-quiz-service/internal/logging"
	transport "footy-quiz-service/internal/transport/http"
	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// repositories groups the persistence the services and engine read from.
type repositories struct {
	catalog   app.CatalogRepository
	reviews   app.ReviewRepository
	questions app.QuestionFinder
	profiles  app.ProfileRepository
	board     app.LeaderboardRepository
	quizzes   engine.QuizFinder
	loader    engine.QuestionLoader
	sessions  engine.SessionStore
	close     func()
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(os.Stderr, cfg.LogLevel())

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	repos, err := openRepositories(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer repos.close()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	boardTTL := config.TTLDuration(cfg.Leaderboard.TTL, time.Minute)

	var (
		questions engine.QuestionLoader
		board     app.LeaderboardCache
		notifier  auth.Notifier
		publisher auth.Publisher
	)
	if redisClient != nil {
		questions = infraredis.NewQuestionCache(redisClient, repos.loader, quizTTL, log)
		board = infraredis.NewLeaderboardCache(redisClient, log)
		n := infraredis.NewAuthNotifier(redisClient, cfg.AuthChannel(), log)
		notifier, publisher = n, n
	} else {
		questions = memory.NewQuestionCache(repos.loader, quizTTL)
		board = memory.NewLeaderboardCache()
		b := auth.NewBroadcaster()
		notifier, publisher = b, b
	}

	authStore := auth.NewStore(notifier, log)
	if err := authStore.Start(ctx); err != nil {
		return fmt.Errorf("start auth store: %w", err)
	}
	defer authStore.Close()

	maxElapsed := config.TTLDuration(cfg.Engine.FinalizeMaxElapsed, 10*time.Second)
	eng := engine.New(repos.quizzes, questions, repos.sessions,
		engine.WithLogger(log),
		engine.WithWriteTimeout(config.TTLDuration(cfg.Engine.WriteTimeout, 5*time.Second)),
		engine.WithFinalizeBackoff(func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxElapsedTime = maxElapsed
			return b
		}),
	)

	api := transport.NewAPI(
		app.NewCatalogService(repos.catalog),
		app.NewReviewService(repos.reviews, repos.questions, repos.profiles, cfg.LeaderboardQuestionCount()),
		app.NewLeaderboardService(repos.board, board, boardTTL, cfg.LeaderboardLimit(), cfg.LeaderboardQuestionCount(), log),
		publisher,
	)
	verifier := auth.NewVerifier(cfg.JWTSecret())
	handler := transport.NewRouter(api, transport.NewWSHandler(eng, log), verifier, authStore, log)

	// WriteTimeout stays unset: WebSocket play runs for many minutes.
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openRepositories uses Postgres when configured and the seeded in-memory
// backend otherwise.
func openRepositories(ctx context.Context, cfg config.Config, log *slog.Logger) (repositories, error) {
	if cfg.Postgres.URL == "" {
		log.Warn("postgres not configured, using in-memory sample data")
		b := memory.NewBackend()
		memory.SeedFootball(b)
		return repositories{
			catalog: b, reviews: b, questions: b, profiles: b, board: b,
			quizzes: b, loader: b, sessions: b,
			close: func() {},
		}, nil
	}

	if err := runMigrationsWithConfig(ctx, cfg, log, false); err != nil {
		return repositories{}, err
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return repositories{}, fmt.Errorf("connect postgres: %w", err)
	}
	db := postgres.Open(cfg.Postgres.URL)
	store := postgres.NewStore(db)
	loader := postgres.NewQuestionLoader(pool)
	return repositories{
		catalog: store, reviews: store, questions: loader, profiles: store, board: store,
		quizzes: store, loader: loader, sessions: store,
		close: func() {
			pool.Close()
			_ = db.Close()
		},
	}, nil
}
