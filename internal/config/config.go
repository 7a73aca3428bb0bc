package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		Channel   string `yaml:"channel"`
	} `yaml:"auth"`
	Quiz struct {
		// TTL controls how long question sets stay cached.
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Leaderboard struct {
		TTL           string `yaml:"ttl"`
		Limit         int    `yaml:"limit"`
		QuestionCount int    `yaml:"question_count"`
	} `yaml:"leaderboard"`
	Engine struct {
		WriteTimeout       string `yaml:"write_timeout"`
		FinalizeMaxElapsed string `yaml:"finalize_max_elapsed"`
	} `yaml:"engine"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// LogLevel maps the configured level name to a slog level, defaulting to info.
func (c Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// JWTSecret falls back to QUIZ_JWT_SECRET and then a development secret.
func (c Config) JWTSecret() []byte {
	if c.Auth.JWTSecret != "" {
		return []byte(c.Auth.JWTSecret)
	}
	if s := os.Getenv("QUIZ_JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("footy-quiz-dev-secret")
}

// AuthChannel is the pub/sub channel carrying auth-change notifications.
func (c Config) AuthChannel() string {
	if c.Auth.Channel == "" {
		return "auth:changes"
	}
	return c.Auth.Channel
}

// LeaderboardLimit defaults to 20 entries.
func (c Config) LeaderboardLimit() int {
	if c.Leaderboard.Limit <= 0 {
		return 20
	}
	return c.Leaderboard.Limit
}

// LeaderboardQuestionCount is the quiz length that qualifies for ranking.
func (c Config) LeaderboardQuestionCount() int {
	if c.Leaderboard.QuestionCount <= 0 {
		return 24
	}
	return c.Leaderboard.QuestionCount
}
