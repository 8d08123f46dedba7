package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Database
	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Redis
	RedisURL string

	// JWT
	JWTSecret     string
	JWTExpiration time.Duration

	// CORS
	CORSAllowedOrigins []string

	// Matchmaking
	QueueBaseWindow    int
	QueueWindowStep    int
	QueueMaxWindow     int
	QueueWidenEvery    time.Duration
	QueueTTL           time.Duration
	MatchmakingSweep   time.Duration
	MatchCandidateScan int

	// Battle
	TurnTimeout    time.Duration
	BattleStateTTL time.Duration
	MaxIdleStrikes int
	MaxTurns       int
	BattleLockTTL  time.Duration
	BattleSweep    time.Duration
	EloKFactor     float64

	// Ranking
	RankingSyncBatch       int
	RankingSyncConcurrency int

	// Rate limit (요청 수 / 윈도우)
	RateLimitActions int
	RateLimitQueue   int
	RateLimitWindow  time.Duration

	// 인스턴스 간 이벤트 중계
	EventRelayEnabled bool
	EventRelayChannel string
}

func Load() (*Config, error) {
	// .env 파일 로드 (있는 경우)
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:      getEnv("JWT_SECRET", "your-secret-key"),
		JWTExpiration:  parseDuration(getEnv("JWT_EXPIRATION", "24h"), 24*time.Hour),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),

		QueueBaseWindow:    getEnvInt("PVP_QUEUE_BASE_WINDOW", 100),
		QueueWindowStep:    getEnvInt("PVP_QUEUE_WINDOW_STEP", 50),
		QueueMaxWindow:     getEnvInt("PVP_QUEUE_MAX_WINDOW", 500),
		QueueWidenEvery:    parseDuration(getEnv("PVP_QUEUE_WIDEN_EVERY", "10s"), 10*time.Second),
		QueueTTL:           parseDuration(getEnv("PVP_QUEUE_TTL", "5m"), 5*time.Minute),
		MatchmakingSweep:   parseDuration(getEnv("PVP_MATCHMAKING_INTERVAL", "5s"), 5*time.Second),
		MatchCandidateScan: getEnvInt("PVP_MATCH_CANDIDATE_LIMIT", 50),

		TurnTimeout:    parseDuration(getEnv("PVP_TURN_TIMEOUT", "30s"), 30*time.Second),
		BattleStateTTL: parseDuration(getEnv("PVP_BATTLE_STATE_TTL", "10m"), 10*time.Minute),
		MaxIdleStrikes: getEnvInt("PVP_MAX_IDLE_STRIKES", 3),
		MaxTurns:       getEnvInt("PVP_MAX_TURNS", 200),
		BattleLockTTL:  parseDuration(getEnv("PVP_BATTLE_LOCK_TTL", "5s"), 5*time.Second),
		BattleSweep:    parseDuration(getEnv("PVP_BATTLE_SWEEP_INTERVAL", "2s"), 2*time.Second),
		EloKFactor:     float64(getEnvInt("PVP_ELO_K", 32)),

		RankingSyncBatch:       getEnvInt("RANKING_SYNC_BATCH", 500),
		RankingSyncConcurrency: getEnvInt("RANKING_SYNC_CONCURRENCY", 8),

		RateLimitActions: getEnvInt("RATE_LIMIT_ACTIONS", 120),
		RateLimitQueue:   getEnvInt("RATE_LIMIT_QUEUE", 20),
		RateLimitWindow:  parseDuration(getEnv("RATE_LIMIT_WINDOW", "1m"), time.Minute),

		EventRelayEnabled: getEnvBool("EVENT_RELAY_ENABLED", false),
		EventRelayChannel: getEnv("EVENT_RELAY_CHANNEL", "pvp:events"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Env == "production" && c.JWTSecret == "your-secret-key" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if c.QueueBaseWindow <= 0 || c.QueueMaxWindow < c.QueueBaseWindow {
		return fmt.Errorf("invalid queue window: base=%d max=%d", c.QueueBaseWindow, c.QueueMaxWindow)
	}
	if c.TurnTimeout <= 0 {
		return fmt.Errorf("PVP_TURN_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
