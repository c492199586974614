package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Game     GameConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/quizlive?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// GameConfig holds the session engine tunables.
type GameConfig struct {
	MaxPlayers              int
	MinScoreFraction        float64
	NicknameMinLen          int
	NicknameMaxLen          int
	AccessCodeLength        int
	DefaultTimeLimitSeconds int
	DefaultBasePoints       int
	LobbyTimeout            time.Duration
	GameTimeout             time.Duration
	FinishedGrace           time.Duration
	SweepInterval           time.Duration
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	jwtExpire, _ := strconv.Atoi(getEnv("JWT_EXPIRE_HOURS", "24"))
	minFraction, _ := strconv.ParseFloat(getEnv("GAME_MIN_SCORE_FRACTION", "0.5"), 64)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", "postgres://localhost:5432/quizlive?sslmode=disable"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "quizlive"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: jwtExpire,
		},
		Game: GameConfig{
			MaxPlayers:              getEnvInt("GAME_MAX_PLAYERS", 100),
			MinScoreFraction:        minFraction,
			NicknameMinLen:          getEnvInt("GAME_NICKNAME_MIN_LEN", 2),
			NicknameMaxLen:          getEnvInt("GAME_NICKNAME_MAX_LEN", 20),
			AccessCodeLength:        getEnvInt("GAME_ACCESS_CODE_LENGTH", 6),
			DefaultTimeLimitSeconds: getEnvInt("GAME_DEFAULT_TIME_LIMIT_SEC", 30),
			DefaultBasePoints:       getEnvInt("GAME_DEFAULT_BASE_POINTS", 1000),
			LobbyTimeout:            time.Duration(getEnvInt("GAME_LOBBY_TIMEOUT_MIN", 30)) * time.Minute,
			GameTimeout:             time.Duration(getEnvInt("GAME_TIMEOUT_MIN", 120)) * time.Minute,
			FinishedGrace:           time.Duration(getEnvInt("GAME_FINISHED_GRACE_MIN", 10)) * time.Minute,
			SweepInterval:           time.Duration(getEnvInt("GAME_SWEEP_INTERVAL_SEC", 60)) * time.Second,
		},
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
