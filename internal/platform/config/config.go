package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JudgeBaseURL      string
	JudgeAuthHeader   string
	JudgeAuthToken    string
	JudgePollInterval time.Duration
	JudgePollTimeout  time.Duration

	StreakLockTTL       time.Duration
	StreakSweepInterval time.Duration

	LeaderboardCacheTTL time.Duration
	LeaderboardLimit    int
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:    getEnv("API_PORT", "8080"),
		JWTKey:     []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:     time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "judgehub_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		JudgeBaseURL:      getEnv("JUDGE_BASE_URL", "http://localhost:2358"),
		JudgeAuthHeader:   getEnv("JUDGE_AUTH_HEADER", "X-Auth-Token"),
		JudgeAuthToken:    getEnv("JUDGE_AUTH_TOKEN", ""),
		JudgePollInterval: time.Duration(getEnvAsInt("JUDGE_POLL_INTERVAL_MS", 1000)) * time.Millisecond,
		JudgePollTimeout:  time.Duration(getEnvAsInt("JUDGE_POLL_TIMEOUT_SECONDS", 60)) * time.Second,

		StreakLockTTL:       time.Duration(getEnvAsInt("STREAK_LOCK_TTL_SECONDS", 10)) * time.Second,
		StreakSweepInterval: time.Duration(getEnvAsInt("STREAK_SWEEP_INTERVAL_MINUTES", 60)) * time.Minute,

		LeaderboardCacheTTL: time.Duration(getEnvAsInt("LEADERBOARD_CACHE_TTL_SECONDS", 30)) * time.Second,
		LeaderboardLimit:    getEnvAsInt("LEADERBOARD_LIMIT", 25),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
