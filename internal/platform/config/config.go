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

	SubmissionQueueName string
	EnqueueTimeout      time.Duration
	WorkerPoolSize      int
	WorkerPollInterval  time.Duration
	HeartbeatInterval   time.Duration
	// LivenessWindow is the heartbeat freshness threshold. Too short and a
	// busy pool looks dead (needless inline execution under load); too long
	// and submissions queue behind a crashed pool. Keep it at a few
	// heartbeat intervals.
	LivenessWindow   time.Duration
	SweeperInterval  time.Duration
	FallbackStaleAge time.Duration

	MaxSQLLength          int
	DefaultRuntimeLimitMs int
	DefaultMemoryLimitKb  int
	ResultRowCap          int
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:       getEnv("API_PORT", "8080"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "user"),
		DBPassword:    getEnv("DB_PASSWORD", "password"),
		DBName:        getEnv("DB_NAME", "sqlgym_db"),
		DBSslMode:     getEnv("DB_SSLMODE", "disable"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		SubmissionQueueName: getEnv("SUBMISSION_QUEUE_NAME", "submission_jobs_queue"),
		EnqueueTimeout:      time.Duration(getEnvAsInt("ENQUEUE_TIMEOUT_MS", 2000)) * time.Millisecond,
		WorkerPoolSize:      getEnvAsInt("WORKER_POOL_SIZE", 4),
		WorkerPollInterval:  time.Duration(getEnvAsInt("WORKER_POLL_INTERVAL_SECONDS", 5)) * time.Second,
		HeartbeatInterval:   time.Duration(getEnvAsInt("HEARTBEAT_INTERVAL_SECONDS", 3)) * time.Second,
		LivenessWindow:      time.Duration(getEnvAsInt("LIVENESS_WINDOW_SECONDS", 9)) * time.Second,
		SweeperInterval:     time.Duration(getEnvAsInt("SWEEPER_INTERVAL_SECONDS", 15)) * time.Second,
		FallbackStaleAge:    time.Duration(getEnvAsInt("FALLBACK_STALE_AGE_SECONDS", 300)) * time.Second,

		MaxSQLLength:          getEnvAsInt("MAX_SQL_LENGTH", 16384),
		DefaultRuntimeLimitMs: getEnvAsInt("DEFAULT_RUNTIME_LIMIT_MS", 5000),
		DefaultMemoryLimitKb:  getEnvAsInt("DEFAULT_MEMORY_LIMIT_KB", 65536),
		ResultRowCap:          getEnvAsInt("RESULT_ROW_CAP", 10000),
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
