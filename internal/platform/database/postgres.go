package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"sqlgym/internal/platform/config"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
)

var DB *sql.DB

func Connect() {
	var err error
	DB, err = sql.Open("pgx", config.AppConfig.DBConnStr)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	if err = DB.Ping(); err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}

	fmt.Println("Successfully connected to PostgreSQL database!")
}

func Close() {
	if DB != nil {
		DB.Close()
		fmt.Println("Database connection closed.")
	}
}

var schema = `
CREATE TABLE IF NOT EXISTS problems (
    id               VARCHAR(64) PRIMARY KEY,
    slug             VARCHAR(255) UNIQUE NOT NULL,
    title            VARCHAR(255) NOT NULL,
    dataset_sql      TEXT NOT NULL,
    tables_json      TEXT NOT NULL,
    runtime_limit_ms INT NOT NULL,
    memory_limit_kb  INT NOT NULL,
    expected_json    TEXT NOT NULL,
    validation_json  TEXT NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS submissions (
    id         VARCHAR(64) PRIMARY KEY,
    user_id    VARCHAR(64) NOT NULL,
    problem_id VARCHAR(64) NOT NULL REFERENCES problems(id),
    sql_text   TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS execution_results (
    id                VARCHAR(64) PRIMARY KEY,
    submission_id     VARCHAR(64) UNIQUE NOT NULL REFERENCES submissions(id),
    verdict           VARCHAR(32) NOT NULL,
    passed            BOOLEAN NOT NULL,
    execution_time_ms INT NOT NULL,
    rows_returned     INT NOT NULL,
    error_message     TEXT NULL,
    validation_detail TEXT NULL,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS fallback_jobs (
    id           VARCHAR(64) PRIMARY KEY,
    job_id       VARCHAR(64) UNIQUE NOT NULL,
    payload      TEXT NOT NULL,
    status       VARCHAR(32) NOT NULL DEFAULT 'pending',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    processed_at TIMESTAMPTZ NULL
);

CREATE INDEX IF NOT EXISTS idx_fallback_jobs_pending
    ON fallback_jobs (created_at) WHERE status = 'pending';
`

// Migrate applies the schema. Idempotent; safe to run at every startup.
func Migrate() {
	if _, err := DB.Exec(schema); err != nil {
		log.Fatalf("Error applying database schema: %v", err)
	}
}
