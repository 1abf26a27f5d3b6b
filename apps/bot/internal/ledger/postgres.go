package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

type PostgresService struct {
	sqlStore
}

func NewPostgresService(dsn string, h *UserHasher) (*PostgresService, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensurePostgresSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &PostgresService{sqlStore: newSQLStore(db, h, `
INSERT INTO command_log (scope, user_hash, command, args_json, outcome, created_at_ms)
VALUES ($1, $2, $3, $4, $5, $6)
`, `
SELECT id, scope, user_hash, command, args_json, outcome, created_at_ms
FROM command_log
WHERE scope = $1
ORDER BY id DESC
LIMIT $2
`)}, nil
}

func ensurePostgresSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS command_log (
    id BIGSERIAL PRIMARY KEY,
    scope TEXT NOT NULL,
    user_hash TEXT NOT NULL,
    command TEXT NOT NULL,
    args_json TEXT NOT NULL DEFAULT '[]',
    outcome TEXT NOT NULL DEFAULT '',
    created_at_ms BIGINT NOT NULL
)`); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_command_log_scope ON command_log (scope, id DESC)`)
	return err
}
