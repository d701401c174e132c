package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Limpieza periódica: sesiones terminadas viejas y todo lo que cuelga de
// ellas. Corre como Lambda programada.
func handler(ctx context.Context) (string, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return "no DATABASE_URL", nil
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Sprintf("parse: %v", err), nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Sprintf("pool: %v", err), nil
	}
	defer pool.Close()

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, _ = pool.Exec(cctx, `
DELETE FROM warns
WHERE session_id IN (
  SELECT session_id FROM sessions
  WHERE status = 'ended' AND created_at < now() - INTERVAL '30 days');`)
	_, _ = pool.Exec(cctx, `
DELETE FROM formation_requirements
WHERE session_id IN (
  SELECT session_id FROM sessions
  WHERE status = 'ended' AND created_at < now() - INTERVAL '30 days');`)
	_, _ = pool.Exec(cctx, `
DELETE FROM sessions
WHERE status = 'ended' AND created_at < now() - INTERVAL '30 days';`)

	// presencias que quedaron colgadas sin sesión hace más de un día
	_, _ = pool.Exec(cctx, `
DELETE FROM voice_state
WHERE session_id IS NULL AND last_seen_at < now() - INTERVAL '1 day';`)

	return "ok", nil
}

func main() { lambda.Start(handler) }
