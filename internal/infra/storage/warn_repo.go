package storage

import (
	"context"
	"database/sql"
)

type WarnRepo struct{ db *sql.DB }

func NewWarnRepo(db *sql.DB) *WarnRepo { return &WarnRepo{db: db} }

// Add: log append-only + incremento del contador de por vida del usuario.
func (r *WarnRepo) Add(ctx context.Context, w Warn) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO warns (session_id, discord_id, reason, source)
VALUES ($1, $2, $3, $4)
`, w.SessionID, w.DiscordID, w.Reason, w.Source); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE users SET warns_total = warns_total + 1 WHERE discord_id = $1
`, w.DiscordID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *WarnRepo) CountForSession(ctx context.Context, sessionID, discordID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM warns WHERE session_id = $1 AND discord_id = $2
`, sessionID, discordID).Scan(&n)
	return n, err
}
