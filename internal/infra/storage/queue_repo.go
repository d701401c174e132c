package storage

import (
	"context"
	"database/sql"
)

type QueueRepo struct{ db *sql.DB }

func NewQueueRepo(db *sql.DB) *QueueRepo { return &QueueRepo{db: db} }

// Join: inserta o refresca (upsert). Reentrar con otro personaje pisa el anterior
// pero conserva el joined_at original (la posición FIFO no se pierde).
func (r *QueueRepo) Join(ctx context.Context, e QueueEntry) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO queue_entries (session_id, discord_id, role, character)
VALUES ($1, $2, $3, NULLIF($4, ''))
ON CONFLICT (session_id, discord_id) DO UPDATE SET
  role      = EXCLUDED.role,
  character = EXCLUDED.character
`, e.SessionID, e.DiscordID, e.Role, e.Character)
	return err
}

func (r *QueueRepo) Remove(ctx context.Context, sessionID, discordID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM queue_entries WHERE session_id = $1 AND discord_id = $2
`, sessionID, discordID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// List: FIFO estricto por joined_at.
func (r *QueueRepo) List(ctx context.Context, sessionID string) ([]QueueEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT session_id, discord_id, role, COALESCE(character, ''), joined_at
  FROM queue_entries
 WHERE session_id = $1
 ORDER BY joined_at ASC
`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QueueEntry
	for rows.Next() {
		var e QueueEntry
		if err := rows.Scan(&e.SessionID, &e.DiscordID, &e.Role, &e.Character, &e.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
