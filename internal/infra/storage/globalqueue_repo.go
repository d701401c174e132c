package storage

import (
	"context"
	"database/sql"
)

type GlobalQueueRepo struct{ db *sql.DB }

func NewGlobalQueueRepo(db *sql.DB) *GlobalQueueRepo { return &GlobalQueueRepo{db: db} }

// Upsert: dedup por jugador, la selección más reciente gana (incluido joined_at,
// a diferencia de la cola de sesión: acá todavía no hay fairness que preservar).
func (r *GlobalQueueRepo) Upsert(ctx context.Context, e GlobalQueueEntry) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO global_queue (guild_id, discord_id, role, character, ign)
VALUES ($1, $2, $3, NULLIF($4, ''), $5)
ON CONFLICT (guild_id, discord_id) DO UPDATE SET
  role      = EXCLUDED.role,
  character = EXCLUDED.character,
  ign       = EXCLUDED.ign,
  queued_at = now()
`, e.GuildID, e.DiscordID, e.Role, e.Character, e.IGN)
	return err
}

func (r *GlobalQueueRepo) Remove(ctx context.Context, guildID, discordID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM global_queue WHERE guild_id = $1 AND discord_id = $2
`, guildID, discordID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *GlobalQueueRepo) ListByGuild(ctx context.Context, guildID string) ([]GlobalQueueEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT guild_id, discord_id, role, COALESCE(character, ''), ign, queued_at
  FROM global_queue
 WHERE guild_id = $1
 ORDER BY queued_at ASC
`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GlobalQueueEntry
	for rows.Next() {
		var e GlobalQueueEntry
		if err := rows.Scan(&e.GuildID, &e.DiscordID, &e.Role, &e.Character, &e.IGN, &e.QueuedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *GlobalQueueRepo) ClearGuild(ctx context.Context, guildID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM global_queue WHERE guild_id = $1`, guildID)
	return err
}
