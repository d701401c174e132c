package storage

import (
	"context"
	"database/sql"
)

type AssignmentRepo struct{ db *sql.DB }

func NewAssignmentRepo(db *sql.DB) *AssignmentRepo { return &AssignmentRepo{db: db} }

// Assign: alta de asignación + baja de la cola, atómico.
func (r *AssignmentRepo) Assign(ctx context.Context, a Assignment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO assignments (session_id, discord_id, team, role, character)
VALUES ($1, $2, $3, $4, NULLIF($5, ''))
ON CONFLICT (session_id, discord_id) DO UPDATE SET
  team      = EXCLUDED.team,
  role      = EXCLUDED.role,
  character = EXCLUDED.character
`, a.SessionID, a.DiscordID, a.Team, a.Role, a.Character); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
DELETE FROM queue_entries WHERE session_id = $1 AND discord_id = $2
`, a.SessionID, a.DiscordID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *AssignmentRepo) List(ctx context.Context, sessionID string) ([]Assignment, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT session_id, discord_id, team, role, COALESCE(character, ''), assigned_at
  FROM assignments
 WHERE session_id = $1
 ORDER BY assigned_at ASC
`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.SessionID, &a.DiscordID, &a.Team, &a.Role, &a.Character, &a.AssignedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AssignmentRepo) Unassign(ctx context.Context, sessionID, discordID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM assignments WHERE session_id = $1 AND discord_id = $2
`, sessionID, discordID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
