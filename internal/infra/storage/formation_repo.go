package storage

import (
	"context"
	"database/sql"

	"github.com/jose-valero/lordfarm-bot/internal/domain"
)

type FormationRepo struct{ db *sql.DB }

func NewFormationRepo(db *sql.DB) *FormationRepo { return &FormationRepo{db: db} }

func (r *FormationRepo) Set(ctx context.Context, sessionID string, team domain.Team, f domain.Formation) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO formation_requirements (session_id, team, support, tank, dps, note)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
ON CONFLICT (session_id, team) DO UPDATE SET
  support = EXCLUDED.support,
  tank    = EXCLUDED.tank,
  dps     = EXCLUDED.dps,
  note    = EXCLUDED.note
`, sessionID, team, f.Support, f.Tank, f.DPS, f.Note)
	return err
}

// GetAll: formaciones por equipo. Un equipo sin fila no aparece en el mapa.
func (r *FormationRepo) GetAll(ctx context.Context, sessionID string) (map[domain.Team]domain.Formation, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT team, support, tank, dps, COALESCE(note, '')
  FROM formation_requirements
 WHERE session_id = $1
`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[domain.Team]domain.Formation{}
	for rows.Next() {
		var team domain.Team
		var f domain.Formation
		if err := rows.Scan(&team, &f.Support, &f.Tank, &f.DPS, &f.Note); err != nil {
			return nil, err
		}
		out[team] = f
	}
	return out, rows.Err()
}
