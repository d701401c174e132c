package storage

import (
	"context"
	"database/sql"
	"time"
)

type VoiceStateRepo struct{ db *sql.DB }

func NewVoiceStateRepo(db *sql.DB) *VoiceStateRepo { return &VoiceStateRepo{db: db} }

// Upsert pisa canal/sesión/equipo y refresca last_seen. grace_until no se toca
// acá: eso es asunto de SetGrace/ClearGrace.
func (r *VoiceStateRepo) Upsert(ctx context.Context, vs VoiceState) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO voice_state (discord_id, current_channel_id, session_id, team, last_seen_at)
VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), now())
ON CONFLICT (discord_id) DO UPDATE SET
  current_channel_id = EXCLUDED.current_channel_id,
  session_id         = EXCLUDED.session_id,
  team               = EXCLUDED.team,
  last_seen_at       = now()
`, vs.DiscordID, vs.CurrentChannelID, vs.SessionID, string(vs.Team))
	return err
}

// UpdateChannel solo mueve el canal actual, sin tocar el binding de sesión.
func (r *VoiceStateRepo) UpdateChannel(ctx context.Context, discordID, channelID string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO voice_state (discord_id, current_channel_id, last_seen_at)
VALUES ($1, NULLIF($2, ''), now())
ON CONFLICT (discord_id) DO UPDATE SET
  current_channel_id = EXCLUDED.current_channel_id,
  last_seen_at       = now()
`, discordID, channelID)
	return err
}

func (r *VoiceStateRepo) Get(ctx context.Context, discordID string) (VoiceState, error) {
	var vs VoiceState
	err := r.db.QueryRowContext(ctx, `
SELECT discord_id, COALESCE(current_channel_id, ''), COALESCE(session_id, ''),
       COALESCE(team, ''), grace_until, last_seen_at
  FROM voice_state
 WHERE discord_id = $1
`, discordID).Scan(&vs.DiscordID, &vs.CurrentChannelID, &vs.SessionID, &vs.Team, &vs.GraceUntil, &vs.LastSeenAt)
	if err == sql.ErrNoRows {
		return VoiceState{}, ErrNotFound
	}
	return vs, err
}

func (r *VoiceStateRepo) SetGrace(ctx context.Context, discordID string, until time.Time) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE voice_state SET grace_until = $2 WHERE discord_id = $1
`, discordID, until)
	return err
}

func (r *VoiceStateRepo) ClearGrace(ctx context.Context, discordID string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE voice_state SET grace_until = NULL WHERE discord_id = $1
`, discordID)
	return err
}

// ListExpiredGrace: filas cuyo deadline ya venció. El sweep las procesa y
// limpia; una fila con grace ya borrado no vuelve a salir (cancelación segura).
func (r *VoiceStateRepo) ListExpiredGrace(ctx context.Context, now time.Time) ([]VoiceState, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT discord_id, COALESCE(current_channel_id, ''), COALESCE(session_id, ''),
       COALESCE(team, ''), grace_until, last_seen_at
  FROM voice_state
 WHERE grace_until IS NOT NULL AND grace_until <= $1
`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VoiceState
	for rows.Next() {
		var vs VoiceState
		if err := rows.Scan(&vs.DiscordID, &vs.CurrentChannelID, &vs.SessionID, &vs.Team,
			&vs.GraceUntil, &vs.LastSeenAt); err != nil {
			return nil, err
		}
		out = append(out, vs)
	}
	return out, rows.Err()
}

// ClearSessionBinding: desengancha al jugador de la sesión (kick o unassign).
func (r *VoiceStateRepo) ClearSessionBinding(ctx context.Context, discordID string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE voice_state
   SET session_id = NULL, team = NULL, grace_until = NULL
 WHERE discord_id = $1
`, discordID)
	return err
}
