package storage

import (
	"context"
	"database/sql"

	"github.com/jose-valero/lordfarm-bot/internal/domain"
)

type SessionRepo struct{ db *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

func (r *SessionRepo) Create(ctx context.Context, s Session) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sessions (session_id, guild_id, host_id, name, status)
VALUES ($1, $2, $3, $4, 'forming')
`, s.SessionID, s.GuildID, s.HostID, s.Name)
	return err
}

// GetActive: la única sesión no terminada del guild, si existe.
func (r *SessionRepo) GetActive(ctx context.Context, guildID string) (Session, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT session_id, guild_id, host_id, name, status,
       COALESCE(voice_channel_id, ''), rules_json, created_at
  FROM sessions
 WHERE guild_id = $1 AND status IN ('forming', 'locked', 'active')
 ORDER BY created_at DESC
 LIMIT 1
`, guildID)
	return scanSession(row)
}

func (r *SessionRepo) Get(ctx context.Context, sessionID string) (Session, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT session_id, guild_id, host_id, name, status,
       COALESCE(voice_channel_id, ''), rules_json, created_at
  FROM sessions
 WHERE session_id = $1
`, sessionID)
	return scanSession(row)
}

func scanSession(row *sql.Row) (Session, error) {
	var s Session
	err := row.Scan(&s.SessionID, &s.GuildID, &s.HostID, &s.Name, &s.Status,
		&s.VoiceChannelID, &s.RulesJSON, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return Session{}, ErrNotFound
	}
	return s, err
}

func (r *SessionRepo) UpdateStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE sessions SET status = $2 WHERE session_id = $1
`, sessionID, status)
	return err
}

func (r *SessionRepo) UpdateVoiceChannel(ctx context.Context, sessionID, channelID string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE sessions SET voice_channel_id = NULLIF($2, '') WHERE session_id = $1
`, sessionID, channelID)
	return err
}

// LiveNames: nombres de sesiones vivas del guild, para la numeración secuencial.
func (r *SessionRepo) LiveNames(ctx context.Context, guildID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT name FROM sessions WHERE guild_id = $1 AND status <> 'ended'
`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Cleanup marca la sesión como ended y cascadea: cola, asignaciones y
// bindings de voice_state fuera. Todo en una tx para no dejar huérfanos.
func (r *SessionRepo) Cleanup(ctx context.Context, sessionID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET status = 'ended' WHERE session_id = $1`, sessionID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM queue_entries WHERE session_id = $1`, sessionID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM assignments WHERE session_id = $1`, sessionID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE voice_state
   SET session_id = NULL, team = NULL, grace_until = NULL
 WHERE session_id = $1
`, sessionID); err != nil {
		return err
	}
	return tx.Commit()
}
