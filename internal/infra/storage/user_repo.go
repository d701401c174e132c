package storage

import (
	"context"
	"database/sql"
	"errors"

	pq "github.com/lib/pq"
)

var ErrNotFound = errors.New("not found")

type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Upsert por discord_id; /verify re-ejecutado pisa IGN y roles.
func (r *UserRepo) Upsert(ctx context.Context, u User) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (discord_id, ign, roles)
VALUES ($1, $2, $3)
ON CONFLICT (discord_id) DO UPDATE SET
  ign   = EXCLUDED.ign,
  roles = EXCLUDED.roles
`, u.DiscordID, u.IGN, pq.Array(u.Roles))
	return err
}

func (r *UserRepo) Get(ctx context.Context, discordID string) (User, error) {
	var u User
	err := r.db.QueryRowContext(ctx, `
SELECT discord_id, ign, roles, warns_total, created_at
  FROM users
 WHERE discord_id = $1
`, discordID).Scan(&u.DiscordID, &u.IGN, pq.Array(&u.Roles), &u.WarnsTotal, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return User{}, ErrNotFound
	}
	return u, err
}

// FindByIDs: devuelve mapa discord_id -> User para renders de estado.
func (r *UserRepo) FindByIDs(ctx context.Context, ids []string) (map[string]User, error) {
	out := map[string]User{}
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT discord_id, ign, roles, warns_total, created_at
  FROM users
 WHERE discord_id = ANY($1)
`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.DiscordID, &u.IGN, pq.Array(&u.Roles), &u.WarnsTotal, &u.CreatedAt); err != nil {
			return nil, err
		}
		out[u.DiscordID] = u
	}
	return out, rows.Err()
}
