package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jose-valero/lordfarm-bot/internal/domain"
	"github.com/jose-valero/lordfarm-bot/internal/infra/storage"
)

type ProfileService struct {
	users UserStore
}

func NewProfileService(users UserStore) *ProfileService {
	return &ProfileService{users: users}
}

// Verify crea (o pisa) el perfil del jugador. Al menos un rol jugable.
func (s *ProfileService) Verify(ctx context.Context, discordID, ign string, roles []domain.Role) (storage.User, error) {
	ign = strings.TrimSpace(ign)
	if ign == "" {
		return storage.User{}, fmt.Errorf("ign is required")
	}
	var flat []string
	for _, r := range roles {
		if !r.Valid() {
			return storage.User{}, fmt.Errorf("invalid role %q", r)
		}
		flat = append(flat, string(r))
	}
	if len(flat) == 0 {
		return storage.User{}, fmt.Errorf("at least one role is required")
	}

	u := storage.User{DiscordID: discordID, IGN: ign, Roles: flat}
	if err := s.users.Upsert(ctx, u); err != nil {
		return storage.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}

func (s *ProfileService) Get(ctx context.Context, discordID string) (storage.User, error) {
	return s.users.Get(ctx, discordID)
}
