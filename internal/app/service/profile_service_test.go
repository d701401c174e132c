package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jose-valero/lordfarm-bot/internal/domain"
	"github.com/jose-valero/lordfarm-bot/internal/infra/storage"
)

func TestVerifyCreatesAndOverwritesProfile(t *testing.T) {
	users := newMemUserStore()
	svc := NewProfileService(users)
	ctx := context.Background()

	u, err := svc.Verify(ctx, "p1", "  PlayerOne  ", []domain.Role{domain.RoleTank, domain.RoleDPS})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if u.IGN != "PlayerOne" {
		t.Errorf("ign = %q, want trimmed PlayerOne", u.IGN)
	}
	if len(u.Roles) != 2 {
		t.Errorf("roles = %v", u.Roles)
	}

	// re-verificar pisa el perfil
	u, err = svc.Verify(ctx, "p1", "NewName", []domain.Role{domain.RoleSupport})
	if err != nil {
		t.Fatalf("re-verify: %v", err)
	}
	got, err := svc.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.IGN != "NewName" || len(got.Roles) != 1 {
		t.Errorf("profile after re-verify = %+v", got)
	}
}

func TestVerifyValidation(t *testing.T) {
	svc := NewProfileService(newMemUserStore())
	ctx := context.Background()

	if _, err := svc.Verify(ctx, "p1", "   ", []domain.Role{domain.RoleTank}); err == nil {
		t.Errorf("blank ign should fail")
	}
	if _, err := svc.Verify(ctx, "p1", "Name", nil); err == nil {
		t.Errorf("no roles should fail")
	}
	if _, err := svc.Verify(ctx, "p1", "Name", []domain.Role{domain.Role("healer")}); err == nil {
		t.Errorf("invalid role should fail")
	}
	// flex no es un rol verificable: se elige en la cola
	if _, err := svc.Verify(ctx, "p1", "Name", []domain.Role{domain.RoleFlex}); err == nil {
		t.Errorf("flex is not a verifiable role")
	}
}

func TestGetUnknownProfile(t *testing.T) {
	svc := NewProfileService(newMemUserStore())
	if _, err := svc.Get(context.Background(), "ghost"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
