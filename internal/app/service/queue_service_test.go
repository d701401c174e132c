package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jose-valero/lordfarm-bot/internal/domain"
	"github.com/jose-valero/lordfarm-bot/internal/infra/storage"
)

type queueFixture struct {
	svc      *QueueService
	sessions *memSessionStore
	queue    *memQueueStore
	global   *memGlobalQueueStore
	users    *memUserStore
	notifier *fakeNotifier
	prompter *fakePrompter
}

func newQueueFixture(t *testing.T) *queueFixture {
	t.Helper()
	f := &queueFixture{
		sessions: newMemSessionStore(),
		queue:    newMemQueueStore(),
		global:   newMemGlobalQueueStore(),
		users:    newMemUserStore(),
		notifier: &fakeNotifier{},
		prompter: &fakePrompter{},
	}
	f.svc = NewQueueService(f.sessions, f.queue, f.global, f.users, f.notifier, f.prompter)
	_ = f.users.Upsert(context.Background(), storage.User{
		DiscordID: "p1", IGN: "PlayerOne", Roles: []string{"tank"},
	})
	return f
}

func (f *queueFixture) seedSession(t *testing.T, status domain.SessionStatus) storage.Session {
	t.Helper()
	sess := storage.Session{
		SessionID: "s1", GuildID: "g1", HostID: "host",
		Name: "Lord Farming #1", Status: status,
	}
	if err := f.sessions.Create(context.Background(), sess); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return sess
}

func TestCheckJoinEligibility(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()

	if _, err := f.svc.CheckJoinEligibility(ctx, "ghost", domain.RoleTank); !errors.Is(err, ErrNotVerified) {
		t.Errorf("unverified err = %v, want ErrNotVerified", err)
	}
	if _, err := f.svc.CheckJoinEligibility(ctx, "p1", domain.RoleDPS); !errors.Is(err, ErrRoleNotAvailable) {
		t.Errorf("wrong role err = %v, want ErrRoleNotAvailable", err)
	}
	u, err := f.svc.CheckJoinEligibility(ctx, "p1", domain.RoleTank)
	if err != nil {
		t.Fatalf("eligible: %v", err)
	}
	if u.IGN != "PlayerOne" {
		t.Errorf("ign = %q", u.IGN)
	}

	// la cola flex acepta a cualquier verificado, registre el rol o no
	if _, err := f.svc.CheckJoinEligibility(ctx, "p1", domain.RoleFlex); err != nil {
		t.Errorf("verified player should enter the flex queue: %v", err)
	}
	if _, err := f.svc.CheckJoinEligibility(ctx, "ghost", domain.RoleFlex); !errors.Is(err, ErrNotVerified) {
		t.Errorf("flex still requires verification, err = %v", err)
	}
}

func TestSelectCharacterJoinsSessionQueue(t *testing.T) {
	f := newQueueFixture(t)
	f.seedSession(t, domain.StatusForming)
	ctx := context.Background()

	if err := f.svc.SelectCharacter(ctx, "g1", "p1", domain.RoleTank, "Hulk"); err != nil {
		t.Fatalf("select: %v", err)
	}
	entries, _ := f.queue.List(ctx, "s1")
	if len(entries) != 1 || entries[0].Character != "Hulk" {
		t.Fatalf("queue = %+v", entries)
	}
	// la cola global queda intacta
	if g, _ := f.global.ListByGuild(ctx, "g1"); len(g) != 0 {
		t.Errorf("global queue should be empty")
	}
}

func TestSelectCharacterRejectsUnknownAndLocked(t *testing.T) {
	f := newQueueFixture(t)
	f.seedSession(t, domain.StatusForming)
	ctx := context.Background()

	if err := f.svc.SelectCharacter(ctx, "g1", "p1", domain.RoleTank, "Tracer"); !errors.Is(err, ErrUnknownCharacter) {
		t.Errorf("unknown character err = %v, want ErrUnknownCharacter", err)
	}

	_ = f.sessions.UpdateStatus(ctx, "s1", domain.StatusLocked)
	if err := f.svc.SelectCharacter(ctx, "g1", "p1", domain.RoleTank, "Hulk"); err == nil {
		t.Errorf("locked session should reject new queue entries")
	}
}

func TestSelectCharacterFallsBackToGlobalQueue(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()

	if err := f.svc.SelectCharacter(ctx, "g1", "p1", domain.RoleTank, "Hulk"); err != nil {
		t.Fatalf("select: %v", err)
	}
	g, _ := f.global.ListByGuild(ctx, "g1")
	if len(g) != 1 || g[0].Character != "Hulk" || g[0].IGN != "PlayerOne" {
		t.Fatalf("global queue = %+v", g)
	}

	// re-elegir pisa la entrada, una por jugador
	if err := f.svc.SelectCharacter(ctx, "g1", "p1", domain.RoleTank, "Thor"); err != nil {
		t.Fatalf("re-select: %v", err)
	}
	g, _ = f.global.ListByGuild(ctx, "g1")
	if len(g) != 1 || g[0].Character != "Thor" {
		t.Fatalf("global queue after re-select = %+v", g)
	}
}

func TestLeaveChecksBothQueues(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()

	// sin sesión: saca de la global
	_ = f.svc.SelectCharacter(ctx, "g1", "p1", domain.RoleTank, "Hulk")
	removed, err := f.svc.Leave(ctx, "g1", "p1")
	if err != nil || !removed {
		t.Fatalf("global leave: removed=%v err=%v", removed, err)
	}

	// con sesión: primero la cola de sesión, después la global
	f.seedSession(t, domain.StatusForming)
	_ = f.svc.SelectCharacter(ctx, "g1", "p1", domain.RoleTank, "Hulk")
	removed, err = f.svc.Leave(ctx, "g1", "p1")
	if err != nil || !removed {
		t.Fatalf("session leave: removed=%v err=%v", removed, err)
	}
	removed, _ = f.svc.Leave(ctx, "g1", "p1")
	if removed {
		t.Errorf("second leave should be a no-op")
	}
}

func TestReplayMovesGlobalEntriesIntoSession(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()

	_ = f.global.Upsert(ctx, storage.GlobalQueueEntry{
		GuildID: "g1", DiscordID: "p1", IGN: "PlayerOne",
		Role: domain.RoleTank, Character: "Hulk",
	})
	// sin personaje grabado: se le reabre el selector
	_ = f.global.Upsert(ctx, storage.GlobalQueueEntry{
		GuildID: "g1", DiscordID: "p2", IGN: "Two", Role: domain.RoleDPS,
	})
	// otro guild no se toca
	_ = f.global.Upsert(ctx, storage.GlobalQueueEntry{
		GuildID: "g2", DiscordID: "p3", IGN: "Three", Role: domain.RoleDPS, Character: "Storm",
	})

	sess := f.seedSession(t, domain.StatusForming)
	if err := f.svc.Replay(ctx, sess); err != nil {
		t.Fatalf("replay: %v", err)
	}

	entries, _ := f.queue.List(ctx, "s1")
	if len(entries) != 1 || entries[0].DiscordID != "p1" {
		t.Fatalf("session queue = %+v, want only p1", entries)
	}
	if len(f.prompter.prompted) != 1 || f.prompter.prompted[0] != "p2" {
		t.Fatalf("prompted = %v, want [p2]", f.prompter.prompted)
	}
	if g, _ := f.global.ListByGuild(ctx, "g1"); len(g) != 0 {
		t.Errorf("g1 global queue should be cleared")
	}
	if g, _ := f.global.ListByGuild(ctx, "g2"); len(g) != 1 {
		t.Errorf("g2 global queue must survive")
	}
}

func TestQueueStatusLine(t *testing.T) {
	entries := []storage.QueueEntry{
		{DiscordID: "a", Role: domain.RoleSupport},
		{DiscordID: "b", Role: domain.RoleDPS},
		{DiscordID: "c", Role: domain.RoleDPS},
	}
	got := QueueStatusLine(entries)
	want := "Support: 1 | Tank: 0 | DPS: 2"
	if got != want {
		t.Errorf("QueueStatusLine = %q, want %q", got, want)
	}
}

func TestCharacterSuggestionsFiltersTaken(t *testing.T) {
	assigned := []storage.Assignment{
		{DiscordID: "a", Team: domain.TeamA, Role: domain.RoleTank, Character: "Hulk"},
	}
	for _, c := range CharacterSuggestions(domain.RoleTank, assigned) {
		if c == "Hulk" {
			t.Fatalf("taken character should be filtered out")
		}
	}
	if len(CharacterSuggestions(domain.RoleTank, assigned)) != len(domain.Characters[domain.RoleTank])-1 {
		t.Errorf("exactly one character should be filtered")
	}
}
