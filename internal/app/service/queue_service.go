package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jose-valero/lordfarm-bot/internal/domain"
	"github.com/jose-valero/lordfarm-bot/internal/infra/storage"
)

// QueueService maneja las dos colas: la de la sesión viva y la global del
// guild (cuando todavía no hay sesión). Encolarse siempre pasa por elegir
// personaje primero.
type QueueService struct {
	sessions    SessionStore
	queue       QueueStore
	globalQueue GlobalQueueStore
	users       UserStore
	notifier    Notifier
	prompter    CharacterPrompter
}

func NewQueueService(
	sessions SessionStore,
	queue QueueStore,
	globalQueue GlobalQueueStore,
	users UserStore,
	notifier Notifier,
	prompter CharacterPrompter,
) *QueueService {
	return &QueueService{
		sessions:    sessions,
		queue:       queue,
		globalQueue: globalQueue,
		users:       users,
		notifier:    notifier,
		prompter:    prompter,
	}
}

// CheckJoinEligibility valida verificación y rol registrado antes de abrir
// el selector de personaje. Devuelve el usuario para armar el prompt.
// flex no se registra en el perfil: cualquier verificado puede entrar por
// ahí y elegir rol en el selector.
func (q *QueueService) CheckJoinEligibility(ctx context.Context, discordID string, role domain.Role) (storage.User, error) {
	u, err := q.users.Get(ctx, discordID)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.User{}, ErrNotVerified
	}
	if err != nil {
		return storage.User{}, err
	}
	if role != domain.RoleFlex && !u.HasRole(role) {
		return u, ErrRoleNotAvailable
	}
	return u, nil
}

// SelectCharacter es el paso final del flujo de encolado: con sesión viva
// entra a la cola de sesión, sin sesión queda en la cola global. character
// vacío significa "cualquiera".
func (q *QueueService) SelectCharacter(ctx context.Context, guildID, discordID string, role domain.Role, character string) error {
	character = strings.TrimSpace(character)
	if character != "" && !domain.KnownCharacter(role, character) {
		return ErrUnknownCharacter
	}

	sess, err := q.sessions.GetActive(ctx, guildID)
	if errors.Is(err, storage.ErrNotFound) {
		u, err := q.users.Get(ctx, discordID)
		if err != nil {
			return err
		}
		if err := q.globalQueue.Upsert(ctx, storage.GlobalQueueEntry{
			GuildID:   guildID,
			DiscordID: discordID,
			IGN:       u.IGN,
			Role:      role,
			Character: character,
		}); err != nil {
			return fmt.Errorf("join global queue: %w", err)
		}
		q.notifier.NotifyUser(ctx, discordID, Notice{
			Title:    "🌐 In the Global Queue",
			Body:     fmt.Sprintf("No session is running right now. You'll be queued as **%s** automatically when the next one starts.", role.Title()),
			Severity: SeverityInfo,
		})
		log.Printf("[queue] %s joined global queue as %s", discordID, role)
		return nil
	}
	if err != nil {
		return err
	}
	if sess.Status == domain.StatusLocked {
		return fmt.Errorf("session %s is locked", sess.Name)
	}

	if err := q.queue.Join(ctx, storage.QueueEntry{
		SessionID: sess.SessionID,
		DiscordID: discordID,
		Role:      role,
		Character: character,
	}); err != nil {
		return fmt.Errorf("join queue: %w", err)
	}
	body := fmt.Sprintf("You're queued as **%s** in **%s**.", role.Title(), sess.Name)
	if character != "" {
		body = fmt.Sprintf("You're queued as **%s** (%s) in **%s**.", role.Title(), character, sess.Name)
	}
	q.notifier.NotifyUser(ctx, discordID, Notice{
		Title:    "📝 Queued",
		Body:     body,
		Severity: SeveritySuccess,
	})
	log.Printf("[queue] %s queued as %s in %s", discordID, role, sess.SessionID)
	return nil
}

// Entries expone la cola de una sesión (para el embed y los prompts).
func (q *QueueService) Entries(ctx context.Context, sessionID string) ([]storage.QueueEntry, error) {
	return q.queue.List(ctx, sessionID)
}

// Leave saca al jugador de la cola que corresponda. Devuelve false si no
// estaba en ninguna.
func (q *QueueService) Leave(ctx context.Context, guildID, discordID string) (bool, error) {
	sess, err := q.sessions.GetActive(ctx, guildID)
	if errors.Is(err, storage.ErrNotFound) {
		return q.globalQueue.Remove(ctx, guildID, discordID)
	}
	if err != nil {
		return false, err
	}
	removed, err := q.queue.Remove(ctx, sess.SessionID, discordID)
	if err != nil || removed {
		return removed, err
	}
	return q.globalQueue.Remove(ctx, guildID, discordID)
}

// Replay vuelca la cola global dentro de una sesión recién creada. Los que
// ya eligieron personaje entran directo; al resto se les reabre el selector.
func (q *QueueService) Replay(ctx context.Context, sess storage.Session) error {
	entries, err := q.globalQueue.ListByGuild(ctx, sess.GuildID)
	if err != nil {
		return fmt.Errorf("list global queue: %w", err)
	}
	for _, e := range entries {
		if e.Character == "" {
			q.prompter.PromptCharacter(ctx, e.DiscordID, sess.SessionID, e.Role)
			continue
		}
		if err := q.queue.Join(ctx, storage.QueueEntry{
			SessionID: sess.SessionID,
			DiscordID: e.DiscordID,
			Role:      e.Role,
			Character: e.Character,
		}); err != nil {
			log.Printf("[queue] replay join %s: %v", e.DiscordID, err)
			continue
		}
		q.notifier.NotifyUser(ctx, e.DiscordID, Notice{
			Title:    "🎬 Session Started",
			Body:     fmt.Sprintf("**%s** just started and you were moved from the global queue as **%s** (%s).", sess.Name, e.Role.Title(), e.Character),
			Severity: SeverityInfo,
		})
	}
	if err := q.globalQueue.ClearGuild(ctx, sess.GuildID); err != nil {
		return fmt.Errorf("clear global queue: %w", err)
	}
	if len(entries) > 0 {
		log.Printf("[queue] replayed %d global entries into %s", len(entries), sess.SessionID)
	}
	return nil
}

// QueueStatusLine arma la línea de estado de la cola para el embed, tipo
// "Support: 2 | Tank: 1 | DPS: 4".
func QueueStatusLine(entries []storage.QueueEntry) string {
	counts := map[domain.Role]int{}
	for _, e := range entries {
		counts[e.Role]++
	}
	var parts []string
	for _, r := range domain.RoleOrder {
		parts = append(parts, fmt.Sprintf("%s: %d", r.Title(), counts[r]))
	}
	return strings.Join(parts, " | ")
}

// CharacterSuggestions filtra el roster de un rol por lo ya tomado en los
// equipos, como ayuda para el selector.
func CharacterSuggestions(role domain.Role, assigned []storage.Assignment) []string {
	taken := map[string]bool{}
	for _, a := range assigned {
		if a.Character != "" {
			taken[strings.ToLower(a.Character)] = true
		}
	}
	var out []string
	for _, c := range domain.Characters[role] {
		if !taken[strings.ToLower(c)] {
			out = append(out, c)
		}
	}
	return out
}
