package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jose-valero/lordfarm-bot/internal/domain"
	"github.com/jose-valero/lordfarm-bot/internal/infra/storage"
)

const (
	// pausa entre moves para no gatillar el rate limit de Discord
	defaultMoveDelay = 200 * time.Millisecond
	// rate limit del aviso de "missing roles" en el canal de anuncios
	missingRolesEvery = 180 * time.Second
)

// Matchmaker asigna jugadores de la cola de sesión a los slots de formación.
// Process es idempotente: correrlo de nuevo sin cambios no asigna nada.
type Matchmaker struct {
	sessions    SessionStore
	formations  FormationStore
	queue       QueueStore
	assignments AssignmentStore
	users       UserStore
	voiceStates VoiceStateStore
	notifier    Notifier
	voice       VoiceGateway
	nicknames   NicknameManager
	status      StatusPublisher
	clock       func() time.Time
	moveDelay   time.Duration

	mu           sync.Mutex
	lastAnnounce map[string]time.Time
	// dedup de avisos de conflicto de personaje, por sesión+jugador+pj
	conflictSeen map[string]struct{}
	// el aviso de "teams full" al host sale una sola vez por sesión
	fullNotified map[string]bool
}

func NewMatchmaker(
	sessions SessionStore,
	formations FormationStore,
	queue QueueStore,
	assignments AssignmentStore,
	users UserStore,
	voiceStates VoiceStateStore,
	notifier Notifier,
	voice VoiceGateway,
	nicknames NicknameManager,
	status StatusPublisher,
) *Matchmaker {
	return &Matchmaker{
		sessions:     sessions,
		formations:   formations,
		queue:        queue,
		assignments:  assignments,
		users:        users,
		voiceStates:  voiceStates,
		notifier:     notifier,
		voice:        voice,
		nicknames:    nicknames,
		status:       status,
		clock:        time.Now,
		moveDelay:    defaultMoveDelay,
		lastAnnounce: map[string]time.Time{},
		conflictSeen: map[string]struct{}{},
		fullNotified: map[string]bool{},
	}
}

// ForgetSession descarta el estado en memoria de una sesión terminada.
func (m *Matchmaker) ForgetSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lastAnnounce, sessionID)
	delete(m.fullNotified, sessionID)
	for k := range m.conflictSeen {
		if strings.HasPrefix(k, sessionID+"|") {
			delete(m.conflictSeen, k)
		}
	}
}

type matchDecision struct {
	entry storage.QueueEntry
	team  domain.Team
	role  domain.Role
}

type conflictSignal struct {
	entry     storage.QueueEntry
	takenBy   string // discord id del que ya tiene el personaje
	character string
}

// Process corre una pasada de matchmaking sobre la sesión. Solo actúa si la
// sesión está en forming y sigue siendo la viva del guild.
func (m *Matchmaker) Process(ctx context.Context, sessionID string) error {
	sess, err := m.sessions.Get(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if sess.Status != domain.StatusForming {
		return nil
	}
	live, err := m.sessions.GetActive(ctx, sess.GuildID)
	if err != nil || live.SessionID != sess.SessionID {
		return nil
	}

	formations, err := m.formations.GetAll(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load formations: %w", err)
	}
	entries, err := m.queue.List(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load queue: %w", err)
	}
	// sin formaciones o sin cola la pasada entera es un no-op, ni anuncios
	if len(formations) == 0 || len(entries) == 0 {
		return nil
	}
	assigned, err := m.assignments.List(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load assignments: %w", err)
	}

	decisions, conflicts := findMatches(formations, entries, assigned)

	for _, c := range conflicts {
		m.notifyConflict(ctx, sessionID, c)
	}

	for _, d := range decisions {
		if err := m.place(ctx, sess, d); err != nil {
			log.Printf("[matchmaker] place %s: %v", d.entry.DiscordID, err)
		}
		if m.moveDelay > 0 {
			time.Sleep(m.moveDelay)
		}
	}

	if len(decisions) > 0 || len(conflicts) > 0 {
		m.status.Refresh(ctx, sess)
	}

	return m.announceProgress(ctx, sess, formations)
}

// findMatches es la pasada pura: equipo A y después B, roles en orden
// support/tank/dps, FIFO por joined_at dentro de cada rol. Un jugador cuyo
// personaje ya está tomado en el equipo se saltea y genera un conflicto.
func findMatches(formations map[domain.Team]domain.Formation, entries []storage.QueueEntry, assigned []storage.Assignment) ([]matchDecision, []conflictSignal) {
	type slotKey struct {
		team domain.Team
		role domain.Role
	}
	filled := map[slotKey]int{}
	// personajes ya tomados por equipo: character -> discord id
	taken := map[domain.Team]map[string]string{
		domain.TeamA: {},
		domain.TeamB: {},
	}
	placed := map[string]bool{}
	for _, a := range assigned {
		filled[slotKey{a.Team, a.Role}]++
		if a.Character != "" {
			taken[a.Team][strings.ToLower(a.Character)] = a.DiscordID
		}
		placed[a.DiscordID] = true
	}

	// la cola ya viene FIFO del store, pero no dependemos de eso
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].JoinedAt.Before(entries[j].JoinedAt)
	})

	var decisions []matchDecision
	var conflicts []conflictSignal

	for _, team := range domain.TeamOrder {
		f, ok := formations[team]
		if !ok {
			continue
		}
		for _, role := range domain.RoleOrder {
			need := f.Count(role) - filled[slotKey{team, role}]
			for _, e := range entries {
				if need <= 0 {
					break
				}
				if placed[e.DiscordID] || e.Role != role {
					continue
				}
				if e.Character != "" {
					if owner, dup := taken[team][strings.ToLower(e.Character)]; dup {
						conflicts = append(conflicts, conflictSignal{entry: e, takenBy: owner, character: e.Character})
						continue
					}
				}
				decisions = append(decisions, matchDecision{entry: e, team: team, role: role})
				placed[e.DiscordID] = true
				if e.Character != "" {
					taken[team][strings.ToLower(e.Character)] = e.DiscordID
				}
				need--
			}
		}
	}
	return decisions, conflicts
}

func (m *Matchmaker) place(ctx context.Context, sess storage.Session, d matchDecision) error {
	a := storage.Assignment{
		SessionID: sess.SessionID,
		DiscordID: d.entry.DiscordID,
		Team:      d.team,
		Role:      d.role,
		Character: d.entry.Character,
	}
	if err := m.assignments.Assign(ctx, a); err != nil {
		return fmt.Errorf("persist assignment: %w", err)
	}

	moved := false
	if sess.VoiceChannelID != "" {
		var err error
		moved, err = m.voice.MoveMember(sess.GuildID, d.entry.DiscordID, sess.VoiceChannelID)
		if err != nil {
			// si Discord rechaza el move, deshacemos para que reintente
			log.Printf("[matchmaker] move %s: %v", d.entry.DiscordID, err)
			_, _ = m.assignments.Unassign(ctx, sess.SessionID, d.entry.DiscordID)
			return err
		}
		if !moved {
			m.notifier.NotifyUser(ctx, d.entry.DiscordID, Notice{
				Title:    "🎮 You've Been Matched!",
				Body:     fmt.Sprintf("You were assigned to **Team %s** as **%s** in **%s**. Join the session voice channel to play!", d.team, d.role.Title(), sess.Name),
				Severity: SeverityInfo,
			})
		}
	}

	body := fmt.Sprintf("You are on **Team %s** as **%s**", d.team, d.role.Title())
	if d.entry.Character != "" {
		body += fmt.Sprintf(" playing **%s**", d.entry.Character)
	}
	body += fmt.Sprintf(" in **%s**.", sess.Name)
	m.notifier.NotifyUser(ctx, d.entry.DiscordID, Notice{
		Title:    "✅ Team Assignment",
		Body:     body,
		Severity: SeveritySuccess,
	})

	if u, err := m.users.Get(ctx, d.entry.DiscordID); err == nil {
		m.nicknames.SetRoleNickname(sess.GuildID, d.entry.DiscordID, u.IGN, d.role)
	}

	// solo registramos el canal si el move realmente ocurrió; si el jugador
	// no estaba en voz, el canal actual queda vacío hasta que entre
	vs := storage.VoiceState{
		DiscordID: d.entry.DiscordID,
		SessionID: sess.SessionID,
		Team:      d.team,
	}
	if moved {
		vs.CurrentChannelID = sess.VoiceChannelID
	}
	if err := m.voiceStates.Upsert(ctx, vs); err != nil {
		log.Printf("[matchmaker] voice state %s: %v", d.entry.DiscordID, err)
	}

	log.Printf("[matchmaker] assigned %s -> team %s / %s (%s)", d.entry.DiscordID, d.team, d.role, sess.SessionID)
	return nil
}

func (m *Matchmaker) notifyConflict(ctx context.Context, sessionID string, c conflictSignal) {
	key := sessionID + "|" + c.entry.DiscordID + "|" + strings.ToLower(c.character)
	m.mu.Lock()
	if _, seen := m.conflictSeen[key]; seen {
		m.mu.Unlock()
		return
	}
	m.conflictSeen[key] = struct{}{}
	m.mu.Unlock()

	m.notifier.NotifyUser(ctx, c.entry.DiscordID, Notice{
		Title:    "⚠️ Character Taken",
		Body:     fmt.Sprintf("**%s** is already taken on the team you'd join. Pick another character with the selector to get matched, or wait for a slot on the other team.", c.character),
		Severity: SeverityWarning,
	})
}

// announceProgress publica qué roles faltan, con rate limit por sesión.
func (m *Matchmaker) announceProgress(ctx context.Context, sess storage.Session, formations map[domain.Team]domain.Formation) error {
	assigned, err := m.assignments.List(ctx, sess.SessionID)
	if err != nil {
		return err
	}
	if len(assigned) >= domain.FullLobby {
		m.mu.Lock()
		already := m.fullNotified[sess.SessionID]
		m.fullNotified[sess.SessionID] = true
		m.mu.Unlock()
		if already {
			return nil
		}
		m.notifier.NotifyUser(ctx, sess.HostID, Notice{
			Title:    "🎉 Teams Full!",
			Body:     fmt.Sprintf("All %d slots in **%s** are filled. Use the host panel to start the session.", domain.FullLobby, sess.Name),
			Severity: SeveritySuccess,
		})
		return nil
	}

	entries, err := m.queue.List(ctx, sess.SessionID)
	if err != nil {
		return err
	}
	missing := stillNeeded(formations, assigned, entries)
	if len(missing) == 0 {
		return nil
	}

	now := m.clock()
	m.mu.Lock()
	if last, ok := m.lastAnnounce[sess.SessionID]; ok && now.Sub(last) < missingRolesEvery {
		m.mu.Unlock()
		return nil
	}
	m.lastAnnounce[sess.SessionID] = now
	m.mu.Unlock()

	m.notifier.Announce(ctx, sess.GuildID, Notice{
		Title:    "📢 Players Needed",
		Body:     fmt.Sprintf("**%s** is looking for: %s. Join a role voice channel to queue up!", sess.Name, strings.Join(missing, ", ")),
		Severity: SeverityInfo,
	})
	return nil
}

// stillNeeded resta asignados y encolados de los slots pedidos; devuelve
// como máximo un item por rol, tipo "2x DPS".
func stillNeeded(formations map[domain.Team]domain.Formation, assigned []storage.Assignment, queued []storage.QueueEntry) []string {
	need := map[domain.Role]int{}
	for _, f := range formations {
		for _, r := range domain.RoleOrder {
			need[r] += f.Count(r)
		}
	}
	for _, a := range assigned {
		need[a.Role]--
	}
	for _, e := range queued {
		need[e.Role]--
	}
	var out []string
	for _, r := range domain.RoleOrder {
		if need[r] > 0 {
			out = append(out, fmt.Sprintf("%dx %s", need[r], r.Title()))
		}
	}
	return out
}
