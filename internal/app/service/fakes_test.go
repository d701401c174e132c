package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jose-valero/lordfarm-bot/internal/domain"
	"github.com/jose-valero/lordfarm-bot/internal/infra/storage"
)

// Fakes en memoria para toda la capa de stores. Mismo contrato que los
// repos de Postgres, sin base.

type memUserStore struct {
	mu    sync.Mutex
	users map[string]storage.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]storage.User{}}
}

func (m *memUserStore) Upsert(_ context.Context, u storage.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.DiscordID] = u
	return nil
}

func (m *memUserStore) Get(_ context.Context, discordID string) (storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[discordID]
	if !ok {
		return storage.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (m *memUserStore) FindByIDs(_ context.Context, ids []string) (map[string]storage.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]storage.User{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]storage.Session
	cleaned  []string
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: map[string]storage.Session{}}
}

func (m *memSessionStore) Create(_ context.Context, s storage.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	m.sessions[s.SessionID] = s
	return nil
}

func (m *memSessionStore) Get(_ context.Context, sessionID string) (storage.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return storage.Session{}, storage.ErrNotFound
	}
	return s, nil
}

func (m *memSessionStore) GetActive(_ context.Context, guildID string) (storage.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best storage.Session
	found := false
	for _, s := range m.sessions {
		if s.GuildID != guildID || s.Status == domain.StatusEnded {
			continue
		}
		if !found || s.CreatedAt.After(best.CreatedAt) {
			best, found = s, true
		}
	}
	if !found {
		return storage.Session{}, storage.ErrNotFound
	}
	return best, nil
}

func (m *memSessionStore) UpdateStatus(_ context.Context, sessionID string, status domain.SessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return storage.ErrNotFound
	}
	s.Status = status
	m.sessions[sessionID] = s
	return nil
}

func (m *memSessionStore) UpdateVoiceChannel(_ context.Context, sessionID, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return storage.ErrNotFound
	}
	s.VoiceChannelID = channelID
	m.sessions[sessionID] = s
	return nil
}

func (m *memSessionStore) LiveNames(_ context.Context, guildID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sessions {
		if s.GuildID == guildID && s.Status != domain.StatusEnded {
			out = append(out, s.Name)
		}
	}
	return out, nil
}

func (m *memSessionStore) Cleanup(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return storage.ErrNotFound
	}
	s.Status = domain.StatusEnded
	m.sessions[sessionID] = s
	m.cleaned = append(m.cleaned, sessionID)
	return nil
}

type memFormationStore struct {
	mu   sync.Mutex
	rows map[string]map[domain.Team]domain.Formation
}

func newMemFormationStore() *memFormationStore {
	return &memFormationStore{rows: map[string]map[domain.Team]domain.Formation{}}
}

func (m *memFormationStore) Set(_ context.Context, sessionID string, team domain.Team, f domain.Formation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rows[sessionID] == nil {
		m.rows[sessionID] = map[domain.Team]domain.Formation{}
	}
	m.rows[sessionID][team] = f
	return nil
}

func (m *memFormationStore) GetAll(_ context.Context, sessionID string) (map[domain.Team]domain.Formation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[domain.Team]domain.Formation{}
	for t, f := range m.rows[sessionID] {
		out[t] = f
	}
	return out, nil
}

type memQueueStore struct {
	mu      sync.Mutex
	entries []storage.QueueEntry
	seq     int
}

func newMemQueueStore() *memQueueStore { return &memQueueStore{} }

func (m *memQueueStore) Join(_ context.Context, e storage.QueueEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, have := range m.entries {
		if have.SessionID == e.SessionID && have.DiscordID == e.DiscordID {
			// re-entrar conserva la posición original
			e.JoinedAt = have.JoinedAt
			m.entries[i] = e
			return nil
		}
	}
	if e.JoinedAt.IsZero() {
		m.seq++
		e.JoinedAt = time.Unix(int64(m.seq), 0)
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memQueueStore) Remove(_ context.Context, sessionID, discordID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.SessionID == sessionID && e.DiscordID == discordID {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memQueueStore) List(_ context.Context, sessionID string) ([]storage.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.QueueEntry
	for _, e := range m.entries {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

type memAssignmentStore struct {
	mu    sync.Mutex
	rows  []storage.Assignment
	queue *memQueueStore
}

func newMemAssignmentStore(queue *memQueueStore) *memAssignmentStore {
	return &memAssignmentStore{queue: queue}
}

func (m *memAssignmentStore) Assign(ctx context.Context, a storage.Assignment) error {
	m.mu.Lock()
	m.rows = append(m.rows, a)
	m.mu.Unlock()
	if m.queue != nil {
		_, _ = m.queue.Remove(ctx, a.SessionID, a.DiscordID)
	}
	return nil
}

func (m *memAssignmentStore) List(_ context.Context, sessionID string) ([]storage.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.Assignment
	for _, a := range m.rows {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAssignmentStore) Unassign(_ context.Context, sessionID, discordID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.rows {
		if a.SessionID == sessionID && a.DiscordID == discordID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type memWarnStore struct {
	mu   sync.Mutex
	rows []storage.Warn
}

func newMemWarnStore() *memWarnStore { return &memWarnStore{} }

func (m *memWarnStore) Add(_ context.Context, w storage.Warn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, w)
	return nil
}

func (m *memWarnStore) CountForSession(_ context.Context, sessionID, discordID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, w := range m.rows {
		if w.SessionID == sessionID && w.DiscordID == discordID {
			n++
		}
	}
	return n, nil
}

type memVoiceStateStore struct {
	mu     sync.Mutex
	states map[string]storage.VoiceState
}

func newMemVoiceStateStore() *memVoiceStateStore {
	return &memVoiceStateStore{states: map[string]storage.VoiceState{}}
}

func (m *memVoiceStateStore) Upsert(_ context.Context, vs storage.VoiceState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	have := m.states[vs.DiscordID]
	vs.GraceUntil = have.GraceUntil
	m.states[vs.DiscordID] = vs
	return nil
}

func (m *memVoiceStateStore) UpdateChannel(_ context.Context, discordID, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	vs := m.states[discordID]
	vs.DiscordID = discordID
	vs.CurrentChannelID = channelID
	m.states[discordID] = vs
	return nil
}

func (m *memVoiceStateStore) Get(_ context.Context, discordID string) (storage.VoiceState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vs, ok := m.states[discordID]
	if !ok {
		return storage.VoiceState{}, storage.ErrNotFound
	}
	return vs, nil
}

func (m *memVoiceStateStore) SetGrace(_ context.Context, discordID string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	vs := m.states[discordID]
	vs.DiscordID = discordID
	vs.GraceUntil = &until
	m.states[discordID] = vs
	return nil
}

func (m *memVoiceStateStore) ClearGrace(_ context.Context, discordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	vs := m.states[discordID]
	vs.GraceUntil = nil
	m.states[discordID] = vs
	return nil
}

func (m *memVoiceStateStore) ListExpiredGrace(_ context.Context, now time.Time) ([]storage.VoiceState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.VoiceState
	for _, vs := range m.states {
		if vs.GraceUntil != nil && !vs.GraceUntil.After(now) {
			out = append(out, vs)
		}
	}
	return out, nil
}

func (m *memVoiceStateStore) ClearSessionBinding(_ context.Context, discordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	vs := m.states[discordID]
	vs.SessionID = ""
	vs.Team = ""
	vs.GraceUntil = nil
	m.states[discordID] = vs
	return nil
}

type memGlobalQueueStore struct {
	mu      sync.Mutex
	entries []storage.GlobalQueueEntry
}

func newMemGlobalQueueStore() *memGlobalQueueStore { return &memGlobalQueueStore{} }

func (m *memGlobalQueueStore) Upsert(_ context.Context, e storage.GlobalQueueEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, have := range m.entries {
		if have.GuildID == e.GuildID && have.DiscordID == e.DiscordID {
			m.entries[i] = e
			return nil
		}
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memGlobalQueueStore) Remove(_ context.Context, guildID, discordID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.GuildID == guildID && e.DiscordID == discordID {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memGlobalQueueStore) ListByGuild(_ context.Context, guildID string) ([]storage.GlobalQueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.GlobalQueueEntry
	for _, e := range m.entries {
		if e.GuildID == guildID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memGlobalQueueStore) ClearGuild(_ context.Context, guildID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keep []storage.GlobalQueueEntry
	for _, e := range m.entries {
		if e.GuildID != guildID {
			keep = append(keep, e)
		}
	}
	m.entries = keep
	return nil
}

// ---- colaboradores fake ----

type sentNotice struct {
	DiscordID string // vacío en anuncios
	GuildID   string // vacío en DMs
	Notice    Notice
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotice
}

func (f *fakeNotifier) NotifyUser(_ context.Context, discordID string, n Notice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotice{DiscordID: discordID, Notice: n})
}

func (f *fakeNotifier) Announce(_ context.Context, guildID string, n Notice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotice{GuildID: guildID, Notice: n})
}

func (f *fakeNotifier) forUser(discordID string) []sentNotice {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentNotice
	for _, s := range f.sent {
		if s.DiscordID == discordID {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeNotifier) announcements() []sentNotice {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentNotice
	for _, s := range f.sent {
		if s.GuildID != "" {
			out = append(out, s)
		}
	}
	return out
}

type fakeVoiceGateway struct {
	mu        sync.Mutex
	occupants map[string]int  // channelID -> count
	gone      map[string]bool // channelID -> borrado
	inVoice   map[string]bool // discordID -> está en voz
	moved     []string
	deleted   []string
	moveErr   error
}

func newFakeVoiceGateway() *fakeVoiceGateway {
	return &fakeVoiceGateway{
		occupants: map[string]int{},
		gone:      map[string]bool{},
		inVoice:   map[string]bool{},
	}
}

func (f *fakeVoiceGateway) OccupantCount(channelID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone[channelID] {
		return 0, ErrChannelGone
	}
	return f.occupants[channelID], nil
}

func (f *fakeVoiceGateway) DeleteChannel(channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, channelID)
	f.gone[channelID] = true
	return nil
}

func (f *fakeVoiceGateway) MoveMember(_, discordID, channelID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.moveErr != nil {
		return false, f.moveErr
	}
	if !f.inVoice[discordID] {
		return false, nil
	}
	f.moved = append(f.moved, discordID+"->"+channelID)
	return true, nil
}

type fakeNicknames struct {
	mu    sync.Mutex
	set   []string
	reset []string
}

func (f *fakeNicknames) SetRoleNickname(_, discordID, _ string, role domain.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.set = append(f.set, discordID+":"+string(role))
}

func (f *fakeNicknames) ResetNickname(_, discordID, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset = append(f.reset, discordID)
}

type fakeStatusPublisher struct {
	mu       sync.Mutex
	refreshes int
}

func (f *fakeStatusPublisher) Refresh(_ context.Context, _ storage.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
}

type fakePrompter struct {
	mu       sync.Mutex
	prompted []string
}

func (f *fakePrompter) PromptCharacter(_ context.Context, discordID, _ string, _ domain.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompted = append(f.prompted, discordID)
}

type noopReplayer struct{}

func (noopReplayer) Replay(context.Context, storage.Session) error { return nil }
