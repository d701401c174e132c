package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jose-valero/lordfarm-bot/internal/domain"
	"github.com/jose-valero/lordfarm-bot/internal/infra/storage"
)

const (
	sessionNamePrefix = "Lord Farming #"
	// cuánto puede estar vacío el VC antes del auto-cierre
	emptyChannelTimeout = 60 * time.Second
)

// GlobalQueueReplayer lo implementa QueueService: vuelca la cola global
// del guild dentro de la sesión recién creada.
type GlobalQueueReplayer interface {
	Replay(ctx context.Context, session storage.Session) error
}

type SessionService struct {
	sessions    SessionStore
	formations  FormationStore
	assignments AssignmentStore
	users       UserStore
	replayer    GlobalQueueReplayer
	voice       VoiceGateway
	notifier    Notifier
	nicknames   NicknameManager
	clock       func() time.Time

	// timers de VC vacío; viven en memoria y se pierden en un restart,
	// el sweep los vuelve a sembrar en el próximo tick
	mu         sync.Mutex
	emptySince map[string]time.Time

	// hook para que el matchmaker olvide su estado de la sesión terminada
	onEnd func(sessionID string)
}

func NewSessionService(
	sessions SessionStore,
	formations FormationStore,
	assignments AssignmentStore,
	users UserStore,
	replayer GlobalQueueReplayer,
	voice VoiceGateway,
	notifier Notifier,
	nicknames NicknameManager,
) *SessionService {
	return &SessionService{
		sessions:    sessions,
		formations:  formations,
		assignments: assignments,
		users:       users,
		replayer:    replayer,
		voice:       voice,
		notifier:    notifier,
		nicknames:   nicknames,
		clock:       time.Now,
		emptySince:  map[string]time.Time{},
	}
}

// OnEnd registra un hook que corre al terminar cualquier sesión.
func (s *SessionService) OnEnd(fn func(sessionID string)) { s.onEnd = fn }

// Active devuelve la sesión viva del guild, o ErrNoSession.
func (s *SessionService) Active(ctx context.Context, guildID string) (storage.Session, error) {
	sess, err := s.sessions.GetActive(ctx, guildID)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Session{}, ErrNoSession
	}
	return sess, err
}

// Create arranca una nueva sesión para el guild. Falla con ErrSessionExists
// (o ErrAlreadyHosting si el host es el mismo) mientras haya una viva.
func (s *SessionService) Create(ctx context.Context, guildID, hostID string) (storage.Session, error) {
	existing, err := s.sessions.GetActive(ctx, guildID)
	if err == nil {
		if existing.HostID == hostID {
			return existing, ErrAlreadyHosting
		}
		return existing, ErrSessionExists
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return storage.Session{}, fmt.Errorf("get active session: %w", err)
	}

	name, err := s.nextSessionName(ctx, guildID)
	if err != nil {
		return storage.Session{}, err
	}
	sess := storage.Session{
		SessionID: newSessionID(),
		GuildID:   guildID,
		HostID:    hostID,
		Name:      name,
		Status:    domain.StatusForming,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return storage.Session{}, fmt.Errorf("create session: %w", err)
	}
	log.Printf("[session] created %s (%s) host=%s", sess.SessionID, sess.Name, hostID)

	if s.replayer != nil {
		if err := s.replayer.Replay(ctx, sess); err != nil {
			log.Printf("[session] global queue replay for %s: %v", sess.SessionID, err)
		}
	}
	return sess, nil
}

// SetFormation valida y persiste la formación de un equipo.
func (s *SessionService) SetFormation(ctx context.Context, sessionID, actorID string, team domain.Team, f domain.Formation) error {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.HostID != actorID {
		return ErrNotHost
	}
	if f.Support < 0 || f.Tank < 0 || f.DPS < 0 {
		return fmt.Errorf("%w: counts must be 0 or positive", ErrInvalidFormation)
	}
	if f.Total() != domain.TeamSize {
		return fmt.Errorf("%w: team must have exactly %d players", ErrInvalidFormation, domain.TeamSize)
	}
	if len(f.Note) > 100 {
		return fmt.Errorf("%w: note too long", ErrInvalidFormation)
	}
	return s.formations.Set(ctx, sessionID, team, f)
}

// ApplyPreset setea ambos equipos de una (el botón "Quick 3-3-6").
func (s *SessionService) ApplyPreset(ctx context.Context, sessionID, actorID string, teamA, teamB domain.Formation) error {
	if err := s.SetFormation(ctx, sessionID, actorID, domain.TeamA, teamA); err != nil {
		return err
	}
	return s.SetFormation(ctx, sessionID, actorID, domain.TeamB, teamB)
}

// ToggleLock alterna forming <-> locked. Devuelve el estado resultante.
func (s *SessionService) ToggleLock(ctx context.Context, guildID, actorID string) (domain.SessionStatus, error) {
	sess, err := s.activeHostedBy(ctx, guildID, actorID)
	if err != nil {
		return "", err
	}
	var next domain.SessionStatus
	switch sess.Status {
	case domain.StatusForming:
		next = domain.StatusLocked
	case domain.StatusLocked:
		next = domain.StatusForming
	default:
		return "", fmt.Errorf("cannot lock a session in status %q", sess.Status)
	}
	if err := s.sessions.UpdateStatus(ctx, sess.SessionID, next); err != nil {
		return "", err
	}
	log.Printf("[session] %s -> %s", sess.SessionID, next)
	return next, nil
}

// ToggleActive alterna forming <-> active. Activar apaga el matchmaking y
// prende el sistema de warns; desactivar es el inverso.
func (s *SessionService) ToggleActive(ctx context.Context, guildID, actorID string) (domain.SessionStatus, error) {
	sess, err := s.activeHostedBy(ctx, guildID, actorID)
	if err != nil {
		return "", err
	}
	var next domain.SessionStatus
	switch sess.Status {
	case domain.StatusActive:
		next = domain.StatusForming
	case domain.StatusForming, domain.StatusLocked:
		next = domain.StatusActive
	default:
		return "", fmt.Errorf("cannot start a session in status %q", sess.Status)
	}
	if err := s.sessions.UpdateStatus(ctx, sess.SessionID, next); err != nil {
		return "", err
	}
	log.Printf("[session] %s -> %s", sess.SessionID, next)
	return next, nil
}

// BindVoiceChannel asocia el VC recién creado a la sesión.
func (s *SessionService) BindVoiceChannel(ctx context.Context, sessionID, channelID string) error {
	return s.sessions.UpdateVoiceChannel(ctx, sessionID, channelID)
}

// End termina la sesión del guild: resetea nicknames, borra el VC y cascadea
// el cleanup. Host o admin.
func (s *SessionService) End(ctx context.Context, guildID, actorID string, isAdmin bool) error {
	sess, err := s.sessions.GetActive(ctx, guildID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNoSession
	}
	if err != nil {
		return err
	}
	if sess.HostID != actorID && !isAdmin {
		return ErrNotHost
	}
	return s.endSession(ctx, sess)
}

func (s *SessionService) endSession(ctx context.Context, sess storage.Session) error {
	// cosmética primero: los errores de nickname no importan
	if rows, err := s.assignments.List(ctx, sess.SessionID); err == nil {
		ids := make([]string, 0, len(rows))
		for _, a := range rows {
			ids = append(ids, a.DiscordID)
		}
		if users, err := s.users.FindByIDs(ctx, ids); err == nil {
			for _, a := range rows {
				if u, ok := users[a.DiscordID]; ok {
					s.nicknames.ResetNickname(sess.GuildID, a.DiscordID, u.IGN)
				}
			}
		}
	}

	if sess.VoiceChannelID != "" {
		if err := s.voice.DeleteChannel(sess.VoiceChannelID); err != nil {
			log.Printf("[session] delete channel %s: %v", sess.VoiceChannelID, err)
		}
	}
	if err := s.sessions.Cleanup(ctx, sess.SessionID); err != nil {
		return fmt.Errorf("cleanup session: %w", err)
	}

	s.mu.Lock()
	delete(s.emptySince, sess.SessionID)
	s.mu.Unlock()

	if s.onEnd != nil {
		s.onEnd(sess.SessionID)
	}
	log.Printf("[session] ended %s (%s)", sess.SessionID, sess.Name)
	return nil
}

// SweepEmptyChannels corre en el tick de 30s: canal borrado externamente o
// vacío por >=60s continuos => la sesión se cierra sola.
func (s *SessionService) SweepEmptyChannels(ctx context.Context, guildID string) {
	sess, err := s.sessions.GetActive(ctx, guildID)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		log.Printf("[session] sweep get active: %v", err)
		return
	}
	if sess.VoiceChannelID == "" {
		return
	}

	occ, err := s.voice.OccupantCount(sess.VoiceChannelID)
	if errors.Is(err, ErrChannelGone) {
		log.Printf("[session] channel %s gone, cleaning up %s", sess.VoiceChannelID, sess.SessionID)
		if err := s.sessions.Cleanup(ctx, sess.SessionID); err != nil {
			log.Printf("[session] cleanup %s: %v", sess.SessionID, err)
		}
		s.mu.Lock()
		delete(s.emptySince, sess.SessionID)
		s.mu.Unlock()
		if s.onEnd != nil {
			s.onEnd(sess.SessionID)
		}
		return
	}
	if err != nil {
		log.Printf("[session] occupant count %s: %v", sess.VoiceChannelID, err)
		return
	}

	now := s.clock()
	s.mu.Lock()
	if occ > 0 {
		delete(s.emptySince, sess.SessionID)
		s.mu.Unlock()
		return
	}
	since, ok := s.emptySince[sess.SessionID]
	if !ok {
		s.emptySince[sess.SessionID] = now
		s.mu.Unlock()
		return
	}
	expired := now.Sub(since) >= emptyChannelTimeout
	s.mu.Unlock()

	if !expired {
		return
	}

	s.notifier.NotifyUser(ctx, sess.HostID, Notice{
		Title:    "⏰ Session Auto-Closed",
		Body:     fmt.Sprintf("Your session **%s** was automatically closed because the voice channel was empty for more than 1 minute.", sess.Name),
		Severity: SeverityWarning,
	})
	if err := s.endSession(ctx, sess); err != nil {
		log.Printf("[session] auto-close %s: %v", sess.SessionID, err)
	}
}

// Recover corre al arrancar: limpia sesiones huérfanas (sin canal o con el
// canal borrado) y siembra los timers de vacío para las que siguen vivas.
func (s *SessionService) Recover(ctx context.Context, guildID string) {
	sess, err := s.sessions.GetActive(ctx, guildID)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		log.Printf("[session] recover: %v", err)
		return
	}

	if sess.VoiceChannelID == "" {
		_ = s.sessions.Cleanup(ctx, sess.SessionID)
		log.Printf("[session] recover: cleaned orphan %s (no channel)", sess.SessionID)
		return
	}
	occ, err := s.voice.OccupantCount(sess.VoiceChannelID)
	if errors.Is(err, ErrChannelGone) {
		_ = s.sessions.Cleanup(ctx, sess.SessionID)
		log.Printf("[session] recover: cleaned orphan %s (channel gone)", sess.SessionID)
		return
	}
	if err == nil && occ == 0 {
		s.mu.Lock()
		s.emptySince[sess.SessionID] = s.clock()
		s.mu.Unlock()
	}
	s.notifier.NotifyUser(ctx, sess.HostID, Notice{
		Title:    "🔄 Bot Reconnected",
		Body:     fmt.Sprintf("Your session **%s** is still active and has been recovered.", sess.Name),
		Severity: SeverityInfo,
	})
	log.Printf("[session] recovered %s (%s)", sess.SessionID, sess.Name)
}

func (s *SessionService) activeHostedBy(ctx context.Context, guildID, actorID string) (storage.Session, error) {
	sess, err := s.sessions.GetActive(ctx, guildID)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Session{}, ErrNoSession
	}
	if err != nil {
		return storage.Session{}, err
	}
	if sess.HostID != actorID {
		return storage.Session{}, ErrNotHost
	}
	return sess, nil
}

// nextSessionName: el número libre más chico entre las sesiones vivas,
// para reusar numeración como hacen los canales.
func (s *SessionService) nextSessionName(ctx context.Context, guildID string) (string, error) {
	names, err := s.sessions.LiveNames(ctx, guildID)
	if err != nil {
		return "", err
	}
	used := map[int]bool{}
	for _, n := range names {
		rest, ok := strings.CutPrefix(n, sessionNamePrefix)
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		if num, err := strconv.Atoi(fields[0]); err == nil {
			used[num] = true
		}
	}
	next := 1
	for used[next] {
		next++
	}
	return fmt.Sprintf("%s%d", sessionNamePrefix, next), nil
}

func newSessionID() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
