package app

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
	"github.com/dkeye/Parley/internal/translate"
	"github.com/rs/zerolog/log"
)

const DefaultUserIdleTimeout = 30 * time.Minute

// Translator is what the registry needs from the provider multiplexer.
type Translator interface {
	Lookup(ctx context.Context, text, source, target string) (translate.Result, error)
}

type Options struct {
	MaxUsers        int
	MaxCodeAttempts int
	UserIdleTimeout time.Duration
	// Codes and Now are overridable for tests.
	Codes func() domain.RoomID
	Now   func() time.Time
}

// Registry owns every live room. Membership changes are serialized by mu;
// reads and broadcasts only take the per-room locks.
type Registry struct {
	mu         sync.Mutex
	rooms      core.RoomManager
	translator Translator
	policy     Policy
	idle       time.Duration
	now        func() time.Time
}

func NewRegistry(tr Translator, policy Policy, opts Options) *Registry {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.UserIdleTimeout <= 0 {
		opts.UserIdleTimeout = DefaultUserIdleTimeout
	}
	if policy == nil {
		policy = PivotPolicy{}
	}
	return &Registry{
		rooms:      NewRoomManager(opts.MaxUsers, opts.MaxCodeAttempts, opts.Codes),
		translator: tr,
		policy:     policy,
		idle:       opts.UserIdleTimeout,
		now:        opts.Now,
	}
}

// CreateRoom registers a room whose host speaks hostLanguage; that language
// becomes the room's pivot. The passphrase is hashed before any lock is taken.
func (r *Registry) CreateRoom(hostNickname, hostLanguage, roomName, password string) (domain.RoomID, domain.UserID, error) {
	now := r.now()
	host, err := domain.NewUser(hostNickname, hostLanguage, true, now)
	if err != nil {
		return "", "", err
	}
	room, err := domain.NewRoom("", roomName, host, password, now)
	if err != nil {
		return "", "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	svc, err := r.rooms.Create(room, host)
	if err != nil {
		log.Error().Err(err).Str("module", "app.registry").Msg("create room failed")
		return "", "", err
	}
	log.Info().Str("module", "app.registry").Str("room", string(svc.Room().ID)).
		Str("name", room.Name).Str("pivot", room.Pivot).Msg("room created")
	return svc.Room().ID, host.ID, nil
}

// JoinRoom checks the passphrase outside the registry lock, then admits the
// user only if the same room is still live.
func (r *Registry) JoinRoom(roomID domain.RoomID, nickname, language, password string) (domain.UserID, error) {
	if strings.TrimSpace(string(roomID)) == "" {
		return "", domain.ErrMissingRoomID
	}
	user, err := domain.NewUser(nickname, language, false, r.now())
	if err != nil {
		return "", err
	}
	room, ok := r.rooms.Get(roomID)
	if !ok {
		return "", domain.ErrRoomNotFound
	}
	if !room.Room().CheckPassword(password) {
		log.Warn().Str("module", "app.registry").Str("room", string(roomID)).Msg("join rejected: bad password")
		return "", domain.ErrBadPassword
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if live, ok := r.rooms.Get(roomID); !ok || live != room {
		return "", domain.ErrRoomNotFound
	}
	if err := room.AddMember(user); err != nil {
		return "", err
	}
	return user.ID, nil
}

// LeaveRoom removes the user. The room goes with its host, and with its
// last member. It reports false only when the room does not exist.
func (r *Registry) LeaveRoom(roomID domain.RoomID, userID domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms.Get(roomID)
	if !ok {
		return false
	}
	user, removed := room.RemoveMember(userID)
	switch {
	case removed && user.IsHost:
		r.rooms.StopRoom(roomID)
		log.Info().Str("module", "app.registry").Str("room", string(roomID)).Msg("room deleted: host left")
	case room.MemberCount() == 0:
		r.rooms.StopRoom(roomID)
		log.Info().Str("module", "app.registry").Str("room", string(roomID)).Msg("room deleted: empty")
	}
	return true
}

// Rooms lists live rooms by code.
func (r *Registry) Rooms() []core.RoomInfo {
	return r.rooms.List()
}

func (r *Registry) GetRoom(roomID domain.RoomID) (core.RoomService, bool) {
	return r.rooms.Get(roomID)
}

// Member returns the user if they belong to the room.
func (r *Registry) Member(roomID domain.RoomID, userID domain.UserID) (domain.User, error) {
	room, ok := r.rooms.Get(roomID)
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	u, ok := room.Member(userID)
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *Registry) UpdateUserActivity(roomID domain.RoomID, userID domain.UserID) bool {
	room, ok := r.rooms.Get(roomID)
	if !ok {
		return false
	}
	return room.Touch(userID, r.now())
}

// Poll touches the viewer and returns the latest broadcast as they may see it.
func (r *Registry) Poll(roomID domain.RoomID, userID domain.UserID) (domain.VisibleMessage, error) {
	room, ok := r.rooms.Get(roomID)
	if !ok || !room.Touch(userID, r.now()) {
		return domain.VisibleMessage{}, domain.ErrUserNotFound
	}
	viewer, ok := room.Member(userID)
	if !ok {
		return domain.VisibleMessage{}, domain.ErrUserNotFound
	}
	return domain.Project(room.Latest(), viewer, room.Room().Pivot), nil
}

type CleanupReport struct {
	EvictedUsers int `json:"evicted_users"`
	DeletedRooms int `json:"deleted_rooms"`
}

// Cleanup evicts users idle longer than the idle timeout and drops rooms
// that lost their host or every member.
func (r *Registry) Cleanup() CleanupReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.idle)
	var rep CleanupReport
	for _, room := range r.rooms.All() {
		evicted := room.EvictIdle(cutoff)
		rep.EvictedUsers += len(evicted)
		_, hostAlive := room.Host()
		if !hostAlive || room.MemberCount() == 0 {
			r.rooms.StopRoom(room.Room().ID)
			rep.DeletedRooms++
			log.Info().Str("module", "app.registry").Str("room", string(room.Room().ID)).Msg("room deleted by cleanup")
		}
	}
	if rep.EvictedUsers > 0 || rep.DeletedRooms > 0 {
		log.Info().Str("module", "app.registry").Int("evicted", rep.EvictedUsers).Int("deleted", rep.DeletedRooms).Msg("cleanup done")
	}
	return rep
}

type Stats struct {
	TotalRooms int                 `json:"total_rooms"`
	TotalUsers int                 `json:"total_users"`
	Rooms      []core.RoomSnapshot `json:"rooms"`
}

func (r *Registry) Stats() Stats {
	rooms := r.rooms.All()
	st := Stats{TotalRooms: len(rooms), Rooms: make([]core.RoomSnapshot, 0, len(rooms))}
	for _, room := range rooms {
		snap := room.Snapshot()
		st.TotalUsers += snap.UsersCount
		st.Rooms = append(st.Rooms, snap)
	}
	sort.Slice(st.Rooms, func(i, j int) bool { return st.Rooms[i].ID < st.Rooms[j].ID })
	return st
}
