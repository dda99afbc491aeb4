package core

import (
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/dkeye/Parley/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory room.
type roomImpl struct {
	room     *domain.Room
	maxUsers int

	mu     sync.RWMutex
	users  map[domain.UserID]*domain.User
	latest domain.Broadcast
}

func NewRoomService(room *domain.Room, maxUsers int) RoomService {
	return &roomImpl{
		room:     room,
		maxUsers: maxUsers,
		users:    make(map[domain.UserID]*domain.User),
		latest: domain.Broadcast{
			Translations:   map[string]string{},
			SourceLanguage: room.Pivot,
			Timestamp:      room.CreatedAt,
		},
	}
}

func (r *roomImpl) Room() *domain.Room { return r.room }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func (r *roomImpl) Member(id domain.UserID) (domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, false
	}
	return *u, true
}

func (r *roomImpl) Host() (domain.User, bool) {
	return r.Member(r.room.HostID)
}

// AddMember enforces the user cap under the write lock.
func (r *roomImpl) AddMember(u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.users) >= r.maxUsers {
		return domain.ErrRoomFull
	}
	r.users[u.ID] = u
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).
		Str("user", string(u.ID)).Str("lang", u.Language).Bool("host", u.IsHost).Msg("member added")
	return nil
}

func (r *roomImpl) RemoveMember(id domain.UserID) (domain.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, false
	}
	delete(r.users, id)
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("user", string(id)).Msg("member removed")
	return *u, true
}

func (r *roomImpl) Touch(id domain.UserID, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if ok {
		u.Touch(now)
	}
	return ok
}

func (r *roomImpl) EvictIdle(cutoff time.Time) []domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	var evicted []domain.User
	for id, u := range r.users {
		if u.IdleBefore(cutoff) {
			evicted = append(evicted, *u)
			delete(r.users, id)
		}
	}
	if len(evicted) > 0 {
		log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Int("evicted", len(evicted)).Msg("idle members evicted")
	}
	return evicted
}

// SpokeLanguages returns the distinct languages of non-host members, sorted.
func (r *roomImpl) SpokeLanguages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	langs := make([]string, 0, len(r.users))
	for _, u := range r.users {
		if u.IsHost || slices.Contains(langs, u.Language) {
			continue
		}
		langs = append(langs, u.Language)
	}
	sort.Strings(langs)
	return langs
}

func (r *roomImpl) Publish(b domain.Broadcast) {
	b = b.Clone()
	r.mu.Lock()
	r.latest = b
	r.mu.Unlock()
	log.Debug().Str("module", "core.room").Str("room", string(r.room.ID)).
		Str("source", b.SourceLanguage).Int("languages", len(b.Translations)).Msg("broadcast published")
}

func (r *roomImpl) Latest() domain.Broadcast {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest.Clone()
}

func (r *roomImpl) Snapshot() RoomSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].JoinedAt.Before(users[j].JoinedAt) })
	return RoomSnapshot{
		ID:              r.room.ID,
		Name:            r.room.Name,
		Pivot:           r.room.Pivot,
		CreatedAt:       r.room.CreatedAt,
		UsersCount:      len(users),
		Users:           users,
		LastTranslation: r.latest.Clone(),
	}
}
