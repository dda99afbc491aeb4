package app

import (
	"math/rand/v2"
	"sort"
	"strconv"
	"sync"

	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	minRoomCode   = 1000
	roomCodeSpace = 9000

	DefaultMaxUsers        = 10
	DefaultMaxCodeAttempts = 64
)

// RandomRoomCode draws a 4-digit room code.
func RandomRoomCode() domain.RoomID {
	return domain.RoomID(strconv.Itoa(minRoomCode + rand.IntN(roomCodeSpace)))
}

type RoomManagerImpl struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]core.RoomService

	maxUsers    int
	maxAttempts int
	codes       func() domain.RoomID
}

func NewRoomManager(maxUsers, maxAttempts int, codes func() domain.RoomID) core.RoomManager {
	if maxUsers <= 0 {
		maxUsers = DefaultMaxUsers
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxCodeAttempts
	}
	if codes == nil {
		codes = RandomRoomCode
	}
	return &RoomManagerImpl{
		rooms:       make(map[domain.RoomID]core.RoomService),
		maxUsers:    maxUsers,
		maxAttempts: maxAttempts,
		codes:       codes,
	}
}

// Create allocates an unused code for an already built room and registers
// it with host as its first member. The room must not be shared yet.
func (f *RoomManagerImpl) Create(room *domain.Room, host *domain.User) (core.RoomService, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.rooms) >= roomCodeSpace {
		return nil, domain.ErrCapacityExhausted
	}
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		id := f.codes()
		if _, taken := f.rooms[id]; taken {
			log.Debug().Str("module", "app.rooms").Str("room", string(id)).Int("attempt", attempt).Msg("room code taken, retrying")
			continue
		}
		room.ID = id
		svc := core.NewRoomService(room, f.maxUsers)
		if err := svc.AddMember(host); err != nil {
			return nil, err
		}
		f.rooms[id] = svc
		return svc, nil
	}
	log.Error().Str("module", "app.rooms").Int("attempts", f.maxAttempts).Int("rooms", len(f.rooms)).Msg("no free room code found")
	return nil, domain.ErrCapacityExhausted
}

func (f *RoomManagerImpl) Get(id domain.RoomID) (core.RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[id]
	return room, ok
}

func (f *RoomManagerImpl) All() []core.RoomService {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.RoomService, 0, len(f.rooms))
	for _, r := range f.rooms {
		out = append(out, r)
	}
	return out
}

// List returns one line per room, ordered by code.
func (f *RoomManagerImpl) List() []core.RoomInfo {
	f.mu.RLock()
	out := make([]core.RoomInfo, 0, len(f.rooms))
	for id, r := range f.rooms {
		out = append(out, core.RoomInfo{
			ID:          id,
			Name:        r.Room().Name,
			Pivot:       r.Room().Pivot,
			MemberCount: r.MemberCount(),
			HasPassword: r.Room().HasPassword(),
		})
	}
	f.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *RoomManagerImpl) StopRoom(id domain.RoomID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms, id)
}
