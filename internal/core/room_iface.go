package core

import (
	"time"

	"github.com/dkeye/Parley/internal/domain"
)

// RoomSnapshot is a read-only view for APIs and stats.
type RoomSnapshot struct {
	ID              domain.RoomID    `json:"room_id"`
	Name            string           `json:"room_name"`
	Pivot           string           `json:"pivot_language"`
	CreatedAt       time.Time        `json:"created_at"`
	UsersCount      int              `json:"users_count"`
	Users           []domain.User    `json:"users"`
	LastTranslation domain.Broadcast `json:"last_translation"`
}

// RoomService is the core-facing API of a room.
// It owns the membership set and the broadcast slot, nothing else.
type RoomService interface {
	Room() *domain.Room
	MemberCount() int
	Member(id domain.UserID) (domain.User, bool)
	Host() (domain.User, bool)

	AddMember(u *domain.User) error
	RemoveMember(id domain.UserID) (domain.User, bool)
	Touch(id domain.UserID, now time.Time) bool
	EvictIdle(cutoff time.Time) []domain.User

	SpokeLanguages() []string
	Publish(b domain.Broadcast)
	Latest() domain.Broadcast

	Snapshot() RoomSnapshot
}

// RoomInfo is one line of the room listing.
type RoomInfo struct {
	ID          domain.RoomID `json:"room_id"`
	Name        string        `json:"room_name"`
	Pivot       string        `json:"pivot_language"`
	MemberCount int           `json:"users_count"`
	HasPassword bool          `json:"has_password"`
}

type RoomManager interface {
	// Create assigns room its code and registers it with host as first member.
	Create(room *domain.Room, host *domain.User) (RoomService, error)
	Get(id domain.RoomID) (RoomService, bool)
	All() []RoomService
	List() []RoomInfo
	StopRoom(id domain.RoomID)
}
