package domain

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordLen is the longest passphrase bcrypt accepts.
const MaxPasswordLen = 72

type RoomID string

// Room is the immutable part of a translation session.
// Membership and the broadcast slot live in core.RoomService.
type Room struct {
	ID           RoomID    `json:"room_id"`
	Name         string    `json:"room_name"`
	HostID       UserID    `json:"host_id"`
	Pivot        string    `json:"pivot_language"`
	CreatedAt    time.Time `json:"created_at"`
	passwordHash []byte
}

func NewRoom(id RoomID, name string, host *User, password string, now time.Time) (*Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMissingRoomName
	}
	if len([]rune(name)) > MaxRoomNameLen {
		return nil, ErrRoomNameTooLong
	}
	room := &Room{
		ID:        id,
		Name:      name,
		HostID:    host.ID,
		Pivot:     host.Language,
		CreatedAt: now,
	}
	password = strings.TrimSpace(password)
	if password == "" {
		return room, nil
	}
	if len(password) > MaxPasswordLen {
		return nil, ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash room password: %w", err)
	}
	room.passwordHash = hash
	return room, nil
}

func (r *Room) HasPassword() bool { return len(r.passwordHash) > 0 }

// CheckPassword accepts anything when the room has no password.
func (r *Room) CheckPassword(given string) bool {
	if !r.HasPassword() {
		return true
	}
	return bcrypt.CompareHashAndPassword(r.passwordHash, []byte(strings.TrimSpace(given))) == nil
}
