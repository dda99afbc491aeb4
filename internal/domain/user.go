// Package domain contains entities and pure rules, no locking or transport.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MaxNicknameLen = 36
	MaxRoomNameLen = 64
)

type UserID string

type User struct {
	ID           UserID    `json:"user_id"`
	Nickname     string    `json:"nickname"`
	Language     string    `json:"language"`
	IsHost       bool      `json:"is_host"`
	JoinedAt     time.Time `json:"joined_at"`
	LastActivity time.Time `json:"last_activity"`
}

// NewUser validates the nickname and language and stamps a fresh id.
func NewUser(nickname, lang string, isHost bool, now time.Time) (*User, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, ErrMissingNickname
	}
	if len([]rune(nickname)) > MaxNicknameLen {
		return nil, ErrNicknameTooLong
	}
	lang = CanonicalLanguage(lang)
	if lang == "" || lang == AutoLanguage {
		return nil, ErrMissingLanguage
	}
	return &User{
		ID:           UserID(uuid.NewString()),
		Nickname:     nickname,
		Language:     lang,
		IsHost:       isHost,
		JoinedAt:     now,
		LastActivity: now,
	}, nil
}

func (u *User) Touch(now time.Time) {
	u.LastActivity = now
}

// IdleBefore reports whether the user has been silent since before cutoff.
func (u *User) IdleBefore(cutoff time.Time) bool {
	return u.LastActivity.Before(cutoff)
}
