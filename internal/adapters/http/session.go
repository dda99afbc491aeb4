package http

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Parley/internal/domain"
)

const (
	sessionName    = "ParleySession"
	sessionRoomKey = "room_id"
	sessionUserKey = "user_id"
)

func rememberMember(c *gin.Context, roomID domain.RoomID, userID domain.UserID) {
	s := sessions.Default(c)
	s.Set(sessionRoomKey, string(roomID))
	s.Set(sessionUserKey, string(userID))
	if err := s.Save(); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Msg("session save failed")
	}
}

func forgetMember(c *gin.Context) {
	s := sessions.Default(c)
	s.Delete(sessionRoomKey)
	s.Delete(sessionUserKey)
	if err := s.Save(); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Msg("session save failed")
	}
}

// resolveUserID prefers the id sent by the client and falls back to the
// one remembered for this room at create/join time.
func resolveUserID(c *gin.Context, roomID domain.RoomID, given string) domain.UserID {
	if given != "" {
		return domain.UserID(given)
	}
	s := sessions.Default(c)
	room, _ := s.Get(sessionRoomKey).(string)
	user, _ := s.Get(sessionUserKey).(string)
	if room == "" || domain.RoomID(room) != roomID {
		return ""
	}
	return domain.UserID(user)
}
