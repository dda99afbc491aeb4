package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Parley/internal/app"
	"github.com/dkeye/Parley/internal/domain"
	"github.com/dkeye/Parley/internal/translate"
)

// DefaultLanguage is assumed when a create or join request names none.
const DefaultLanguage = "fr"

// TranslationAdmin is the slice of the multiplexer the admin routes use.
type TranslationAdmin interface {
	Usage() []translate.ProviderUsage
	Month() string
	PreferredLanguage() string
	SetPreferredLanguage(lang string)
}

type Handler struct {
	Registry    *app.Registry
	Translation TranslationAdmin
	Limiter     *RateLimiter
	Mode        string
	BaseURL     string
}

type createRoomRequest struct {
	Nickname string `json:"nickname"`
	Language string `json:"language"`
	RoomName string `json:"room_name"`
	Password string `json:"password"`
}

type joinRoomRequest struct {
	RoomID   string `json:"room_id"`
	Nickname string `json:"nickname"`
	Language string `json:"language"`
	Password string `json:"password"`
}

type userRequest struct {
	UserID string `json:"user_id"`
}

type translateRequest struct {
	UserID         string `json:"user_id"`
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language"`
	EnableSpeech   *bool  `json:"enable_speech"`
}

type updatesResponse struct {
	Success bool `json:"success"`
	domain.VisibleMessage
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// bindOptionalJSON accepts an empty body as the zero request.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, errBadBody)
		return false
	}
	return true
}

func (h *Handler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errBadBody)
		return
	}
	roomID, userID, err := h.Registry.CreateRoom(req.Nickname, orDefault(req.Language, DefaultLanguage), req.RoomName, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	rememberMember(c, roomID, userID)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"room_id": roomID,
		"user_id": userID,
		"message": "Room created, code: " + string(roomID),
	})
}

func (h *Handler) JoinRoom(c *gin.Context) {
	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errBadBody)
		return
	}
	roomID := domain.RoomID(strings.TrimSpace(req.RoomID))
	userID, err := h.Registry.JoinRoom(roomID, req.Nickname, orDefault(req.Language, DefaultLanguage), req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	rememberMember(c, roomID, userID)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"room_id": roomID,
		"user_id": userID,
		"message": "Joined the room",
	})
}

func (h *Handler) LeaveRoom(c *gin.Context) {
	roomID := domain.RoomID(c.Param("room_id"))
	var req userRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	userID := resolveUserID(c, roomID, req.UserID)
	if userID == "" {
		respondError(c, domain.ErrMissingUserID)
		return
	}
	if !h.Registry.LeaveRoom(roomID, userID) {
		log.Warn().Str("module", "adapters.http").Str("room", string(roomID)).Msg("leave for unknown room")
		respondError(c, &domain.Error{Kind: domain.KindInternal, Message: "could not leave the room"})
		return
	}
	h.Limiter.Forget(userID)
	forgetMember(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "You left the room"})
}

func (h *Handler) RoomInfo(c *gin.Context) {
	room, ok := h.Registry.GetRoom(domain.RoomID(c.Param("room_id")))
	if !ok {
		respondError(c, domain.ErrRoomNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "room": room.Snapshot()})
}

func (h *Handler) Translate(c *gin.Context) {
	roomID := domain.RoomID(c.Param("room_id"))
	var req translateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errBadBody)
		return
	}
	userID := resolveUserID(c, roomID, req.UserID)
	if userID == "" {
		respondError(c, domain.ErrMissingUserID)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(c, domain.ErrMissingText)
		return
	}
	sender, err := h.Registry.Member(roomID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.Registry.UpdateUserActivity(roomID, userID)
	if !h.Limiter.Allow(userID) {
		respondError(c, domain.ErrRateLimited)
		return
	}

	speech := req.EnableSpeech == nil || *req.EnableSpeech
	source := orDefault(req.SourceLanguage, sender.Language)
	// A dropped client does not cancel a broadcast the rest of the room waits for.
	ctx := context.WithoutCancel(c.Request.Context())
	err = h.Registry.BroadcastTranslation(ctx, roomID, req.Text, source, userID, speech)
	if err != nil {
		if domain.KindOf(err) != domain.KindValidation {
			log.Error().Err(err).Str("module", "adapters.http").Str("room", string(roomID)).Msg("broadcast failed")
			err = domain.ErrBroadcastFailed
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Translation sent to the room"})
}

func (h *Handler) Updates(c *gin.Context) {
	roomID := domain.RoomID(c.Param("room_id"))
	userID := resolveUserID(c, roomID, c.Query("user_id"))
	if userID == "" {
		respondError(c, domain.ErrMissingUserID)
		return
	}
	msg, err := h.Registry.Poll(roomID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updatesResponse{Success: true, VisibleMessage: msg})
}

func (h *Handler) RoomHeartbeat(c *gin.Context) {
	roomID := domain.RoomID(c.Param("room_id"))
	var req userRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if userID := resolveUserID(c, roomID, req.UserID); userID != "" {
		h.Registry.UpdateUserActivity(roomID, userID)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Heartbeat(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Stats sweeps first so the numbers never include expired users.
func (h *Handler) Stats(c *gin.Context) {
	h.Registry.Cleanup()
	c.JSON(http.StatusOK, h.Registry.Stats())
}

func (h *Handler) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "rooms": h.Registry.Rooms()})
}

func (h *Handler) Usage(c *gin.Context) {
	if h.Translation == nil {
		respondError(c, domain.ErrInternal)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"month":              h.Translation.Month(),
		"preferred_language": h.Translation.PreferredLanguage(),
		"providers":          h.Translation.Usage(),
	})
}

func (h *Handler) SetPreferredLanguage(c *gin.Context) {
	var req struct {
		Lang string `json:"lang"`
	}
	if !bindOptionalJSON(c, &req) {
		return
	}
	lang := orDefault(req.Lang, translate.DefaultPreferredLanguage)
	if domain.CanonicalLanguage(lang) == domain.AutoLanguage {
		lang = translate.DefaultPreferredLanguage
	}
	if h.Translation != nil {
		h.Translation.SetPreferredLanguage(lang)
		lang = h.Translation.PreferredLanguage()
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Preferred language set to: " + lang})
}

func (h *Handler) ServerStatus(c *gin.Context) {
	mode, env := "development", "local"
	if h.Mode == gin.ReleaseMode {
		mode, env = "production", "hosted"
	}
	c.JSON(http.StatusOK, gin.H{"mode": mode, "base_url": h.BaseURL, "environment": env})
}

// RoomPage serves the room screen, or sends the visitor back to the lobby
// when the code is unknown.
func (h *Handler) RoomPage(staticPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := h.Registry.GetRoom(domain.RoomID(c.Param("room_id"))); !ok {
			c.Redirect(http.StatusFound, "/")
			return
		}
		c.File(staticPath + "/room.html")
	}
}
