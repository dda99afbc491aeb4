package http

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Parley/internal/app"
	"github.com/dkeye/Parley/internal/config"
)

// HeartbeatMiddleware marks the process as alive on every request.
func HeartbeatMiddleware(hb *app.Heartbeat) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hb != nil {
			hb.Touch()
		}
		c.Next()
	}
}

func SetupRouter(cfg *config.Config, h *Handler, hb *app.Heartbeat) *gin.Engine {
	if cfg.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == gin.DebugMode {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24, HttpOnly: true})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(HeartbeatMiddleware(hb))

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/room/:room_id", h.RoomPage(cfg.StaticPath))

	r.POST("/heartbeat", h.Heartbeat)
	r.POST("/set-preferred-language", h.SetPreferredLanguage)
	r.GET("/server-status", h.ServerStatus)

	api := r.Group("/api")
	api.POST("/create-room", h.CreateRoom)
	api.POST("/join-room", h.JoinRoom)

	room := api.Group("/room/:room_id")
	room.GET("/info", h.RoomInfo)
	room.POST("/leave", h.LeaveRoom)
	room.POST("/translate", h.Translate)
	room.GET("/updates", h.Updates)
	room.POST("/heartbeat", h.RoomHeartbeat)

	admin := api.Group("/admin")
	admin.GET("/stats", h.Stats)
	admin.GET("/rooms", h.ListRooms)
	admin.GET("/usage", h.Usage)

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")
	return r
}
