package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Parley/internal/app"
	"github.com/dkeye/Parley/internal/config"
	"github.com/dkeye/Parley/internal/domain"
	"github.com/dkeye/Parley/internal/translate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type echoTranslator struct{}

func (echoTranslator) Lookup(ctx context.Context, text, _, target string) (translate.Result, error) {
	if err := ctx.Err(); err != nil {
		return translate.Result{Text: "Translation error: " + err.Error(), Degraded: true}, err
	}
	return translate.Result{Text: target + ":" + text}, nil
}

type fakeAdmin struct {
	mu        sync.Mutex
	preferred string
}

func (f *fakeAdmin) Usage() []translate.ProviderUsage {
	return []translate.ProviderUsage{{Name: "google", Used: 10, Quota: 100, Percent: 10}}
}

func (f *fakeAdmin) Month() string { return "2026-10" }

func (f *fakeAdmin) PreferredLanguage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.preferred
}

func (f *fakeAdmin) SetPreferredLanguage(lang string) {
	f.mu.Lock()
	f.preferred = lang
	f.mu.Unlock()
}

type testServer struct {
	router *gin.Engine
	reg    *app.Registry
	hb     *app.Heartbeat
	admin  *fakeAdmin
	static string
	now    time.Time
	mu     sync.Mutex
}

func (s *testServer) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *testServer) advance(d time.Duration) {
	s.mu.Lock()
	s.now = s.now.Add(d)
	s.mu.Unlock()
}

func newTestServer(t *testing.T, limiter *RateLimiter) *testServer {
	t.Helper()
	s := &testServer{now: time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC), admin: &fakeAdmin{preferred: "en"}}
	s.reg = app.NewRegistry(echoTranslator{}, app.PivotPolicy{}, app.Options{Now: s.clock})
	s.hb = app.NewHeartbeat(s.clock)
	s.static = t.TempDir()
	cfg := &config.Config{Mode: gin.TestMode, StaticPath: s.static, Secret: "test-secret", BaseURL: "http://parley.test"}
	h := &Handler{Registry: s.reg, Translation: s.admin, Limiter: limiter, Mode: cfg.Mode, BaseURL: cfg.BaseURL}
	s.router = SetupRouter(cfg, h, s.hb)
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type member struct {
	roomID  string
	userID  string
	cookies []*http.Cookie
}

func (s *testServer) create(t *testing.T, nick, lang string) member {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/create-room", gin.H{"nickname": nick, "language": lang, "room_name": "Atelier"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	return member{roomID: body["room_id"].(string), userID: body["user_id"].(string), cookies: w.Result().Cookies()}
}

func (s *testServer) join(t *testing.T, roomID, nick, lang string) member {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/join-room", gin.H{"room_id": roomID, "nickname": nick, "language": lang})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	return member{roomID: roomID, userID: body["user_id"].(string), cookies: w.Result().Cookies()}
}

func TestHTTP_BroadcastRoundTrip(t *testing.T) {
	s := newTestServer(t, nil)
	host := s.create(t, "Claire", "fr")
	sam := s.join(t, host.roomID, "Sam", "en")

	w := s.do(t, http.MethodPost, "/api/room/"+host.roomID+"/translate",
		gin.H{"user_id": host.userID, "text": "bonjour", "source_language": "fr"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["success"])

	w = s.do(t, http.MethodGet, "/api/room/"+host.roomID+"/updates?user_id="+sam.userID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "bonjour", body["original"])
	assert.Equal(t, "en:bonjour", body["translated"])
	assert.Equal(t, true, body["show_translation"])
	assert.Equal(t, true, body["enable_speech"])

	w = s.do(t, http.MethodPost, "/api/room/"+host.roomID+"/translate",
		gin.H{"user_id": sam.userID, "text": "hello"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/room/"+host.roomID+"/updates?user_id="+host.userID, nil)
	body = decode(t, w)
	assert.Equal(t, "fr:hello", body["original"])
	assert.Equal(t, true, body["is_host"])
}

func TestHTTP_BroadcastSurvivesDroppedClient(t *testing.T) {
	s := newTestServer(t, nil)
	host := s.create(t, "Claire", "fr")
	sam := s.join(t, host.roomID, "Sam", "en")

	body, err := json.Marshal(gin.H{"user_id": host.userID, "text": "bonjour", "source_language": "fr"})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/room/"+host.roomID+"/translate", bytes.NewReader(body)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/room/"+host.roomID+"/updates?user_id="+sam.userID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "en:bonjour", decode(t, w)["translated"])
}

func TestHTTP_ErrorMapping(t *testing.T) {
	s := newTestServer(t, nil)
	host := s.create(t, "Claire", "fr")
	w := s.do(t, http.MethodPost, "/api/create-room", gin.H{"nickname": "Ana", "language": "es", "room_name": "Locked", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	locked := decode(t, w)["room_id"].(string)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		errMsg string
	}{
		{"missing nickname", http.MethodPost, "/api/create-room", gin.H{"room_name": "x"}, http.StatusBadRequest, "nickname required"},
		{"missing room name", http.MethodPost, "/api/create-room", gin.H{"nickname": "x"}, http.StatusBadRequest, "room name required"},
		{"missing room code", http.MethodPost, "/api/join-room", gin.H{"nickname": "x"}, http.StatusBadRequest, "room code required"},
		{"unknown room", http.MethodPost, "/api/join-room", gin.H{"room_id": "0000", "nickname": "x"}, http.StatusNotFound, "room not found"},
		{"bad password", http.MethodPost, "/api/join-room", gin.H{"room_id": locked, "nickname": "x", "password": "nope"}, http.StatusForbidden, "wrong room password"},
		{"missing user id", http.MethodGet, "/api/room/" + host.roomID + "/updates", nil, http.StatusBadRequest, "user id required"},
		{"stranger polls", http.MethodGet, "/api/room/" + host.roomID + "/updates?user_id=ghost", nil, http.StatusForbidden, "user not authorized in this room"},
		{"missing text", http.MethodPost, "/api/room/" + host.roomID + "/translate", gin.H{"user_id": host.userID}, http.StatusBadRequest, "text required"},
		{"stranger translates", http.MethodPost, "/api/room/" + host.roomID + "/translate", gin.H{"user_id": "ghost", "text": "hi"}, http.StatusForbidden, "user not authorized in this room"},
		{"info unknown", http.MethodGet, "/api/room/0000/info", nil, http.StatusNotFound, "room not found"},
		{"leave unknown", http.MethodPost, "/api/room/0000/leave", gin.H{"user_id": "x"}, http.StatusInternalServerError, "could not leave the room"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.errMsg, body["error"])
		})
	}
}

func TestHTTP_BadJSON(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/create-room", bytes.NewBufferString("{nope"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid request body", decode(t, w)["error"])
}

func TestHTTP_RoomFull(t *testing.T) {
	s := newTestServer(t, nil)
	host := s.create(t, "Claire", "fr")
	for range app.DefaultMaxUsers - 1 {
		s.join(t, host.roomID, "p", "en")
	}
	w := s.do(t, http.MethodPost, "/api/join-room", gin.H{"room_id": host.roomID, "nickname": "late"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "room is full", decode(t, w)["error"])
}

func TestHTTP_SessionRemembersMember(t *testing.T) {
	s := newTestServer(t, nil)
	host := s.create(t, "Claire", "fr")
	require.NotEmpty(t, host.cookies)

	w := s.do(t, http.MethodGet, "/api/room/"+host.roomID+"/updates", nil, host.cookies...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["is_host"])

	w = s.do(t, http.MethodGet, "/api/room/0000/updates", nil, host.cookies...)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHTTP_LeaveByHostClosesRoom(t *testing.T) {
	s := newTestServer(t, nil)
	host := s.create(t, "Claire", "fr")
	s.join(t, host.roomID, "Sam", "en")

	w := s.do(t, http.MethodPost, "/api/room/"+host.roomID+"/leave", nil, host.cookies...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/room/"+host.roomID+"/info", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHTTP_RoomInfo(t *testing.T) {
	s := newTestServer(t, nil)
	host := s.create(t, "Claire", "fr")
	s.join(t, host.roomID, "Sam", "en")

	w := s.do(t, http.MethodGet, "/api/room/"+host.roomID+"/info", nil)
	require.Equal(t, http.StatusOK, w.Code)
	room := decode(t, w)["room"].(map[string]any)
	assert.Equal(t, host.roomID, room["room_id"])
	assert.Equal(t, "fr", room["pivot_language"])
	assert.EqualValues(t, 2, room["users_count"])
}

func TestHTTP_RateLimited(t *testing.T) {
	s := newTestServer(t, NewRateLimiter(1, time.Minute))
	host := s.create(t, "Claire", "fr")
	path := "/api/room/" + host.roomID + "/translate"

	w := s.do(t, http.MethodPost, path, gin.H{"user_id": host.userID, "text": "un"})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodPost, path, gin.H{"user_id": host.userID, "text": "deux"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestHTTP_HeartbeatTouchesProcessAndUser(t *testing.T) {
	s := newTestServer(t, nil)
	host := s.create(t, "Claire", "fr")
	s.advance(time.Minute)
	require.Equal(t, time.Minute, s.hb.Since())

	w := s.do(t, http.MethodPost, "/api/room/"+host.roomID+"/heartbeat", gin.H{"user_id": host.userID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
	assert.Zero(t, s.hb.Since())

	u, err := s.reg.Member(domain.RoomID(host.roomID), domain.UserID(host.userID))
	require.NoError(t, err)
	assert.Equal(t, s.clock(), u.LastActivity)

	w = s.do(t, http.MethodPost, "/heartbeat", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHTTP_StatsRunsCleanup(t *testing.T) {
	s := newTestServer(t, nil)
	s.create(t, "Claire", "fr")
	s.create(t, "Ana", "es")

	w := s.do(t, http.MethodGet, "/api/admin/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["total_rooms"])

	s.advance(31 * time.Minute)
	w = s.do(t, http.MethodGet, "/api/admin/stats", nil)
	body := decode(t, w)
	assert.EqualValues(t, 0, body["total_rooms"])
	assert.EqualValues(t, 0, body["total_users"])
}

func TestHTTP_ListRooms(t *testing.T) {
	s := newTestServer(t, nil)
	host := s.create(t, "Claire", "fr")
	s.join(t, host.roomID, "Sam", "en")

	w := s.do(t, http.MethodGet, "/api/admin/rooms", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rooms := decode(t, w)["rooms"].([]any)
	require.Len(t, rooms, 1)
	room := rooms[0].(map[string]any)
	assert.Equal(t, host.roomID, room["room_id"])
	assert.EqualValues(t, 2, room["users_count"])
	assert.Equal(t, false, room["has_password"])
}

func TestHTTP_TranslationAdmin(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/set-preferred-language", gin.H{"lang": "de"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "de", s.admin.PreferredLanguage())

	s.do(t, http.MethodPost, "/set-preferred-language", gin.H{"lang": "auto"})
	assert.Equal(t, "en", s.admin.PreferredLanguage())

	w = s.do(t, http.MethodGet, "/api/admin/usage", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "2026-10", body["month"])
	providers := body["providers"].([]any)
	require.Len(t, providers, 1)
	assert.Equal(t, "google", providers[0].(map[string]any)["name"])
}

func TestHTTP_ServerStatus(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodGet, "/server-status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "development", body["mode"])
	assert.Equal(t, "http://parley.test", body["base_url"])
}

func TestHTTP_ServesPages(t *testing.T) {
	s := newTestServer(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(s.static, "index.html"), []byte("<h1>lobby</h1>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(s.static, "room.html"), []byte("<h1>room</h1>"), 0o600))
	host := s.create(t, "Claire", "fr")

	w := s.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "lobby")

	w = s.do(t, http.MethodGet, "/room/"+host.roomID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "room")
}

func TestHTTP_RoomPageRedirectsUnknownRoom(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodGet, "/room/0000", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}
