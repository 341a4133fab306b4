package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"voicelink_service/internal/room/domain"
	"voicelink_service/internal/room/repository"
	"voicelink_service/pkg/limiter"
	"voicelink_service/pkg/logger"
	"voicelink_service/pkg/middlewares"
	"voicelink_service/pkg/token"
)

func newTestApp(h *RoomHandler) *fiber.App {
	app := fiber.New(FiberConfig(nil))
	app.Get("/", ConnectCheck)
	app.Post("/debug", DebugLogFlag)
	app.Post("/api/rooms", h.HandleRoomAction)
	app.Post("/api/rooms/audio", h.UploadAudio)

	admin := app.Group("/api/admin", middlewares.JWTMiddleware(), middlewares.RequireRole(token.RoleAdmin))
	admin.Get("/settings/auto-delete", h.GetAutoDelete)
	admin.Put("/settings/auto-delete", h.PutAutoDelete)
	return app
}

func newTestHandler(t *testing.T, rules map[string]limiter.Rule, storage ObjectStorage) (*RoomHandler, *testClock) {
	t.Helper()
	logger.SetNewNop()

	clock := newTestClock()
	rooms := repository.NewMemoryRoomRepository()
	settings := NewSettingsUseCase(repository.NewMemorySettingsRepository(), true, clock.Now)

	defaults, fallback := DefaultRateRules()
	if rules == nil {
		rules = defaults
	}
	rate := limiter.NewManager(limiter.NewMemoryFixedWindow(clock.Now), rules, fallback)

	opts := DefaultRoomOptions()
	opts.Now = clock.Now
	uc := NewRoomUseCase(rooms, settings, NewSignalRelay(0, clock.Now), rate, nil, opts)
	return NewRoomHandler(uc, settings, NewAudioUseCase(storage, rooms, clock.Now)), clock
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var raw []byte
	switch b := body.(type) {
	case string:
		raw = []byte(b)
	default:
		var err error
		raw, err = json.Marshal(b)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]interface{}{}
	if len(data) > 0 && data[0] == '{' {
		require.NoError(t, json.Unmarshal(data, &out))
	}
	return out
}

func TestRoomHandler_HandleRoomAction(t *testing.T) {
	h, _ := newTestHandler(t, nil, nil)
	app := newTestApp(h)

	resp, body := postJSON(t, app, "/api/rooms", "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])

	resp, body = postJSON(t, app, "/api/rooms", joinReq("r1", "ann"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	room := body["room"].(map[string]interface{})
	assert.Equal(t, "r1", room["id"])

	t.Run("非管理員踢人 403", func(t *testing.T) {
		_, _ = postJSON(t, app, "/api/rooms", joinReq("r1", "bob"))
		resp, body := postJSON(t, app, "/api/rooms", domain.RoomRequest{
			Action: domain.ActionKick, RoomID: "r1", UserID: "bob", TargetUserID: "ann",
		})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, domain.ErrNotAdmin.Error(), body["error"])
	})

	t.Run("未知 action 400", func(t *testing.T) {
		resp, _ := postJSON(t, app, "/api/rooms", map[string]string{"action": "dance", "roomId": "r1"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("poll 太頻繁回傳 throttled", func(t *testing.T) {
		resp, _ := postJSON(t, app, "/api/rooms", pollReq("r1", "ann", ""))
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, body := postJSON(t, app, "/api/rooms", pollReq("r1", "ann", ""))
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, true, body["throttled"])
		assert.EqualValues(t, 2000, body["retryAfterMs"])
	})
}

func TestRoomHandler_RateLimitHeaders(t *testing.T) {
	rules := map[string]limiter.Rule{string(domain.ActionInspect): {Limit: 1, Window: time.Minute}}
	h, _ := newTestHandler(t, rules, nil)
	app := newTestApp(h)

	inspect := domain.RoomRequest{Action: domain.ActionInspect, RoomID: "r1"}
	resp, _ := postJSON(t, app, "/api/rooms", inspect)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := postJSON(t, app, "/api/rooms", inspect)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	assert.Equal(t, "inspect", resp.Header.Get("X-RateLimit-Action"))
	assert.Equal(t, "60", resp.Header.Get(fiber.HeaderRetryAfter))
}

func TestRoomHandler_SpoofedForwardedFor(t *testing.T) {
	rules := map[string]limiter.Rule{string(domain.ActionInspect): {Limit: 1, Window: time.Minute}}
	h, _ := newTestHandler(t, rules, nil)
	app := newTestApp(h)

	inspect := func(forwardedFor string) int {
		raw, err := json.Marshal(domain.RoomRequest{Action: domain.ActionInspect, RoomID: "r1"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/rooms", bytes.NewReader(raw))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		req.Header.Set(fiber.HeaderXForwardedFor, forwardedFor)
		req.Header.Set("X-Real-Ip", forwardedFor)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, inspect("203.0.113.1"))
	// 換 header 也還是同一個來源
	assert.Equal(t, http.StatusTooManyRequests, inspect("203.0.113.2"))
}

func TestClientIP(t *testing.T) {
	ipOf := func(app *fiber.App, forwardedFor string) string {
		app.Get("/ip", func(c *fiber.Ctx) error { return c.SendString(ClientIP(c)) })
		req := httptest.NewRequest(http.MethodGet, "/ip", nil)
		req.Header.Set(fiber.HeaderXForwardedFor, forwardedFor)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(body)
	}

	t.Run("不信任的來源忽略 X-Forwarded-For", func(t *testing.T) {
		assert.Equal(t, "0.0.0.0", ipOf(fiber.New(FiberConfig(nil)), "203.0.113.9"))
	})

	t.Run("信任的 proxy 取第一個 hop", func(t *testing.T) {
		app := fiber.New(FiberConfig([]string{"0.0.0.0"}))
		assert.Equal(t, "203.0.113.9", ipOf(app, "203.0.113.9, 10.0.0.1"))
	})
}

func TestRoomHandler_InternalError(t *testing.T) {
	logger.SetNewNop()
	repo := new(MockRoomRepository)
	repo.On("Ready", mock.Anything).Return(nil)
	repo.On("FindRoom", mock.Anything, "r1").Return(nil, errors.New("connection reset by peer"))

	settings := NewSettingsUseCase(repository.NewMemorySettingsRepository(), true, nil)
	uc := NewRoomUseCase(repo, settings, NewSignalRelay(0, nil), nil, nil, RoomOptions{})
	app := newTestApp(NewRoomHandler(uc, settings, NewAudioUseCase(nil, repo, nil)))

	resp, body := postJSON(t, app, "/api/rooms", domain.RoomRequest{Action: domain.ActionLeave, RoomID: "r1", UserID: "ann"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Internal server error", body["error"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestStatusFor(t *testing.T) {
	tests := map[string]struct {
		err  error
		want int
	}{
		"validation":     {domain.NewValidationError("roomId is required"), http.StatusBadRequest},
		"unknown action": {domain.ErrUnknownAction, http.StatusBadRequest},
		"kick self":      {domain.ErrCannotKickSelf, http.StatusBadRequest},
		"no password":    {domain.ErrPasswordRequired, http.StatusUnauthorized},
		"bad password":   {domain.ErrInvalidPassword, http.StatusUnauthorized},
		"not admin":      {domain.ErrNotAdmin, http.StatusForbidden},
		"room":           {fmt.Errorf("send: %w", domain.ErrRoomNotFound), http.StatusNotFound},
		"user":           {domain.ErrUserNotFound, http.StatusNotFound},
		"expired":        {domain.ErrRoomExpired, http.StatusGone},
		"rate":           {&domain.RateLimitError{Action: domain.ActionPoll}, http.StatusTooManyRequests},
		"throttle":       {&domain.ThrottleError{RetryAfter: time.Second}, http.StatusTooManyRequests},
		"not ready":      {domain.ErrDatabaseNotReady, http.StatusServiceUnavailable},
		"no storage":     {domain.ErrStorageDisabled, http.StatusServiceUnavailable},
		"unexpected":     {errors.New("boom"), http.StatusInternalServerError},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRoomHandler_AutoDelete(t *testing.T) {
	h, _ := newTestHandler(t, nil, nil)
	app := newTestApp(h)

	adminToken, err := token.GenerateJWT("ops", token.RoleAdmin, "test")
	require.NoError(t, err)
	userToken, err := token.GenerateJWT("ann", token.RoleUser, "test")
	require.NoError(t, err)

	call := func(method, auth, body string) (*http.Response, map[string]interface{}) {
		req := httptest.NewRequest(method, "/api/admin/settings/auto-delete", strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		if auth != "" {
			req.Header.Set(fiber.HeaderAuthorization, "Bearer "+auth)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp, decodeBody(t, resp)
	}

	resp, _ := call(http.MethodGet, "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = call(http.MethodGet, userToken, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := call(http.MethodGet, adminToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["enabled"])

	resp, _ = call(http.MethodPut, adminToken, `{"enabled":"no"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = call(http.MethodPut, adminToken, `{"enabled":false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["enabled"])

	assert.False(t, h.Settings.AutoDeleteEnabled(context.Background()))
}

func audioForm(t *testing.T, fields map[string]string, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="audio"; filename="clip.webm"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func TestRoomHandler_UploadAudio(t *testing.T) {
	storage := new(MockObjectStorage)
	storage.On("UploadObject", mock.Anything, mock.MatchedBy(func(name string) bool {
		return strings.HasPrefix(name, "rooms/r1/") && strings.HasSuffix(name, ".webm")
	}), int64(4), "audio/webm").Return(nil)
	storage.On("PresignGetURL", mock.Anything, mock.Anything, AudioURLExpiry).Return("https://minio.local/voicelink/rooms/r1/clip.webm?X-Amz-Signature=abc", nil)

	h, _ := newTestHandler(t, nil, storage)
	app := newTestApp(h)
	_, _ = postJSON(t, app, "/api/rooms", joinReq("r1", "ann"))

	upload := func(fields map[string]string, contentType string) (*http.Response, map[string]interface{}) {
		body, ct := audioForm(t, fields, contentType, []byte("RIFF"))
		req := httptest.NewRequest(http.MethodPost, "/api/rooms/audio", body)
		req.Header.Set(fiber.HeaderContentType, ct)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp, decodeBody(t, resp)
	}

	resp, body := upload(map[string]string{"roomId": "r1", "userId": "ann"}, "audio/webm")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body["audioUrl"], "https://minio.local/")

	t.Run("不是成員", func(t *testing.T) {
		resp, _ := upload(map[string]string{"roomId": "r1", "userId": "bob"}, "audio/webm")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("不是音檔", func(t *testing.T) {
		resp, _ := upload(map[string]string{"roomId": "r1", "userId": "ann"}, "image/png")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	storage.AssertNumberOfCalls(t, "UploadObject", 1)

	t.Run("沒有設定 MinIO", func(t *testing.T) {
		h, _ := newTestHandler(t, nil, nil)
		app := newTestApp(h)
		body, ct := audioForm(t, map[string]string{"roomId": "r1", "userId": "ann"}, "audio/webm", []byte("RIFF"))
		req := httptest.NewRequest(http.MethodPost, "/api/rooms/audio", body)
		req.Header.Set(fiber.HeaderContentType, ct)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestOpsHandlers(t *testing.T) {
	h, _ := newTestHandler(t, nil, nil)
	app := newTestApp(h)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/debug?status=maybe", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/debug?status=true", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, logger.Log.DebugMode())
	logger.Log.SetDebugMode(false)
}
