package app

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"voicelink_service/internal/room/domain"
	"voicelink_service/pkg/logger"
)

// RoomHandler definition room http handler
type RoomHandler struct {
	Rooms    *RoomUseCase
	Settings *SettingsUseCase
	Audio    *AudioUseCase
}

// NewRoomHandler create RoomHandler
func NewRoomHandler(rooms *RoomUseCase, settings *SettingsUseCase, audio *AudioUseCase) *RoomHandler {
	return &RoomHandler{Rooms: rooms, Settings: settings, Audio: audio}
}

// HandleRoomAction room coordination entry point
// @Summary Room action
// @Description Run one room action selected by `action`: inspect, join, leave, kick, update_language, update_user, message, signal, poll, update_settings
// @Tags Rooms
// @Accept json
// @Produce json
// @Param request body domain.RoomRequest true "Room action"
// @Success 200 {object} domain.RoomResponse
// @Failure 400 {object} domain.RoomResponse
// @Failure 401 {object} domain.RoomResponse
// @Failure 403 {object} domain.RoomResponse
// @Failure 404 {object} domain.RoomResponse
// @Failure 410 {object} domain.RoomResponse
// @Failure 429 {object} domain.RoomResponse
// @Failure 503 {object} domain.RoomResponse
// @Router /api/rooms [post]
func (h *RoomHandler) HandleRoomAction(c *fiber.Ctx) error {
	var req domain.RoomRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return writeError(c, domain.NewValidationError("invalid JSON body"))
	}

	logger.Log.Debug("room action", zap.String("action", string(req.Action)), zap.String("room_id", req.RoomID), zap.String("user_id", req.UserID))

	resp, err := h.Rooms.Handle(c.UserContext(), &req, ClientIP(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(resp)
}

// UploadAudio store a voice clip
// @Summary Upload voice clip
// @Description Store an audio/* clip (max 5 MiB) for a room member and return a presigned url usable as message audioUrl
// @Tags Rooms
// @Accept multipart/form-data
// @Produce json
// @Param roomId formData string true "Room id"
// @Param userId formData string true "User id"
// @Param audio formData file true "Audio clip"
// @Success 200 {object} AudioObject
// @Failure 400 {object} domain.RoomResponse
// @Failure 404 {object} domain.RoomResponse
// @Failure 503 {object} domain.RoomResponse
// @Router /api/rooms/audio [post]
func (h *RoomHandler) UploadAudio(c *fiber.Ctx) error {
	if !h.Audio.Enabled() {
		return writeError(c, domain.ErrStorageDisabled)
	}

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		return writeError(c, domain.NewValidationError("audio file is required"))
	}
	if fileHeader.Size > MaxAudioSize {
		return writeError(c, domain.NewValidationError("audio file is too large"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return writeError(c, err)
	}
	defer file.Close()

	obj, err := h.Audio.Upload(c.UserContext(), AudioUpload{
		RoomID:      c.FormValue("roomId"),
		UserID:      c.FormValue("userId"),
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get(fiber.HeaderContentType),
		Size:        fileHeader.Size,
		Body:        file,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"objectName": obj.ObjectName,
		"audioUrl":   obj.URL,
		"expiresAt":  obj.ExpiresAt,
	})
}

// statusFor http status of an action error
func statusFor(err error) int {
	var (
		rateErr     *domain.RateLimitError
		throttleErr *domain.ThrottleError
	)
	switch {
	case errors.As(err, &rateErr), errors.As(err, &throttleErr):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnknownAction),
		errors.Is(err, domain.ErrCannotKickSelf):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPasswordRequired), errors.Is(err, domain.ErrInvalidPassword):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotAdmin):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRoomExpired):
		return http.StatusGone
	case errors.Is(err, domain.ErrDatabaseNotReady), errors.Is(err, domain.ErrStorageDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError 統一錯誤輸出 {success:false, error}
func writeError(c *fiber.Ctx, err error) error {
	status := statusFor(err)

	var (
		rateErr     *domain.RateLimitError
		throttleErr *domain.ThrottleError
	)
	switch {
	case errors.As(err, &throttleErr):
		return c.Status(status).JSON(domain.RoomResponse{
			Success:      false,
			Error:        throttleErr.Error(),
			Throttled:    true,
			RetryAfterMs: throttleErr.RetryAfter.Milliseconds(),
		})
	case errors.As(err, &rateErr):
		c.Set("X-RateLimit-Limit", strconv.Itoa(rateErr.Limit))
		c.Set("X-RateLimit-Remaining", "0")
		c.Set("X-RateLimit-Action", string(rateErr.Action))
		retry := int(math.Ceil(rateErr.RetryAfter.Seconds()))
		if retry < 1 {
			retry = 1
		}
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retry))
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		// 不把內部錯誤回給 client
		requestID := uuid.NewString()
		logger.Log.Error("room request failed",
			zap.String("request_id", requestID),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		msg = "Internal server error"
		c.Set("X-Request-Id", requestID)
	}
	return c.Status(status).JSON(domain.RoomResponse{Success: false, Error: msg})
}

// FiberConfig X-Forwarded-For is honoured only from trustedProxies, otherwise the peer address is used
func FiberConfig(trustedProxies []string) fiber.Config {
	return fiber.Config{
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          trustedProxies,
		EnableIPValidation:      true,
	}
}

// ClientIP 限流用的 client ip，proxy 信任規則由 FiberConfig 決定
func ClientIP(c *fiber.Ctx) string {
	return c.IP()
}
