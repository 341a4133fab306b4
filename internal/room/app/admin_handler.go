package app

import (
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"voicelink_service/internal/room/domain"
	"voicelink_service/pkg/logger"
	"voicelink_service/pkg/middlewares"
)

// GetAutoDelete read the global auto delete flag
// @Summary Get auto-delete flag
// @Description Whether rooms idle for more than 24h are deleted
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.AutoDeleteFlag
// @Failure 401 {object} domain.RoomResponse
// @Failure 403 {object} domain.RoomResponse
// @Router /api/admin/settings/auto-delete [get]
func (h *RoomHandler) GetAutoDelete(c *fiber.Ctx) error {
	return c.JSON(domain.AutoDeleteFlag{Enabled: h.Settings.AutoDeleteEnabled(c.UserContext())})
}

// PutAutoDelete update the global auto delete flag
// @Summary Set auto-delete flag
// @Description Enable or disable deletion of rooms idle for more than 24h
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body domain.AutoDeleteFlag true "Flag"
// @Success 200 {object} domain.AutoDeleteFlag
// @Failure 400 {object} domain.RoomResponse
// @Failure 401 {object} domain.RoomResponse
// @Failure 403 {object} domain.RoomResponse
// @Router /api/admin/settings/auto-delete [put]
func (h *RoomHandler) PutAutoDelete(c *fiber.Ctx) error {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil || body.Enabled == nil {
		return writeError(c, domain.NewValidationError("enabled must be a boolean"))
	}

	if err := h.Settings.SetAutoDelete(c.UserContext(), *body.Enabled); err != nil {
		return writeError(c, err)
	}

	operator, _ := c.Locals(middlewares.TokenUserID).(string)
	logger.Log.Info("auto delete flag updated", zap.Bool("enabled", *body.Enabled), zap.String("operator", operator))
	return c.Status(http.StatusOK).JSON(domain.AutoDeleteFlag{Enabled: *body.Enabled})
}
