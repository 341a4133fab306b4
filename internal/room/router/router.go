package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	"voicelink_service/internal/room/app"
	"voicelink_service/pkg/middlewares"
	"voicelink_service/pkg/token"
)

// RegisterRoutes 註冊 room service 的路由
// @title VoiceLink Room Service API
// @version 1.0
// @description Room coordination for VoiceLink: membership, presence, messages and peer signaling over polling
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func RegisterRoutes(r *fiber.App, roomHandler *app.RoomHandler) {
	r.Get("/swagger/*", swagger.HandlerDefault)
	r.Get("/", app.ConnectCheck)
	r.Post("/debug", app.DebugLogFlag)

	api := r.Group("/api")
	api.Post("/rooms", roomHandler.HandleRoomAction)
	api.Post("/rooms/audio", roomHandler.UploadAudio)

	admin := api.Group("/admin", middlewares.JWTMiddleware(), middlewares.RequireRole(token.RoleAdmin))
	admin.Get("/settings/auto-delete", roomHandler.GetAutoDelete)
	admin.Put("/settings/auto-delete", roomHandler.PutAutoDelete)
}
