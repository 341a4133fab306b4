package main

import (
	"github.com/gofiber/fiber/v2"

	"voicelink_service/internal/room/router"
)

// 此程式只用於 init swagger
// swag init -g main.go --parseInternal --output ./cmd/room_service/docs
func main() {
	app := fiber.New()

	// 注册路由
	router.RegisterRoutes(app, nil)
}
