package middlewares

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicelink_service/pkg/token"
)

func newAdminApp() *fiber.App {
	app := fiber.New()
	app.Get("/admin", JWTMiddleware(), RequireRole(token.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(TokenUserID).(string))
	})
	return app
}

func TestJWTMiddleware(t *testing.T) {
	app := newAdminApp()

	adminTok, err := token.GenerateJWT("ops-1", token.RoleAdmin, "test")
	require.NoError(t, err)
	userTok, err := token.GenerateJWT("u-1", token.RoleUser, "test")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"沒有 token", "", "", fiber.StatusUnauthorized},
		{"無效 token", "Bearer nope", "", fiber.StatusUnauthorized},
		{"非 admin", "Bearer " + userTok, "", fiber.StatusForbidden},
		{"admin header", "Bearer " + adminTok, "", fiber.StatusOK},
		{"admin query", "", adminTok, fiber.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target := "/admin"
			if tc.query != "" {
				target += "?auth=" + tc.query
			}
			req := httptest.NewRequest("GET", target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}
