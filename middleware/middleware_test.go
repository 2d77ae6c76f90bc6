package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cakeworks/cake-sales/logger"
	"github.com/cakeworks/cake-sales/models"
)

var secret = []byte("test-secret")

// Helper to create an app with a pre-local middleware that sets userRole
func makeAppWithRole(role string, check fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userRole", role)
		return c.Next()
	})
	app.Use(check)
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.Status(200).SendString("ok")
	})
	return app
}

func status(t *testing.T, app *fiber.App, header string) int {
	t.Helper()
	req := httptest.NewRequest("GET", "/test", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestRoleGuards(t *testing.T) {
	cases := []struct {
		name  string
		role  string
		check fiber.Handler
		want  int
	}{
		{"manager passes manager guard", "manager", ManagerRequired, 200},
		{"staff denied by manager guard", "staff", ManagerRequired, 403},
		{"staff may enter sales", "staff", SalesEntryRequired, 200},
		{"manager may enter sales", "manager", SalesEntryRequired, 200},
		{"unknown role denied", "auditor", SalesEntryRequired, 403},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, status(t, makeAppWithRole(tc.role, tc.check), ""))
		})
	}
}

func TestCheckRoleWithoutRole(t *testing.T) {
	app := fiber.New()
	app.Use(CheckRole("manager"))
	app.Get("/test", func(c *fiber.Ctx) error { return c.SendString("ok") })
	assert.Equal(t, 403, status(t, app, ""))
}

func signed(t *testing.T, key []byte, method jwt.SigningMethod, expires time.Time) string {
	t.Helper()
	claims := models.JwtClaims{
		Username: "wanjiku",
		Role:     "manager",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func jwtApp() *fiber.App {
	app := fiber.New()
	app.Use(JWTMiddleware(secret))
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("username").(string) + ":" + c.Locals("userRole").(string))
	})
	return app
}

func TestJWTMiddleware(t *testing.T) {
	app := jwtApp()
	valid := signed(t, secret, jwt.SigningMethodHS256, time.Now().Add(time.Hour))

	assert.Equal(t, 200, status(t, app, "Bearer "+valid))
	assert.Equal(t, 401, status(t, app, ""))
	assert.Equal(t, 401, status(t, app, valid), "missing Bearer prefix")
	assert.Equal(t, 401, status(t, app, "Bearer "+signed(t, []byte("other"), jwt.SigningMethodHS256, time.Now().Add(time.Hour))))
	assert.Equal(t, 401, status(t, app, "Bearer "+signed(t, secret, jwt.SigningMethodHS256, time.Now().Add(-time.Minute))))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}

	app := fiber.New()
	app.Use(RequestLogger(log))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/missing", func(c *fiber.Ctx) error { return c.Status(404).SendString("nope") })

	_, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
	require.NoError(t, err)
	_, err = app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "request served", entries[0].Message)
	assert.Equal(t, int64(200), entries[0].ContextMap()["status"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "/missing", entries[1].ContextMap()["path"])
}
