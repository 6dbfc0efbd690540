package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New()
	handlers = append(handlers, func(c *fiber.Ctx) error {
		return c.SendString(Caller(c))
	})
	app.Post("/bounties", handlers...)
	return app
}

func TestGatewayAuthMiddleware(t *testing.T) {
	app := newTestApp(GatewayAuthMiddleware("secret"))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", fiber.StatusUnauthorized},
		{"wrong", "Bearer nope", fiber.StatusUnauthorized},
		{"bearer", "Bearer secret", fiber.StatusOK},
		{"raw", "secret", fiber.StatusOK},
		{"lowercase scheme", "bearer secret", fiber.StatusOK},
		{"empty bearer", "Bearer ", fiber.StatusUnauthorized},
		{"prefix of token", "Bearer secre", fiber.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/bounties", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("BEARER  abc "))
	assert.Equal(t, "abc", bearerToken("abc"))
	assert.Equal(t, "", bearerToken("   "))
}

func TestCallerContextMiddleware(t *testing.T) {
	app := newTestApp(CallerContextMiddleware())

	resp, err := app.Test(httptest.NewRequest("POST", "/bounties", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest("POST", "/bounties", nil)
	req.Header.Set("X-User-ID", " 0xalice ")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestCallerLimiterPerCaller(t *testing.T) {
	l := NewCallerLimiter(1, 2, time.Minute)
	now := time.Now()

	assert.True(t, l.Allow("0xalice", now))
	assert.True(t, l.Allow("0xalice", now))
	assert.False(t, l.Allow("0xalice", now))
	assert.True(t, l.Allow("0xbob", now))
	assert.True(t, l.Allow("0xalice", now.Add(time.Second)))

	var disabled *CallerLimiter
	assert.Nil(t, NewCallerLimiter(0, 1, 0))
	assert.True(t, disabled.Allow("0xalice", now))
}

func TestRateLimitMiddleware(t *testing.T) {
	app := newTestApp(CallerContextMiddleware(), RateLimitMiddleware(NewCallerLimiter(0.001, 1, time.Minute)))

	send := func(caller string) int {
		req := httptest.NewRequest("POST", "/bounties", nil)
		req.Header.Set("X-User-ID", caller)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, send("0xalice"))
	assert.Equal(t, fiber.StatusTooManyRequests, send("0xalice"))
	assert.Equal(t, fiber.StatusOK, send("0xbob"))
}
