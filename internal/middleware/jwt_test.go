package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newProtectedApp() *fiber.App {
	app := fiber.New()
	app.Use(JWTProtected(testSecret))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"id":   c.Locals("user_id"),
			"role": c.Locals("user_role"),
		})
	})
	return app
}

func TestJWTProtectedAcceptsValidToken(t *testing.T) {
	app := newProtectedApp()

	token := signToken(t, jwt.MapClaims{
		"sub":  float64(7),
		"role": "Teacher",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejectsMissingHeader(t *testing.T) {
	app := newProtectedApp()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedRejectsWrongSecret(t *testing.T) {
	app := newProtectedApp()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": float64(7), "role": "teacher"})
	signed, err := token.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signed)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedRejectsTokenWithoutIdentity(t *testing.T) {
	app := newProtectedApp()

	token := signToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedRejectsExpiredToken(t *testing.T) {
	app := newProtectedApp()

	token := signToken(t, jwt.MapClaims{
		"sub":  float64(7),
		"role": "teacher",
		"exp":  time.Now().Add(-time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestExtractUserIDFromClaimsSupportsStringSubject(t *testing.T) {
	id := extractUserIDFromClaims(jwt.MapClaims{"sub": "42"})
	require.NotNil(t, id)
	require.Equal(t, uint(42), *id)

	require.Nil(t, extractUserIDFromClaims(jwt.MapClaims{"sub": "not-a-number"}))
}

func TestNormalizeRoleHandlesRoleLists(t *testing.T) {
	require.Equal(t, "learner", normalizeRole([]interface{}{"", "Learner"}))
	require.Equal(t, "", normalizeRole(42))
}
