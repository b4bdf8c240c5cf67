package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/sla-governance/internal/domain"
	"github.com/spec-kit/sla-governance/internal/lifecycle"
	"github.com/spec-kit/sla-governance/internal/repository"
	apperrors "github.com/spec-kit/sla-governance/pkg/util/errorutil"
)

var tech = domain.User{ID: "u-tech", Name: "Tia", Email: "tia@corp.test", Role: domain.RoleTechnician, Department: domain.DepartmentIT}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 30*time.Minute)

	token, meta, err := tm.GenerateToken(tech)
	require.NoError(t, err)
	assert.Equal(t, tech.ID, meta.SubjectID)
	assert.Equal(t, 30*time.Minute, meta.Lifetime())
	assert.NotEmpty(t, meta.ID)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, tech.ID, claims.UserID)
	assert.Equal(t, domain.RoleTechnician, claims.Role)
	assert.Equal(t, meta.ID, claims.ID)
}

func TestTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	issuer := NewTokenManager("secret", time.Minute)
	token, _, err := issuer.GenerateToken(tech)
	require.NoError(t, err)

	_, err = NewTokenManager("other", time.Minute).ParseToken(token)
	assert.Error(t, err)

	later := NewTokenManager("secret", time.Minute)
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = later.ParseToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "s3cret!"))
	assert.ErrorIs(t, ComparePassword(hash, "wrong"), ErrPasswordMismatch)
	assert.Error(t, ComparePassword("not-a-hash", "s3cret!"))

	assert.False(t, NeedsRehash(hash, 4))
	assert.True(t, NeedsRehash(hash, 5))
	assert.True(t, NeedsRehash("not-a-hash", 4))
}

func TestHashPasswordClampsCost(t *testing.T) {
	hash, err := HashPassword("s3cret!", 0)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func newApp(t *testing.T) (*fiber.App, *TokenManager) {
	t.Helper()
	users := repository.NewMemoryUserRepository()
	require.NoError(t, users.Save(context.Background(), tech))
	tm := NewTokenManager("secret", time.Hour)
	mw := NewAuthMiddleware(tm, users)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
		},
	})
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		actor, err := Actor(c)
		if err != nil {
			return err
		}
		return c.SendString(actor.ID)
	})
	app.Get("/admin", mw.Handle, RequireRole(domain.RoleAdmin), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })
	app.Get("/claim", mw.Handle, RequirePermission(lifecycle.ActionClaim), func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })
	return app, tm
}

func TestMiddleware(t *testing.T) {
	app, tm := newApp(t)
	token, _, err := tm.GenerateToken(tech)
	require.NoError(t, err)
	ghost, _, err := tm.GenerateToken(domain.User{ID: "u-ghost", Role: domain.RoleAdmin})
	require.NoError(t, err)

	cases := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"missing header", "/me", "", http.StatusUnauthorized},
		{"wrong scheme", "/me", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "/me", "Bearer nope", http.StatusUnauthorized},
		{"unknown user", "/me", "Bearer " + ghost, http.StatusUnauthorized},
		{"ok", "/me", "Bearer " + token, http.StatusOK},
		{"role denied", "/admin", "Bearer " + token, http.StatusForbidden},
		{"permission granted", "/claim", "Bearer " + token, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
