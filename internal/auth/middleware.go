package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-governance/internal/domain"
	"github.com/spec-kit/sla-governance/internal/observability"
	"github.com/spec-kit/sla-governance/internal/repository"
	apperrors "github.com/spec-kit/sla-governance/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal is the caller behind a request. User is reloaded from the store on every
// request, so role changes apply before the token expires.
type Principal struct {
	User      domain.User
	TokenID   string
	ExpiresAt time.Time
}

// AuthMiddleware resolves bearer tokens to the acting user.
type AuthMiddleware struct {
	tokens *TokenManager
	users  repository.UserRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Handle rejects requests without a valid token for an existing user.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	raw, err := bearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}
	claims, err := m.tokens.ParseToken(raw)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	user, err := m.users.Get(c.UserContext(), claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewUnauthorized("user no longer exists")
	}
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	principal := &Principal{User: user, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		principal.ExpiresAt = claims.ExpiresAt.Time
	}
	c.Locals(principalKey, principal)
	c.Locals(observability.UserIDKey, user.ID)
	return c.Next()
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", apperrors.NewUnauthorized("missing authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", apperrors.NewUnauthorized("authorization header must be a bearer token")
	}
	return token, nil
}

// PrincipalFromContext returns the principal Handle stored, if any.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	principal, ok := c.Locals(principalKey).(*Principal)
	return principal, ok && principal != nil
}

// Actor returns the authenticated user or an unauthorized error.
func Actor(c *fiber.Ctx) (domain.User, error) {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		return domain.User{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.User, nil
}
