package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-governance/internal/auth"
	"github.com/spec-kit/sla-governance/internal/config"
	"github.com/spec-kit/sla-governance/internal/domain"
	"github.com/spec-kit/sla-governance/internal/repository"
	apperrors "github.com/spec-kit/sla-governance/pkg/util/errorutil"
)

const minPasswordLength = 8

// AuthService coordinates signup and login.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
	now        func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Logger   *zap.Logger
	Now      func() time.Time
}

// RegisterInput is the signup payload.
type RegisterInput struct {
	Name       string
	Email      string
	Password   string
	Department domain.Department
}

// Session is a logged-in user with a bearer token.
type Session struct {
	User  domain.User
	Token string
	Meta  domain.Token
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL()),
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
		now:        now,
	}
}

// TokenManager exposes the token issuer for the HTTP middleware.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Register creates an employee account. Signup never grants an elevated role.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (Session, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Session{}, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return Session{}, err
	}
	if len(input.Password) < minPasswordLength {
		return Session{}, apperrors.NewValidationError("password too short", map[string]any{"min_length": minPasswordLength})
	}
	if !input.Department.Valid() {
		return Session{}, apperrors.NewValidationError("unknown department", map[string]any{"department": string(input.Department)})
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return Session{}, apperrors.NewConflict("Email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return Session{}, apperrors.NewInternalError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return Session{}, apperrors.NewInternalError(err)
	}
	user := domain.User{
		ID:           "u-" + uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleEmployee,
		Department:   input.Department,
		Avatar:       Initials(name),
		CreatedAt:    s.now(),
	}
	if err := s.users.Save(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return Session{}, apperrors.NewConflict("Email already registered", map[string]any{"email": email})
		}
		s.logger.Error("save user failed", zap.String("email", email), zap.Error(err))
		return Session{}, apperrors.NewInternalError(err)
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("department", string(user.Department)))
	return s.issue(user)
}

// Login authenticates by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return Session{}, apperrors.NewInternalError(err)
	}
	if user.PasswordHash == "" || auth.ComparePassword(user.PasswordHash, password) != nil {
		return Session{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if auth.NeedsRehash(user.PasswordHash, s.bcryptCost) {
		s.rehash(ctx, &user, password)
	}
	return s.issue(user)
}

// rehash upgrades a hash made with an old cost. Failure only costs the upgrade.
func (s *AuthService) rehash(ctx context.Context, user *domain.User, password string) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		s.logger.Warn("password rehash failed", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	updated := *user
	updated.PasswordHash = hash
	if err := s.users.Save(ctx, updated); err != nil {
		s.logger.Warn("password rehash not saved", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	*user = updated
	s.logger.Info("password rehashed", zap.String("user_id", user.ID))
}

func (s *AuthService) issue(user domain.User) (Session, error) {
	token, meta, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return Session{}, apperrors.NewInternalError(err)
	}
	return Session{User: user, Token: token, Meta: meta}, nil
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", apperrors.NewValidationError("malformed email", map[string]any{"email": raw})
	}
	return strings.ToLower(addr.Address), nil
}

// Initials builds the two letter avatar used when a user has no picture.
func Initials(name string) string {
	initials := make([]rune, 0, 2)
	for _, word := range strings.Fields(name) {
		first := []rune(word)[0]
		initials = append(initials, unicode.ToUpper(first))
		if len(initials) == 2 {
			break
		}
	}
	return string(initials)
}
