package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-governance/internal/auth"
	"github.com/spec-kit/sla-governance/internal/domain"
	"github.com/spec-kit/sla-governance/internal/repository"
	apperrors "github.com/spec-kit/sla-governance/pkg/util/errorutil"
)

// UserService reads the directory and provisions users with an assigned role.
type UserService struct {
	users      repository.UserRepository
	bcryptCost int
	logger     *zap.Logger
	now        func() time.Time
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	BcryptCost int
	Logger     *zap.Logger
	Now        func() time.Time
}

// ProvisionInput describes a user created by an operator rather than signup.
type ProvisionInput struct {
	ID         string
	Name       string
	Email      string
	Password   string
	Role       domain.Role
	Department domain.Department
	Avatar     string
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &UserService{users: deps.UserRepo, bcryptCost: deps.BcryptCost, logger: logger, now: now}
}

// List returns every user.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		s.logger.Error("list users failed", zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}
	return users, nil
}

// Get loads one user.
func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	user, err := s.users.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, apperrors.NewNotFound("user", map[string]any{"id": id})
	}
	if err != nil {
		return domain.User{}, apperrors.NewInternalError(err)
	}
	return user, nil
}

// Provision creates a user with an explicit role, or updates the profile of an existing
// id. The role of an existing user never changes. Seeding and operator imports use it;
// the public signup path does not.
func (s *UserService) Provision(ctx context.Context, input ProvisionInput) (domain.User, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return domain.User{}, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return domain.User{}, err
	}
	if !input.Role.Valid() {
		return domain.User{}, apperrors.NewValidationError("unknown role", map[string]any{"role": string(input.Role)})
	}
	if !input.Department.Valid() {
		return domain.User{}, apperrors.NewValidationError("unknown department", map[string]any{"department": string(input.Department)})
	}

	user := domain.User{
		ID:         strings.TrimSpace(input.ID),
		Name:       name,
		Email:      email,
		Role:       input.Role,
		Department: input.Department,
		Avatar:     strings.TrimSpace(input.Avatar),
		CreatedAt:  s.now(),
	}
	if user.ID == "" {
		user.ID = "u-" + uuid.NewString()
	}
	if user.Avatar == "" {
		user.Avatar = Initials(name)
	}
	if input.Password != "" {
		hash, err := auth.HashPassword(input.Password, s.bcryptCost)
		if err != nil {
			return domain.User{}, apperrors.NewInternalError(err)
		}
		user.PasswordHash = hash
	}

	if existing, err := s.users.Get(ctx, user.ID); err == nil {
		if existing.Role != user.Role {
			return domain.User{}, apperrors.NewConflict("role of an existing user cannot be changed", map[string]any{
				"id":   user.ID,
				"role": string(existing.Role),
			})
		}
		user.CreatedAt = existing.CreatedAt
		if user.PasswordHash == "" {
			user.PasswordHash = existing.PasswordHash
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, apperrors.NewInternalError(err)
	}

	if err := s.users.Save(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return domain.User{}, apperrors.NewConflict("Email already registered", map[string]any{"email": email})
		}
		return domain.User{}, apperrors.NewInternalError(err)
	}
	s.logger.Info("user provisioned", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}
