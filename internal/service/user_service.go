package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtasks-api/internal/domain"
	"github.com/phrazzld/teamtasks-api/internal/platform/logger"
	"github.com/phrazzld/teamtasks-api/internal/service/auth"
	"github.com/phrazzld/teamtasks-api/internal/store"
)

// Registration carries the fields of a sign-up request.
type Registration struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// AuthResult is a user together with a freshly issued token pair.
type AuthResult struct {
	User         *domain.User
	Token        string
	RefreshToken string
}

// UserDetails is a change to a user's name and email. Empty fields are left untouched.
type UserDetails struct {
	Name  string
	Email string
}

// UserService provides registration, authentication and account operations.
type UserService interface {
	// Register creates a user and signs them in.
	// Public registration yields the user or manager role only.
	Register(ctx context.Context, reg Registration) (*AuthResult, error)

	// Login verifies an email/password pair and issues tokens.
	// Returns ErrInvalidCredentials for an unknown email or a wrong password.
	Login(ctx context.Context, email, password string) (*AuthResult, error)

	// Refresh exchanges a valid refresh token for a new token pair.
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)

	// Me returns the acting user.
	Me(ctx context.Context, actor domain.Actor) (*domain.User, error)

	// UpdateDetails changes the actor's name and email.
	UpdateDetails(ctx context.Context, actor domain.Actor, details UserDetails) (*domain.User, error)

	// UpdatePassword changes the actor's password after checking the current one,
	// then issues a new token pair.
	UpdatePassword(ctx context.Context, actor domain.Actor, current, next string) (*AuthResult, error)

	// ListUsers returns every user except the actor, ordered by name.
	ListUsers(ctx context.Context, actor domain.Actor) ([]domain.User, error)

	// GetUser returns a single user.
	GetUser(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.User, error)
}

type userServiceImpl struct {
	users  store.UserStore
	tokens auth.JWTService
	hasher auth.PasswordHasher
	logger *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(
	users store.UserStore,
	tokens auth.JWTService,
	hasher auth.PasswordHasher,
	logger *slog.Logger,
) UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &userServiceImpl{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		logger: logger.With(slog.String("component", "user_service")),
	}
}

// publicRole maps a requested role onto the roles open to self-registration.
func publicRole(requested domain.Role) domain.Role {
	if requested == domain.RoleManager {
		return domain.RoleManager
	}
	return domain.RoleUser
}

func (s *userServiceImpl) Register(ctx context.Context, reg Registration) (*AuthResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := domain.ValidatePassword(reg.Password); err != nil {
		return nil, err
	}

	user, err := domain.NewUser(reg.Name, reg.Email, publicRole(reg.Role))
	if err != nil {
		return nil, err
	}

	user.HashedPassword, err = s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, NewServiceError("register", "failed to hash password", err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			log.Debug("attempted to register existing email")
		}
		return nil, translateError("register", "failed to create user", err)
	}

	log.Info("user registered",
		slog.String("user_id", user.ID.String()),
		slog.String("role", string(user.Role)))
	return s.issue(ctx, user)
}

func (s *userServiceImpl) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, translateError("login", "failed to look up user", err)
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Debug("password mismatch on login",
			slog.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}

	return s.issue(ctx, user)
}

func (s *userServiceImpl) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokens.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, auth.ErrInvalidRefreshToken
		}
		return nil, translateError("refresh", "failed to look up user", err)
	}

	return s.issue(ctx, user)
}

// issue signs an access and a refresh token for user.
func (s *userServiceImpl) issue(ctx context.Context, user *domain.User) (*AuthResult, error) {
	token, err := s.tokens.GenerateToken(ctx, user.ID, user.Role)
	if err != nil {
		return nil, NewServiceError("issue_tokens", "failed to generate access token", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(ctx, user.ID, user.Role)
	if err != nil {
		return nil, NewServiceError("issue_tokens", "failed to generate refresh token", err)
	}
	return &AuthResult{User: user, Token: token, RefreshToken: refresh}, nil
}

func (s *userServiceImpl) Me(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrNotAuthorized
	}
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, translateError("me", "failed to get user", err)
	}
	return user, nil
}

func (s *userServiceImpl) UpdateDetails(
	ctx context.Context,
	actor domain.Actor,
	details UserDetails,
) (*domain.User, error) {
	user, err := s.Me(ctx, actor)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(details.Name); name != "" {
		user.Name = name
	}
	if details.Email != "" {
		user.Email = domain.NormalizeEmail(details.Email)
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, translateError("update_details", "failed to update user", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("user details updated",
		slog.String("user_id", user.ID.String()))
	return user, nil
}

func (s *userServiceImpl) UpdatePassword(
	ctx context.Context,
	actor domain.Actor,
	current, next string,
) (*AuthResult, error) {
	user, err := s.Me(ctx, actor)
	if err != nil {
		return nil, err
	}

	if err := s.hasher.Compare(user.HashedPassword, current); err != nil {
		return nil, ErrIncorrectPassword
	}
	if err := domain.ValidatePassword(next); err != nil {
		return nil, err
	}

	user.HashedPassword, err = s.hasher.Hash(next)
	if err != nil {
		return nil, NewServiceError("update_password", "failed to hash password", err)
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, translateError("update_password", "failed to update user", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("user password updated",
		slog.String("user_id", user.ID.String()))
	return s.issue(ctx, user)
}

func (s *userServiceImpl) ListUsers(ctx context.Context, actor domain.Actor) ([]domain.User, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrNotAuthorized
	}
	users, err := s.users.List(ctx, actor.ID)
	if err != nil {
		return nil, translateError("list_users", "failed to list users", err)
	}
	return users, nil
}

func (s *userServiceImpl) GetUser(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.User, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrNotAuthorized
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, translateError("get_user", fmt.Sprintf("failed to get user %s", id), err)
	}
	return user, nil
}
