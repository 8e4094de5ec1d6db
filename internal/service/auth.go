package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Shahil0511/OakMirror/internal/auth"
	"github.com/Shahil0511/OakMirror/internal/domain"
	"github.com/Shahil0511/OakMirror/internal/event"
	"github.com/Shahil0511/OakMirror/internal/repository"
	apperrors "github.com/Shahil0511/OakMirror/pkg/errors"
	"github.com/Shahil0511/OakMirror/pkg/middleware"
	"github.com/Shahil0511/OakMirror/pkg/pagination"
)

var authAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "oakmirror",
		Name:      "auth_attempts_total",
		Help:      "Authentication operations by outcome.",
	},
	[]string{"operation", "outcome"},
)

// AuthService implements the authentication gate and profile lookups.
type AuthService struct {
	users    repository.UserRepository
	tokens   *auth.TokenService
	hasher   *auth.PasswordHasher
	revoked  repository.RevocationStore
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthService creates a new auth service. revoked may be a no-op store.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	hasher *auth.PasswordHasher,
	revoked repository.RevocationStore,
	producer *event.Producer,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		revoked:  revoked,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	// Role is optional and defaults to domain.DefaultRole.
	Role string
}

// AuthResult is what a successful login or registration returns.
type AuthResult struct {
	User   *domain.User    `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

// Register creates an account and returns a fresh token pair.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := domain.NormalizeEmail(input.Email)
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}

	role := strings.ToLower(strings.TrimSpace(input.Role))
	if role == "" {
		role = domain.DefaultRole
	}
	if !domain.IsValidRole(role) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("role must be one of %s", strings.Join(domain.ValidRoles(), ", ")))
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		authAttempts.WithLabelValues("register", "duplicate").Inc()
		return nil, apperrors.DuplicateEmail()
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, fmt.Errorf("check existing email: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The unique index still catches a concurrent registration that passed
	// the pre-check.
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			authAttempts.WithLabelValues("register", "duplicate").Inc()
			return nil, apperrors.DuplicateEmail()
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.tokens.IssueTokenPair(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	authAttempts.WithLabelValues("register", "success").Inc()
	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
		slog.String("role", user.Role),
	)

	return &AuthResult{User: user, Tokens: &pair}, nil
}

// Login checks credentials and returns a fresh token pair. Unknown emails and
// wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = domain.NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("find user by email: %w", err)
		}
		s.hasher.CompareDummy(password)
		authAttempts.WithLabelValues("login", "invalid_credentials").Inc()
		s.logger.InfoContext(ctx, "login failed", slog.String("email", email))
		return nil, apperrors.InvalidCredentials()
	}

	if !user.ComparePassword(password) {
		authAttempts.WithLabelValues("login", "invalid_credentials").Inc()
		s.logger.InfoContext(ctx, "login failed", slog.String("email", email))
		return nil, apperrors.InvalidCredentials()
	}

	pair, err := s.tokens.IssueTokenPair(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	s.release(ctx, pair.Refresh)

	authAttempts.WithLabelValues("login", "success").Inc()
	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return &AuthResult{User: user, Tokens: &pair}, nil
}

// Refresh exchanges a valid refresh token for a brand-new pair. When a
// revocation store is configured the presented token is claimed before the
// new pair is issued, so concurrent replays of one token yield one success.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (_ *auth.TokenPair, err error) {
	claims, err := s.verify(ctx, refreshToken)
	if err != nil {
		authAttempts.WithLabelValues("refresh", "invalid_token").Inc()
		return nil, err
	}

	claimed, err := s.revoked.Consume(ctx, refreshToken, s.remaining(claims))
	if err != nil {
		return nil, fmt.Errorf("claim refresh token: %w", err)
	}
	if !claimed {
		authAttempts.WithLabelValues("refresh", "revoked").Inc()
		s.logger.WarnContext(ctx, "revoked refresh token presented", slog.String("user_id", claims.UserID()))
		return nil, apperrors.InvalidToken()
	}
	defer func() {
		// Server-side failures leave the token usable.
		if err != nil && apperrors.HTTPStatus(err) >= 500 {
			s.release(ctx, refreshToken)
		}
	}()

	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			authAttempts.WithLabelValues("refresh", "user_not_found").Inc()
			return nil, apperrors.UserNotFound()
		}
		return nil, fmt.Errorf("get user for token refresh: %w", err)
	}

	issued, err := s.tokens.IssueTokenPair(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	// Tokens are deterministic per second, so a refresh within the issuing
	// second yields the claimed token back.
	if issued.Refresh == refreshToken {
		s.release(ctx, issued.Refresh)
	}

	authAttempts.WithLabelValues("refresh", "success").Inc()
	s.logger.InfoContext(ctx, "tokens refreshed", slog.String("user_id", user.ID))

	return &issued, nil
}

// Logout revokes a refresh token. Tokens that no longer verify are already
// unusable, so they are accepted silently.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.Verify(refreshToken)
	if err != nil {
		s.logger.DebugContext(ctx, "logout with unusable refresh token", slog.String("reason", err.Error()))
		return nil
	}
	if err := s.revoked.Revoke(ctx, refreshToken, s.remaining(claims)); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	s.logger.InfoContext(ctx, "user logged out", slog.String("user_id", claims.UserID()))
	return nil
}

// GetProfile returns the stored profile of userID.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.UserNotFound()
		}
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	return user, nil
}

// ListUsers returns one page of users.
func (s *AuthService) ListUsers(ctx context.Context, params pagination.Params) (pagination.Result[domain.User], error) {
	users, total, err := s.users.List(ctx, params)
	if err != nil {
		return pagination.Result[domain.User]{}, fmt.Errorf("list users: %w", err)
	}
	return pagination.NewResult(users, total, params), nil
}

// ValidateAccessToken adapts the token service to middleware.TokenValidator.
func (s *AuthService) ValidateAccessToken(_ context.Context, token string) (*middleware.Claims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	return &middleware.Claims{UserID: claims.UserID(), Role: claims.Role}, nil
}

// ResolveIdentity adapts the credential store to middleware.IdentityResolver.
func (s *AuthService) ResolveIdentity(ctx context.Context, userID string) (*middleware.Identity, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &middleware.Identity{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
	}, nil
}

func (s *AuthService) verify(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.tokens.Verify(token)
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		s.logger.DebugContext(ctx, "refresh token expired")
		return nil, apperrors.TokenExpired()
	case err != nil:
		s.logger.DebugContext(ctx, "refresh token rejected", slog.String("reason", err.Error()))
		return nil, apperrors.InvalidToken()
	}
	return claims, nil
}

// release makes a freshly granted refresh token usable even if an identical
// token issued within the same second was revoked or claimed earlier.
func (s *AuthService) release(ctx context.Context, token string) {
	if err := s.revoked.Release(ctx, token); err != nil {
		s.logger.ErrorContext(ctx, "failed to release refresh token", slog.String("error", err.Error()))
	}
}

func (s *AuthService) remaining(claims *auth.Claims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	return claims.ExpiresAt.Sub(s.now())
}
