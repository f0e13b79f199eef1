package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dheeraj-Reddy-07/StackUp/internal/domain"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/repository"
	jwtpkg "github.com/Dheeraj-Reddy-07/StackUp/pkg/jwt"
)

// ErrUnauthorized reports a missing, invalid or expired credential, or one
// whose user no longer exists.
var ErrUnauthorized = errors.New("not authorized")

// Service authenticates bearer tokens issued by the identity service.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
	secret string
	ttl    time.Duration
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger, secret string, ttl time.Duration) Service {
	return Service{users: users, logger: logger, secret: secret, ttl: ttl}
}

// Authorize validates a bearer token and returns the associated user and claims.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, *jwtpkg.Claims, error) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if trimmed == "" {
		return nil, nil, fmt.Errorf("%w: token required", ErrUnauthorized)
	}
	claims, err := jwtpkg.Parse(trimmed, s.secret)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("token for unknown user", "user_id", claims.UserID)
			return nil, nil, fmt.Errorf("%w: user not found", ErrUnauthorized)
		}
		return nil, nil, fmt.Errorf("load user: %w", err)
	}
	return user, claims, nil
}

// IssueToken signs an access token for user.
func (s Service) IssueToken(user domain.User) (string, error) {
	return jwtpkg.GenerateToken(user.ID, user.Name, s.secret, s.ttl)
}
