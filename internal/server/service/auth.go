package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloudpix/internal/server/database"
	"cloudpix/internal/server/token"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Sentinel errors for the auth service.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidEmail       = errors.New("invalid email address")
)

// UserDirectory is the slice of the user store the auth service
// consumes.
type UserDirectory interface {
	CreateUser(ctx context.Context, user *database.User) error
	GetUserByID(ctx context.Context, userID string) (*database.User, error)
	GetUserByEmail(ctx context.Context, email string) (*database.User, error)
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
}

// AuthResult is returned after a successful registration or login.
type AuthResult struct {
	Token string         `json:"token"`
	User  *database.User `json:"user"`
}

// AuthService handles registration, login and profile lookup.
type AuthService struct {
	users     UserDirectory
	jwtSecret string
	jwtExpiry time.Duration
}

// NewAuthService creates a new auth service.
func NewAuthService(users UserDirectory, jwtSecret string, jwtExpiry time.Duration) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
	}
}

// Register creates a new account and returns a signed token for it.
func (s *AuthService) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &database.User{
		UserID:       uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	tok, err := token.Issue(s.jwtSecret, user.UserID, s.jwtExpiry)
	if err != nil {
		return nil, err
	}

	slog.Info("user registered", "user_id", user.UserID)
	return &AuthResult{Token: tok, User: user}, nil
}

// Login verifies credentials and returns a signed token. Missing users
// and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// Best-effort stamp; a failed write must not block the login.
	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.UserID, now); err != nil {
		slog.Error("failed to update last login", "user_id", user.UserID, "error", err)
	} else {
		user.LastLogin = &now
	}

	tok, err := token.Issue(s.jwtSecret, user.UserID, s.jwtExpiry)
	if err != nil {
		return nil, err
	}

	slog.Info("user logged in", "user_id", user.UserID)
	return &AuthResult{Token: tok, User: user}, nil
}

// GetProfile returns the account record for a user id.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*database.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
