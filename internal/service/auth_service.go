package service

import (
	"context"
	"errors"
	"strings"

	"github.com/fjod/farmfresh/internal/auth"
	"github.com/fjod/farmfresh/internal/domain"
	"github.com/fjod/farmfresh/internal/repository"
	"github.com/fjod/farmfresh/internal/session"
	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type AuthService struct {
	users      repository.UserRepository
	sessions   session.Store
	tokens     *auth.TokenManager
	bcryptCost int
}

func NewAuthService(users repository.UserRepository, sessions session.Store, tokens *auth.TokenManager) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		bcryptCost: bcrypt.DefaultCost,
	}
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	return s.createUser(ctx, req, domain.RoleUser)
}

func (s *AuthService) createUser(ctx context.Context, req RegisterRequest, role domain.Role) (*domain.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, internalError(ctx, "Failed to register user", err)
	}

	user := &domain.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
	}
	err = s.users.CreateUser(ctx, user)
	if errors.Is(err, repository.ErrEmailTaken) {
		return nil, domain.Errorf(domain.ErrConflict, "User already exists")
	}
	if err != nil {
		return nil, internalError(ctx, "Failed to register user", err)
	}
	return user, nil
}

// Login checks credentials and opens a new session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, domain.Errorf(domain.ErrUnauthorized, "Invalid email or password")
	}
	if err != nil {
		return nil, internalError(ctx, "Failed to log in", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.Errorf(domain.ErrUnauthorized, "Invalid email or password")
	}

	sess, err := s.sessions.Create(ctx, user)
	if err != nil {
		return nil, internalError(ctx, "Failed to log in", err)
	}

	token, err := s.tokens.Issue(user.ID.Hex(), user.Role, sess.ID, sess.ExpiresAt)
	if err != nil {
		return nil, internalError(ctx, "Failed to log in", err)
	}
	return &LoginResult{Token: token, User: user}, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return internalError(ctx, "Failed to log out", err)
	}
	return nil
}

// Authenticate resolves a bearer token to its live session.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*session.Session, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, domain.Errorf(domain.ErrUnauthorized, "Invalid or expired token")
	}

	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return nil, domain.Errorf(domain.ErrUnauthorized, "Session expired")
	}
	if err != nil {
		return nil, internalError(ctx, "Failed to authenticate", err)
	}
	if sess.UserID.Hex() != claims.Subject {
		return nil, domain.Errorf(domain.ErrUnauthorized, "Invalid or expired token")
	}

	// the stored role is a login-time copy; promotions apply to live sessions
	user, err := s.users.GetUser(ctx, sess.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, domain.Errorf(domain.ErrUnauthorized, "Session expired")
	}
	if err != nil {
		return nil, internalError(ctx, "Failed to authenticate", err)
	}
	sess.Role = user.Role
	sess.Name = user.Name
	sess.Email = user.Email
	return sess, nil
}

// EnsureAdmin creates the user if needed and grants the admin role.
func (s *AuthService) EnsureAdmin(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	existing, err := s.users.GetUserByEmail(ctx, normalizeEmail(req.Email))
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return s.createUser(ctx, req, domain.RoleAdmin)
	case err != nil:
		return nil, internalError(ctx, "Failed to load user", err)
	}

	if err := s.users.SetRole(ctx, existing.ID, domain.RoleAdmin); err != nil {
		return nil, internalError(ctx, "Failed to promote user", err)
	}
	existing.Role = domain.RoleAdmin
	return existing, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
