package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/copyguard/internal/application"
	"github.com/bryanwahyu/copyguard/internal/domain/users"
)

type TokenSigner interface {
	Sign(userID string) (string, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// Service implements registration, login and user administration.
type Service struct {
	Repo      users.Repository
	Tokens    TokenSigner
	Passwords PasswordHasher
	Clock     application.Clock

	// serializes the count-then-insert that picks the first admin
	registerMu sync.Mutex
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// email validates the credentials and returns the normalized address.
func (c Credentials) email() (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(c.Email))
	if err != nil {
		return "", fmt.Errorf("%w: invalid email address", users.ErrInvalidInput)
	}
	if c.Password == "" {
		return "", fmt.Errorf("%w: password must not be empty", users.ErrInvalidInput)
	}
	return strings.ToLower(addr.Address), nil
}

// ProfileUpdate carries optional changes; nil fields are left alone.
type ProfileUpdate struct {
	FullName *string `json:"full_name"`
	Password *string `json:"password"`
}

// Token is what register and login hand back.
type Token struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        *users.User `json:"user"`
}

// Register creates an account and signs the caller in. The very first
// account becomes admin.
func (s *Service) Register(ctx context.Context, c Credentials) (*Token, error) {
	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	n, err := s.Repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	role := users.RoleMember
	if n == 0 {
		role = users.RoleAdmin
	}
	u, err := s.create(ctx, c, role)
	if err != nil {
		return nil, err
	}
	return s.issue(u)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Token, error) {
	u, err := s.Repo.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, users.ErrNotFound) {
		return nil, users.ErrInvalidLogin
	}
	if err != nil {
		return nil, err
	}
	if !s.Passwords.Verify(u.PasswordHash, password) {
		return nil, users.ErrInvalidLogin
	}
	if !u.Active {
		return nil, users.ErrInactive
	}
	return s.issue(u)
}

// Authenticate resolves the user behind a verified token subject.
func (s *Service) Authenticate(ctx context.Context, userID string) (*users.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.Active {
		return nil, users.ErrInactive
	}
	return u, nil
}

func (s *Service) UpdateProfile(ctx context.Context, u *users.User, p ProfileUpdate) (*users.User, error) {
	if err := s.apply(u, p); err != nil {
		return nil, err
	}
	if err := s.Repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ==== admin ====

func (s *Service) ListUsers(ctx context.Context, admin *users.User) ([]*users.User, error) {
	if !admin.IsAdmin() {
		return nil, users.ErrForbidden
	}
	return s.Repo.List(ctx)
}

func (s *Service) CreateUser(ctx context.Context, admin *users.User, c Credentials) (*users.User, error) {
	if !admin.IsAdmin() {
		return nil, users.ErrForbidden
	}
	return s.create(ctx, c, users.RoleMember)
}

func (s *Service) UpdateUser(ctx context.Context, admin *users.User, id string, p ProfileUpdate) (*users.User, error) {
	if !admin.IsAdmin() {
		return nil, users.ErrForbidden
	}
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.UpdateProfile(ctx, u, p)
}

// Deactivate disables an account. Admins cannot lock themselves out.
func (s *Service) Deactivate(ctx context.Context, admin *users.User, id string) error {
	if !admin.IsAdmin() {
		return users.ErrForbidden
	}
	if id == admin.ID {
		return users.ErrSelfDeactivate
	}
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	u.Active = false
	return s.Repo.Update(ctx, u)
}

func (s *Service) create(ctx context.Context, c Credentials, role users.Role) (*users.User, error) {
	email, err := c.email()
	if err != nil {
		return nil, err
	}
	if _, err := s.Repo.GetByEmail(ctx, email); err == nil {
		return nil, users.ErrEmailTaken
	} else if !errors.Is(err, users.ErrNotFound) {
		return nil, err
	}

	hash, err := s.Passwords.Hash(c.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	u := &users.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		FullName:     c.FullName,
		Role:         role,
		Active:       true,
		CreatedAt:    s.now(),
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) apply(u *users.User, p ProfileUpdate) error {
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Password != nil {
		if *p.Password == "" {
			return fmt.Errorf("%w: password must not be empty", users.ErrInvalidInput)
		}
		hash, err := s.Passwords.Hash(*p.Password)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}
		u.PasswordHash = hash
	}
	return nil
}

func (s *Service) issue(u *users.User) (*Token, error) {
	tok, err := s.Tokens.Sign(u.ID)
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}
	return &Token{AccessToken: tok, TokenType: "bearer", User: u}, nil
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}
