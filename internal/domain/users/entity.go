package users

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrEmailTaken     = errors.New("email already registered")
	ErrInvalidLogin   = errors.New("invalid email or password")
	ErrInactive       = errors.New("account is disabled")
	ErrForbidden      = errors.New("admin role required")
	ErrSelfDeactivate = errors.New("cannot deactivate yourself")
	ErrInvalidInput   = errors.New("invalid user input")
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         Role      `json:"role"`
	Active       bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// Repository port for users
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, u *User) error
}
