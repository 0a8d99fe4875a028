package identity

import (
	"context"
	"strings"
	"time"
)

// User is Marquee's security principal.
type User struct {
	ID           int64
	DisplayName  string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}

// NewUser describes a row to insert. PasswordHash is already encoded.
type NewUser struct {
	DisplayName  string
	Email        string
	PasswordHash string
	IsAdmin      bool
	Now          time.Time
}

// Store is the credential persistence boundary.
//
// Lookups return a NotFoundError when no row exists. Insert returns a
// ConflictError{Field: "email"} when the email is already taken; a failed
// mutation leaves no partial write behind.
type Store interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id int64) (User, error)
	Insert(ctx context.Context, in NewUser) (User, error)
	UpdatePassword(ctx context.Context, id int64, newHash string) error
}

func (in NewUser) normalized(op string) (NewUser, error) {
	in.Email = NormalizeEmail(in.Email)
	in.DisplayName = NormalizeDisplayName(in.DisplayName)

	if in.Email == "" {
		return NewUser{}, invalid(op, "email is required")
	}
	if strings.TrimSpace(in.PasswordHash) == "" {
		return NewUser{}, invalid(op, "password hash is required")
	}
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}
	return in, nil
}
