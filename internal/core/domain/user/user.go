package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         UserRole   `json:"role" db:"role"`
	CreatedAt    *time.Time `json:"created_at" db:"created_at"`
}

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

func (r UserRole) String() string {
	return string(r)
}

// CachedUser is the derived view republished into the cache by the
// integration probe. Timestamps are flattened to their RFC 3339 text
// form so the cached JSON is self-contained.
type CachedUser struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	CreatedAt *string `json:"created_at"`
}

// ToCached converts a user row into its cacheable view.
func (u *User) ToCached() CachedUser {
	var createdAt *string
	if u.CreatedAt != nil {
		s := u.CreatedAt.Format(time.RFC3339)
		createdAt = &s
	}
	return CachedUser{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role.String(),
		CreatedAt: createdAt,
	}
}
