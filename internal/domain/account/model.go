package account

import (
	"time"

	"github.com/google/uuid"

	"github.com/nutriclinic/nutriclinic/internal/platform/auth"
)

const (
	RoleAdmin        = auth.RoleAdmin
	RoleNutritionist = auth.RoleNutritionist
)

// User maps to the users table. PasswordHash never leaves the server.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Role         string    `db:"role" json:"role"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

func (u *User) principal() auth.Principal {
	return auth.Principal{
		UserID:    u.ID.String(),
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
}

// AdminIdentity is the reserved administrator account that always exists.
type AdminIdentity struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// DefaultAdmin returns the built-in administrator identity.
func DefaultAdmin() AdminIdentity {
	return AdminIdentity{
		Email:     "kevin.sarango@unl.edu.ec",
		Password:  "admin123",
		FirstName: "Kevin",
		LastName:  "Sarango",
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

type CreateNutritionistRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UpdateNutritionistRequest overwrites the names. Active is kept when omitted.
type UpdateNutritionistRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Active    *bool  `json:"active"`
}

// Profile is the caller's identity as carried by their token.
type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}
