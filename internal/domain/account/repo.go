package account

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository persists credentials. Lookups wrap apperr.ErrNotFound when
// the user is absent; Create wraps apperr.ErrConflict for a taken email.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListByRole(ctx context.Context, role string) ([]*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
