package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nutriclinic/nutriclinic/internal/platform/apperr"
	"github.com/nutriclinic/nutriclinic/internal/platform/auth"
)

// TokenSigner issues session tokens for an authenticated principal.
type TokenSigner interface {
	Issue(p auth.Principal) (string, error)
}

var errBadCredentials = fmt.Errorf("%w: invalid email or password", apperr.ErrAuthentication)

type Service struct {
	users  UserRepository
	tokens TokenSigner
	admin  AdminIdentity
	logger zerolog.Logger
}

func NewService(users UserRepository, tokens TokenSigner, admin AdminIdentity, logger zerolog.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		admin:  admin,
		logger: logger.With().Str("component", "account").Logger(),
	}
}

// InitializeDefaultAdmin makes sure the reserved administrator exists and
// returns it. Calling it again leaves the existing account untouched.
func (s *Service) InitializeDefaultAdmin(ctx context.Context) (*User, error) {
	u, err := s.users.GetByEmail(ctx, s.admin.Email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("look up admin: %w", err)
	}

	hash, err := auth.HashPassword(s.admin.Password)
	if err != nil {
		return nil, err
	}
	u = &User{
		Email:        s.admin.Email,
		PasswordHash: hash,
		FirstName:    s.admin.FirstName,
		LastName:     s.admin.LastName,
		Role:         RoleAdmin,
		Active:       true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			// Created concurrently by another instance.
			return s.users.GetByEmail(ctx, s.admin.Email)
		}
		return nil, fmt.Errorf("create admin: %w", err)
	}
	s.logger.Info().Str("email", u.Email).Msg("default administrator created")
	return u, nil
}

// Login authenticates by email and password and issues a session token.
// The reserved administrator credentials always succeed and create the
// account on first use.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var (
		u   *User
		err error
	)
	if email == s.admin.Email && password == s.admin.Password {
		u, err = s.InitializeDefaultAdmin(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		u, err = s.authenticate(ctx, email, password)
		if err != nil {
			s.logger.Warn().Str("email", email).Msg("login rejected")
			return nil, err
		}
	}

	token, err := s.tokens.Issue(u.principal())
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		Token:     token,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}, nil
}

func (s *Service) authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.Active {
		return nil, fmt.Errorf("%w: account is disabled", apperr.ErrAuthentication)
	}
	ok, err := auth.CheckPassword(u.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("check password: %w", err)
	}
	if !ok {
		return nil, errBadCredentials
	}
	return u, nil
}

func (s *Service) CreateNutritionist(ctx context.Context, in CreateNutritionistRequest) (*User, error) {
	var missing []string
	for _, f := range []struct{ name, v string }{
		{"email", in.Email}, {"password", in.Password}, {"first_name", in.FirstName}, {"last_name", in.LastName},
	} {
		if strings.TrimSpace(f.v) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s required", apperr.ErrValidation, strings.Join(missing, ", "))
	}

	taken, err := s.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("email %s is already registered: %w", in.Email, apperr.ErrConflict)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         RoleNutritionist,
		Active:       true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", u.ID.String()).Msg("nutritionist created")
	return u, nil
}

func (s *Service) ListNutritionists(ctx context.Context) ([]*User, error) {
	return s.users.ListByRole(ctx, RoleNutritionist)
}

// nutritionist loads a user by id and hides accounts of any other role.
func (s *Service) nutritionist(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != RoleNutritionist {
		return nil, fmt.Errorf("nutritionist %s: %w", id, apperr.ErrNotFound)
	}
	return u, nil
}

func (s *Service) UpdateNutritionist(ctx context.Context, id uuid.UUID, in UpdateNutritionistRequest) (*User, error) {
	u, err := s.nutritionist(ctx, id)
	if err != nil {
		return nil, err
	}
	u.FirstName = in.FirstName
	u.LastName = in.LastName
	if in.Active != nil {
		u.Active = *in.Active
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) DeleteNutritionist(ctx context.Context, id uuid.UUID) error {
	if _, err := s.nutritionist(ctx, id); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", id.String()).Msg("nutritionist deleted")
	return nil
}
