package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hostwatch/hostwatch/internal/config"
	"github.com/hostwatch/hostwatch/internal/model"
)

// UserStore is the persistence the credential service needs. *config.Store
// satisfies it.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdatePasswordHash(ctx context.Context, username, hash string) error
	SetUserActive(ctx context.Context, username string, active bool) error
	HasAnyAdmin(ctx context.Context) (bool, error)
}

// CredentialService owns the user table: bootstrap, credential checks,
// password changes and account administration. Users are deactivated, never
// deleted.
type CredentialService struct {
	store UserStore
}

// NewCredentialService creates a CredentialService over store.
func NewCredentialService(store UserStore) *CredentialService {
	return &CredentialService{store: store}
}

// EnsureUser returns the named user if it already exists, unchanged, even if
// password or role differ from the stored ones. Otherwise it creates an
// active user with the given role.
func (s *CredentialService) EnsureUser(ctx context.Context, username, password string, role model.Role) (*model.User, error) {
	name, err := cleanUsername(username)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetUserByUsername(ctx, name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, config.ErrNotFound) {
		return nil, err
	}

	u, err := s.insert(ctx, name, password, role)
	if errors.Is(err, ErrUserExists) {
		// Lost an insert race; the winner's row is the answer.
		return s.store.GetUserByUsername(ctx, name)
	}
	return u, err
}

// CreateUser inserts a new active user and fails with ErrUserExists if the
// username is taken.
func (s *CredentialService) CreateUser(ctx context.Context, username, password string, role model.Role) (*model.User, error) {
	name, err := cleanUsername(username)
	if err != nil {
		return nil, err
	}
	return s.insert(ctx, name, password, role)
}

func (s *CredentialService) insert(ctx context.Context, name, password string, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, invalid("role", "unknown role %q", role)
	}
	if err := validateNewPassword("password", password); err != nil {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Username:     name,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, config.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s", ErrUserExists, name)
		}
		return nil, err
	}
	return u, nil
}

// ValidateCredentials returns the user when username names an active account
// and password verifies against it. Every negative outcome returns (nil, nil)
// after the same amount of key-derivation work; an error means the store
// itself failed.
func (s *CredentialService) ValidateCredentials(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil && !errors.Is(err, config.ErrNotFound) {
		return nil, err
	}

	if u == nil || !u.Active {
		VerifyPassword(password, dummySecret)
		return nil, nil
	}
	if !VerifyPassword(password, u.PasswordHash) {
		return nil, nil
	}
	return u, nil
}

// ChangePassword replaces the password of an active user after verifying the
// current one.
func (s *CredentialService) ChangePassword(ctx context.Context, username, currentPassword, newPassword string) (*model.User, error) {
	u, err := s.activeUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if !VerifyPassword(currentPassword, u.PasswordHash) {
		return nil, ErrAuth
	}
	if err := validateNewPassword("new_password", newPassword); err != nil {
		return nil, err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdatePasswordHash(ctx, u.Username, hash); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.store.GetUserByUsername(ctx, u.Username)
}

// ResetPassword sets a new password without checking the current one. It is
// the operator path used by the CLI and also works on inactive accounts.
func (s *CredentialService) ResetPassword(ctx context.Context, username, newPassword string) (*model.User, error) {
	if err := validateNewPassword("new_password", newPassword); err != nil {
		return nil, err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(username)
	if err := s.store.UpdatePasswordHash(ctx, name, hash); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.store.GetUserByUsername(ctx, name)
}

// SetUserActive enables or disables an account.
func (s *CredentialService) SetUserActive(ctx context.Context, username string, active bool) (*model.User, error) {
	name := strings.TrimSpace(username)
	if err := s.store.SetUserActive(ctx, name, active); err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.store.GetUserByUsername(ctx, name)
}

// ListUsers returns every account without password hashes, ordered by
// username.
func (s *CredentialService) ListUsers(ctx context.Context) ([]model.PublicUser, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.PublicUser, len(users))
	for i, u := range users {
		out[i] = u.Public()
	}
	return out, nil
}

// HasAnyAdmin reports whether an active admin account exists.
func (s *CredentialService) HasAnyAdmin(ctx context.Context) (bool, error) {
	return s.store.HasAnyAdmin(ctx)
}

func (s *CredentialService) activeUser(ctx context.Context, username string) (*model.User, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !u.Active {
		return nil, ErrNotFound
	}
	return u, nil
}

func cleanUsername(username string) (string, error) {
	name := strings.TrimSpace(username)
	if name == "" {
		return "", invalid("username", "is required")
	}
	return name, nil
}
