package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vovakirdan/wiremap-server/internal/auth"
	"github.com/vovakirdan/wiremap-server/internal/store"
)

// Common errors for profile operations.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailTaken     = errors.New("email already registered")
	ErrNothingToApply = errors.New("no changes supplied")
	ErrInvalidAvatar  = errors.New("invalid avatar reference")
)

const maxAvatarRefLen = 2048

// ProfileChanges carries optional profile edits. Empty strings mean "leave as is".
type ProfileChanges struct {
	Name     string
	Email    string
	Password string
}

// Service provides profile management business logic.
type Service struct {
	store store.UserStore
}

// New creates a new users Service.
func New(st store.UserStore) *Service {
	return &Service{store: st}
}

// Get returns the user profile.
func (s *Service) Get(ctx context.Context, userID string) (*store.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return user, nil
}

// Update applies profile changes. The password is hashed before storing.
func (s *Service) Update(ctx context.Context, userID string, changes ProfileChanges) (*store.User, error) {
	var upd store.UserUpdate

	if name := strings.TrimSpace(changes.Name); name != "" {
		if err := auth.ValidateName(name); err != nil {
			return nil, err
		}
		upd.Name = &name
	}
	if email := strings.TrimSpace(changes.Email); email != "" {
		if err := auth.ValidateEmail(email); err != nil {
			return nil, err
		}
		upd.Email = &email
	}
	if changes.Password != "" {
		if err := auth.ValidatePassword(changes.Password); err != nil {
			return nil, err
		}
		hash, err := auth.HashPassword(changes.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		upd.PasswordHash = &hash
	}

	if upd.Name == nil && upd.Email == nil && upd.PasswordHash == nil {
		return nil, ErrNothingToApply
	}

	user, err := s.store.UpdateUser(ctx, userID, upd)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return user, nil
}

// SetAvatar stores a reference to the user's profile picture. An empty
// reference clears it.
func (s *Service) SetAvatar(ctx context.Context, userID, avatarRef string) error {
	avatarRef = strings.TrimSpace(avatarRef)
	if len(avatarRef) > maxAvatarRefLen || strings.ContainsAny(avatarRef, " \t\r\n") {
		return ErrInvalidAvatar
	}
	if err := s.store.UpdateAvatar(ctx, userID, avatarRef); err != nil {
		return mapStoreErr(err)
	}
	return nil
}

// Delete removes the user account.
func (s *Service) Delete(ctx context.Context, userID string) error {
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return mapStoreErr(err)
	}
	return nil
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrUserNotFound
	case errors.Is(err, store.ErrConflict):
		return ErrEmailTaken
	default:
		return err
	}
}
