package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/vovakirdan/wiremap-server/internal/store"
)

// StoreFetcher reads profiles from the local user store.
type StoreFetcher struct {
	users store.UserStore
}

// NewStoreFetcher creates a fetcher backed by the user store.
func NewStoreFetcher(users store.UserStore) *StoreFetcher {
	return &StoreFetcher{users: users}
}

// FetchProfile implements Fetcher. Users without an avatar count as not found.
func (f *StoreFetcher) FetchProfile(ctx context.Context, id string) (*Profile, error) {
	user, err := f.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	if user.AvatarRef == "" {
		return nil, ErrNotFound
	}
	return &Profile{ID: user.ID, AvatarRef: user.AvatarRef}, nil
}
