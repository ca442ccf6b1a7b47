// Package profile provides clients for the profile store that the presence
// core consults to enrich participants with profile metadata.
package profile

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when the profile store has no profile for an id.
var ErrNotFound = errors.New("profile not found")

// Source names accepted in configuration.
const (
	SourceSQLite = "sqlite"
	SourceHTTP   = "http"
	SourceNone   = "none"
)

// Profile is the subset of profile metadata used for enrichment.
type Profile struct {
	ID        string `json:"id"`
	AvatarRef string `json:"avatarRef"`
}

// Fetcher looks up a profile by participant id.
type Fetcher interface {
	FetchProfile(ctx context.Context, id string) (*Profile, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, id string) (*Profile, error)

// FetchProfile calls f(ctx, id).
func (f FetcherFunc) FetchProfile(ctx context.Context, id string) (*Profile, error) {
	return f(ctx, id)
}

// ValidateSource checks a configured source name.
func ValidateSource(source string) error {
	switch source {
	case SourceSQLite, SourceHTTP, SourceNone:
		return nil
	default:
		return fmt.Errorf("unknown profile source %q", source)
	}
}
