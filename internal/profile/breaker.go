package profile

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerConfig configures the circuit breaker around a Fetcher.
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// Breaker stops calling a failing profile store for a while so stalled
// lookups don't pile up. Not-found answers are healthy responses.
type Breaker struct {
	next Fetcher
	cb   *gobreaker.CircuitBreaker[*Profile]
}

// NewBreaker wraps next with a circuit breaker.
func NewBreaker(next Fetcher, cfg BreakerConfig, logger *zerolog.Logger) *Breaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Name == "" {
		cfg.Name = "profile-store"
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("profile store breaker state changed")
			}
		},
	}

	return &Breaker{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[*Profile](settings),
	}
}

// FetchProfile implements Fetcher.
func (b *Breaker) FetchProfile(ctx context.Context, id string) (*Profile, error) {
	return b.cb.Execute(func() (*Profile, error) {
		return b.next.FetchProfile(ctx, id)
	})
}

// State reports the breaker state, for diagnostics.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
