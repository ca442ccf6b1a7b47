package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiremap-server/internal/auth"
	"github.com/vovakirdan/wiremap-server/internal/config"
	"github.com/vovakirdan/wiremap-server/internal/core"
	"github.com/vovakirdan/wiremap-server/internal/presence"
	"github.com/vovakirdan/wiremap-server/internal/profile"
	"github.com/vovakirdan/wiremap-server/internal/service/users"
	"github.com/vovakirdan/wiremap-server/internal/store"
	"github.com/vovakirdan/wiremap-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wiremap-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	policy, err := presence.ParsePolicy(cfg.Presence.DisconnectPolicy)
	if err != nil {
		return nil, err
	}

	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
	authService := auth.NewService(st, jwtConfig)
	userService := users.New(st)

	fetcher := newFetcher(cfg.Profile, st, logger)

	reconciler := presence.NewReconciler(presence.NewRegistry(), presence.NewConnIndex(), policy)
	hub := core.NewHub(reconciler, fetcher, core.Options{
		EchoToSender:  cfg.Presence.EchoToSender,
		EnrichTimeout: cfg.Profile.Timeout,
		MaxInflight:   cfg.Profile.MaxInflight,
	}, logger)

	server := transporthttp.NewServer(hub, authService, userService, cfg, logger)

	logger.Info().
		Str("disconnect_policy", string(policy)).
		Str("profile_source", cfg.Profile.Source).
		Bool("echo_to_sender", cfg.Presence.EchoToSender).
		Msg("presence configured")

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

// newFetcher selects the profile source. A nil result disables enrichment.
func newFetcher(cfg config.ProfileConfig, st store.UserStore, logger *zerolog.Logger) profile.Fetcher {
	var next profile.Fetcher
	switch cfg.Source {
	case profile.SourceSQLite:
		next = profile.NewStoreFetcher(st)
	case profile.SourceHTTP:
		next = profile.NewHTTPFetcher(cfg.BaseURL, &stdhttp.Client{Timeout: cfg.Timeout})
	default:
		return nil
	}
	return profile.NewBreaker(next, profile.BreakerConfig{
		Name:             "profile-" + cfg.Source,
		FailureThreshold: cfg.BreakerFailures,
		OpenTimeout:      cfg.BreakerOpenTimeout,
	}, logger)
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go a.hub.Run(hubCtx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		stopHub()
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		// Hijacked socket connections are not tracked by Shutdown; stopping the
		// hub closes every client stream so their handlers return.
		stopHub()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	select {
	case <-a.hub.Done():
	case <-time.After(a.shutdownTimeout):
		a.log.Warn().Msg("hub did not stop in time")
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
