package http

import (
	"context"
	"net/http/httptest"
	"testing"
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
)

const testJWTSecret = "testsecret"

// testEnv is a fully wired server backed by an in-memory store.
type testEnv struct {
	server *httptest.Server
	store  store.Store
	hub    *core.Hub
	auth   *auth.Service
}

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// createTestAuthService creates an auth service for testing.
func createTestAuthService(t *testing.T, st store.Store, jwtSecret string) *auth.Service {
	t.Helper()

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(jwtSecret),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return auth.NewService(st, jwtConfig)
}

// startTestServer wires store, hub and router like the application does.
// The profile source is the test store itself.
func startTestServer(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	st := createTestStore(t)
	authService := createTestAuthService(t, st, testJWTSecret)
	logger := zerolog.Nop()

	policy, err := presence.ParsePolicy(cfg.Presence.DisconnectPolicy)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	reconciler := presence.NewReconciler(presence.NewRegistry(), presence.NewConnIndex(), policy)
	hub := core.NewHub(reconciler, profile.NewStoreFetcher(st), core.Options{
		EchoToSender:  cfg.Presence.EchoToSender,
		EnrichTimeout: cfg.Profile.Timeout,
		MaxInflight:   cfg.Profile.MaxInflight,
	}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := NewServer(hub, authService, users.New(st), &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		cancel()
		ts.Close()
	})

	return &testEnv{server: ts, store: st, hub: hub, auth: authService}
}
