package profile

import (
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/vovakirdan/wiremap-server/internal/store/sqlite"
)

func TestStoreFetcher(t *testing.T) {
	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	ana, _ := st.CreateUser(ctx, "Ana", "ana@example.com", "hash")
	bea, _ := st.CreateUser(ctx, "Bea", "bea@example.com", "hash")
	if err := st.UpdateAvatar(ctx, ana.ID, "a.png"); err != nil {
		t.Fatalf("update avatar: %v", err)
	}

	f := NewStoreFetcher(st)

	p, err := f.FetchProfile(ctx, ana.ID)
	if err != nil || p.AvatarRef != "a.png" {
		t.Fatalf("expected avatar, got %+v %v", p, err)
	}
	if _, err := f.FetchProfile(ctx, bea.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("user without avatar: expected ErrNotFound, got %v", err)
	}
	if _, err := f.FetchProfile(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user: expected ErrNotFound, got %v", err)
	}
}

func TestHTTPFetcher(t *testing.T) {
	mux := stdhttp.NewServeMux()
	mux.HandleFunc("/api/users/u1/profile", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		_ = json.NewEncoder(w).Encode(Profile{ID: "u1", AvatarRef: "a.png"})
	})
	mux.HandleFunc("/api/users/broken/profile", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusBadGateway)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	f := NewHTTPFetcher(ts.URL+"/", ts.Client())
	ctx := context.Background()

	p, err := f.FetchProfile(ctx, "u1")
	if err != nil || p.AvatarRef != "a.png" {
		t.Fatalf("expected avatar, got %+v %v", p, err)
	}
	if _, err := f.FetchProfile(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.FetchProfile(ctx, "broken"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestHTTPFetcherHonorsContext(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := NewHTTPFetcher(ts.URL, ts.Client()).FetchProfile(ctx, "u1"); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestBreakerOpensOnFailuresButNotOnNotFound(t *testing.T) {
	var calls atomic.Int32
	failing := true
	next := FetcherFunc(func(context.Context, string) (*Profile, error) {
		calls.Add(1)
		if failing {
			return nil, errors.New("store unreachable")
		}
		return nil, ErrNotFound
	})

	logger := zerolog.Nop()
	b := NewBreaker(next, BreakerConfig{FailureThreshold: 2, OpenTimeout: time.Hour}, &logger)
	ctx := context.Background()

	failing = false
	for i := 0; i < 5; i++ {
		if _, err := b.FetchProfile(ctx, "u1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}
	if b.State() != gobreaker.StateClosed {
		t.Fatalf("not-found must not trip the breaker, state=%v", b.State())
	}

	failing = true
	_, _ = b.FetchProfile(ctx, "u1")
	_, _ = b.FetchProfile(ctx, "u1")
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %v", b.State())
	}

	before := calls.Load()
	if _, err := b.FetchProfile(ctx, "u1"); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected ErrOpenState, got %v", err)
	}
	if calls.Load() != before {
		t.Fatal("open breaker must not call the store")
	}
}

func TestValidateSource(t *testing.T) {
	for _, s := range []string{SourceSQLite, SourceHTTP, SourceNone} {
		if err := ValidateSource(s); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}
	if err := ValidateSource("supabase"); err == nil {
		t.Fatal("expected error for unknown source")
	}
}
