package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/wiremap-server/internal/presence"
	"github.com/vovakirdan/wiremap-server/internal/profile"
)

func TestHubSnapshotOnRegister(t *testing.T) {
	hub := startHub(t, nil, Options{EchoToSender: true})

	alice := connect(t, hub, "c-alice")
	hub.SendLocation(alice, presence.Update{ID: "u1", Name: "Ana", Lat: 1, Lng: 2})
	expectLocation(t, alice.Events)

	bob := NewClient("c-bob", 4)
	hub.RegisterClient(bob)
	ev := nextEvent(t, bob.Events)
	if ev.Kind != EventSnapshot {
		t.Fatalf("expected snapshot, got %v", ev.Kind)
	}
	rec, ok := ev.Snapshot["u1"]
	if !ok || rec.Name != "Ana" || rec.Lat != 1 || rec.Lng != 2 || rec.ConnID != "c-alice" {
		t.Fatalf("unexpected snapshot: %+v", ev.Snapshot)
	}

	// Later broadcasts follow the snapshot.
	hub.SendLocation(alice, presence.Update{ID: "u1", Name: "Ana", Lat: 3, Lng: 4})
	if got := expectLocation(t, bob.Events); got.Lat != 3 {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestHubEnrichmentProducesSecondBroadcast(t *testing.T) {
	release := make(chan struct{})
	fetcher := profile.FetcherFunc(func(ctx context.Context, id string) (*profile.Profile, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return &profile.Profile{ID: id, AvatarRef: "a.png"}, nil
	})
	hub := startHub(t, fetcher, Options{EchoToSender: true})

	sender := connect(t, hub, "c1")
	observer := connect(t, hub, "c2")

	hub.SendLocation(sender, presence.Update{ID: "u1", Name: "Ana", Lat: 1.0, Lng: 2.0})
	first := expectLocation(t, observer.Events)
	if first.AvatarRef != "" {
		t.Fatalf("first broadcast must not wait for the avatar: %+v", first)
	}

	close(release)
	second := expectLocation(t, observer.Events)

	want := first
	want.AvatarRef = "a.png"
	if second != want {
		t.Fatalf("second broadcast mismatch:\n got %+v\nwant %+v", second, want)
	}
}

func TestHubEnrichmentDoesNotOverwriteClientAvatar(t *testing.T) {
	release := make(chan struct{})
	fetcher := profile.FetcherFunc(func(context.Context, string) (*profile.Profile, error) {
		<-release
		return &profile.Profile{AvatarRef: "store.png"}, nil
	})
	hub := startHub(t, fetcher, Options{EchoToSender: true})
	discarded := enrichmentCount("discarded")

	sender := connect(t, hub, "c1")
	observer := connect(t, hub, "c2")

	hub.SendLocation(sender, presence.Update{ID: "u1", Name: "Ana"})
	expectLocation(t, observer.Events)
	hub.SendLocation(sender, presence.Update{ID: "u1", Name: "Ana", AvatarRef: "client.png"})
	if rec := expectLocation(t, observer.Events); rec.AvatarRef != "client.png" {
		t.Fatalf("expected client avatar, got %+v", rec)
	}

	close(release)
	waitCounter(t, "discarded", discarded+1)

	if got := hub.Snapshot()["u1"].AvatarRef; got != "client.png" {
		t.Fatalf("client avatar overwritten by enrichment: %q", got)
	}
	select {
	case ev := <-observer.Events:
		t.Fatalf("unexpected event after discarded enrichment: %+v", ev)
	default:
	}
}

func TestHubEnrichmentFailureIsSwallowed(t *testing.T) {
	fetcher := profile.FetcherFunc(func(context.Context, string) (*profile.Profile, error) {
		return nil, errors.New("store unreachable")
	})
	hub := startHub(t, fetcher, Options{EchoToSender: true})
	failed := enrichmentCount("failed")

	sender := connect(t, hub, "c1")
	hub.SendLocation(sender, presence.Update{ID: "u1", Name: "Ana"})
	expectLocation(t, sender.Events)

	waitCounter(t, "failed", failed+1)
	if rec, ok := hub.Snapshot()["u1"]; !ok || rec.AvatarRef != "" {
		t.Fatalf("participant should persist without avatar: %+v %v", rec, ok)
	}
}

func TestHubEnrichmentTimeout(t *testing.T) {
	fetcher := profile.FetcherFunc(func(ctx context.Context, _ string) (*profile.Profile, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	hub := startHub(t, fetcher, Options{EchoToSender: true, EnrichTimeout: 20 * time.Millisecond})
	failed := enrichmentCount("failed")

	sender := connect(t, hub, "c1")
	hub.SendLocation(sender, presence.Update{ID: "u1", Name: "Ana"})
	expectLocation(t, sender.Events)

	waitCounter(t, "failed", failed+1)
}

func TestHubStaleDisconnectAfterReconnect(t *testing.T) {
	hub := startHub(t, nil, Options{EchoToSender: true})

	c1 := connect(t, hub, "c1")
	c2 := connect(t, hub, "c2")
	observer := connect(t, hub, "obs")

	hub.SendLocation(c1, presence.Update{ID: "u1", Name: "Ana", Lat: 1})
	expectLocation(t, observer.Events)
	hub.SendLocation(c2, presence.Update{ID: "u1", Name: "Ana", Lat: 2})
	if rec := expectLocation(t, observer.Events); rec.ConnID != "c2" {
		t.Fatalf("expected c2 to own u1, got %+v", rec)
	}

	hub.UnregisterClient(c1)
	// A fresh update proves nothing was broadcast for c1's disconnect.
	hub.SendLocation(c2, presence.Update{ID: "u1", Name: "Ana", Lat: 3})
	if rec := expectLocation(t, observer.Events); rec.Lat != 3 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	hub.UnregisterClient(c2)
	ev := nextEvent(t, observer.Events)
	if ev.Kind != EventUserDisconnected || ev.ParticipantID != "u1" {
		t.Fatalf("expected user-disconnected u1, got %+v", ev)
	}
	if _, ok := hub.Snapshot()["u1"]; ok {
		t.Fatal("u1 should be removed")
	}
}

func TestHubMalformedUpdate(t *testing.T) {
	hub := startHub(t, nil, Options{EchoToSender: true})

	sender := connect(t, hub, "c1")
	observer := connect(t, hub, "c2")

	hub.SendLocation(sender, presence.Update{Name: "Nobody", Lat: 1})
	ev := mustEvent(t, sender.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeBadRequest {
		t.Fatalf("expected bad_request error, got %+v", ev)
	}

	hub.SendLocation(sender, presence.Update{ID: "u1", Name: "Ana"})
	if rec := expectLocation(t, observer.Events); rec.ID != "u1" {
		t.Fatalf("observer saw something before the valid update: %+v", rec)
	}
	if n := len(hub.Snapshot()); n != 1 {
		t.Fatalf("expected one participant, got %d", n)
	}
}

func TestHubAnonymousDisconnectIsNoop(t *testing.T) {
	hub := startHub(t, nil, Options{EchoToSender: true})

	anon := connect(t, hub, "anon")
	observer := connect(t, hub, "obs")

	hub.UnregisterClient(anon)
	if _, ok := <-anon.Events; ok {
		t.Fatal("expected closed event channel")
	}

	hub.SendLocation(observer, presence.Update{ID: "u1", Name: "Ana"})
	expectLocation(t, observer.Events)
}

func TestHubEchoToSenderDisabled(t *testing.T) {
	hub := startHub(t, nil, Options{EchoToSender: false})

	sender := connect(t, hub, "c1")
	observer := connect(t, hub, "c2")

	hub.SendLocation(sender, presence.Update{ID: "u1", Name: "Ana"})
	expectLocation(t, observer.Events)

	hub.SendLocation(observer, presence.Update{ID: "u2", Name: "Bea"})
	if rec := expectLocation(t, sender.Events); rec.ID != "u2" {
		t.Fatalf("sender received its own update: %+v", rec)
	}
}

func TestHubIdentitySwitchAnnouncesDeparture(t *testing.T) {
	hub := startHub(t, nil, Options{EchoToSender: true})

	sender := connect(t, hub, "c1")
	observer := connect(t, hub, "c2")

	hub.SendLocation(sender, presence.Update{ID: "u1", Name: "Ana"})
	expectLocation(t, observer.Events)
	hub.SendLocation(sender, presence.Update{ID: "u2", Name: "Bea"})

	ev := nextEvent(t, observer.Events)
	if ev.Kind != EventUserDisconnected || ev.ParticipantID != "u1" {
		t.Fatalf("expected u1 departure, got %+v", ev)
	}
	if rec := expectLocation(t, observer.Events); rec.ID != "u2" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestHubDropsSlowConsumer(t *testing.T) {
	hub := startHub(t, nil, Options{EchoToSender: true})

	// Buffer of one is filled by the snapshot and never drained.
	slow := NewClient("slow", 1)
	hub.RegisterClient(slow)
	observer := connect(t, hub, "obs")

	hub.SendLocation(observer, presence.Update{ID: "u1", Name: "Ana"})
	expectLocation(t, observer.Events)

	if ev := <-slow.Events; ev.Kind != EventSnapshot {
		t.Fatalf("expected buffered snapshot, got %v", ev.Kind)
	}
	select {
	case _, ok := <-slow.Events:
		if ok {
			t.Fatal("expected slow consumer channel to be closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("slow consumer was not dropped")
	}

	// Unregistering an already dropped client is harmless.
	hub.UnregisterClient(slow)
	hub.SendLocation(observer, presence.Update{ID: "u1", Name: "Ana", Lat: 1})
	expectLocation(t, observer.Events)
}

func TestHubStopClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reconciler := presence.NewReconciler(presence.NewRegistry(), presence.NewConnIndex(), presence.PolicyRemove)
	hub := NewHub(reconciler, nil, Options{}, nil)
	go hub.Run(ctx)

	c := connect(t, hub, "c1")
	cancel()

	select {
	case <-hub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	if _, ok := <-c.Events; ok {
		t.Fatal("expected closed event channel after stop")
	}

	// Calls after stop must not block.
	hub.SendLocation(c, presence.Update{ID: "u1", Name: "Ana"})
	hub.UnregisterClient(c)
}
