package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vovakirdan/wiremap-server/internal/metrics"
	"github.com/vovakirdan/wiremap-server/internal/presence"
	"github.com/vovakirdan/wiremap-server/internal/profile"
)

func startHub(t *testing.T, fetcher profile.Fetcher, opts Options) *Hub {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	reconciler := presence.NewReconciler(presence.NewRegistry(), presence.NewConnIndex(), presence.PolicyRemove)
	hub := NewHub(reconciler, fetcher, opts, nil)
	go hub.Run(ctx)
	return hub
}

func connect(t *testing.T, hub *Hub, id string) *Client {
	t.Helper()
	c := NewClient(id, 16)
	hub.RegisterClient(c)
	if ev := nextEvent(t, c.Events); ev.Kind != EventSnapshot {
		t.Fatalf("expected snapshot first, got %v", ev.Kind)
	}
	return c
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// nextEvent returns the very next event, failing on timeout or closed channel.
func nextEvent(t *testing.T, ch <-chan *Event) *Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("event channel closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func expectLocation(t *testing.T, ch <-chan *Event) presence.Record {
	t.Helper()
	ev := nextEvent(t, ch)
	if ev.Kind != EventLocation {
		t.Fatalf("expected location event, got %v %+v", ev.Kind, ev)
	}
	return ev.Record
}

func waitCounter(t *testing.T, result string, want float64) {
	t.Helper()
	counter := metrics.EnrichmentTotal.WithLabelValues(result)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if testutil.ToFloat64(counter) >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("enrichment counter %q did not reach %v", result, want)
}

func enrichmentCount(result string) float64 {
	return testutil.ToFloat64(metrics.EnrichmentTotal.WithLabelValues(result))
}
