package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiremap-server/internal/metrics"
	"github.com/vovakirdan/wiremap-server/internal/presence"
	"github.com/vovakirdan/wiremap-server/internal/profile"
)

const (
	defaultMaxInflight = 64
	commandQueueSize   = 256
)

// Options tune hub behavior.
type Options struct {
	// EchoToSender also delivers an accepted update back to its originator.
	EchoToSender bool
	// EnrichTimeout bounds a single profile lookup. Zero disables the bound.
	EnrichTimeout time.Duration
	// MaxInflight caps concurrent profile lookups; extra lookups are skipped.
	MaxInflight int
}

// Hub serializes every mutation of presence state on a single goroutine
// and fans the resulting events out to registered clients.
type Hub struct {
	reconciler *presence.Reconciler
	fetcher    profile.Fetcher
	opts       Options
	log        *zerolog.Logger

	commands chan Command
	inflight chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	// owned by the Run goroutine
	audience *Audience
}

// NewHub creates a hub over the reconciler. fetcher may be nil, which
// disables enrichment.
func NewHub(reconciler *presence.Reconciler, fetcher profile.Fetcher, opts Options, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.MaxInflight <= 0 {
		opts.MaxInflight = defaultMaxInflight
	}
	return &Hub{
		reconciler: reconciler,
		fetcher:    fetcher,
		opts:       opts,
		log:        logger,
		commands:   make(chan Command, commandQueueSize),
		inflight:   make(chan struct{}, opts.MaxInflight),
		done:       make(chan struct{}),
		audience:   NewAudience(),
	}
}

// RegisterClient adds a client. Its first event is the current snapshot.
func (h *Hub) RegisterClient(c *Client) {
	h.submit(Command{Kind: CommandRegister, Client: c})
}

// UnregisterClient removes a client and releases the participant it represents.
func (h *Hub) UnregisterClient(c *Client) {
	h.submit(Command{Kind: CommandUnregister, Client: c})
}

// SendLocation queues a location update from a client.
func (h *Hub) SendLocation(c *Client, u presence.Update) {
	h.submit(Command{Kind: CommandSendLocation, Client: c, Update: u})
}

// Snapshot returns the current registry contents.
func (h *Hub) Snapshot() map[string]presence.Record {
	return h.reconciler.Registry().Snapshot()
}

// Done is closed once the hub has stopped.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) submit(cmd Command) {
	select {
	case h.commands <- cmd:
	case <-h.done:
	}
}

// Run processes commands until ctx is canceled. On exit every client's
// event channel is closed.
func (h *Hub) Run(ctx context.Context) {
	defer h.stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Int("clients", h.audience.Len()).Msg("hub stopping")
			return
		case cmd := <-h.commands:
			h.handle(ctx, cmd)
		}
	}
}

func (h *Hub) stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		for _, c := range h.audience.Clients() {
			h.audience.Remove(c)
			close(c.Events)
		}
		metrics.Connections.Set(0)
	})
}

func (h *Hub) handle(ctx context.Context, cmd Command) {
	switch cmd.Kind {
	case CommandRegister:
		h.register(cmd.Client)
	case CommandUnregister:
		h.unregister(cmd.Client)
	case CommandSendLocation:
		h.sendLocation(ctx, cmd.Client, cmd.Update)
	case CommandEnrichment:
		h.applyEnrichment(cmd.ParticipantID, cmd.AvatarRef)
	}
	metrics.Participants.Set(float64(h.reconciler.Registry().Len()))
	metrics.Connections.Set(float64(h.audience.Len()))
}

func (h *Hub) register(c *Client) {
	if c == nil || c.state == StateDisconnected || h.audience.Has(c) {
		return
	}
	// The snapshot is queued before the client joins the audience, so every
	// later broadcast is strictly newer than the snapshot.
	snap := &Event{Kind: EventSnapshot, Snapshot: h.reconciler.Registry().Snapshot()}
	if !c.offer(snap) {
		c.state = StateDisconnected
		close(c.Events)
		h.log.Warn().Str("conn_id", c.ID).Msg("client buffer full before snapshot, dropping")
		return
	}
	metrics.EventsSent.WithLabelValues(EventSnapshot.String()).Inc()
	h.audience.Add(c)
	h.log.Debug().Str("conn_id", c.ID).Int("participants", len(snap.Snapshot)).Msg("client registered")
}

func (h *Hub) unregister(c *Client) {
	if c == nil || !h.audience.Remove(c) {
		return
	}
	close(c.Events)
	h.release(c)
	h.log.Debug().Str("conn_id", c.ID).Msg("client unregistered")
}

// drop removes a client whose buffer is full. Closing its channel makes the
// transport close the connection; the client may reconnect and resync.
func (h *Hub) drop(c *Client) {
	if !h.audience.Remove(c) {
		return
	}
	close(c.Events)
	metrics.SlowConsumersDropped.Inc()
	h.log.Warn().Str("conn_id", c.ID).Msg("dropping slow consumer")
	h.release(c)
}

func (h *Hub) release(c *Client) {
	identified := c.state == StateIdentified
	c.state = StateDisconnected
	if !identified {
		metrics.DisconnectsTotal.WithLabelValues("anonymous").Inc()
		return
	}

	id, notify := h.reconciler.Disconnect(c.ID)
	switch {
	case id == "":
		metrics.DisconnectsTotal.WithLabelValues("stale").Inc()
		h.log.Debug().Str("conn_id", c.ID).Msg("ignoring disconnect of superseded connection")
	case notify:
		metrics.DisconnectsTotal.WithLabelValues("removed").Inc()
		h.log.Info().Str("conn_id", c.ID).Str("participant_id", id).Msg("participant went offline")
		h.broadcast(&Event{Kind: EventUserDisconnected, ParticipantID: id}, nil)
	default:
		metrics.DisconnectsTotal.WithLabelValues("retained").Inc()
		h.log.Debug().Str("conn_id", c.ID).Str("participant_id", id).Msg("participant offline, record retained")
	}
}

func (h *Hub) sendLocation(ctx context.Context, c *Client, u presence.Update) {
	if c == nil || !h.audience.Has(c) {
		return
	}

	res, err := h.reconciler.ApplyUpdate(c.ID, u)
	if err != nil {
		metrics.UpdatesTotal.WithLabelValues("rejected").Inc()
		h.log.Debug().Err(err).Str("conn_id", c.ID).Msg("rejected location update")
		h.sendTo(c, &Event{Kind: EventError, Error: coreError(ErrCodeBadRequest, err.Error())})
		return
	}
	metrics.UpdatesTotal.WithLabelValues("accepted").Inc()
	c.state = StateIdentified

	if res.IsNew {
		h.log.Info().Str("conn_id", c.ID).Str("participant_id", res.Record.ID).Str("name", res.Record.Name).Msg("participant joined")
	}
	if res.Departed != "" {
		h.broadcast(&Event{Kind: EventUserDisconnected, ParticipantID: res.Departed}, nil)
	}

	var except *Client
	if !h.opts.EchoToSender {
		except = c
	}
	h.broadcast(&Event{Kind: EventLocation, Record: res.Record}, except)

	if res.Enrich {
		h.enrich(ctx, res.Record.ID)
	}
}

// enrich looks up the participant's profile off the hub goroutine and posts
// the result back as a CommandEnrichment.
func (h *Hub) enrich(ctx context.Context, id string) {
	if h.fetcher == nil {
		return
	}
	select {
	case h.inflight <- struct{}{}:
	default:
		metrics.EnrichmentTotal.WithLabelValues(metrics.EnrichSkipped).Inc()
		h.log.Debug().Str("participant_id", id).Msg("too many profile lookups in flight, skipping")
		return
	}

	go func() {
		defer func() { <-h.inflight }()

		fetchCtx := ctx
		if h.opts.EnrichTimeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(ctx, h.opts.EnrichTimeout)
			defer cancel()
		}

		start := time.Now()
		p, err := h.fetcher.FetchProfile(fetchCtx, id)
		metrics.EnrichmentDuration.Observe(time.Since(start).Seconds())

		switch {
		case errors.Is(err, profile.ErrNotFound), err == nil && (p == nil || p.AvatarRef == ""):
			metrics.EnrichmentTotal.WithLabelValues(metrics.EnrichNotFound).Inc()
			return
		case err != nil:
			metrics.EnrichmentTotal.WithLabelValues(metrics.EnrichFailed).Inc()
			h.log.Debug().Err(err).Str("participant_id", id).Msg("profile lookup failed")
			return
		}

		h.submit(Command{Kind: CommandEnrichment, ParticipantID: id, AvatarRef: p.AvatarRef})
	}()
}

func (h *Hub) applyEnrichment(id, avatarRef string) {
	rec, ok := h.reconciler.ApplyEnrichment(id, avatarRef)
	if !ok {
		metrics.EnrichmentTotal.WithLabelValues(metrics.EnrichDiscarded).Inc()
		h.log.Debug().Str("participant_id", id).Msg("discarding stale profile lookup")
		return
	}
	metrics.EnrichmentTotal.WithLabelValues(metrics.EnrichApplied).Inc()
	h.broadcast(&Event{Kind: EventLocation, Record: rec}, nil)
}

func (h *Hub) sendTo(c *Client, ev *Event) {
	if !c.offer(ev) {
		h.drop(c)
		return
	}
	metrics.EventsSent.WithLabelValues(ev.Kind.String()).Inc()
}

func (h *Hub) broadcast(ev *Event, except *Client) {
	delivered, slow := h.audience.Broadcast(ev, except)
	metrics.EventsSent.WithLabelValues(ev.Kind.String()).Add(float64(delivered))
	for _, c := range slow {
		h.drop(c)
	}
}
