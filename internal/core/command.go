package core

import "github.com/vovakirdan/wiremap-server/internal/presence"

// CommandKind describes what the hub should do.
type CommandKind int

const (
	// CommandRegister adds a client and sends it the current snapshot.
	CommandRegister CommandKind = iota
	// CommandUnregister removes a client and releases its participant.
	CommandUnregister
	// CommandSendLocation applies a location update from a client.
	CommandSendLocation
	// CommandEnrichment applies the result of a profile lookup.
	CommandEnrichment
)

// Command represents a unit of work processed by the hub loop.
type Command struct {
	Kind   CommandKind
	Client *Client
	Update presence.Update

	// enrichment results
	ParticipantID string
	AvatarRef     string
}
