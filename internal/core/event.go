package core

import "github.com/vovakirdan/wiremap-server/internal/presence"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventSnapshot delivers every known participant to a newly connected client.
	EventSnapshot EventKind = iota
	// EventLocation carries the canonical record of one participant.
	EventLocation
	// EventUserDisconnected notifies clients that a participant left.
	EventUserDisconnected
	// EventError notifies a single client about a rejected request.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventSnapshot:
		return "current-users"
	case EventLocation:
		return "receive-location"
	case EventUserDisconnected:
		return "user-disconnected"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is sent to clients to describe what happened in the system.
// Events are shared between recipients and must not be modified.
type Event struct {
	Kind          EventKind
	Record        presence.Record
	Snapshot      map[string]presence.Record // For EventSnapshot
	ParticipantID string                     // For EventUserDisconnected
	Error         *CoreError
}
