package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeSendLocation = "send-location"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventCurrentUsers     = "current-users"
	EventReceiveLocation  = "receive-location"
	EventUserDisconnected = "user-disconnected"
)

// LocationData is a location update sent by the client. Lat and Lng are
// pointers so a missing coordinate is told apart from zero.
type LocationData struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
	AvatarRef string   `json:"avatarRef,omitempty"`
}

// Record is the wire form of a participant.
type Record struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	AvatarRef    string  `json:"avatarRef,omitempty"`
	Timestamp    int64   `json:"timestamp"`
	ConnectionID string  `json:"connectionId"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
