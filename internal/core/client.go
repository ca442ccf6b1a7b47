package core

// ClientState tracks a connection through its lifecycle.
type ClientState int

const (
	// StateConnected is a registered connection that has not sent a valid update yet.
	StateConnected ClientState = iota
	// StateIdentified is a connection that represents a participant.
	StateIdentified
	// StateDisconnected is terminal.
	StateDisconnected
)

const defaultClientBuffer = 64

// Client is a live connection as seen by the core layer.
type Client struct {
	ID     string
	Events chan *Event

	// owned by the hub goroutine
	state ClientState
}

// NewClient constructs a client with an event buffer of the given size.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	return &Client{
		ID:     id,
		Events: make(chan *Event, buffer),
		state:  StateConnected,
	}
}

// offer queues an event without blocking. Returns false when the buffer is full.
func (c *Client) offer(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}
