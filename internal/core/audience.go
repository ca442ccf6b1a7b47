package core

// Audience is the set of clients receiving broadcasts. It is owned by the
// hub goroutine and not safe for concurrent use.
type Audience struct {
	clients map[*Client]struct{}
}

// NewAudience constructs an empty audience.
func NewAudience() *Audience {
	return &Audience{clients: make(map[*Client]struct{})}
}

// Add inserts a client. Returns true if newly added.
func (a *Audience) Add(c *Client) bool {
	if _, exists := a.clients[c]; exists {
		return false
	}
	a.clients[c] = struct{}{}
	return true
}

// Remove deletes a client. Returns true if removed.
func (a *Audience) Remove(c *Client) bool {
	if _, exists := a.clients[c]; !exists {
		return false
	}
	delete(a.clients, c)
	return true
}

// Has reports whether c is a member.
func (a *Audience) Has(c *Client) bool {
	_, ok := a.clients[c]
	return ok
}

// Broadcast offers the event to every client except the given one. It
// returns how many clients accepted it and the clients whose buffer was full.
func (a *Audience) Broadcast(event *Event, except *Client) (delivered int, slow []*Client) {
	for client := range a.clients {
		if client == except {
			continue
		}
		if !client.offer(event) {
			slow = append(slow, client)
			continue
		}
		delivered++
	}
	return delivered, slow
}

// Clients returns the members in no particular order.
func (a *Audience) Clients() []*Client {
	out := make([]*Client, 0, len(a.clients))
	for c := range a.clients {
		out = append(out, c)
	}
	return out
}

// Len returns the number of members.
func (a *Audience) Len() int {
	return len(a.clients)
}
