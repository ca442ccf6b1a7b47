package presence

import "sync"

// ConnIndex tracks which live connection currently represents which
// participant. Forward: connection -> participant. Reverse: participant ->
// holding connection. A superseded connection keeps its forward entry until
// it is released, so its disconnect can be recognized as stale.
type ConnIndex struct {
	mu     sync.Mutex
	byConn map[string]string
	byID   map[string]string
}

// NewConnIndex creates an empty index.
func NewConnIndex() *ConnIndex {
	return &ConnIndex{
		byConn: make(map[string]string),
		byID:   make(map[string]string),
	}
}

// Claim records that connID now represents id, superseding any previous
// holder of id. If connID was the current holder of a different id, that
// claim is released and the previous id is returned with switched=true.
func (x *ConnIndex) Claim(connID, id string) (previous string, switched bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if prev, ok := x.byConn[connID]; ok && prev != id && x.byID[prev] == connID {
		delete(x.byID, prev)
		previous, switched = prev, true
	}

	x.byConn[connID] = id
	x.byID[id] = connID
	return previous, switched
}

// ReleaseByConnection forgets connID and returns the participant it
// represented, but only if connID was still that participant's holder.
func (x *ConnIndex) ReleaseByConnection(connID string) (string, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	id, ok := x.byConn[connID]
	if !ok {
		return "", false
	}
	delete(x.byConn, connID)

	if x.byID[id] != connID {
		return "", false
	}
	delete(x.byID, id)
	return id, true
}

// Holder returns the connection currently holding id.
func (x *ConnIndex) Holder(id string) (string, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	connID, ok := x.byID[id]
	return connID, ok
}

// Len returns the number of claimed participants.
func (x *ConnIndex) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.byID)
}
