// Package presence keeps the in-memory registry of which user is reachable
// on which live connection, and delivers chat events between them.
package presence

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Server to client event names.
const (
	EventGetUsers   = "getUsers"
	EventOwnMessage = "ownMessage"
	EventNewMessage = "newMessage"
)

// Conn is a live client connection. Send must not block: implementations
// enqueue onto a bounded buffer and report false when it is full or closed.
type Conn interface {
	ID() string
	Send(event string, data any) bool
}

// Record binds a user to the connection it announced itself on.
type Record struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

// MessageEvent is a point to point chat message. Payload is forwarded as is.
type MessageEvent struct {
	SenderID   string          `json:"senderId"`
	ReceiverID string          `json:"receiverId"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Router owns the presence registry. One mutex guards the registry and the
// connection set, and is held across each read-modify-broadcast sequence so
// every connection observes snapshots in the order they were produced.
type Router struct {
	mu      sync.Mutex
	conns   map[string]Conn
	order   []string
	records []Record
	logger  *slog.Logger
}

// NewRouter creates an empty Router.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		conns:  make(map[string]Conn),
		logger: logger,
	}
}

// Attach registers a connection so it receives presence broadcasts.
func (r *Router) Attach(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c.ID()]; !ok {
		r.order = append(r.order, c.ID())
	}
	r.conns[c.ID()] = c
}

// AnnounceOnline replaces any record of userID (and any record already held
// by connID) with {userID, connID}, then broadcasts the full registry.
func (r *Router) AnnounceOnline(userID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.records[:0]
	for _, rec := range r.records {
		if rec.UserID == userID || rec.ConnectionID == connID {
			continue
		}
		kept = append(kept, rec)
	}
	r.records = append(kept, Record{UserID: userID, ConnectionID: connID})

	r.logger.Debug("user online", "user_id", userID, "conn_id", connID, "online", len(r.records))
	r.broadcastLocked()
}

// RouteMessage sends ownMessage to the sender's connection and newMessage to
// the receiver's. It delivers nothing and returns false unless both users
// are online.
func (r *Router) RouteMessage(msg MessageEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sender, okS := r.lookupLocked(msg.SenderID)
	receiver, okR := r.lookupLocked(msg.ReceiverID)
	if !okS || !okR {
		r.logger.Debug("message dropped", "sender_id", msg.SenderID, "receiver_id", msg.ReceiverID,
			"sender_online", okS, "receiver_online", okR)
		return false
	}

	r.sendLocked(sender.ConnectionID, EventOwnMessage, msg)
	r.sendLocked(receiver.ConnectionID, EventNewMessage, msg)
	return true
}

// Disconnect forgets connID and every record bound to it, then broadcasts
// the registry to the remaining connections.
func (r *Router) Disconnect(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.records[:0]
	for _, rec := range r.records {
		if rec.ConnectionID != connID {
			kept = append(kept, rec)
		}
	}
	r.records = kept

	if _, ok := r.conns[connID]; ok {
		delete(r.conns, connID)
		for i, id := range r.order {
			if id == connID {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}

	r.broadcastLocked()
}

// Online returns a copy of the registry.
func (r *Router) Online() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Connections reports how many connections are attached.
func (r *Router) Connections() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

func (r *Router) lookupLocked(userID string) (Record, bool) {
	for _, rec := range r.records {
		if rec.UserID == userID {
			return rec, true
		}
	}
	return Record{}, false
}

func (r *Router) snapshotLocked() []Record {
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

func (r *Router) broadcastLocked() {
	snapshot := r.snapshotLocked()
	for _, id := range r.order {
		r.sendLocked(id, EventGetUsers, snapshot)
	}
}

func (r *Router) sendLocked(connID, event string, data any) {
	c, ok := r.conns[connID]
	if !ok {
		return
	}
	if !c.Send(event, data) {
		r.logger.Warn("outbound queue full, event dropped", "conn_id", connID, "event", event)
	}
}
