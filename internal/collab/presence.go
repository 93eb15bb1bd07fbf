package collab

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// PresenceTracker keeps the last announced presence of every user in a
// room: cursor, selected primitive ids and the primitive they are
// dragging. Cursor and selection come from presence.update messages;
// the drag target is server-authoritative and follows the room's drag
// session, so clients cannot claim a drag they do not hold.
type PresenceTracker struct {
	mu     sync.RWMutex
	byUser map[string]*PresencePayload
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{byUser: make(map[string]*PresencePayload)}
}

// Update replaces a user's announced presence, preserving the
// server-set drag target.
func (t *PresenceTracker) Update(userID string, p *PresencePayload) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.byUser[userID]; ok {
		p.DragTarget = prev.DragTarget
	}
	t.byUser[userID] = p
}

// SetDragTarget marks the primitive a user is dragging; nil clears it.
// A user without announced presence gets a bare entry so late joiners
// still see the active drag.
func (t *PresenceTracker) SetDragTarget(userID string, target *int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.byUser[userID]
	if !ok {
		p = &PresencePayload{}
		t.byUser[userID] = p
	}
	p.DragTarget = target
}

func (t *PresenceTracker) Remove(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byUser, userID)
}

// snapshot returns a value copy of every presence, safe to marshal
// after the lock is released.
func (t *PresenceTracker) snapshot() map[string]PresencePayload {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]PresencePayload, len(t.byUser))
	for userID, p := range t.byUser {
		out[userID] = *p
	}
	return out
}

// StateMessage builds the presence.state message sent to a joining
// client, or nil when the room is empty of presence.
func (t *PresenceTracker) StateMessage() *Message {
	all := t.snapshot()
	if len(all) == 0 {
		return nil
	}
	payload, err := json.Marshal(PresenceStatePayload{Presences: all})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return &Message{Type: TypePresenceState, Payload: payload}
}
