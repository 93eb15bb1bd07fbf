package collab

import "encoding/json"

type Message struct {
	Type     string          `json:"type"`
	SketchID string          `json:"sketchId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresencePayload struct {
	Cursor      *Vec   `json:"cursor,omitempty"`
	Selection   []int  `json:"selection,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	// DragTarget is the primitive the user is currently dragging.
	// Set by the server from the room's drag session, never by the
	// client.
	DragTarget *int `json:"dragTarget,omitempty"`
}

type PresenceStatePayload struct {
	Presences map[string]PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Board sync (full record set)
	TypeBoardSync = "board.sync"

	// Operation message types
	TypeOpSubmit    = "op.submit"
	TypeOpAck       = "op.ack"
	TypeOpNack      = "op.nack"
	TypeOpBroadcast = "op.broadcast"
)

// --- Operation Types ---

// Operation type tags. Creations reference parents by primitive id;
// drag operations form a begin/move/end session per client.
const (
	OpCreatePoint        = "prim.createPoint"
	OpCreateLine         = "prim.createLine"
	OpCreateCircle       = "prim.createCircle"
	OpCreateIntersection = "prim.createIntersection"
	OpMovePoint          = "prim.move"
	OpDelete             = "prim.delete"
	OpSetSelectable      = "prim.selectable"
	OpDragBegin          = "drag.begin"
	OpDragMove           = "drag.move"
	OpDragEnd            = "drag.end"
	OpUndo               = "board.undo"
	OpRedo               = "board.redo"
)

// Operation represents one board mutation submitted by a client.
type Operation struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	ClientSeq int64  `json:"clientSeq"`

	// Target primitive for move/delete/selectable/drag.begin.
	Target int `json:"target,omitempty"`
	// Parent primitive ids for create operations.
	Parents []int `json:"parents,omitempty"`
	// Position: the new point / move target / intersection approx /
	// drag cursor, depending on Type.
	Pos *Vec `json:"pos,omitempty"`
	// For prim.selectable.
	Selectable *bool `json:"selectable,omitempty"`
}

// OpResult reports what an accepted operation did.
type OpResult struct {
	// Created is the id of the primitive a create operation produced
	// (possibly a pre-existing intersection point).
	Created *int `json:"created,omitempty"`
	// CanDrag reports whether drag.begin acquired a movable dragger.
	CanDrag *bool `json:"canDrag,omitempty"`
	// Offenses lists the primitives blocking a refused drag.
	Offenses []int `json:"offenses,omitempty"`
	// Applied reports whether an undo/redo actually stepped.
	Applied *bool `json:"applied,omitempty"`
}

// OperationSubmitPayload is the payload for op.submit messages.
type OperationSubmitPayload struct {
	Operation Operation `json:"operation"`
}

// OperationAckPayload is the payload for op.ack messages.
type OperationAckPayload struct {
	OperationID     string   `json:"operationId"`
	ServerSeq       int64    `json:"serverSeq"`
	ServerTimestamp int64    `json:"serverTimestamp"`
	Result          OpResult `json:"result"`
}

// OperationNackPayload is the payload for op.nack messages.
type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

// OperationBroadcastPayload is the payload for op.broadcast messages.
type OperationBroadcastPayload struct {
	Operation Operation `json:"operation"`
	UserID    string    `json:"userId"`
	ServerSeq int64     `json:"serverSeq"`
	Result    OpResult  `json:"result"`
}

// BoardSyncPayload carries the full serialized board.
type BoardSyncPayload struct {
	Records   json.RawMessage `json:"records"`
	ServerSeq int64           `json:"serverSeq"`
}
