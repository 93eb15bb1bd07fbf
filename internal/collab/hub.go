package collab

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/geometer/geometer/backend-go/internal/board"
)

// BoardLoader fetches the persisted board of a sketch when its room
// opens. BoardSaver persists the serialized record set.
type (
	BoardLoader func(sketchID string) (*board.Board, error)
	BoardSaver  func(sketchID string, records []byte) error
)

type Room struct {
	sketchID string
	clients  map[string]*Client // clientID -> client
	presence *PresenceTracker
	state    *BoardState
}

func NewRoom(sketchID string, b *board.Board) *Room {
	return &Room{
		sketchID: sketchID,
		clients:  make(map[string]*Client),
		presence: NewPresenceTracker(),
		state:    NewBoardState(b),
	}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // sketchID -> room
	register   chan *Client
	unregister chan *Client

	loader       BoardLoader
	saver        BoardSaver
	saveInterval time.Duration

	stop chan struct{}
	done chan struct{}
}

func NewHub(loader BoardLoader, saver BoardSaver, saveInterval time.Duration) *Hub {
	return &Hub{
		rooms:        make(map[string]*Room),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		loader:       loader,
		saver:        saver,
		saveInterval: saveInterval,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

func (h *Hub) Run() {
	ticker := time.NewTicker(h.saveInterval)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ticker.C:
			h.saveDirtyRooms()
		case <-h.stop:
			h.saveAllRooms()
			return
		}
	}
}

// Stop shuts the hub down, persisting every open room first.
func (h *Hub) Stop() {
	close(h.stop)
	<-h.done
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.SketchID]
	if !ok {
		b, err := h.loader(client.SketchID)
		if err != nil {
			h.mu.Unlock()
			slog.Error("load board", "error", err, "sketch", client.SketchID)
			client.SendError("failed to load sketch")
			close(client.send)
			return
		}
		room = NewRoom(client.SketchID, b)
		h.rooms[client.SketchID] = room
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	// Welcome with the client's server-assigned identity
	welcomePayload, _ := json.Marshal(map[string]string{
		"clientId": client.ClientID,
		"userId":   client.UserID,
	})
	client.Send(&Message{Type: TypeWelcome, ClientID: client.ClientID, Payload: welcomePayload})

	// Full board state for the late joiner
	if msg := boardSyncMessage(room.state); msg != nil {
		client.Send(msg)
	}

	// Current presence state
	if stateMsg := room.presence.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	// Broadcast join to other clients
	joinPayload, _ := json.Marshal(PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	h.broadcastToRoom(client.SketchID, &Message{
		Type:    TypePresenceJoin,
		UserID:  client.UserID,
		Payload: joinPayload,
	}, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "sketch", client.SketchID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.SketchID]
	if !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	close(client.send)
	room.presence.Remove(client.UserID)
	room.state.ReleaseDrag(client.ClientID)

	last := len(room.clients) == 0
	if last {
		delete(h.rooms, client.SketchID)
	}
	h.mu.Unlock()

	if last {
		h.saveRoom(room)
	}

	// Broadcast leave to remaining clients
	leavePayload, _ := json.Marshal(PresenceLeavePayload{UserID: client.UserID})
	h.broadcastToRoom(client.SketchID, &Message{
		Type:    TypePresenceLeave,
		UserID:  client.UserID,
		Payload: leavePayload,
	}, "")

	slog.Info("client left", "user", client.UserID, "sketch", client.SketchID)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeOpSubmit:
		h.handleOpSubmit(sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
	}
}

func (h *Hub) handleOpSubmit(sender *Client, msg *Message) {
	var payload OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		slog.Warn("invalid operation payload", "error", err, "user", sender.UserID)
		return
	}
	op := payload.Operation

	h.mu.RLock()
	room, ok := h.rooms[sender.SketchID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	result, serverSeq, err := room.state.Apply(sender.ClientID, op)
	if err != nil {
		nackPayload, _ := json.Marshal(OperationNackPayload{
			OperationID: op.ID,
			Reason:      err.Error(),
		})
		sender.Send(&Message{Type: TypeOpNack, Payload: nackPayload})
		// Resync the sender so a diverged client converges again
		if sync := boardSyncMessage(room.state); sync != nil {
			sender.Send(sync)
		}
		return
	}

	// Mirror the drag session into presence so late joiners see who is
	// holding which primitive.
	switch op.Type {
	case OpDragBegin:
		if result.CanDrag != nil && *result.CanDrag {
			target := op.Target
			room.presence.SetDragTarget(sender.UserID, &target)
		}
	case OpDragEnd, OpUndo, OpRedo:
		room.presence.SetDragTarget(sender.UserID, nil)
	}

	ackPayload, _ := json.Marshal(OperationAckPayload{
		OperationID:     op.ID,
		ServerSeq:       serverSeq,
		ServerTimestamp: GetServerTimestamp(),
		Result:          result,
	})
	sender.Send(&Message{Type: TypeOpAck, Payload: ackPayload})

	broadcastPayload, _ := json.Marshal(OperationBroadcastPayload{
		Operation: op,
		UserID:    sender.UserID,
		ServerSeq: serverSeq,
		Result:    result,
	})
	h.broadcastToRoom(sender.SketchID, &Message{
		Type:    TypeOpBroadcast,
		UserID:  sender.UserID,
		Payload: broadcastPayload,
	}, sender.ClientID)
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	presence.DisplayName = sender.DisplayName

	h.mu.RLock()
	room, ok := h.rooms[sender.SketchID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	room.presence.Update(sender.UserID, &presence)

	outPayload, _ := json.Marshal(presence)
	h.broadcastToRoom(sender.SketchID, &Message{
		Type:    TypePresenceUpdate,
		UserID:  sender.UserID,
		Payload: outPayload,
	}, sender.ClientID)
}

func (h *Hub) broadcastToRoom(sketchID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[sketchID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}

func (h *Hub) saveDirtyRooms() {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, room := range h.rooms {
		if room.state.Dirty() {
			rooms = append(rooms, room)
		}
	}
	h.mu.RUnlock()

	for _, room := range rooms {
		h.saveRoom(room)
	}
}

func (h *Hub) saveAllRooms() {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, room := range h.rooms {
		rooms = append(rooms, room)
	}
	h.mu.RUnlock()

	for _, room := range rooms {
		h.saveRoom(room)
	}
}

func (h *Hub) saveRoom(room *Room) {
	if !room.state.Dirty() {
		return
	}
	records, _, err := room.state.Serialize()
	if err != nil {
		slog.Error("serialize board", "error", err, "sketch", room.sketchID)
		return
	}
	if err := h.saver(room.sketchID, records); err != nil {
		slog.Error("save board", "error", err, "sketch", room.sketchID)
		return
	}
	room.state.MarkSaved()
	slog.Info("board saved", "sketch", room.sketchID)
}

func boardSyncMessage(state *BoardState) *Message {
	records, seq, err := state.Serialize()
	if err != nil {
		slog.Error("serialize board for sync", "error", err)
		return nil
	}
	payload, _ := json.Marshal(BoardSyncPayload{Records: records, ServerSeq: seq})
	return &Message{Type: TypeBoardSync, Payload: payload}
}
