package relay

import (
	"log/slog"

	"github.com/NaveenKathirM/smartclassroom/internal/protocol"
)

// Participant roles.
const (
	RolePresenter = "presenter"
	RoleViewer    = "viewer"
)

// DefaultRoomCap bounds how many participants a room accepts, presenter
// included. Zero means unlimited.
const DefaultRoomCap = 0

// Hub is the central brain of the relay.
// It manages all active rooms and clients.
type Hub struct {
	// Rooms maps room codes to Room instances.
	Rooms map[string]*Room

	// RoomCap caps participants per room (0 = unlimited).
	RoomCap int

	// Register is a channel for registering new clients.
	Register chan *Client

	// Unregister is a channel for unregistering clients.
	Unregister chan *Client

	// Inbound is the channel clients push their messages to.
	// The hub processes them one at a time.
	Inbound chan *inbound

	log *slog.Logger
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		Rooms:      make(map[string]*Room),
		RoomCap:    DefaultRoomCap,
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *inbound),
		log:        slog.With("component", "hub"),
	}
}

// generateRoomID creates a unique room code, retrying on the (unlikely)
// collision with a live room.
func (h *Hub) generateRoomID() string {
	for {
		id := generateRoomCode()
		if _, ok := h.Rooms[id]; !ok {
			return id
		}
	}
}

// Run starts the hub's main processing loop.
// This is the single goroutine that safely manages all state (rooms,
// clients), so membership mutation and chat sequencing are serialized
// per room by construction.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			// The client is not in a room yet. They need to send a
			// create-room or join-room message first.
			h.log.Debug("client registered", "participant", client.ID)

		case client := <-h.Unregister:
			h.removeFromRoom(client)
			close(client.Send)

		case in := <-h.Inbound:
			h.dispatch(in)
		}
	}
}

// dispatch handles one inbound client message to completion.
func (h *Hub) dispatch(in *inbound) {
	switch in.msg.Type {

	case protocol.TypeCreateRoom:
		h.handleCreateRoom(in.client)

	case protocol.TypeJoinRoom:
		h.handleJoinRoom(in.client, in.msg.RoomID)

	case protocol.TypeOffer, protocol.TypeAnswer, protocol.TypeICECandidate:
		h.handleSignal(in)

	case protocol.TypeSendMessage:
		h.handleChat(in)

	default:
		h.log.Warn("unknown message type", "type", in.msg.Type, "participant", in.client.ID)
	}
}

// handleCreateRoom opens a fresh room with the caller as presenter. A
// client already in a room is bounced: accepting it would register the
// same connection twice.
func (h *Hub) handleCreateRoom(client *Client) {
	if client.RoomID != "" {
		h.log.Info("create failed, already in a room", "room", client.RoomID, "participant", client.ID)
		h.sendError(client, protocol.ErrTextAlreadyInRoom)
		return
	}

	roomID := h.generateRoomID()
	room := newRoom(roomID, client)
	h.Rooms[roomID] = room
	client.RoomID = roomID
	client.Role = RolePresenter

	roomsActive.Inc()
	participantsActive.Inc()
	h.log.Info("room created", "room", roomID, "presenter", client.ID)

	h.deliver(client, &protocol.Message{
		Type:   protocol.TypeRoomCreated,
		RoomID: roomID,
		Payload: mustMarshal(protocol.RoomCreatedPayload{
			RoomID: roomID,
			SelfID: client.ID,
		}),
	})
}

// handleJoinRoom adds the caller to an existing room as viewer. The joiner
// learns the existing peers and the existing peers learn of the joiner in
// the same hub iteration, so no peer pair is ever only half-aware of the
// other.
func (h *Hub) handleJoinRoom(client *Client, roomID string) {
	if client.RoomID != "" {
		h.log.Info("join failed, already in a room", "room", client.RoomID, "participant", client.ID)
		h.sendError(client, protocol.ErrTextAlreadyInRoom)
		return
	}

	room, ok := h.Rooms[roomID]
	if !ok {
		h.log.Info("join failed, room not found", "room", roomID, "participant", client.ID)
		h.sendError(client, protocol.ErrTextRoomNotFound)
		return
	}

	if h.RoomCap > 0 && len(room.members) >= h.RoomCap {
		h.log.Info("join failed, room full", "room", roomID, "participant", client.ID)
		h.sendError(client, protocol.ErrTextRoomFull)
		return
	}

	peers := room.peerIDs(nil) // snapshot before the joiner is added
	room.add(client)
	client.RoomID = roomID
	client.Role = RoleViewer

	participantsActive.Inc()
	h.log.Info("participant joined", "room", roomID, "participant", client.ID)

	// Notify existing members first so the earlier-present side can take
	// the offer-initiator role the moment it learns of the new peer.
	joined := mustMarshal(protocol.PeerPayload{PeerID: client.ID})
	for _, m := range room.members {
		if m == client {
			continue
		}
		h.deliver(m, &protocol.Message{Type: protocol.TypePeerJoined, RoomID: roomID, Payload: joined})
	}

	h.deliver(client, &protocol.Message{
		Type:   protocol.TypeExistingPeers,
		RoomID: roomID,
		Payload: mustMarshal(protocol.ExistingPeersPayload{
			SelfID:  client.ID,
			PeerIDs: peers,
		}),
	})
}

// handleSignal routes an offer, answer or ice-candidate to its target peer.
// A signal aimed at a peer the registry does not know is bounced back as an
// error, never dropped on the floor.
func (h *Hub) handleSignal(in *inbound) {
	client := in.client

	if client.RoomID == "" {
		h.sendError(client, protocol.ErrTextNotInRoom)
		return
	}

	room, ok := h.Rooms[client.RoomID]
	if !ok {
		h.sendError(client, protocol.ErrTextRoomNotFound)
		return
	}

	target := room.member(in.msg.To)
	if target == nil {
		h.log.Info("signal target unknown", "room", room.ID, "type", in.msg.Type, "to", in.msg.To)
		h.sendError(client, protocol.ErrTextPeerNotRegistered)
		return
	}

	signalsRelayed.WithLabelValues(in.msg.Type).Inc()

	h.deliver(target, &protocol.Message{
		Type:    in.msg.Type,
		RoomID:  room.ID,
		From:    client.ID,
		To:      target.ID,
		Payload: in.msg.Payload,
	})
}

// handleChat assigns the room's next sequence number and fans the message
// out to every member, sender included, so every participant renders the
// same relay-confirmed order.
func (h *Hub) handleChat(in *inbound) {
	client := in.client

	if client.RoomID == "" {
		h.sendError(client, protocol.ErrTextNotInRoom)
		return
	}

	room, ok := h.Rooms[client.RoomID]
	if !ok {
		h.sendError(client, protocol.ErrTextRoomNotFound)
		return
	}

	seq := room.nextSeq()
	chatMessages.Inc()

	out := &protocol.Message{
		Type:    protocol.TypeReceiveMessage,
		RoomID:  room.ID,
		From:    client.ID,
		Seq:     seq,
		Payload: in.msg.Payload,
	}
	for _, m := range room.members {
		h.deliver(m, out)
	}
}

// removeFromRoom takes a disconnected client out of its room, tells the
// remaining members, and deletes the room once the last member leaves.
func (h *Hub) removeFromRoom(client *Client) {
	if client.RoomID == "" {
		h.log.Debug("client unregistered", "participant", client.ID)
		return
	}

	room, ok := h.Rooms[client.RoomID]
	if !ok || !room.remove(client) {
		return
	}

	participantsActive.Dec()
	h.log.Info("participant left", "room", room.ID, "participant", client.ID)

	if room.empty() {
		delete(h.Rooms, room.ID)
		roomsActive.Dec()
		h.log.Info("room deleted", "room", room.ID)
		return
	}

	left := mustMarshal(protocol.PeerPayload{PeerID: client.ID})
	for _, m := range room.members {
		h.deliver(m, &protocol.Message{Type: protocol.TypePeerLeft, RoomID: room.ID, Payload: left})
	}
}

func (h *Hub) sendError(client *Client, text string) {
	h.deliver(client, &protocol.Message{
		Type:    protocol.TypeError,
		Payload: mustMarshal(protocol.ErrorPayload{Error: text}),
	})
}

// deliver queues a message without blocking the hub; a participant whose
// send buffer is full has a stuck connection and will be reaped by its
// write deadline.
func (h *Hub) deliver(client *Client, msg *protocol.Message) {
	select {
	case client.Send <- msg:
	default:
		h.log.Warn("send buffer full, dropping message", "participant", client.ID, "type", msg.Type)
	}
}
