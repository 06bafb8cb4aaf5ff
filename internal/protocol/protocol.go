// Package protocol defines the wire messages exchanged between participants
// and the signaling relay. Both the relay and the client session speak this
// protocol; offer, answer and ice-candidate payloads are opaque here and only
// interpreted by the media transport at either end.
package protocol

import "encoding/json"

// Event types carried in Message.Type.
const (
	TypeCreateRoom   = "create-room"
	TypeJoinRoom     = "join-room"
	TypeSendMessage  = "send-message"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"

	TypeRoomCreated    = "room-created"
	TypeExistingPeers  = "existing-peers"
	TypePeerJoined     = "peer-joined"
	TypePeerLeft       = "peer-left"
	TypeReceiveMessage = "receive-message"
	TypeError          = "error"
)

// Message is the wire envelope for every client-to-relay and relay-to-client
// event. From and To are relay-assigned participant identities; the relay
// fills From when routing and requires To on negotiation messages.
type Message struct {
	Type    string          `json:"type"`
	RoomID  string          `json:"room_id,omitempty"`
	From    string          `json:"from,omitempty"`
	To      string          `json:"to,omitempty"`
	Seq     uint64          `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RoomCreatedPayload confirms room creation to the presenter.
type RoomCreatedPayload struct {
	RoomID string `json:"room_id"`
	SelfID string `json:"self_id"`
}

// ExistingPeersPayload tells a joiner its own relay-assigned identity and
// who is already present, in join order.
type ExistingPeersPayload struct {
	SelfID  string   `json:"self_id"`
	PeerIDs []string `json:"peer_ids"`
}

// PeerPayload carries a single participant identity (peer-joined, peer-left).
type PeerPayload struct {
	PeerID string `json:"peer_id"`
}

// ChatPayload is the body of send-message and receive-message events.
type ChatPayload struct {
	User string `json:"user"`
	Text string `json:"text"`
}

// ErrorPayload carries a relay error back to the offending client.
type ErrorPayload struct {
	Error string `json:"error"`
}

// Relay error strings surfaced to clients.
const (
	ErrTextRoomNotFound      = "room not found"
	ErrTextRoomFull          = "room is full"
	ErrTextNotInRoom         = "you must join a room first"
	ErrTextAlreadyInRoom     = "already in a room"
	ErrTextPeerNotRegistered = "peer not registered"
)
