package signaling

import (
	"encoding/json"

	"github.com/NaveenKathirM/smartclassroom/internal/protocol"
)

// Signal is one inbound negotiation message (offer, answer or ice-candidate)
// from a specific peer. The payload stays opaque for the media transport to
// interpret.
type Signal struct {
	Type    string
	From    string
	Payload json.RawMessage
}

// ChatMessage is one relay-sequenced chat line.
type ChatMessage struct {
	From string
	User string
	Text string
	Seq  uint64
}

// Handler routes incoming relay messages to typed channels.
type Handler struct {
	client        *Client
	RoomCreated   chan *protocol.RoomCreatedPayload
	ExistingPeers chan *protocol.ExistingPeersPayload
	PeerJoined    chan string
	PeerLeft      chan string
	Signals       chan *Signal
	Chat          chan *ChatMessage
	Errors        chan string

	// Done is closed when the relay connection is lost.
	Done chan struct{}
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:        client,
		RoomCreated:   make(chan *protocol.RoomCreatedPayload, 1),
		ExistingPeers: make(chan *protocol.ExistingPeersPayload, 1),
		PeerJoined:    make(chan string, 8),
		PeerLeft:      make(chan string, 8),
		Signals:       make(chan *Signal, 32),
		Chat:          make(chan *ChatMessage, 32),
		Errors:        make(chan string, 1),
		Done:          make(chan struct{}),
	}
}

// Start listens to incoming messages and routes them until the connection
// drops. Run it in its own goroutine. Once the client is closed, messages
// nobody consumes anymore are dropped so the pump keeps draining and exits
// instead of blocking on a full channel.
func (h *Handler) Start() {
	for msg := range h.client.Incoming() {

		switch msg.Type {

		case protocol.TypeRoomCreated:
			var p protocol.RoomCreatedPayload
			if json.Unmarshal(msg.Payload, &p) == nil {
				select {
				case h.RoomCreated <- &p:
				case <-h.client.Done():
				}
			}

		case protocol.TypeExistingPeers:
			var p protocol.ExistingPeersPayload
			if json.Unmarshal(msg.Payload, &p) == nil {
				select {
				case h.ExistingPeers <- &p:
				case <-h.client.Done():
				}
			}

		case protocol.TypePeerJoined:
			var p protocol.PeerPayload
			if json.Unmarshal(msg.Payload, &p) == nil {
				select {
				case h.PeerJoined <- p.PeerID:
				case <-h.client.Done():
				}
			}

		case protocol.TypePeerLeft:
			var p protocol.PeerPayload
			if json.Unmarshal(msg.Payload, &p) == nil {
				select {
				case h.PeerLeft <- p.PeerID:
				case <-h.client.Done():
				}
			}

		case protocol.TypeOffer, protocol.TypeAnswer, protocol.TypeICECandidate:
			select {
			case h.Signals <- &Signal{Type: msg.Type, From: msg.From, Payload: msg.Payload}:
			case <-h.client.Done():
			}

		case protocol.TypeReceiveMessage:
			var p protocol.ChatPayload
			if json.Unmarshal(msg.Payload, &p) == nil {
				select {
				case h.Chat <- &ChatMessage{From: msg.From, User: p.User, Text: p.Text, Seq: msg.Seq}:
				case <-h.client.Done():
				}
			}

		case protocol.TypeError:
			var p protocol.ErrorPayload
			if json.Unmarshal(msg.Payload, &p) != nil {
				p.Error = "unknown error from relay"
			}
			select {
			case h.Errors <- p.Error:
			case <-h.client.Done():
			}

		default:

		}
	}

	close(h.Done)
}
