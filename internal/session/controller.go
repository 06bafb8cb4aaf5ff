package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NaveenKathirM/smartclassroom/internal/config"
	"github.com/NaveenKathirM/smartclassroom/internal/protocol"
	"github.com/NaveenKathirM/smartclassroom/internal/signaling"
)

// Role of this participant within its room.
type Role string

const (
	RolePresenter Role = "presenter"
	RoleViewer    Role = "viewer"
)

// Status is the per-peer connection status surfaced to the caller. A peer is
// either connecting, connected, or gone (failed/closed); no partial states
// are exposed.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusFailed     Status = "failed"
	StatusClosed     Status = "closed"
)

// PeerEvent notifies the caller of one peer's status change.
type PeerEvent struct {
	PeerID string
	Status Status
	Err    error
}

// peerState carries a transport state callback onto the controller loop.
type peerState struct {
	peerID string
	state  TransportState
}

// Controller owns one participant's session: the signaling connection, one
// negotiator per remote peer, and the chat subscription. All negotiator
// state is driven from a single event goroutine, so events for the same
// peer never race, while distinct peers progress independently.
type Controller struct {
	cfg     *config.Config
	client  *signaling.Client
	handler *signaling.Handler
	factory TransportFactory

	releaseMedia func()

	selfID string
	roomID string
	role   Role

	negotiators map[string]*negotiator

	timeouts chan string
	states   chan peerState
	leaving  chan struct{}
	finished chan struct{}

	events chan PeerEvent
	chat   chan *signaling.ChatMessage

	started   atomic.Bool
	leaveOnce sync.Once
	teardown  sync.Once

	log *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithMediaRelease registers the function that stops local capture during
// teardown. The presenter passes one; viewers have nothing to stop.
func WithMediaRelease(fn func()) Option {
	return func(c *Controller) { c.releaseMedia = fn }
}

// New builds a Controller talking to the relay at cfg.WebSocketURL. The
// factory is invoked once per remote peer when a negotiation starts.
func New(cfg *config.Config, factory TransportFactory, opts ...Option) *Controller {
	client := signaling.NewClient(cfg.WebSocketURL)
	c := &Controller{
		cfg:         cfg,
		client:      client,
		handler:     signaling.NewHandler(client),
		factory:     factory,
		negotiators: make(map[string]*negotiator),
		timeouts:    make(chan string, 8),
		states:      make(chan peerState, 8),
		leaving:     make(chan struct{}),
		finished:    make(chan struct{}),
		events:      make(chan PeerEvent, 16),
		chat:        make(chan *signaling.ChatMessage, 64),
		log:         slog.With("component", "session"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Present opens a fresh room with this participant as presenter and returns
// the shareable room code.
func (c *Controller) Present(ctx context.Context) (string, error) {
	if err := c.connect(); err != nil {
		return "", err
	}

	c.client.SendMessage(&protocol.Message{Type: protocol.TypeCreateRoom})

	select {
	case p := <-c.handler.RoomCreated:
		c.selfID, c.roomID, c.role = p.SelfID, p.RoomID, RolePresenter
	case errText := <-c.handler.Errors:
		c.client.Close()
		return "", WrapError("create room", ErrRelayUnavailable, errText)
	case <-c.handler.Done:
		return "", NewError("create room", ErrChannelLost)
	case <-ctx.Done():
		c.client.Close()
		return "", ctx.Err()
	}

	c.start()
	return c.roomID, nil
}

// Join enters an existing room as viewer and returns the identities of the
// participants already present, in join order.
func (c *Controller) Join(ctx context.Context, roomID string) ([]string, error) {
	if err := c.connect(); err != nil {
		return nil, err
	}

	c.client.SendMessage(&protocol.Message{Type: protocol.TypeJoinRoom, RoomID: roomID})

	var peers []string
	select {
	case p := <-c.handler.ExistingPeers:
		c.selfID, c.roomID, c.role = p.SelfID, roomID, RoleViewer
		peers = p.PeerIDs
	case errText := <-c.handler.Errors:
		c.client.Close()
		switch errText {
		case protocol.ErrTextRoomNotFound:
			return nil, NewError("join room", ErrRoomNotFound)
		case protocol.ErrTextRoomFull:
			return nil, NewError("join room", ErrRoomFull)
		default:
			return nil, WrapError("join room", ErrRelayUnavailable, errText)
		}
	case <-c.handler.Done:
		return nil, NewError("join room", ErrChannelLost)
	case <-ctx.Done():
		c.client.Close()
		return nil, ctx.Err()
	}

	c.start()
	return peers, nil
}

func (c *Controller) connect() error {
	if err := c.client.Connect(); err != nil {
		return WrapError("open signaling channel", ErrRelayUnavailable, err.Error())
	}
	go c.handler.Start()
	return nil
}

func (c *Controller) start() {
	c.started.Store(true)
	go c.run()
}

// SelfID returns the relay-assigned identity of this participant.
func (c *Controller) SelfID() string { return c.selfID }

// RoomID returns the room this session belongs to.
func (c *Controller) RoomID() string { return c.roomID }

// Role returns whether this session presents or views.
func (c *Controller) Role() Role { return c.role }

// Events surfaces per-peer status changes. The channel closes on teardown.
func (c *Controller) Events() <-chan PeerEvent { return c.events }

// Messages surfaces relay-ordered chat. The channel closes on teardown.
func (c *Controller) Messages() <-chan *signaling.ChatMessage { return c.chat }

// SendChat submits a chat line; it appears on Messages only once the relay
// has sequenced and echoed it, so every participant sees the same order.
func (c *Controller) SendChat(text string) {
	payload, err := json.Marshal(protocol.ChatPayload{User: c.cfg.DisplayName, Text: text})
	if err != nil {
		return
	}
	c.client.SendMessage(&protocol.Message{
		Type:    protocol.TypeSendMessage,
		RoomID:  c.roomID,
		Payload: payload,
	})
}

// Leave tears the session down: local media, every negotiator, then the
// signaling channel, whose closure removes this participant from the relay
// registry. Safe to call multiple times and after a disconnect.
func (c *Controller) Leave() {
	if !c.started.Load() {
		c.release(nil)
		return
	}

	c.leaveOnce.Do(func() { close(c.leaving) })
	<-c.finished
}

// run is the session event loop: relay events are handled one at a time to
// completion, so no two events for the same negotiator ever execute
// concurrently.
func (c *Controller) run() {
	defer close(c.finished)

	for {
		select {
		case peerID := <-c.handler.PeerJoined:
			c.onPeerJoined(peerID)

		case peerID := <-c.handler.PeerLeft:
			c.onPeerLeft(peerID)

		case sig := <-c.handler.Signals:
			c.onSignal(sig)

		case m := <-c.handler.Chat:
			select {
			case c.chat <- m:
			case <-c.leaving:
				c.release(nil)
				return
			}

		case errText := <-c.handler.Errors:
			c.log.Warn("relay reported error", "error", errText)

		case peerID := <-c.timeouts:
			c.onAnswerTimeout(peerID)

		case ps := <-c.states:
			c.onTransportState(ps)

		case <-c.handler.Done:
			c.release(ErrChannelLost)
			return

		case <-c.leaving:
			c.release(nil)
			return
		}
	}
}

// onPeerJoined starts a negotiation with the new arrival. Only the
// presenter initiates: in the fan-out topology it is always the
// earlier-present side of every pair that needs a media path, which keeps
// the initiator rule deterministic and glare-free.
func (c *Controller) onPeerJoined(peerID string) {
	c.log.Info("peer joined", "peer", peerID)

	if c.role != RolePresenter {
		return
	}

	// A duplicate announcement for a peer already being negotiated must
	// not replace the live negotiator and leak its transport.
	if _, ok := c.negotiators[peerID]; ok {
		c.log.Warn("duplicate peer announcement ignored", "peer", peerID)
		return
	}

	neg, err := c.createNegotiator(peerID)
	if err != nil {
		c.emit(peerID, StatusFailed, err)
		return
	}

	offer, err := neg.startOffer()
	if err != nil {
		c.failPeer(peerID, err)
		return
	}

	c.send(protocol.TypeOffer, peerID, offer)
	neg.answerTimer = time.AfterFunc(c.cfg.AnswerWait, func() {
		select {
		case c.timeouts <- peerID:
		case <-c.finished:
		}
	})
	c.emit(peerID, StatusConnecting, nil)
}

func (c *Controller) onPeerLeft(peerID string) {
	c.log.Info("peer left", "peer", peerID)

	neg, ok := c.negotiators[peerID]
	if !ok {
		return
	}
	neg.close()
	delete(c.negotiators, peerID)
	c.emit(peerID, StatusClosed, NewPeerError("peer connection", peerID, ErrPeerClosed))
}

func (c *Controller) onSignal(sig *signaling.Signal) {
	switch sig.Type {

	case protocol.TypeOffer:
		neg, err := c.negotiatorFor(sig.From)
		if err != nil {
			c.emit(sig.From, StatusFailed, err)
			return
		}
		answer, err := neg.handleOffer(sig.Payload)
		if err != nil {
			c.failPeer(sig.From, err)
			return
		}
		c.send(protocol.TypeAnswer, sig.From, answer)
		c.emit(sig.From, StatusConnecting, nil)

	case protocol.TypeAnswer:
		neg, ok := c.negotiators[sig.From]
		if !ok {
			c.log.Warn("answer from unknown peer", "peer", sig.From)
			return
		}
		if err := neg.handleAnswer(sig.Payload); err != nil {
			c.failPeer(sig.From, err)
			return
		}
		c.emit(sig.From, StatusConnected, nil)

	case protocol.TypeICECandidate:
		neg, err := c.negotiatorFor(sig.From)
		if err != nil {
			c.emit(sig.From, StatusFailed, err)
			return
		}
		if err := neg.handleCandidate(sig.Payload); err != nil {
			// A bad candidate is not fatal; others may still connect the pair.
			c.log.Warn("candidate rejected", "peer", sig.From, "error", err)
		}
	}
}

func (c *Controller) onAnswerTimeout(peerID string) {
	neg, ok := c.negotiators[peerID]
	if !ok || neg.state != StateOfferSent {
		return
	}

	c.log.Warn("peer did not answer in time", "peer", peerID)
	c.failPeer(peerID, NewPeerError("await answer", peerID, ErrNegotiationTimeout))
}

func (c *Controller) onTransportState(ps peerState) {
	neg, ok := c.negotiators[ps.peerID]
	if !ok {
		return
	}

	switch ps.state {
	case TransportConnected:
		if neg.state != StateConnected {
			neg.markConnected()
			c.emit(ps.peerID, StatusConnected, nil)
		}
	case TransportFailed:
		c.failPeer(ps.peerID, NewPeerError("media path", ps.peerID, ErrPeerClosed))
	case TransportClosed:
		neg.close()
		delete(c.negotiators, ps.peerID)
		c.emit(ps.peerID, StatusClosed, nil)
	}
}

// negotiatorFor returns the peer's negotiator, creating an idle one on
// first contact. Viewers build theirs here when the presenter's offer (or
// an early candidate) arrives.
func (c *Controller) negotiatorFor(peerID string) (*negotiator, error) {
	if neg, ok := c.negotiators[peerID]; ok {
		return neg, nil
	}
	return c.createNegotiator(peerID)
}

func (c *Controller) createNegotiator(peerID string) (*negotiator, error) {
	transport, err := c.factory(peerID)
	if err != nil {
		return nil, err
	}

	// Locally gathered candidates go straight out; they touch no
	// negotiator state, so sending from the transport's goroutine is safe.
	transport.OnICECandidate(func(candidate json.RawMessage) {
		c.send(protocol.TypeICECandidate, peerID, candidate)
	})

	transport.OnStateChange(func(state TransportState) {
		select {
		case c.states <- peerState{peerID: peerID, state: state}:
		case <-c.finished:
		}
	})

	neg := newNegotiator(peerID, transport)
	c.negotiators[peerID] = neg
	return neg, nil
}

// failPeer drops a single peer link, leaving every other negotiation
// untouched.
func (c *Controller) failPeer(peerID string, err error) {
	if neg, ok := c.negotiators[peerID]; ok {
		neg.close()
		delete(c.negotiators, peerID)
	}
	c.emit(peerID, StatusFailed, err)
}

func (c *Controller) send(msgType, to string, payload json.RawMessage) {
	c.client.SendMessage(&protocol.Message{
		Type:    msgType,
		RoomID:  c.roomID,
		To:      to,
		Payload: payload,
	})
}

func (c *Controller) emit(peerID string, status Status, err error) {
	select {
	case c.events <- PeerEvent{PeerID: peerID, Status: status, Err: err}:
	default:
		c.log.Warn("event buffer full, dropping status", "peer", peerID, "status", status)
	}
}

// release runs the single resource-release sequence: stop local media,
// close every negotiator (which releases its media transport), close the
// signaling channel. The relay removes the registry entry when the channel
// closes, deleting the room if this was the last participant.
func (c *Controller) release(cause error) {
	c.teardown.Do(func() {
		c.log.Info("tearing down session", "room", c.roomID, "cause", cause)

		if c.releaseMedia != nil {
			c.releaseMedia()
		}

		for id, neg := range c.negotiators {
			neg.close()
			delete(c.negotiators, id)
			c.emit(id, StatusClosed, cause)
		}

		c.client.Close()

		close(c.events)
		close(c.chat)
	})
}
