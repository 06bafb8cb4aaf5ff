package session

import (
	"encoding/json"
	"time"
)

// State is the primary negotiation state for one peer link.
type State string

const (
	StateIdle       State = "idle"
	StateOfferSent  State = "offer-sent"
	StateAnswerSent State = "answer-sent"
	StateConnected  State = "connected"
	StateClosed     State = "closed"
)

// negotiator drives the offer/answer/candidate exchange with a single peer.
// Every method runs on the controller's event goroutine, one event at a
// time, so there is no locking here; the answer timer never touches the
// negotiator directly, it only posts the peer ID back to the controller.
type negotiator struct {
	peerID    string
	transport MediaTransport
	state     State

	// pending holds candidates that arrived before the remote description
	// was applied; they are flushed in arrival order the moment it is.
	pending   []json.RawMessage
	remoteSet bool

	answerTimer *time.Timer
}

func newNegotiator(peerID string, transport MediaTransport) *negotiator {
	return &negotiator{
		peerID:    peerID,
		transport: transport,
		state:     StateIdle,
	}
}

// startOffer builds the local offer and moves idle -> offer-sent.
func (n *negotiator) startOffer() (json.RawMessage, error) {
	if n.state != StateIdle {
		return nil, NewPeerError("send offer", n.peerID, ErrUnexpectedSignal)
	}

	offer, err := n.transport.CreateOffer()
	if err != nil {
		return nil, err
	}

	n.state = StateOfferSent
	return offer, nil
}

// handleOffer answers a remote offer, moving idle -> answer-sent directly.
// CreateAnswer applies the remote description, so buffered candidates are
// flushed here.
func (n *negotiator) handleOffer(offer json.RawMessage) (json.RawMessage, error) {
	if n.state != StateIdle {
		return nil, NewPeerError("handle offer", n.peerID, ErrUnexpectedSignal)
	}

	answer, err := n.transport.CreateAnswer(offer)
	if err != nil {
		return nil, err
	}

	n.state = StateAnswerSent
	n.remoteSet = true
	if err := n.flushCandidates(); err != nil {
		return nil, err
	}
	return answer, nil
}

// handleAnswer completes the exchange on the offering side,
// offer-sent -> connected.
func (n *negotiator) handleAnswer(answer json.RawMessage) error {
	if n.state != StateOfferSent {
		return NewPeerError("handle answer", n.peerID, ErrUnexpectedSignal)
	}

	if err := n.transport.AcceptAnswer(answer); err != nil {
		return err
	}

	n.stopAnswerTimer()
	n.state = StateConnected
	n.remoteSet = true
	return n.flushCandidates()
}

// handleCandidate applies a remote candidate, buffering it while the remote
// description is not yet set. Candidates may arrive in any primary state.
func (n *negotiator) handleCandidate(candidate json.RawMessage) error {
	if n.state == StateClosed {
		return nil // late candidates after teardown are expected noise
	}

	if !n.remoteSet {
		n.pending = append(n.pending, candidate)
		return nil
	}

	return n.transport.AddICECandidate(candidate)
}

func (n *negotiator) flushCandidates() error {
	for _, candidate := range n.pending {
		if err := n.transport.AddICECandidate(candidate); err != nil {
			n.pending = nil
			return err
		}
	}
	n.pending = nil
	return nil
}

// markConnected records the transport reaching connected after the answer
// was sent (the answering side has no answer message to wait for).
func (n *negotiator) markConnected() {
	if n.state == StateAnswerSent || n.state == StateOfferSent {
		n.stopAnswerTimer()
		n.state = StateConnected
	}
}

// close releases the transport and discards all buffered state. Reaching
// closed is valid from any state and close is idempotent.
func (n *negotiator) close() error {
	if n.state == StateClosed {
		return nil
	}

	n.stopAnswerTimer()
	n.state = StateClosed
	n.pending = nil
	n.remoteSet = false
	return n.transport.Close()
}

func (n *negotiator) stopAnswerTimer() {
	if n.answerTimer != nil {
		n.answerTimer.Stop()
		n.answerTimer = nil
	}
}
