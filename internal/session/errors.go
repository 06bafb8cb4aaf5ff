package session

import (
	"errors"
	"fmt"
)

var (
	// ErrRelayUnavailable means the signaling channel could not be opened.
	// Fatal to the create/join attempt, never retried automatically.
	ErrRelayUnavailable = errors.New("relay unavailable")

	// ErrRoomNotFound means the room code is unknown to the relay.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomFull means the relay's participant cap was exceeded.
	ErrRoomFull = errors.New("room is full")

	// ErrNegotiationTimeout means a peer did not answer within the
	// configured window. Only that peer link is dropped.
	ErrNegotiationTimeout = errors.New("negotiation timed out")

	// ErrMediaAcquisition means local capture could not be prepared.
	ErrMediaAcquisition = errors.New("could not acquire local media")

	// ErrChannelLost means the relay connection dropped mid-session.
	ErrChannelLost = errors.New("signaling channel lost")

	// ErrPeerClosed means the remote peer ended the connection.
	ErrPeerClosed = errors.New("peer closed the connection")

	// ErrUnexpectedSignal means a negotiation message arrived in a state
	// that does not accept it.
	ErrUnexpectedSignal = errors.New("unexpected signal")
)

// SessionError annotates a failure with the operation and, when the failure
// concerns a single peer link, that peer's identity.
type SessionError struct {
	Op      string
	Peer    string
	Err     error
	Details string
}

func (e *SessionError) Error() string {
	if e.Peer != "" {
		return fmt.Sprintf("%s (peer %s): %v", e.Op, e.Peer, e.Err)
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *SessionError {
	return &SessionError{Op: op, Err: err}
}

func NewPeerError(op, peer string, err error) *SessionError {
	return &SessionError{Op: op, Peer: peer, Err: err}
}

func WrapError(op string, err error, details string) *SessionError {
	return &SessionError{Op: op, Err: err, Details: details}
}
