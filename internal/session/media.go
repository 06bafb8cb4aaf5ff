package session

import "encoding/json"

// TransportState is the connection status a media transport reports upward.
type TransportState string

const (
	TransportConnecting TransportState = "connecting"
	TransportConnected  TransportState = "connected"
	TransportFailed     TransportState = "failed"
	TransportClosed     TransportState = "closed"
)

// MediaTransport is the capability the session drives to establish a direct
// media path with one peer. Descriptions and candidates are opaque JSON
// blobs; the session only sequences the calls, it never inspects them.
//
// CreateAnswer and AcceptAnswer both apply the remote description as their
// first step; the negotiator relies on that to decide when buffered
// candidates may be flushed.
type MediaTransport interface {
	// CreateOffer builds the local offer and applies it as the local
	// description.
	CreateOffer() (json.RawMessage, error)

	// CreateAnswer applies the remote offer and returns the local answer.
	CreateAnswer(offer json.RawMessage) (json.RawMessage, error)

	// AcceptAnswer applies the remote answer on the offering side.
	AcceptAnswer(answer json.RawMessage) error

	// AddICECandidate applies one remote candidate. Callers must not
	// invoke it before a remote description has been applied.
	AddICECandidate(candidate json.RawMessage) error

	// OnICECandidate registers the callback for locally gathered
	// candidates. A nil payload is never delivered.
	OnICECandidate(fn func(candidate json.RawMessage))

	// OnStateChange registers the callback for connection status changes.
	// Callbacks may fire from transport-internal goroutines.
	OnStateChange(fn func(TransportState))

	// Close releases the transport. Safe to call more than once.
	Close() error
}

// TransportFactory builds one MediaTransport per remote peer.
type TransportFactory func(peerID string) (MediaTransport, error)
