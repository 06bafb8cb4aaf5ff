package relay

import (
	"encoding/json"

	"github.com/NaveenKathirM/smartclassroom/internal/protocol"
)

// inbound pairs a wire message with the connection that sent it, for
// processing on the hub goroutine.
type inbound struct {
	msg    *protocol.Message
	client *Client
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
