package signaling

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaveenKathirM/smartclassroom/internal/protocol"
)

func TestHandlerRoutesMessages(t *testing.T) {
	client := NewClient("ws://unused.invalid/ws")
	handler := NewHandler(client)

	go handler.Start()

	client.incoming <- &protocol.Message{
		Type:    protocol.TypePeerJoined,
		Payload: json.RawMessage(`{"peer_id":"peer-1"}`),
	}
	client.incoming <- &protocol.Message{
		Type:    protocol.TypeOffer,
		From:    "peer-1",
		Payload: json.RawMessage(`{"type":"offer","sdp":"x"}`),
	}
	client.incoming <- &protocol.Message{
		Type:    protocol.TypeReceiveMessage,
		From:    "peer-1",
		Seq:     7,
		Payload: json.RawMessage(`{"user":"student","text":"hello"}`),
	}

	select {
	case id := <-handler.PeerJoined:
		assert.Equal(t, "peer-1", id)
	case <-time.After(time.Second):
		t.Fatal("peer-joined not routed")
	}

	select {
	case sig := <-handler.Signals:
		assert.Equal(t, protocol.TypeOffer, sig.Type)
		assert.Equal(t, "peer-1", sig.From)
	case <-time.After(time.Second):
		t.Fatal("offer not routed")
	}

	select {
	case m := <-handler.Chat:
		assert.Equal(t, "student", m.User)
		assert.Equal(t, "hello", m.Text)
		assert.Equal(t, uint64(7), m.Seq)
	case <-time.After(time.Second):
		t.Fatal("chat not routed")
	}

	close(client.incoming)
	select {
	case <-handler.Done:
	case <-time.After(time.Second):
		t.Fatal("handler did not close Done")
	}
}

func TestHandlerDrainsAfterClose(t *testing.T) {
	client := NewClient("ws://unused.invalid/ws")
	handler := NewHandler(client)

	go handler.Start()

	// Overfill the signal channel with nobody consuming it, the state a
	// torn-down session leaves behind.
	n := cap(handler.Signals) + 4
	for i := 0; i < n; i++ {
		client.incoming <- &protocol.Message{
			Type:    protocol.TypeICECandidate,
			From:    "peer-1",
			Payload: json.RawMessage(fmt.Sprintf(`{"candidate":"c-%d"}`, i)),
		}
	}

	client.Close()

	// What the read pump does when the connection is gone.
	close(client.incoming)

	// The handler must drop the undeliverable backlog and exit rather
	// than staying blocked on the full channel.
	select {
	case <-handler.Done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler still running after close")
	}

	require.Len(t, handler.Signals, cap(handler.Signals))
}
