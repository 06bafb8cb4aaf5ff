package session

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaveenKathirM/smartclassroom/internal/config"
	"github.com/NaveenKathirM/smartclassroom/internal/protocol"
	"github.com/NaveenKathirM/smartclassroom/internal/relay"
	"github.com/NaveenKathirM/smartclassroom/internal/server"
	"github.com/NaveenKathirM/smartclassroom/internal/signaling"
)

func newRelayServer(t *testing.T) *httptest.Server {
	t.Helper()

	hub := relay.NewHub()
	go hub.Run()

	srv := httptest.NewServer(server.Routes(hub))
	t.Cleanup(srv.Close)
	return srv
}

func relayConfig(srv *httptest.Server, name string) *config.Config {
	return &config.Config{
		WebSocketURL: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		DisplayName:  name,
		AnswerWait:   5 * time.Second,
	}
}

// fakeFactory hands out one recording transport per peer.
type fakeFactory struct {
	mu         sync.Mutex
	transports map[string]*fakeTransport
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{transports: make(map[string]*fakeTransport)}
}

func (f *fakeFactory) factory(peerID string) (MediaTransport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tr := &fakeTransport{}
	f.transports[peerID] = tr
	return tr, nil
}

func (f *fakeFactory) transport(peerID string) *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transports[peerID]
}

func awaitStatus(t *testing.T, ctrl *Controller, peerID string, want Status) PeerEvent {
	t.Helper()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-ctrl.Events():
			require.True(t, ok, "event channel closed while waiting for %s/%s", peerID, want)
			if ev.Status == want && (peerID == "" || ev.PeerID == peerID) {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s to reach %s", peerID, want)
		}
	}
}

func awaitChat(t *testing.T, ctrl *Controller) *signaling.ChatMessage {
	t.Helper()

	select {
	case m, ok := <-ctrl.Messages():
		require.True(t, ok, "chat channel closed")
		return m
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for chat message")
		return nil
	}
}

// silentViewer joins a room over a raw websocket and never answers any
// offer, simulating a participant whose client hangs mid-negotiation.
func silentViewer(t *testing.T, srv *httptest.Server, roomID string) string {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.WriteJSON(&protocol.Message{Type: protocol.TypeJoinRoom, RoomID: roomID}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg protocol.Message
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, protocol.TypeExistingPeers, msg.Type)

	var payload protocol.ExistingPeersPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))

	go func() {
		for {
			conn.SetReadDeadline(time.Now().Add(10 * time.Second))
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	return payload.SelfID
}

func TestPresentAndJoinNegotiation(t *testing.T) {
	srv := newRelayServer(t)

	pf := newFakeFactory()
	presenter := New(relayConfig(srv, "teacher"), pf.factory)
	defer presenter.Leave()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	roomID, err := presenter.Present(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, roomID)
	assert.Equal(t, RolePresenter, presenter.Role())
	assert.Equal(t, roomID, presenter.RoomID())

	vf := newFakeFactory()
	viewer := New(relayConfig(srv, "student"), vf.factory)
	defer viewer.Leave()

	peers, err := viewer.Join(ctx, roomID)
	require.NoError(t, err)
	require.Equal(t, []string{presenter.SelfID()}, peers)
	assert.Equal(t, RoleViewer, viewer.Role())

	// The presenter initiates on peer-joined; the viewer auto-answers.
	awaitStatus(t, presenter, viewer.SelfID(), StatusConnecting)
	awaitStatus(t, presenter, viewer.SelfID(), StatusConnected)

	// The answering side completes when its transport reports connected.
	awaitStatus(t, viewer, presenter.SelfID(), StatusConnecting)
	vf.transport(presenter.SelfID()).fireState(TransportConnected)
	awaitStatus(t, viewer, presenter.SelfID(), StatusConnected)

	// Exactly one transport per side, exactly one offer from the presenter.
	assert.Equal(t, 1, pf.transport(viewer.SelfID()).offerCount())
}

func TestDuplicatePeerJoinedKeepsNegotiator(t *testing.T) {
	pf := newFakeFactory()
	cfg := &config.Config{DisplayName: "teacher", AnswerWait: time.Minute}

	presenter := New(cfg, pf.factory)
	presenter.role = RolePresenter
	defer presenter.Leave()

	presenter.onPeerJoined("peer-1")
	tr := pf.transport("peer-1")
	require.NotNil(t, tr)
	require.Len(t, presenter.negotiators, 1)

	// A repeated announcement must neither replace the live negotiator
	// nor build (and leak) a second transport.
	presenter.onPeerJoined("peer-1")
	assert.Same(t, tr, pf.transport("peer-1"))
	assert.Equal(t, 0, tr.closedTimes())
	assert.Len(t, presenter.negotiators, 1)
	assert.Equal(t, 1, tr.offerCount())
}

func TestJoinUnknownRoomFails(t *testing.T) {
	srv := newRelayServer(t)

	viewer := New(relayConfig(srv, "student"), newFakeFactory().factory)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := viewer.Join(ctx, "absent-history-lecture")
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestConnectUnreachableRelay(t *testing.T) {
	cfg := &config.Config{
		WebSocketURL: "ws://127.0.0.1:1/ws",
		DisplayName:  "teacher",
		AnswerWait:   time.Second,
	}
	presenter := New(cfg, newFakeFactory().factory)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := presenter.Present(ctx)
	require.ErrorIs(t, err, ErrRelayUnavailable)
}

func TestAnswerTimeoutIsPerPeer(t *testing.T) {
	srv := newRelayServer(t)

	cfg := relayConfig(srv, "teacher")
	cfg.AnswerWait = 300 * time.Millisecond

	pf := newFakeFactory()
	presenter := New(cfg, pf.factory)
	defer presenter.Leave()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	roomID, err := presenter.Present(ctx)
	require.NoError(t, err)

	// First viewer negotiates normally and must stay connected.
	vf := newFakeFactory()
	viewer := New(relayConfig(srv, "student"), vf.factory)
	defer viewer.Leave()
	_, err = viewer.Join(ctx, roomID)
	require.NoError(t, err)
	awaitStatus(t, presenter, viewer.SelfID(), StatusConnected)

	// Second viewer joins and never answers the offer.
	silentID := silentViewer(t, srv, roomID)

	ev := awaitStatus(t, presenter, silentID, StatusFailed)
	require.ErrorIs(t, ev.Err, ErrNegotiationTimeout)

	// Only the stalled link is dropped; the healthy peer's transport and
	// the session itself are untouched.
	assert.Equal(t, 1, pf.transport(silentID).closedTimes())
	assert.Equal(t, 0, pf.transport(viewer.SelfID()).closedTimes())

	presenter.SendChat("still here")
	m := awaitChat(t, viewer)
	assert.Equal(t, "still here", m.Text)
}

func TestChatIsRelayOrdered(t *testing.T) {
	srv := newRelayServer(t)

	presenter := New(relayConfig(srv, "teacher"), newFakeFactory().factory)
	defer presenter.Leave()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	roomID, err := presenter.Present(ctx)
	require.NoError(t, err)

	viewerA := New(relayConfig(srv, "student-a"), newFakeFactory().factory)
	defer viewerA.Leave()
	_, err = viewerA.Join(ctx, roomID)
	require.NoError(t, err)

	viewerB := New(relayConfig(srv, "student-b"), newFakeFactory().factory)
	defer viewerB.Leave()
	_, err = viewerB.Join(ctx, roomID)
	require.NoError(t, err)

	viewerA.SendChat("may I ask a question?")
	first := map[string]*signaling.ChatMessage{
		"presenter": awaitChat(t, presenter),
		"viewerA":   awaitChat(t, viewerA),
		"viewerB":   awaitChat(t, viewerB),
	}
	for _, m := range first {
		// A message only renders once the relay echoes it back, sender
		// included, so everyone agrees on user, text and sequence.
		assert.Equal(t, viewerA.SelfID(), m.From)
		assert.Equal(t, "student-a", m.User)
		assert.Equal(t, "may I ask a question?", m.Text)
		assert.Equal(t, uint64(1), m.Seq)
	}

	presenter.SendChat("go ahead")
	for _, ctrl := range []*Controller{presenter, viewerA, viewerB} {
		m := awaitChat(t, ctrl)
		assert.Equal(t, "teacher", m.User)
		assert.Equal(t, uint64(2), m.Seq)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	srv := newRelayServer(t)

	var released atomic.Int32

	pf := newFakeFactory()
	presenter := New(relayConfig(srv, "teacher"), pf.factory,
		WithMediaRelease(func() { released.Add(1) }))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	roomID, err := presenter.Present(ctx)
	require.NoError(t, err)

	vf := newFakeFactory()
	viewer := New(relayConfig(srv, "student"), vf.factory)
	defer viewer.Leave()
	_, err = viewer.Join(ctx, roomID)
	require.NoError(t, err)
	awaitStatus(t, presenter, viewer.SelfID(), StatusConnected)

	presenter.Leave()
	presenter.Leave()

	// One release sequence: media stopped once, each transport closed once.
	assert.Equal(t, int32(1), released.Load())
	assert.Equal(t, 1, pf.transport(viewer.SelfID()).closedTimes())

	// Both caller-facing channels close together.
	require.Eventually(t, func() bool {
		_, ok := <-presenter.Events()
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
	_, ok := <-presenter.Messages()
	assert.False(t, ok)

	// The relay cascades the departure to the remaining participant.
	awaitStatus(t, viewer, presenter.SelfID(), StatusClosed)
}

func TestRelayLossTearsSessionDown(t *testing.T) {
	srv := newRelayServer(t)

	var released atomic.Int32
	presenter := New(relayConfig(srv, "teacher"), newFakeFactory().factory,
		WithMediaRelease(func() { released.Add(1) }))
	defer presenter.Leave()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := presenter.Present(ctx)
	require.NoError(t, err)

	srv.CloseClientConnections()

	select {
	case _, ok := <-presenter.Messages():
		assert.False(t, ok, "chat channel should close when the relay is lost")
	case <-time.After(3 * time.Second):
		t.Fatal("session did not tear down after losing the relay")
	}
	assert.Equal(t, int32(1), released.Load())
}
