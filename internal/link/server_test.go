package link

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"keybridge/internal/protocol"
)

// recordingSink captures dispatched link traffic for assertions.
type recordingSink struct {
	mu          sync.Mutex
	connects    int
	disconnects int
	text        []byte
	keys        []protocol.KeyEvent
}

func (s *recordingSink) HandleConnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
}

func (s *recordingSink) HandleDisconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnects++
}

func (s *recordingSink) EnqueueText(data []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = append(s.text, data...)
	return len(data)
}

func (s *recordingSink) HandleKey(ev protocol.KeyEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, ev)
}

func (s *recordingSink) snapshot() (connects, disconnects int, text string, keys []protocol.KeyEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects, s.disconnects, string(s.text), append([]protocol.KeyEvent(nil), s.keys...)
}

func newTestServer(t *testing.T) (*Server, *recordingSink, *httptest.Server) {
	t.Helper()
	sink := &recordingSink{}
	srv := NewServer(sink, zap.NewNop().Sugar())
	ts := httptest.NewServer(http.HandlerFunc(srv.Handle))
	t.Cleanup(ts.Close)
	return srv, sink, ts
}

func wsAddr(ts *httptest.Server) string {
	return strings.TrimPrefix(ts.URL, "http://")
}

func TestLinkDispatch(t *testing.T) {
	srv, sink, ts := newTestServer(t)

	client, err := Dial(wsAddr(ts), "")
	require.NoError(t, err)

	require.Eventually(t, srv.Connected, time.Second, 5*time.Millisecond)

	require.NoError(t, client.SendText([]byte("hello")))
	require.NoError(t, client.SendKey(0x02, 0x04))

	require.Eventually(t, func() bool {
		_, _, text, keys := sink.snapshot()
		return text == "hello" && len(keys) == 1
	}, time.Second, 5*time.Millisecond)

	_, _, _, keys := sink.snapshot()
	assert.Equal(t, protocol.KeyEvent{Modifiers: 0x02, Keycode: 0x04}, keys[0])

	require.NoError(t, client.Close())
	require.Eventually(t, func() bool {
		connects, disconnects, _, _ := sink.snapshot()
		return connects == 1 && disconnects == 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, srv.Connected())
}

func TestLinkSinglePeer(t *testing.T) {
	srv, _, ts := newTestServer(t)

	first, err := Dial(wsAddr(ts), "")
	require.NoError(t, err)
	defer first.Close()

	require.Eventually(t, srv.Connected, time.Second, 5*time.Millisecond)

	_, err = Dial(wsAddr(ts), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another companion is connected")
}

func TestLinkPeerSlotFreedAfterClose(t *testing.T) {
	srv, sink, ts := newTestServer(t)

	first, err := Dial(wsAddr(ts), "")
	require.NoError(t, err)
	require.Eventually(t, srv.Connected, time.Second, 5*time.Millisecond)
	require.NoError(t, first.Close())

	require.Eventually(t, func() bool { return !srv.Connected() }, time.Second, 5*time.Millisecond)

	second, err := Dial(wsAddr(ts), "")
	require.NoError(t, err)
	defer second.Close()

	require.Eventually(t, func() bool {
		connects, _, _, _ := sink.snapshot()
		return connects == 2
	}, time.Second, 5*time.Millisecond)
}

func TestLinkIgnoresMalformedFrames(t *testing.T) {
	srv, sink, ts := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+wsAddr(ts)+"/", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, srv.Connected, time.Second, 5*time.Millisecond)

	// Empty frame, unknown channel, short key payload: all dropped.
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{}))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{0x7F, 'x'}))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{protocol.ChannelKey, 0x02}))
	// Text messages on the socket are ignored outright.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("nope")))
	// A valid frame after the garbage still lands.
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, protocol.EncodeText([]byte("ok"))))

	require.Eventually(t, func() bool {
		_, _, text, _ := sink.snapshot()
		return text == "ok"
	}, time.Second, 5*time.Millisecond)

	_, _, _, keys := sink.snapshot()
	assert.Empty(t, keys)
}
