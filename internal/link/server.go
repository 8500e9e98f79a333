// Package link carries the wireless peer connection: a WebSocket endpoint
// accepting binary frames from a single companion at a time, plus the client
// side used by the companion subcommands.
package link

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"keybridge/internal/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second

	maxFrameSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for now as this is a local network tool
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Sink receives decoded link traffic. The controller implements it.
type Sink interface {
	HandleConnect()
	HandleDisconnect()
	EnqueueText(data []byte) int
	HandleKey(ev protocol.KeyEvent)
}

// Server owns the peer slot. At most one companion is attached at a time;
// while the slot is taken further upgrade attempts are refused.
type Server struct {
	sink Sink
	log  *zap.SugaredLogger

	mu   sync.Mutex
	peer *peer
}

type peer struct {
	conn *websocket.Conn
	addr string
	done chan struct{}
}

// NewServer returns a link server dispatching into sink.
func NewServer(sink Sink, log *zap.SugaredLogger) *Server {
	return &Server{sink: sink, log: log}
}

// Connected reports whether a companion currently holds the peer slot.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer != nil
}

// Handle upgrades an HTTP request into the peer connection. A second
// companion is refused with 409 while the slot is taken.
func (s *Server) Handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.peer != nil {
		s.mu.Unlock()
		s.log.Warnw("refusing second companion", "remote", r.RemoteAddr)
		http.Error(w, "peer slot taken", http.StatusConflict)
		return
	}
	s.mu.Unlock()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	p := &peer{conn: conn, addr: r.RemoteAddr, done: make(chan struct{})}

	s.mu.Lock()
	if s.peer != nil {
		// Lost the race with another upgrade.
		s.mu.Unlock()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "peer slot taken"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	s.peer = p
	s.mu.Unlock()

	s.log.Infow("companion attached", "remote", p.addr)
	s.sink.HandleConnect()

	go s.pingPump(p)
	s.readPump(p)
}

// Shutdown drops the current peer, if any.
func (s *Server) Shutdown() {
	s.mu.Lock()
	p := s.peer
	s.mu.Unlock()
	if p != nil {
		p.conn.Close()
	}
}

func (s *Server) detach(p *peer) {
	s.mu.Lock()
	if s.peer != p {
		s.mu.Unlock()
		return
	}
	s.peer = nil
	s.mu.Unlock()

	close(p.done)
	p.conn.Close()
	s.log.Infow("companion detached", "remote", p.addr)
	s.sink.HandleDisconnect()
}

// readPump pumps frames from the peer into the sink until the connection
// breaks.
func (s *Server) readPump(p *peer) {
	defer s.detach(p)

	p.conn.SetReadLimit(maxFrameSize)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.log.Warnw("read error", "remote", p.addr, "error", err)
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			s.log.Debugw("ignoring non-binary message", "remote", p.addr, "type", msgType)
			continue
		}
		s.dispatch(data)
	}
}

func (s *Server) dispatch(data []byte) {
	frame, err := protocol.Decode(data)
	if err != nil {
		s.log.Warnw("dropping malformed frame", "error", err, "len", len(data))
		return
	}

	switch frame.Channel {
	case protocol.ChannelText:
		s.sink.EnqueueText(frame.Payload)
	case protocol.ChannelKey:
		s.sink.HandleKey(frame.Key())
	}
}

// pingPump keeps the connection's read deadline fed.
func (s *Server) pingPump(p *peer) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				p.conn.Close()
				return
			}
		}
	}
}
