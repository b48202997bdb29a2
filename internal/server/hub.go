package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/phobologic/jimbo/internal/model"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingEvery  = (wsPongWait * 9) / 10
	wsSendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Event types sent on the live feed.
const (
	EventInsertion = "insertion"
	EventReaction  = "reaction"
)

// Event is one live feed message.
type Event struct {
	Type      string           `json:"type"`
	Insertion *model.Insertion `json:"insertion,omitempty"`
	Reaction  *model.Reaction  `json:"reaction,omitempty"`
}

// inbound is a message from a feed client.
type inbound struct {
	Type string `json:"type"`
}

type client struct {
	send chan Event
}

// hub fans events out to websocket clients. Clients that fall behind are
// dropped rather than blocking the publisher.
type hub struct {
	logger *zap.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

func newHub(logger *zap.Logger) *hub {
	return &hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

func (h *hub) register() (*client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	c := &client{send: make(chan Event, wsSendBuffer)}
	h.clients[c] = struct{}{}
	return c, true
}

func (h *hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *hub) broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			h.logger.Warn("dropping slow feed client")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// serveWS runs one feed connection until either side goes away. Inbound
// {"type":"click"} messages click the mascot.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	c, ok := s.hub.register()
	if !ok {
		return
	}
	defer s.hub.unregister(c)
	s.logger.Debug("feed client connected", zap.String("remote", r.RemoteAddr))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer conn.Close()
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		for {
			select {
			case ev, ok := <-c.send:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		if msg.Type == "click" {
			s.session.Click()
		}
	}

	s.hub.unregister(c)
	<-writerDone
}
