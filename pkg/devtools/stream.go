package devtools

import (
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// EventType is the type of a streamed event.
type EventType string

const (
	// EventSnapshot is sent once, right after the connection opens.
	EventSnapshot EventType = "snapshot"
	// EventUpdate is sent for every committed update of the store.
	EventUpdate EventType = "update"
)

const (
	writeTimeout = 5 * time.Second
	sendBuffer   = 64
)

// Event is one message of the update stream.
type Event struct {
	Type    EventType       `json:"type"`
	ID      string          `json:"id"`
	Store   string          `json:"store"`
	Seq     uint64          `json:"seq"`
	State   json.RawMessage `json:"state,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// client is one websocket connection following one store.
type client struct {
	id    string
	store string
	conn  *websocket.Conn
	send  chan []byte
	done  chan struct{}
	once  sync.Once

	seq     atomic.Uint64
	dropped atomic.Int64
}

func newClient(store string, conn *websocket.Conn) *client {
	return &client{
		id:    uuid.NewString(),
		store: store,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		done:  make(chan struct{}),
	}
}

// event encodes one event. State and payload that cannot be encoded are
// reported in the Error field.
func (c *client) event(typ EventType, state, payload any) []byte {
	ev := Event{
		Type:  typ,
		ID:    uuid.NewString(),
		Store: c.store,
		Seq:   c.seq.Add(1),
	}
	var errs []string
	if raw, err := json.Marshal(state); err == nil {
		ev.State = raw
	} else {
		errs = append(errs, "state: "+err.Error())
	}
	if typ == EventUpdate {
		if raw, err := json.Marshal(payload); err == nil {
			ev.Payload = raw
		} else {
			errs = append(errs, "payload: "+err.Error())
		}
	}
	ev.Error = strings.Join(errs, "; ")
	data, _ := json.Marshal(ev)
	return data
}

// enqueue hands a message to the writer without blocking. Subscribers run
// while the registry holds its update lock, so a slow peer loses messages
// instead of stalling updates.
func (c *client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// writeLoop drains the send queue and pings the peer until the client closes.
func (c *client) writeLoop(ping time.Duration) error {
	ticker := time.NewTicker(ping)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return nil
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return err
			}
		}
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	h, ok := s.store(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "store", h.Name(), "error", err)
		return
	}

	c := newClient(h.Name(), conn)
	s.addClient(c)
	defer s.removeClient(c)

	cancel, err := h.WatchFunc(func(state, payload any) {
		c.enqueue(c.event(EventUpdate, state, payload))
	}, func(state any) {
		c.enqueue(c.event(EventSnapshot, state, nil))
	})
	if err != nil {
		s.logger.Error("stream subscribe failed", "store", h.Name(), "error", err)
		return
	}
	defer cancel()

	s.logger.Info("stream client connected", "client", c.id, "store", c.store)

	go func() {
		if err := c.writeLoop(s.cfg.PingInterval); err != nil {
			s.logger.Debug("stream write failed", "client", c.id, "error", err)
		}
		c.close()
	}()

	// Keep connection alive until client disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.logger.Info("stream client disconnected",
		"client", c.id,
		"store", c.store,
		"dropped", c.dropped.Load(),
	)
}

func (s *Server) addClient(c *client) {
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
	c.close()
}

// ClientCount returns the number of connected stream clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Close closes all stream connections.
func (s *Server) Close() {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for id, c := range s.clients {
		clients = append(clients, c)
		delete(s.clients, id)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeTimeout))
		c.close()
	}
}

// checkOrigin accepts requests without an Origin header, same-origin
// requests and origins listed in AllowedOrigins ("*" matches any).
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if slices.Contains(s.cfg.AllowedOrigins, "*") || slices.Contains(s.cfg.AllowedOrigins, origin) {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
