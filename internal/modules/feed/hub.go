package feed

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"planner/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
	sendBuffer = 64
)

// Event is pushed to every open feed connection of the booking's owner.
type Event struct {
	Type    string       `json:"type"`
	Booking BookingEvent `json:"booking"`
	SentAt  time.Time    `json:"sent_at"`
}

type BookingEvent struct {
	ID              int64                `json:"id"`
	ConfigurationID int64                `json:"configuration_id"`
	InviteeName     string               `json:"invitee_name"`
	InviteeEmail    string               `json:"invitee_email"`
	StartTime       time.Time            `json:"start_time"`
	EndTime         time.Time            `json:"end_time"`
	Status          domain.BookingStatus `json:"status"`
}

type connection struct {
	ownerID int64
	conn    *websocket.Conn
	send    chan []byte
}

// Hub fans booking changes out to owners. An owner may hold several
// connections at once (one per open tab).
type Hub struct {
	mu          sync.RWMutex
	connections map[int64]map[*connection]struct{}
	now         func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		connections: make(map[int64]map[*connection]struct{}),
		now:         time.Now,
	}
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.connections[c.ownerID]
	if !ok {
		set = make(map[*connection]struct{})
		h.connections[c.ownerID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.connections[c.ownerID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.connections, c.ownerID)
	}
}

// Publish implements booking.Publisher. Slow clients drop events rather than
// block the caller.
func (h *Hub) Publish(ownerID int64, event string, b *domain.Booking) {
	if b == nil {
		return
	}
	data, err := json.Marshal(Event{
		Type: event,
		Booking: BookingEvent{
			ID:              b.ID,
			ConfigurationID: b.ConfigurationID,
			InviteeName:     b.InviteeName,
			InviteeEmail:    b.InviteeEmail,
			StartTime:       b.StartTime.UTC(),
			EndTime:         b.EndTime.UTC(),
			Status:          b.Status,
		},
		SentAt: h.now().UTC(),
	})
	if err != nil {
		log.Printf("feed_marshal_error owner_id=%d booking_id=%d err=%v", ownerID, b.ID, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.connections[ownerID] {
		select {
		case c.send <- data:
		default:
			log.Printf("feed_dropped owner_id=%d booking_id=%d event=%s", ownerID, b.ID, event)
		}
	}
}

// Subscribers returns the number of open connections for ownerID.
func (h *Hub) Subscribers(ownerID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[ownerID])
}

// Close drops every connection. Used on shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ownerID, set := range h.connections {
		for c := range set {
			close(c.send)
		}
		delete(h.connections, ownerID)
	}
}

// Serve registers conn and blocks until the client goes away.
func (h *Hub) Serve(conn *websocket.Conn, ownerID int64) {
	c := &connection{
		ownerID: ownerID,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
	}
	h.register(c)

	go h.writePump(c)
	h.readPump(c)
}

// readPump only services control frames; the feed is one-way.
func (h *Hub) readPump(c *connection) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("feed_read_error owner_id=%d err=%v", c.ownerID, err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
