package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/feeriepay/checkout/checkout"
	"github.com/feeriepay/checkout/utils"
)

// Event types
const (
	EventState        = checkout.EventState
	EventNotification = checkout.EventNotification
	EventClosed       = "checkout_closed"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 16
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Client is one websocket watching one checkout session. Writes happen on
// the client's own goroutine so a slow browser never blocks the session.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.Error().Errorf("Error sending message to client: %v", err)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (c *Client) close() {
	c.once.Do(func() { close(c.send) })
}

// CheckoutHub fans checkout events out to the websockets of each session.
type CheckoutHub struct {
	clients map[string]map[*Client]struct{} // session id -> clients
	mutex   sync.Mutex
}

func NewCheckoutHub() *CheckoutHub {
	return &CheckoutHub{clients: make(map[string]map[*Client]struct{})}
}

// Register adds conn to the session's audience and starts its writer.
func (h *CheckoutHub) Register(sessionID string, conn *websocket.Conn) *Client {
	c := &Client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mutex.Lock()
	set, ok := h.clients[sessionID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[sessionID] = set
	}
	set[c] = struct{}{}
	h.mutex.Unlock()

	go c.writePump()
	return c
}

// Unregister removes the client and closes its connection.
func (h *CheckoutHub) Unregister(sessionID string, c *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if set, ok := h.clients[sessionID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, sessionID)
		}
	}
	c.close()
}

// CloseSession drops every client of a session.
func (h *CheckoutHub) CloseSession(sessionID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for c := range h.clients[sessionID] {
		c.close()
	}
	delete(h.clients, sessionID)
}

func (h *CheckoutHub) ClientCount(sessionID string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients[sessionID])
}

// FromUpdate wraps a session update in the websocket envelope.
func FromUpdate(u checkout.Update) Message {
	msg := Message{Event: u.Event}
	switch {
	case u.Snapshot != nil:
		msg.Data = u.Snapshot
	case u.Notification != nil:
		msg.Data = u.Notification
	}
	return msg
}

// BroadcastUpdate forwards a session update to all of its websockets.
func (h *CheckoutHub) BroadcastUpdate(sessionID string, u checkout.Update) {
	h.Broadcast(sessionID, FromUpdate(u))
}

// Deliver sends msg to a single client, if it is still registered.
func (h *CheckoutHub) Deliver(sessionID string, c *Client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.Error().Errorf("Error marshaling message: %v", err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	set := h.clients[sessionID]
	if _, ok := set[c]; ok {
		h.sendLocked(sessionID, set, c, data)
	}
}

// Broadcast sends msg to every client of the session. A client whose buffer
// is full is dropped.
func (h *CheckoutHub) Broadcast(sessionID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.Error().Errorf("Error marshaling message: %v", err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	set := h.clients[sessionID]
	utils.Info().WithFields(logrus.Fields{
		"session_id": sessionID,
		"event":      msg.Event,
		"clients":    len(set),
	}).Debug("broadcasting checkout event")

	for c := range set {
		h.sendLocked(sessionID, set, c, data)
	}
}

func (h *CheckoutHub) sendLocked(sessionID string, set map[*Client]struct{}, c *Client, data []byte) {
	select {
	case c.send <- data:
	default:
		utils.Error().WithField("session_id", sessionID).Error("checkout client too slow, dropping")
		delete(set, c)
		c.close()
	}
}
