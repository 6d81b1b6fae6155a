package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/roomservice/api/internal/auth"
	"github.com/roomservice/api/internal/enum"
)

const (
	feedWriteTimeout = 10 * time.Second
	feedIdleTimeout  = 60 * time.Second
	feedPingEvery    = feedIdleTimeout * 9 / 10

	// The dashboard only answers pings.
	feedReadLimit = 512

	// Order events queued per dashboard before the hub drops it.
	feedQueueSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Access is checked with the JWT.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one admin dashboard subscribed to a room.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	room string
	send chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn, room string) *Client {
	return &Client{hub: hub, conn: conn, room: room, send: make(chan []byte, feedQueueSize)}
}

// ServeWS authenticates an admin and attaches the connection to the live
// order feed. The JWT is read from ?token=.
func ServeWS(hub *Hub, jwtSecret string, w http.ResponseWriter, r *http.Request) {
	if status, msg := authorizeAdmin(jwtSecret, r.URL.Query().Get("token")); status != http.StatusOK {
		http.Error(w, msg, status)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WARN: order feed upgrade: %v", err)
		return
	}

	c := newClient(hub, conn, RoomOrders)
	hub.register <- c

	go c.deliverEvents()
	go c.watchDisconnect()
}

func authorizeAdmin(secret, token string) (int, string) {
	if token == "" {
		return http.StatusUnauthorized, "missing token"
	}
	claims, err := auth.ValidateToken(secret, token)
	if err != nil {
		return http.StatusUnauthorized, "invalid token"
	}
	if claims.Role != enum.RoleAdmin {
		return http.StatusForbidden, "admin access required"
	}
	return http.StatusOK, ""
}

// watchDisconnect reads until the dashboard goes away, then unsubscribes it.
func (c *Client) watchDisconnect() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	extend := func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(feedIdleTimeout))
	}
	c.conn.SetReadLimit(feedReadLimit)
	extend("")
	c.conn.SetPongHandler(extend)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WARN: order feed read: %v", err)
			}
			return
		}
	}
}

// deliverEvents writes queued order events and keeps the link alive with
// pings. It returns when the hub closes the queue or a write fails.
func (c *Client) deliverEvents() {
	ping := time.NewTicker(feedPingEvery)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.writeBatch(event); err != nil {
				return
			}

		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// writeBatch sends first plus every event already queued as one
// newline-separated text frame.
func (c *Client) writeBatch(first []byte) error {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	w.Write(first)
	for pending := len(c.send); pending > 0; pending-- {
		w.Write([]byte{'\n'})
		w.Write(<-c.send)
	}
	return w.Close()
}
