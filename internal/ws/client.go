package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 << 10
)

var (
	// ErrClosed is returned when sending to a closed client.
	ErrClosed = errors.New("websocket client closed")
	// ErrSlowConsumer is returned when a client's send queue is full.
	ErrSlowConsumer = errors.New("websocket client send queue full")
)

// Client represents an authenticated websocket connection. Writes are
// queued and performed by WritePump so Send never blocks.
type Client struct {
	conn     *websocket.Conn
	userID   string
	userName string
	send     chan []byte
	done     chan struct{}
	once     sync.Once
	log      *slog.Logger
}

// NewClient constructs a client wrapper with a send queue of size buffer.
func NewClient(conn *websocket.Conn, userID, userName string, buffer int, logger *slog.Logger) *Client {
	if buffer <= 0 {
		buffer = 64
	}
	return &Client{
		conn:     conn,
		userID:   userID,
		userName: userName,
		send:     make(chan []byte, buffer),
		done:     make(chan struct{}),
		log:      logger.With("user_id", userID),
	}
}

// UserID returns the authenticated user bound to the connection.
func (c *Client) UserID() string { return c.userID }

// UserName returns the display name from the connection's token.
func (c *Client) UserName() string { return c.userName }

// Send queues payload for delivery.
func (c *Client) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return ErrSlowConsumer
	}
}

// Close stops the client. WritePump then sends a normal close frame and
// releases the connection. It is safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// Done is closed once the client is closed.
func (c *Client) Done() <-chan struct{} { return c.done }

// WritePump drains the send queue and keeps the connection alive with pings.
// It owns the underlying connection and closes it on return, so every Client
// needs a running WritePump.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()
	}()
	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Warn("websocket send failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// ReadPump reads frames until the connection fails or ctx ends, passing
// each one to handle.
func (c *Client) ReadPump(ctx context.Context, handle func(ctx context.Context, raw []byte)) {
	defer c.Close()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("websocket read failed", "error", err)
			}
			return
		}
		handle(ctx, raw)
	}
}
