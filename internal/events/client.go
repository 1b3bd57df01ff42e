package events

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

// Admit decides whether a registered subscriber may stay connected.
type Admit func(ctx context.Context) error

// Client is one user's WebSocket subscription to one board.
type Client struct {
	hub     *Hub
	conn    *ws.Conn
	boardID string
	userID  string
	send    chan []byte

	// Set by the hub, under its lock, right before send is closed.
	closeStatus ws.StatusCode
	closeReason string
}

func NewClient(hub *Hub, conn *ws.Conn, boardID, userID string) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		boardID: boardID,
		userID:  userID,
		send:    make(chan []byte, sendBufferSize),
	}
}

// Run registers the client and blocks until the connection ends or the hub
// drops it.
//
// admit runs after Register. A membership change that lands between the
// caller's own check and Register is therefore either seen by admit or
// followed by a CloseBoard/CloseMember that already includes this client.
func (c *Client) Run(ctx context.Context, admit Admit) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	if admit != nil {
		if err := admit(ctx); err != nil {
			c.conn.Close(ws.StatusPolicyViolation, "access denied")
			return
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.readPump(ctx, cancel)
	c.writePump(ctx)
}

// readPump discards client messages; the stream is server → client only.
// A read error means the peer went away.
func (c *Client) readPump(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.Close(c.closeStatus, c.closeReason)
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, ws.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			c.conn.Close(ws.StatusNormalClosure, "")
			return
		}
	}
}
