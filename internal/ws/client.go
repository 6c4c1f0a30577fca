package ws

import (
	"sync"

	"golang.org/x/net/websocket"
)

// sendBuffer is the per-session backlog of undelivered loan events. A viewer
// that falls this far behind is disconnected instead of blocking the hub.
const sendBuffer = 64

// Client is one websocket session plus the set of loan channels it watches.
type Client struct {
	conn *websocket.Conn
	out  chan []byte

	mu       sync.RWMutex
	channels map[string]struct{}
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		conn:     conn,
		out:      make(chan []byte, sendBuffer),
		channels: map[string]struct{}{},
	}
}

// send queues a payload for the connection writer; a full backlog closes the
// connection, after which the handler unsubscribes the session.
func (c *Client) send(payload []byte) {
	select {
	case c.out <- payload:
	default:
		_ = c.conn.Close()
	}
}

func (c *Client) addChannel(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[channel] = struct{}{}
}

func (c *Client) listChannels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.channels))
	for ch := range c.channels {
		out = append(out, ch)
	}
	return out
}
