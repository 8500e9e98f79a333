package link

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"keybridge/internal/protocol"
)

// textChunkSize bounds a single text frame so a large paste arrives as a
// series of writes the receive queue can absorb between drains.
const textChunkSize = 512

// chunkPause gives the receiver time to drain between chunks.
const chunkPause = 50 * time.Millisecond

// Client is the companion side of the link, used by the send subcommands.
type Client struct {
	conn *websocket.Conn
}

// Dial connects to a running daemon's link endpoint. The token, when set, is
// sent as a bearer credential.
func Dial(addr, token string) (*Client, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/link"}

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusConflict {
			return nil, fmt.Errorf("dial %s: another companion is connected", addr)
		}
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// SendText ships text to the daemon in bounded chunks.
func (c *Client) SendText(data []byte) error {
	for len(data) > 0 {
		n := len(data)
		if n > textChunkSize {
			n = textChunkSize
		}

		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.BinaryMessage, protocol.EncodeText(data[:n])); err != nil {
			return fmt.Errorf("send text: %w", err)
		}

		data = data[n:]
		if len(data) > 0 {
			time.Sleep(chunkPause)
		}
	}
	return nil
}

// SendKey ships one discrete key event.
func (c *Client) SendKey(modifiers, keycode byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.BinaryMessage, protocol.EncodeKey(modifiers, keycode)); err != nil {
		return fmt.Errorf("send key: %w", err)
	}
	return nil
}

// Close performs a clean close handshake.
func (c *Client) Close() error {
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	return c.conn.Close()
}
