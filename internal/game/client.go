package game

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client pumps one websocket connection. Reads feed the session's event
// loop; writes drain a buffered queue so a slow consumer never stalls the
// session goroutine.
type Client struct {
	conn  *websocket.Conn
	queue chan Message

	closeOnce sync.Once
	closed    chan struct{}

	log zerolog.Logger
}

func newClient(conn *websocket.Conn, log zerolog.Logger) *Client {
	return &Client{
		conn:   conn,
		queue:  make(chan Message, sendBuffer),
		closed: make(chan struct{}),
		log:    log,
	}
}

// Send enqueues a message without blocking. A client whose queue is full is
// too far behind to stay in a real-time game and gets disconnected.
func (c *Client) Send(msg Message) {
	select {
	case c.queue <- msg:
	case <-c.closed:
	default:
		c.log.Warn().Msg("send queue full, dropping client")
		c.CloseSlow()
	}
}

// CloseSlow tears down the connection from the session side.
func (c *Client) CloseSlow() {
	c.closeOnce.Do(func() {
		close(c.closed)
		deadline := time.Now().Add(writeWait)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), deadline)
		c.conn.Close()
	})
}

// ServeClient joins the connection to the session and runs both pumps until
// the peer goes away. It blocks for the lifetime of the connection.
func ServeClient(s *Session, name string, conn *websocket.Conn, log zerolog.Logger) {
	c := newClient(conn, log)
	player, err := s.Join(name, c)
	if err != nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteJSON(errorMessage(err))
		conn.Close()
		return
	}
	c.log = log.With().Int64("player", player.ID).Logger()

	go c.writePump()
	c.readPump(s, player.ID)

	s.Leave(player.ID)
	c.CloseSlow()
}

func (c *Client) readPump(s *Session, playerID int64) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("websocket read failed")
			}
			return
		}
		msg, err := DecodeInbound(raw)
		if err != nil {
			c.Send(errorMessage(err))
			continue
		}
		s.Dispatch(playerID, msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.CloseSlow()
	}()
	for {
		select {
		case msg := <-c.queue:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}
