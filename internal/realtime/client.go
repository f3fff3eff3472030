package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"orgchat/internal/models"
)

// Client is one authenticated websocket connection.
type Client struct {
	ID     string
	UserID string
	OrgID  string
	User   *models.User

	gw      *Gateway
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	limiter *rate.Limiter

	closeOnce sync.Once
}

// enqueue never blocks; a full buffer means a slow consumer, which is disconnected.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		c.gw.log.Warn("[ws] send buffer full, closing slow consumer",
			zap.String("conn_id", c.ID), zap.String("user_id", c.UserID))
		c.close()
		return false
	}
}

func (c *Client) emit(event string, data any) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		c.gw.log.Error("[ws] encode failed", zap.String("event", event), zap.Error(err))
		return
	}
	c.enqueue(frame)
}

// close stops the write pump and closes the socket; the read pump then
// unregisters the client.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *Client) readPump() {
	cfg := c.gw.cfg
	defer c.gw.unregister(c)

	c.conn.SetReadLimit(cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.gw.log.Debug("[ws] read failed", zap.String("conn_id", c.ID), zap.Error(err))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
			c.emit(EventError, ErrorEvent{Message: "malformed event"})
			continue
		}
		if !c.limiter.Allow() {
			c.emit(EventError, ErrorEvent{Message: "Too many events, slow down", ID: env.ID})
			continue
		}
		c.gw.dispatch(c, env)
	}
}

func (c *Client) writePump() {
	cfg := c.gw.cfg
	ticker := time.NewTicker(cfg.PingPeriod())
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.gw.log.Debug("[ws] write failed", zap.String("conn_id", c.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
