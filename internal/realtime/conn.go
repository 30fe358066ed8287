package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/blogqna-backend/pkg/config"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrChannelClosed = errors.New("realtime: channel closed")
	ErrChannelFull   = errors.New("realtime: send buffer full")
)

// ConnOptions tunes a websocket channel.
type ConnOptions struct {
	SendBuffer      int
	WriteTimeout    time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxMessageBytes int64
}

// ConnOptionsFromConfig applies defaults to unset realtime settings.
func ConnOptionsFromConfig(cfg config.RealtimeConfig) ConnOptions {
	opts := ConnOptions{
		SendBuffer:      cfg.SendBuffer,
		WriteTimeout:    cfg.WriteTimeout,
		PongWait:        cfg.PongWait,
		PingPeriod:      cfg.PingPeriod,
		MaxMessageBytes: cfg.MaxMessageBytes,
	}
	if opts.SendBuffer < 1 {
		opts.SendBuffer = 16
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.PongWait <= 0 {
		opts.PongWait = time.Minute
	}
	if opts.PingPeriod <= 0 || opts.PingPeriod >= opts.PongWait {
		opts.PingPeriod = opts.PongWait * 9 / 10
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = 4096
	}
	return opts
}

// Conn is the websocket-backed Channel. Sends are queued on a bounded buffer
// drained by writePump; a full buffer fails fast instead of blocking the caller.
type Conn struct {
	id   string
	ws   *websocket.Conn
	opts ConnOptions

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	sockOnce  sync.Once
	closeErr  error
}

func newConn(ws *websocket.Conn, opts ConnOptions) *Conn {
	return &Conn{
		id:   uuid.NewString(),
		ws:   ws,
		opts: opts,
		send: make(chan []byte, opts.SendBuffer),
		done: make(chan struct{}),
	}
}

// ID identifies this connection in logs.
func (c *Conn) ID() string {
	return c.id
}

// Send queues payload as one text frame. It never blocks: ErrChannelClosed once
// the connection is closed, ErrChannelFull when the buffer has no room.
func (c *Conn) Send(payload []byte) error {
	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrChannelFull
	}
}

// Close stops the write loop and closes the socket. Safe to call repeatedly.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.closeErr = c.closeSocket()
	})
	return c.closeErr
}

func (c *Conn) closeSocket() error {
	var err error
	c.sockOnce.Do(func() {
		if c.ws != nil {
			err = c.ws.Close()
		}
	})
	return err
}

// abort drops the socket without closing the channel. The read loop then fails
// and the owner deregisters before calling Close.
func (c *Conn) abort() {
	_ = c.closeSocket()
}

// Done is closed once the connection is closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
				c.abort()
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.abort()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteTimeout)); err != nil {
				c.abort()
				return
			}
		}
	}
}

// readPump consumes inbound frames until the peer goes away. Client frames carry
// nothing the server acts on; reading keeps pong and close handling alive.
func (c *Conn) readPump() error {
	c.ws.SetReadLimit(c.opts.MaxMessageBytes)
	if err := c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait)); err != nil {
		return err
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return err
		}
	}
}
