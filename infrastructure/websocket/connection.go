package websocket

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Handler receives the decoded events of a connection, one at a time.
type Handler interface {
	Handle(ctx context.Context, origin contract.Connection, in event.Inbound) error
}

// Connection is the live handle of one WebSocket client.
// One goroutine reads and dispatches, one goroutine drains the bounded send buffer.
type Connection struct {
	id        string
	identity  chat.UserID
	log       *slog.Logger
	socket    *websocket.Conn
	send      chan event.Outbound
	done      chan struct{}
	closeOnce sync.Once
	limiter   *rate.Limiter
	opts      Options
}

func newConnection(log *slog.Logger, socket *websocket.Conn, identity chat.UserID, opts Options) *Connection {
	id := uuid.NewString()
	return &Connection{
		id:       id,
		identity: identity,
		log:      log.With("connection_id", id),
		socket:   socket,
		send:     make(chan event.Outbound, opts.SendBufferSize),
		done:     make(chan struct{}),
		limiter:  rate.NewLimiter(rate.Limit(opts.EventsPerSecond), opts.EventsBurst),
		opts:     opts,
	}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) Identity() (chat.UserID, bool) { return c.identity, c.identity != "" }

// Consume queues an event for the writer. It blocks while the buffer is full,
// until ctx expires or the connection closes.
func (c *Connection) Consume(ctx context.Context, e event.Outbound) error {
	select {
	case <-c.done:
		return errors.ErrConnectionClosed
	default:
	}
	select {
	case c.send <- e:
		return nil
	case <-c.done:
		return errors.ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.socket.Close()
	})
}

// readLoop decodes frames and hands them to the handler in arrival order.
// When the socket terminates a Disconnect is synthesized.
func (c *Connection) readLoop(ctx context.Context, handler Handler) {
	defer func() {
		c.close()
		// The connection is gone, cleanup must not be canceled with it
		if err := handler.Handle(context.WithoutCancel(ctx), c, event.Disconnect{}); err != nil {
			c.log.Warn("Disconnect cleanup failed", "error", err)
		}
	}()

	c.socket.SetReadLimit(c.opts.MaxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, raw, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("Connection closed unexpectedly", "error", err)
			}
			return
		}
		if !c.limiter.Allow() {
			c.reject(ctx, errors.ErrRateLimited)
			continue
		}
		in, err := event.Decode(raw)
		if err != nil {
			c.reject(ctx, err)
			continue
		}
		// Failures are already answered to the client by the handler
		if err := handler.Handle(ctx, c, in); err != nil {
			c.log.Debug("Event rejected", "event", in.Name(), "error", err)
		}
	}
}

func (c *Connection) reject(ctx context.Context, err error) {
	c.log.Debug("Frame rejected", "error", err)
	sendCtx, cancel := context.WithTimeout(ctx, c.opts.WriteWait)
	defer cancel()
	_ = c.Consume(sendCtx, event.Failure{Info: errors.Info(err)})
}

// writeLoop owns every write on the socket, gorilla allows a single concurrent writer.
func (c *Connection) writeLoop() {
	ticker := time.NewTicker(c.opts.PingInterval())
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case e := <-c.send:
			raw, err := event.Encode(e)
			if err != nil {
				c.log.Error("Unable to encode event", "event", e.Name(), "error", err)
				continue
			}
			_ = c.socket.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.socket.WriteMessage(websocket.TextMessage, raw); err != nil {
				c.log.Debug("Write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.socket.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.opts.WriteWait))
			return
		}
	}
}
