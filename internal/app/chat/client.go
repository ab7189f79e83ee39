package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"pingchat/internal/app/user"
	"pingchat/internal/pkg/errs"
	"pingchat/internal/pkg/logx"
	"pingchat/internal/pkg/randx"
)

const (
	// timeout for writing to the websocket connection.
	writeWait = 10 * time.Second

	// maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// frequency of server pings.
	pingPeriod = (pongWait * 9) / 10

	// maximum size in bytes of an inbound frame. Image payloads are object
	// keys, not inline binaries, so frames stay small.
	maxMessageSize = 8192

	// MaxContentBytes caps the text content of a single message.
	MaxContentBytes = 5000

	// sendQueueSize is the per-connection outbound buffer.
	sendQueueSize = 256
)

// Client represents one live connection and its resolved identity. The
// identity is fixed at admission; the connection ID is unique per socket and
// never reused.
type Client struct {
	broker *Broker

	conn *websocket.Conn

	// id is the connection ID assigned at admission.
	id string

	// user is the identity resolved from the session at handshake.
	user user.User

	// send queues outbound frames for WritePump.
	send chan []byte

	// sendMu and closed guard send against enqueue-after-close. A route
	// may hold a registry snapshot from just before this connection was
	// removed; its delivery must degrade to a miss, not a panic.
	sendMu sync.RWMutex
	closed bool

	logger zerolog.Logger
}

// NewClient constructs a client for an upgraded connection. The caller still
// has to admit it via Broker.Admit before it receives any traffic.
func NewClient(broker *Broker, wsConn *websocket.Conn, usr user.User) *Client {
	connectionID := randx.ConnectionID()

	clientLogger := logx.Logger().With().
		Str("connection_id", connectionID).
		Str("username", usr.Username).
		Logger()

	return &Client{
		broker: broker,
		conn:   wsConn,
		id:     connectionID,
		user:   usr,
		send:   make(chan []byte, sendQueueSize),
		logger: clientLogger,
	}
}

// ID returns the connection ID.
func (c *Client) ID() string {
	return c.id
}

// User returns the resolved identity.
func (c *Client) User() user.User {
	return c.user
}

// ReadPump reads frames from the websocket until the connection drops,
// dispatching each inbound event. It runs on the connection's own goroutine,
// which is what serializes routing per connection and preserves send order.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (client close/going away)")
			}
			break
		}

		c.dispatchInbound(messageBytes)
	}
}

// cleanupOnDisconnect deregisters the connection and closes the socket.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.broker.Disconnect(c)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// dispatchInbound validates and routes one inbound frame. The event set is
// closed; anything else is logged and dropped.
func (c *Client) dispatchInbound(messageBytes []byte) {
	var env Envelope
	if err := json.Unmarshal(messageBytes, &env); err != nil {
		c.logger.Warn().Err(err).
			Bytes("message_bytes", messageBytes).
			Msg("Client sent invalid JSON")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistenceTimeout)
	defer cancel()

	switch env.Event {
	case EventPublicMessage:
		var text string
		if err := json.Unmarshal(env.Payload, &text); err != nil {
			c.logger.Warn().Err(err).Msg("Client sent invalid public message payload")
			return
		}
		if _, customErr := c.broker.RoutePublic(ctx, c.user, text); customErr != nil {
			c.SendError(customErr)
		}

	case EventPrivateMessage:
		var payload PrivateSendPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			c.logger.Warn().Err(err).Msg("Client sent invalid private message payload")
			return
		}
		if _, customErr := c.broker.RouteDirectedText(ctx, c.user, payload.ToUsername, payload.Content); customErr != nil {
			c.SendError(customErr)
		}

	case EventPrivateImage:
		var payload PrivateImageSendPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			c.logger.Warn().Err(err).Msg("Client sent invalid private image payload")
			return
		}
		if _, customErr := c.broker.RouteDirectedImage(ctx, c.user, payload.ToUsername, payload.Image); customErr != nil {
			c.SendError(customErr)
		}

	case EventTyping, EventStopTyping:
		var payload TypingSendPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			c.logger.Warn().Err(err).Msg("Client sent invalid typing payload")
			return
		}
		c.broker.RelayTyping(c.user.Username, payload.To, env.Event == EventTyping)

	case EventRequestUsersUpdate:
		c.broker.PushPresence(ctx)

	default:
		c.logger.Warn().Str("event", string(env.Event)).Msg("Client sent unsupported event")
	}
}

// WritePump drains the send queue onto the websocket and keeps the
// heartbeat alive. One per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage writes one frame. Returns false when the pump should
// terminate.
func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a heartbeat ping. Returns false on write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// sendEvent marshals and queues one event for this connection.
func (c *Client) sendEvent(name EventName, payload any) error {
	messageBytes, err := encodeEvent(name, payload)
	if err != nil {
		c.logger.Error().Err(err).Str("event", string(name)).Msg("Error marshaling event")
		return err
	}

	return c.enqueue(messageBytes)
}

// enqueue hands a frame to the write pump without blocking. A full queue or
// a closed connection drops the frame; a vanished receiver is
// indistinguishable from one that was never online.
func (c *Client) enqueue(messageBytes []byte) error {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()

	if c.closed {
		return fmt.Errorf("connection closed")
	}

	select {
	case c.send <- messageBytes:
		return nil
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping message")
		return fmt.Errorf("client send queue full")
	}
}

// SendError reports a failed action to this client only.
func (c *Client) SendError(err error) {
	var code int
	var message string

	var customErr *errs.CustomError
	if errors.As(err, &customErr) {
		code = customErr.Code
		message = customErr.Message
	} else {
		code = errs.ErrUnknown
		message = fmt.Sprintf("Internal server error: %v", err)
	}

	if sendErr := c.sendEvent(EventError, ErrorPayload{Code: code, Message: message}); sendErr != nil {
		c.logger.Error().Err(sendErr).Msg("Failed to queue error event")
	}
}

// closeSend shuts the outbound queue, which in turn terminates WritePump.
// Only the broker calls this, after the registry removal that guarantees a
// single caller.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
