package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aura-webinar/privatevc/internal/channels"
	"github.com/aura-webinar/privatevc/internal/middleware"
	"github.com/aura-webinar/privatevc/internal/models"
	"github.com/aura-webinar/privatevc/internal/rooms"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ChannelAuthorizer checks that a member may connect to a voice channel.
type ChannelAuthorizer interface {
	Authorize(ctx context.Context, channelID, userID uuid.UUID) (*models.Channel, error)
}

// Client is one member's connection to a voice channel.
type Client struct {
	ID        string
	ScopeID   uuid.UUID
	ChannelID uuid.UUID
	UserID    uuid.UUID
	UserLimit int
	JoinedAt  time.Time
	hub       *Hub
	conn      *websocket.Conn
	send      chan WSMessage
	logger    *zap.Logger
}

// ServeWs handles GET /ws?channel_id=&token=: it authorizes the member,
// upgrades the connection and keeps them in the channel until it closes.
func ServeWs(hub *Hub, tokens middleware.TokenValidator, authz ChannelAuthorizer, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		channelIDStr := c.Query("channel_id")
		token := c.Query("token")
		if channelIDStr == "" || token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "channel_id and token required"})
			return
		}
		channelID, err := uuid.Parse(channelIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel_id"})
			return
		}
		claims, err := tokens.Validate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		ch, err := authz.Authorize(c.Request.Context(), channelID, claims.UserID)
		switch {
		case errors.Is(err, rooms.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
			return
		case errors.Is(err, channels.ErrAccessDenied), errors.Is(err, channels.ErrNotConnectable):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		case err != nil:
			logger.Error("authorize channel failed", zap.String("channel_id", channelID.String()), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "channel lookup failed"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:        uuid.New().String(),
			ScopeID:   ch.ScopeID,
			ChannelID: ch.ID,
			UserID:    claims.UserID,
			UserLimit: ch.UserLimit,
			JoinedAt:  time.Now(),
			hub:       hub,
			conn:      conn,
			send:      make(chan WSMessage, 256),
			logger:    logger,
		}
		if err := hub.Register(client); err != nil {
			msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error())
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			_ = conn.Close()
			return
		}
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case "signal", "speaking", "chat_message":
			// relayed to the other members of the room only
			c.hub.BroadcastToChannel(c.ChannelID, msg.Event, json.RawMessage(msg.Data), c.ID)
		default:
			c.logger.Debug("ignoring websocket event", zap.String("event", msg.Event))
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
