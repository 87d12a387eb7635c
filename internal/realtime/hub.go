package realtime

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/privatevc/internal/models"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// EventVoiceState is broadcast to a scope whenever a member moves.
const EventVoiceState = "voice_state"

// ErrChannelFull is returned when a voice channel reached its user limit.
var ErrChannelFull = errors.New("channel is full")

// VoiceStateHandler receives every presence change, in order.
type VoiceStateHandler func(ev models.VoiceStateEvent)

// ScopePublisher publishes scope events to every instance.
type ScopePublisher interface {
	PublishScopeEvent(scopeID uuid.UUID, event string, payload []byte) error
}

// ScopeSubscriber subscribes to scope events and invokes handler for each one.
type ScopeSubscriber interface {
	SubscribeScope(scopeID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

type presenceKey struct {
	scope uuid.UUID
	user  uuid.UUID
}

// Hub tracks voice connections. A member is in at most one voice channel per
// scope; connecting elsewhere moves them and closes the older connection.
type Hub struct {
	mu       sync.Mutex
	scopes   map[uuid.UUID]map[string]*Client    // scopeID -> clientID -> client
	channels map[uuid.UUID]map[string]*Client    // channelID -> clientID -> client
	presence map[presenceKey]*Client
	subs     map[uuid.UUID]func()
	logger   *zap.Logger
	pub      ScopePublisher
	sub      ScopeSubscriber
	onVoice  VoiceStateHandler
	pending  []models.VoiceStateEvent // in the order the hub applied them

	emitMu sync.Mutex // serializes delivery of pending
}

// NewHub creates a voice hub. pub and sub may be nil for a single instance.
func NewHub(logger *zap.Logger, pub ScopePublisher, sub ScopeSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		scopes:   make(map[uuid.UUID]map[string]*Client),
		channels: make(map[uuid.UUID]map[string]*Client),
		presence: make(map[presenceKey]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		pub:      pub,
		sub:      sub,
	}
}

// SetVoiceStateHandler sets the callback for presence changes.
func (h *Hub) SetVoiceStateHandler(fn VoiceStateHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onVoice = fn
}

// Register puts c into its voice channel. If the member was connected to
// another channel of the scope, that connection is evicted and the event
// reports the move.
func (h *Hub) Register(c *Client) error {
	h.mu.Lock()
	key := presenceKey{c.ScopeID, c.UserID}
	prev := h.presence[key]
	members := h.channels[c.ChannelID]
	occupied := len(members)
	if prev != nil && prev.ChannelID == c.ChannelID {
		occupied--
	}
	if c.UserLimit > 0 && occupied >= c.UserLimit {
		h.mu.Unlock()
		return ErrChannelFull
	}

	ev := models.VoiceStateEvent{ScopeID: c.ScopeID, UserID: c.UserID, To: c.ChannelID}
	if prev != nil {
		h.removeLocked(prev)
		close(prev.send)
		ev.From = prev.ChannelID
	}

	if h.scopes[c.ScopeID] == nil {
		h.scopes[c.ScopeID] = make(map[string]*Client)
		h.subscribeLocked(c.ScopeID)
	}
	h.scopes[c.ScopeID][c.ID] = c
	if h.channels[c.ChannelID] == nil {
		h.channels[c.ChannelID] = make(map[string]*Client)
	}
	h.channels[c.ChannelID][c.ID] = c
	h.presence[key] = c
	if prev != nil {
		ev.FromRemaining = len(h.channels[prev.ChannelID])
	}
	h.pending = append(h.pending, ev)
	h.mu.Unlock()

	h.logger.Debug("member connected",
		zap.String("client_id", c.ID),
		zap.String("scope_id", c.ScopeID.String()),
		zap.String("channel_id", c.ChannelID.String()))
	h.flush()
	return nil
}

// Unregister removes c. Evicted clients were already removed and are ignored.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.scopes[c.ScopeID][c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	h.removeLocked(c)
	close(c.send)
	ev := models.VoiceStateEvent{
		ScopeID:       c.ScopeID,
		UserID:        c.UserID,
		From:          c.ChannelID,
		FromRemaining: len(h.channels[c.ChannelID]),
	}
	if len(h.scopes[c.ScopeID]) == 0 {
		delete(h.scopes, c.ScopeID)
		if cancel, ok := h.subs[c.ScopeID]; ok {
			cancel()
			delete(h.subs, c.ScopeID)
		}
	}
	h.pending = append(h.pending, ev)
	h.mu.Unlock()

	h.logger.Debug("member disconnected",
		zap.String("client_id", c.ID),
		zap.String("scope_id", c.ScopeID.String()),
		zap.String("channel_id", c.ChannelID.String()))
	h.flush()
}

func (h *Hub) removeLocked(c *Client) {
	delete(h.scopes[c.ScopeID], c.ID)
	if m, ok := h.channels[c.ChannelID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.channels, c.ChannelID)
		}
	}
	key := presenceKey{c.ScopeID, c.UserID}
	if h.presence[key] == c {
		delete(h.presence, key)
	}
}

func (h *Hub) subscribeLocked(scopeID uuid.UUID) {
	if h.sub == nil {
		return
	}
	cancel, err := h.sub.SubscribeScope(scopeID, func(event string, payload []byte) {
		h.BroadcastToScope(scopeID, event, json.RawMessage(payload))
	})
	if err != nil {
		h.logger.Warn("scope subscription failed", zap.String("scope_id", scopeID.String()), zap.Error(err))
		return
	}
	h.subs[scopeID] = cancel
}

// flush delivers pending events one at a time. Whichever caller holds emitMu
// drains events queued by the others too, so delivery follows hub order.
func (h *Hub) flush() {
	h.emitMu.Lock()
	defer h.emitMu.Unlock()
	for {
		h.mu.Lock()
		if len(h.pending) == 0 {
			h.pending = nil
			h.mu.Unlock()
			return
		}
		ev := h.pending[0]
		h.pending = h.pending[1:]
		onVoice := h.onVoice
		h.mu.Unlock()
		h.emit(onVoice, ev)
	}
}

func (h *Hub) emit(onVoice VoiceStateHandler, ev models.VoiceStateEvent) {
	if onVoice != nil {
		onVoice(ev)
	}
	h.PublishToScope(ev.ScopeID, EventVoiceState, ev)
}

// Occupancy returns the number of connections in a voice channel.
func (h *Hub) Occupancy(channelID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.channels[channelID])
}

// ChannelOf returns the channel a member is connected to in a scope.
func (h *Hub) ChannelOf(scopeID, userID uuid.UUID) (uuid.UUID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.presence[presenceKey{scopeID, userID}]
	if !ok {
		return uuid.Nil, false
	}
	return c.ChannelID, true
}

// BroadcastToScope sends a message to every local client of a scope.
func (h *Hub) BroadcastToScope(scopeID uuid.UUID, event string, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sendLocked(h.scopes[scopeID], event, payload, "")
}

// BroadcastToChannel sends a message to the clients of a voice channel,
// skipping the client with ID except.
func (h *Hub) BroadcastToChannel(channelID uuid.UUID, event string, payload interface{}, except string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sendLocked(h.channels[channelID], event, payload, except)
}

// PublishToScope publishes through Redis so the subscriber callback performs
// the broadcast once on every instance. Without Redis it broadcasts locally.
func (h *Hub) PublishToScope(scopeID uuid.UUID, event string, payload interface{}) {
	if h.pub == nil {
		h.BroadcastToScope(scopeID, event, payload)
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := h.pub.PublishScopeEvent(scopeID, event, data); err != nil {
		h.logger.Warn("publish scope event failed", zap.String("event", event), zap.Error(err))
	}
}

// sendLocked must run under h.mu so that no client's send channel is closed
// concurrently.
func (h *Hub) sendLocked(clients map[string]*Client, event string, payload interface{}, except string) {
	if len(clients) == 0 {
		return
	}
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}
	for id, c := range clients {
		if id == except {
			continue
		}
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}
