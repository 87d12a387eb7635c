package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aura-webinar/privatevc/internal/channels"
)

const (
	scopeChannelPrefix = "privatevc:scope:"
	publishTimeout     = 5 * time.Second
)

// Scope events carried over Redis. Anything else is dropped on receipt.
var scopeEvents = map[string]bool{
	EventVoiceState:              true,
	channels.EventChannelCreated: true,
	channels.EventChannelDeleted: true,
	channels.EventChannelRenamed: true,
}

var (
	errUnknownEvent  = errors.New("unknown scope event")
	errScopeMismatch = errors.New("scope event published on another scope's channel")
)

// ScopeEvent is the envelope published on a scope's Redis channel.
type ScopeEvent struct {
	ScopeID uuid.UUID       `json:"scope_id"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
	At      time.Time       `json:"at"`
}

func scopeChannel(scopeID uuid.UUID) string {
	return scopeChannelPrefix + scopeID.String()
}

func encodeScopeEvent(scopeID uuid.UUID, event string, payload []byte) ([]byte, error) {
	if !scopeEvents[event] {
		return nil, fmt.Errorf("%w: %q", errUnknownEvent, event)
	}
	return json.Marshal(ScopeEvent{ScopeID: scopeID, Event: event, Data: payload, At: time.Now().UTC()})
}

// decodeScopeEvent parses a message received on scopeID's channel.
func decodeScopeEvent(scopeID uuid.UUID, raw string) (ScopeEvent, error) {
	var ev ScopeEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return ScopeEvent{}, err
	}
	if !scopeEvents[ev.Event] {
		return ScopeEvent{}, fmt.Errorf("%w: %q", errUnknownEvent, ev.Event)
	}
	if ev.ScopeID != scopeID {
		return ScopeEvent{}, errScopeMismatch
	}
	return ev, nil
}

// RedisPubSub implements ScopePublisher and ScopeSubscriber using Redis pub/sub,
// so channel changes and voice state reach clients on every instance.
type RedisPubSub struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPubSub creates a Redis pub/sub bridge for scope events.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPubSub{client: client, logger: logger}
}

// PublishScopeEvent publishes one of the known scope events.
func (r *RedisPubSub) PublishScopeEvent(scopeID uuid.UUID, event string, payload []byte) error {
	body, err := encodeScopeEvent(scopeID, event, payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return r.client.Publish(ctx, scopeChannel(scopeID), body).Err()
}

// SubscribeScope calls handler for every valid event published to scopeID
// until cancel is called.
func (r *RedisPubSub) SubscribeScope(scopeID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error) {
	channel := scopeChannel(scopeID)
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := r.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancelCtx()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}
	msgs := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				ev, err := decodeScopeEvent(scopeID, msg.Payload)
				if err != nil {
					r.logger.Debug("dropping scope event", zap.String("channel", channel), zap.Error(err))
					continue
				}
				handler(ev.Event, ev.Data)
			}
		}
	}()
	return cancelCtx, nil
}
