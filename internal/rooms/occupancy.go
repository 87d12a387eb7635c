package rooms

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/privatevc/internal/models"
)

// OccupancyTracker reacts to voice state changes: it records participants
// entering a private room and tears the room down once it is empty.
type OccupancyTracker struct {
	registry *Registry
	gateway  RoomGateway
	cleanup  CleanupQueue
	logger   *zap.Logger
}

// NewOccupancyTracker creates a tracker. cleanup may be nil, in which case a
// failed delete is only logged.
func NewOccupancyTracker(registry *Registry, gateway RoomGateway, cleanup CleanupQueue, logger *zap.Logger) *OccupancyTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OccupancyTracker{registry: registry, gateway: gateway, cleanup: cleanup, logger: logger}
}

// Run handles events one at a time in delivery order until ctx is done or
// events is closed.
func (t *OccupancyTracker) Run(ctx context.Context, events <-chan models.VoiceStateEvent) {
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("occupancy tracker stopping")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			t.Handle(ctx, ev)
		}
	}
}

// Handle applies one voice state change. The leave half is processed before
// the enter half.
func (t *OccupancyTracker) Handle(ctx context.Context, ev models.VoiceStateEvent) {
	if ev.From != uuid.Nil && ev.FromRemaining == 0 {
		t.teardown(ctx, ev.ScopeID, ev.From)
	}
	if ev.To != uuid.Nil && ev.To != ev.From {
		t.enter(ev.ScopeID, ev.To, ev.UserID)
	}
}

func (t *OccupancyTracker) teardown(ctx context.Context, scopeID, roomID uuid.UUID) {
	session, ok := t.registry.RemoveByRoomHandle(scopeID, roomID)
	if !ok {
		return
	}
	err := t.gateway.DeleteRoom(ctx, roomID)
	switch {
	case err == nil:
		t.logger.Info("empty private room deleted",
			zap.String("scope_id", scopeID.String()),
			zap.String("room_id", roomID.String()),
			zap.Int("participants", len(session.Participants)))
	case errors.Is(err, ErrRoomNotFound):
		t.logger.Debug("private room already gone", zap.String("room_id", roomID.String()))
	default:
		t.logger.Warn("delete empty room failed",
			zap.String("scope_id", scopeID.String()),
			zap.String("room_id", roomID.String()),
			zap.Error(err))
		if t.cleanup == nil {
			return
		}
		if qerr := t.cleanup.EnqueueRoomCleanup(ctx, scopeID, roomID); qerr != nil {
			t.logger.Error("enqueue room cleanup failed", zap.String("room_id", roomID.String()), zap.Error(qerr))
		}
	}
}

func (t *OccupancyTracker) enter(scopeID, roomID, userID uuid.UUID) {
	if _, err := t.registry.AppendParticipantByRoomHandle(scopeID, roomID, userID); err != nil && !errors.Is(err, ErrNotFound) {
		t.logger.Warn("record participant failed", zap.String("room_id", roomID.String()), zap.Error(err))
	}
}
