package rooms

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/privatevc/internal/models"
)

// AccessController redeems passcodes into room access.
type AccessController struct {
	registry *Registry
	gateway  RoomGateway
	logger   *zap.Logger
}

// NewAccessController creates an access controller.
func NewAccessController(registry *Registry, gateway RoomGateway, logger *zap.Logger) *AccessController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessController{registry: registry, gateway: gateway, logger: logger}
}

// Redeem grants userID access to the room behind code. Unknown codes and codes
// whose room was torn down both yield ErrInvalidCode. A gateway failure is
// returned as is and leaves the participant list untouched.
func (a *AccessController) Redeem(ctx context.Context, scopeID, userID uuid.UUID, code string) (models.Session, error) {
	code = strings.TrimSpace(code)
	if !validCode(code) {
		return models.Session{}, ErrInvalidCode
	}
	session, ok := a.registry.Get(scopeID, code)
	if !ok {
		return models.Session{}, ErrInvalidCode
	}

	if err := a.gateway.GrantAccess(ctx, session.RoomID, userID); err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			// Room vanished before the leave event arrived; teardown will follow.
			return models.Session{}, ErrInvalidCode
		}
		a.logger.Warn("grant access failed",
			zap.String("scope_id", scopeID.String()),
			zap.String("room_id", session.RoomID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return models.Session{}, err
	}

	// A removal that landed during the grant wins, even if the code has
	// since been reissued to another room.
	updated, err := a.registry.AppendParticipantByRoomHandle(scopeID, session.RoomID, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Session{}, ErrInvalidCode
		}
		return models.Session{}, err
	}
	a.logger.Info("passcode redeemed",
		zap.String("scope_id", scopeID.String()),
		zap.String("room_id", updated.RoomID.String()),
		zap.String("user_id", userID.String()))
	return updated, nil
}
