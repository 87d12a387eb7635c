package rooms

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/privatevc/internal/models"
)

const (
	// DefaultRoomPrefix names private rooms "VC-<code>".
	DefaultRoomPrefix = "VC-"
	// DefaultUserLimit is the connection cap of a new private room.
	DefaultUserLimit = 2

	putAttempts = 3
)

// CreatorConfig tunes the rooms a Creator makes.
type CreatorConfig struct {
	RoomPrefix string
	UserLimit  int
}

// Creator runs the room creation flow: entitlement, passcode, room, session.
type Creator struct {
	ledger   EntitlementLedger
	codes    CodeSource
	gateway  RoomGateway
	registry *Registry
	cfg      CreatorConfig
	now      func() time.Time
	logger   *zap.Logger
}

// NewCreator creates a room creation service. A nil ledger means Unmetered.
func NewCreator(ledger EntitlementLedger, codes CodeSource, gateway RoomGateway, registry *Registry, cfg CreatorConfig, logger *zap.Logger) *Creator {
	if ledger == nil {
		ledger = Unmetered{}
	}
	if cfg.RoomPrefix == "" {
		cfg.RoomPrefix = DefaultRoomPrefix
	}
	if cfg.UserLimit <= 0 {
		cfg.UserLimit = DefaultUserLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Creator{
		ledger:   ledger,
		codes:    codes,
		gateway:  gateway,
		registry: registry,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// Create opens a private room in categoryID for creatorID and registers its
// session. The consumed entitlement is refunded when a later step fails.
func (c *Creator) Create(ctx context.Context, scopeID, categoryID, creatorID uuid.UUID) (models.Session, error) {
	if err := c.ledger.ConsumeEntitlement(ctx, scopeID, creatorID); err != nil {
		return models.Session{}, err
	}

	session, err := c.create(ctx, scopeID, categoryID, creatorID)
	if err != nil {
		c.refund(ctx, scopeID, creatorID)
		return models.Session{}, err
	}
	c.logger.Info("private room created",
		zap.String("scope_id", scopeID.String()),
		zap.String("room_id", session.RoomID.String()),
		zap.String("creator_id", creatorID.String()))
	return session, nil
}

func (c *Creator) create(ctx context.Context, scopeID, categoryID, creatorID uuid.UUID) (models.Session, error) {
	var lastErr error
	for attempt := 0; attempt < putAttempts; attempt++ {
		code, err := c.codes.Generate(scopeID)
		if err != nil {
			return models.Session{}, err
		}
		roomID, err := c.gateway.CreateRoom(ctx, RoomSpec{
			ScopeID:    scopeID,
			CategoryID: categoryID,
			Name:       c.cfg.RoomPrefix + code,
			OwnerID:    creatorID,
			UserLimit:  c.cfg.UserLimit,
		})
		if err != nil {
			return models.Session{}, err
		}

		session := models.Session{
			ScopeID:      scopeID,
			Code:         code,
			RoomID:       roomID,
			CategoryID:   categoryID,
			CreatorID:    creatorID,
			Participants: []uuid.UUID{creatorID},
			CreatedAt:    c.now().UTC(),
		}
		err = c.registry.Put(scopeID, code, session)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, ErrDuplicateKey) {
			return models.Session{}, err
		}

		// Lost the code to a concurrent creation; drop our room and draw again.
		lastErr = err
		c.logger.Debug("passcode collision", zap.String("scope_id", scopeID.String()), zap.Int("attempt", attempt+1))
		if derr := c.gateway.DeleteRoom(ctx, roomID); derr != nil && !errors.Is(derr, ErrRoomNotFound) {
			c.logger.Warn("discard colliding room failed", zap.String("room_id", roomID.String()), zap.Error(derr))
		}
	}
	return models.Session{}, lastErr
}

func (c *Creator) refund(ctx context.Context, scopeID, userID uuid.UUID) {
	r, ok := c.ledger.(Refunder)
	if !ok {
		return
	}
	if err := r.Refund(ctx, scopeID, userID); err != nil {
		c.logger.Error("refund ticket failed",
			zap.String("scope_id", scopeID.String()),
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}
}
