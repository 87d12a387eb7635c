package rooms

import (
	"context"

	"github.com/google/uuid"

	"github.com/aura-webinar/privatevc/internal/models"
)

// RoomSpec describes a private room to create.
type RoomSpec struct {
	ScopeID    uuid.UUID
	CategoryID uuid.UUID
	Name       string
	OwnerID    uuid.UUID
	UserLimit  int
}

// RoomGateway manages the underlying channels and their access lists.
// Operations on a resource that no longer exists return ErrRoomNotFound;
// any other failure is a *GatewayError.
type RoomGateway interface {
	CreateRoom(ctx context.Context, spec RoomSpec) (uuid.UUID, error)
	DeleteRoom(ctx context.Context, roomID uuid.UUID) error
	GrantAccess(ctx context.Context, roomID, userID uuid.UUID) error
	ListRoomsInCategory(ctx context.Context, categoryID uuid.UUID) ([]models.RoomInfo, error)

	GetDisplay(ctx context.Context, displayID uuid.UUID) (*models.DisplayChannel, error)
	CreateDisplay(ctx context.Context, scopeID, categoryID uuid.UUID, label string) (uuid.UUID, error)
	RenameDisplay(ctx context.Context, displayID uuid.UUID, label string) error
}

// EntitlementLedger gates room creation. ConsumeEntitlement decrements and
// returns ErrInsufficient when the user has nothing left.
type EntitlementLedger interface {
	ConsumeEntitlement(ctx context.Context, scopeID, userID uuid.UUID) error
}

// Refunder is implemented by ledgers that can return a consumed entitlement
// when room creation fails afterwards.
type Refunder interface {
	Refund(ctx context.Context, scopeID, userID uuid.UUID) error
}

// CleanupQueue schedules out-of-band deletion of rooms whose teardown failed.
type CleanupQueue interface {
	EnqueueRoomCleanup(ctx context.Context, scopeID, roomID uuid.UUID) error
}

// Unmetered is a ledger that always grants.
type Unmetered struct{}

func (Unmetered) ConsumeEntitlement(context.Context, uuid.UUID, uuid.UUID) error { return nil }
