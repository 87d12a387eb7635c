package channels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/aura-webinar/privatevc/internal/models"
	"github.com/aura-webinar/privatevc/internal/rooms"
)

var (
	// ErrCategoryNotFound wraps rooms.ErrRoomNotFound for a missing category.
	ErrCategoryNotFound = fmt.Errorf("category: %w", rooms.ErrRoomNotFound)
	// ErrNotConnectable is returned when joining a display channel.
	ErrNotConnectable = errors.New("channel does not accept connections")
	// ErrAccessDenied is returned when joining a private channel without a grant.
	ErrAccessDenied = errors.New("no access to private channel")
)

// Scope events published when channels change.
const (
	EventChannelCreated = "channel_created"
	EventChannelDeleted = "channel_deleted"
	EventChannelRenamed = "channel_renamed"
)

// EventPublisher fans channel changes out to every instance serving the scope.
type EventPublisher interface {
	PublishScopeEvent(scopeID uuid.UUID, event string, payload []byte) error
}

// Repository is the Postgres channel directory. It implements rooms.RoomGateway.
type Repository struct {
	pool   *pgxpool.Pool
	events EventPublisher
	logger *zap.Logger
}

// NewRepository creates a channel repository. events may be nil.
func NewRepository(pool *pgxpool.Pool, events EventPublisher, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{pool: pool, events: events, logger: logger}
}

var _ rooms.RoomGateway = (*Repository)(nil)

// CreateRoom inserts a private voice channel and grants its owner access.
func (r *Repository) CreateRoom(ctx context.Context, spec rooms.RoomSpec) (uuid.UUID, error) {
	var id uuid.UUID
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1 AND scope_id = $2)`,
			spec.CategoryID, spec.ScopeID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrCategoryNotFound
		}
		if err := tx.QueryRow(ctx,
			`INSERT INTO channels (scope_id, category_id, name, kind, user_limit, private)
			 VALUES ($1, $2, $3, 'voice', $4, TRUE) RETURNING id`,
			spec.ScopeID, spec.CategoryID, spec.Name, spec.UserLimit).Scan(&id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO channel_grants (channel_id, user_id) VALUES ($1, $2)`, id, spec.OwnerID)
		return err
	})
	if err != nil {
		return uuid.Nil, gatewayErr("create_room", err)
	}
	r.publish(spec.ScopeID, EventChannelCreated, models.RoomInfo{ID: id, Name: spec.Name})
	return id, nil
}

// DeleteRoom removes a channel and its grants.
func (r *Repository) DeleteRoom(ctx context.Context, roomID uuid.UUID) error {
	var scopeID uuid.UUID
	err := r.pool.QueryRow(ctx, `DELETE FROM channels WHERE id = $1 RETURNING scope_id`, roomID).Scan(&scopeID)
	if err != nil {
		return gatewayErr("delete_room", err)
	}
	r.publish(scopeID, EventChannelDeleted, map[string]uuid.UUID{"id": roomID})
	return nil
}

// GrantAccess lets userID view and connect to roomID. Granting twice is a no-op.
func (r *Repository) GrantAccess(ctx context.Context, roomID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO channel_grants (channel_id, user_id)
		 SELECT id, $2 FROM channels WHERE id = $1
		 ON CONFLICT DO NOTHING`,
		roomID, userID)
	if err != nil {
		return gatewayErr("grant_access", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM channels WHERE id = $1)`, roomID).Scan(&exists); err != nil {
		return gatewayErr("grant_access", err)
	}
	if !exists {
		return rooms.ErrRoomNotFound
	}
	return nil
}

// ListRoomsInCategory returns every channel in categoryID.
func (r *Repository) ListRoomsInCategory(ctx context.Context, categoryID uuid.UUID) ([]models.RoomInfo, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name FROM channels WHERE category_id = $1 ORDER BY created_at`, categoryID)
	if err != nil {
		return nil, gatewayErr("list_rooms", err)
	}
	defer rows.Close()
	var list []models.RoomInfo
	for rows.Next() {
		var ri models.RoomInfo
		if err := rows.Scan(&ri.ID, &ri.Name); err != nil {
			return nil, gatewayErr("list_rooms", err)
		}
		list = append(list, ri)
	}
	if err := rows.Err(); err != nil {
		return nil, gatewayErr("list_rooms", err)
	}
	return list, nil
}

// GetDisplay resolves a monitor display channel.
func (r *Repository) GetDisplay(ctx context.Context, displayID uuid.UUID) (*models.DisplayChannel, error) {
	var (
		d          models.DisplayChannel
		categoryID *uuid.UUID
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, scope_id, category_id, name FROM channels WHERE id = $1 AND kind = 'display'`,
		displayID).Scan(&d.ID, &d.ScopeID, &categoryID, &d.Label)
	if err != nil {
		return nil, gatewayErr("get_display", err)
	}
	if categoryID != nil {
		d.CategoryID = *categoryID
	}
	return &d, nil
}

// CreateDisplay inserts a display channel nobody can connect to.
func (r *Repository) CreateDisplay(ctx context.Context, scopeID, categoryID uuid.UUID, label string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx,
		`INSERT INTO channels (scope_id, category_id, name, kind, user_limit, private)
		 SELECT $1, id, $3, 'display', 0, FALSE FROM categories WHERE id = $2 AND scope_id = $1
		 RETURNING id`,
		scopeID, categoryID, label).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrCategoryNotFound
	}
	if err != nil {
		return uuid.Nil, gatewayErr("create_display", err)
	}
	r.publish(scopeID, EventChannelCreated, models.RoomInfo{ID: id, Name: label})
	return id, nil
}

// RenameDisplay sets the label of a display channel.
func (r *Repository) RenameDisplay(ctx context.Context, displayID uuid.UUID, label string) error {
	var scopeID uuid.UUID
	err := r.pool.QueryRow(ctx,
		`UPDATE channels SET name = $2 WHERE id = $1 AND kind = 'display' RETURNING scope_id`,
		displayID, label).Scan(&scopeID)
	if err != nil {
		return gatewayErr("rename_display", err)
	}
	r.publish(scopeID, EventChannelRenamed, models.RoomInfo{ID: displayID, Name: label})
	return nil
}

// CreateCategory adds a category to a scope.
func (r *Repository) CreateCategory(ctx context.Context, scopeID uuid.UUID, name string) (*models.Category, error) {
	c := models.Category{ScopeID: scopeID, Name: name}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO categories (scope_id, name) VALUES ($1, $2) RETURNING id, created_at`,
		scopeID, name).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCategories returns the categories of a scope.
func (r *Repository) ListCategories(ctx context.Context, scopeID uuid.UUID) ([]models.Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, scope_id, name, created_at FROM categories WHERE scope_id = $1 ORDER BY created_at`, scopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.ScopeID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// ListChannels returns the channels of a scope that userID can see: public
// ones and private ones they were granted.
func (r *Repository) ListChannels(ctx context.Context, scopeID, userID uuid.UUID) ([]models.Channel, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.scope_id, c.category_id, c.name, c.kind, c.user_limit, c.private, c.created_at,
		        EXISTS (SELECT 1 FROM channel_grants g WHERE g.channel_id = c.id AND g.user_id = $2)
		 FROM channels c
		 WHERE c.scope_id = $1
		 ORDER BY c.created_at`,
		scopeID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Channel
	for rows.Next() {
		var (
			c       models.Channel
			granted bool
		)
		if err := rows.Scan(&c.ID, &c.ScopeID, &c.CategoryID, &c.Name, &c.Kind, &c.UserLimit, &c.Private, &c.CreatedAt, &granted); err != nil {
			return nil, err
		}
		if visible(&c, granted) {
			list = append(list, c)
		}
	}
	return list, rows.Err()
}

// Authorize checks that userID may connect to channelID and returns the channel.
func (r *Repository) Authorize(ctx context.Context, channelID, userID uuid.UUID) (*models.Channel, error) {
	var (
		c       models.Channel
		granted bool
	)
	err := r.pool.QueryRow(ctx,
		`SELECT c.id, c.scope_id, c.category_id, c.name, c.kind, c.user_limit, c.private,
		        EXISTS (SELECT 1 FROM channel_grants g WHERE g.channel_id = c.id AND g.user_id = $2)
		 FROM channels c WHERE c.id = $1`,
		channelID, userID).Scan(&c.ID, &c.ScopeID, &c.CategoryID, &c.Name, &c.Kind, &c.UserLimit, &c.Private, &granted)
	if err != nil {
		return nil, gatewayErr("authorize", err)
	}
	if err := canConnect(&c, granted); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) publish(scopeID uuid.UUID, event string, payload interface{}) {
	if r.events == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := r.events.PublishScopeEvent(scopeID, event, body); err != nil {
		r.logger.Warn("publish scope event failed", zap.String("event", event), zap.Error(err))
	}
}

// gatewayErr maps a database error onto the gateway error taxonomy.
func gatewayErr(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return rooms.ErrRoomNotFound
	case errors.Is(err, rooms.ErrRoomNotFound):
		return err
	default:
		return &rooms.GatewayError{Op: op, Err: err}
	}
}
