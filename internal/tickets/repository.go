package tickets

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/aura-webinar/privatevc/internal/models"
	"github.com/aura-webinar/privatevc/internal/rooms"
)

// Credits granted when a member joins a scope.
const (
	JoinTickets    = 1
	InviterTickets = 2
)

// ErrNegative is returned when a balance would drop below zero.
var ErrNegative = errors.New("ticket count must not be negative")

// Repository stores ticket balances and invite counts in Postgres.
type Repository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewRepository creates a ticket repository.
func NewRepository(pool *pgxpool.Pool, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{pool: pool, logger: logger}
}

var (
	_ rooms.EntitlementLedger = (*Repository)(nil)
	_ rooms.Refunder          = (*Repository)(nil)
)

// Get returns a member's balance. Unknown members have zero of everything.
func (r *Repository) Get(ctx context.Context, scopeID, userID uuid.UUID) (models.MemberInfo, error) {
	info := models.MemberInfo{ScopeID: scopeID, UserID: userID}
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE((SELECT tickets FROM tickets WHERE scope_id = $1 AND user_id = $2), 0),
		        COALESCE((SELECT invites FROM invitations WHERE scope_id = $1 AND user_id = $2), 0)`,
		scopeID, userID).Scan(&info.Tickets, &info.Invites)
	if err != nil {
		return models.MemberInfo{}, err
	}
	return info, nil
}

// Set overwrites a member's ticket balance.
func (r *Repository) Set(ctx context.Context, scopeID, userID uuid.UUID, n int) error {
	if n < 0 {
		return ErrNegative
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tickets (scope_id, user_id, tickets) VALUES ($1, $2, $3)
		 ON CONFLICT (scope_id, user_id) DO UPDATE SET tickets = EXCLUDED.tickets`,
		scopeID, userID, n)
	return err
}

// ConsumeEntitlement takes one ticket, or returns rooms.ErrInsufficient.
func (r *Repository) ConsumeEntitlement(ctx context.Context, scopeID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tickets SET tickets = tickets - 1
		 WHERE scope_id = $1 AND user_id = $2 AND tickets > 0`,
		scopeID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return rooms.ErrInsufficient
	}
	return nil
}

// Refund gives back a ticket taken by ConsumeEntitlement.
func (r *Repository) Refund(ctx context.Context, scopeID, userID uuid.UUID) error {
	return addTickets(ctx, r.pool, scopeID, userID, 1)
}

// GrantAll adds n tickets to every known member of a scope and returns how
// many members were credited.
func (r *Repository) GrantAll(ctx context.Context, scopeID uuid.UUID, n int) (int64, error) {
	if n < 0 {
		return 0, ErrNegative
	}
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO tickets (scope_id, user_id, tickets)
		 SELECT scope_id, user_id, $2 FROM scope_members WHERE scope_id = $1
		 ON CONFLICT (scope_id, user_id) DO UPDATE SET tickets = tickets.tickets + EXCLUDED.tickets`,
		scopeID, n)
	if err != nil {
		return 0, err
	}
	r.logger.Info("tickets granted to scope", zap.String("scope_id", scopeID.String()), zap.Int("tickets", n), zap.Int64("members", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}

// ResetAll zeroes every balance in a scope.
func (r *Repository) ResetAll(ctx context.Context, scopeID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE tickets SET tickets = 0 WHERE scope_id = $1`, scopeID)
	if err != nil {
		return 0, err
	}
	r.logger.Info("tickets reset", zap.String("scope_id", scopeID.String()), zap.Int64("members", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}

// RecordJoin registers a member. The first join credits the member with
// JoinTickets and the inviter, if any, with one invite and InviterTickets.
// It reports whether this was a first join.
func (r *Repository) RecordJoin(ctx context.Context, scopeID, userID uuid.UUID, inviterID *uuid.UUID) (bool, error) {
	first := false
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO scope_members (scope_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			scopeID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		first = true
		if err := addTickets(ctx, tx, scopeID, userID, JoinTickets); err != nil {
			return err
		}
		if inviterID == nil || *inviterID == userID {
			return nil
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO invitations (scope_id, user_id, invites) VALUES ($1, $2, 1)
			 ON CONFLICT (scope_id, user_id) DO UPDATE SET invites = invitations.invites + 1`,
			scopeID, *inviterID); err != nil {
			return err
		}
		return addTickets(ctx, tx, scopeID, *inviterID, InviterTickets)
	})
	if err != nil {
		return false, err
	}
	return first, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func addTickets(ctx context.Context, db execer, scopeID, userID uuid.UUID, n int) error {
	_, err := db.Exec(ctx,
		`INSERT INTO tickets (scope_id, user_id, tickets) VALUES ($1, $2, $3)
		 ON CONFLICT (scope_id, user_id) DO UPDATE SET tickets = tickets.tickets + EXCLUDED.tickets`,
		scopeID, userID, n)
	return err
}
