package rooms

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/privatevc/internal/models"
)

const (
	// DefaultReconcileInterval is how often monitor labels are refreshed.
	DefaultReconcileInterval = 2 * time.Minute
	// DefaultMonitorPrefix starts every monitor display label.
	DefaultMonitorPrefix = "Private VC count:"
)

// ReconcilerConfig tunes the reconciliation job.
type ReconcilerConfig struct {
	Interval      time.Duration
	MonitorPrefix string
	RoomPrefix    string
}

// Reconciler periodically recounts private rooms per monitored scope and
// renames the scope's display channel when the count changed.
type Reconciler struct {
	monitors *MonitorStore
	gateway  RoomGateway
	cfg      ReconcilerConfig
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	ticks  atomic.Uint64
}

// NewReconciler creates a reconciler. Call Start to begin the loop.
func NewReconciler(monitors *MonitorStore, gateway RoomGateway, cfg ReconcilerConfig, logger *zap.Logger) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultReconcileInterval
	}
	if cfg.MonitorPrefix == "" {
		cfg.MonitorPrefix = DefaultMonitorPrefix
	}
	if cfg.RoomPrefix == "" {
		cfg.RoomPrefix = DefaultRoomPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{monitors: monitors, gateway: gateway, cfg: cfg, logger: logger}
}

// Start begins the loop. Calling Start on a running reconciler does nothing.
func (r *Reconciler) Start() {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	go r.run(ctx, done)
	r.logger.Info("monitor reconciler started", zap.Duration("interval", r.cfg.Interval))
}

// Stop ends the loop after the pass in flight, if any, has finished.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.cancel = nil
	<-r.done
	r.logger.Info("monitor reconciler stopped")
}

// Ticks returns the number of completed passes.
func (r *Reconciler) Ticks() uint64 { return r.ticks.Load() }

func (r *Reconciler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	// Passes are never cancelled half way; Stop only takes effect between them.
	passCtx := context.WithoutCancel(ctx)
	r.Tick(passCtx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			r.Tick(passCtx)
		}
	}
}

// Tick runs one pass over every monitored scope. A failure in one scope is
// logged and does not affect the others.
func (r *Reconciler) Tick(ctx context.Context) {
	for _, scopeID := range r.monitors.Scopes() {
		if err := r.ReconcileScope(ctx, scopeID); err != nil {
			r.logger.Warn("monitor reconcile failed", zap.String("scope_id", scopeID.String()), zap.Error(err))
		}
	}
	r.ticks.Add(1)
}

// ReconcileScope refreshes the display label of one scope. A scope without a
// binding, or whose display channel is gone, is skipped without error.
func (r *Reconciler) ReconcileScope(ctx context.Context, scopeID uuid.UUID) error {
	binding, ok := r.monitors.Get(scopeID)
	if !ok {
		return nil
	}
	display, err := r.gateway.GetDisplay(ctx, binding.DisplayID)
	if errors.Is(err, ErrRoomNotFound) {
		r.logger.Debug("monitor display missing", zap.String("scope_id", scopeID.String()))
		return nil
	}
	if err != nil {
		return err
	}
	if display.CategoryID == uuid.Nil {
		return nil
	}

	list, err := r.gateway.ListRoomsInCategory(ctx, display.CategoryID)
	if err != nil {
		return err
	}
	count := r.CountRooms(list)
	if current, ok := r.labelCount(display.Label); ok && current == count {
		return nil
	}

	label := r.FormatLabel(count)
	if err := r.gateway.RenameDisplay(ctx, display.ID, label); err != nil {
		return err
	}
	r.logger.Info("monitor label updated", zap.String("scope_id", scopeID.String()), zap.String("label", label))
	return nil
}

// CountRooms counts the private rooms in list by name convention.
func (r *Reconciler) CountRooms(list []models.RoomInfo) int {
	n := 0
	for _, room := range list {
		if strings.HasPrefix(room.Name, r.cfg.RoomPrefix) {
			n++
		}
	}
	return n
}

// FormatLabel renders the display label for count rooms.
func (r *Reconciler) FormatLabel(count int) string {
	return r.cfg.MonitorPrefix + strconv.Itoa(count)
}

func (r *Reconciler) labelCount(label string) (int, bool) {
	rest, ok := strings.CutPrefix(label, r.cfg.MonitorPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Bind points scopeID's monitor at an existing display channel of that scope.
func (r *Reconciler) Bind(ctx context.Context, scopeID, displayID uuid.UUID) (models.MonitorBinding, error) {
	display, err := r.gateway.GetDisplay(ctx, displayID)
	if err != nil {
		return models.MonitorBinding{}, err
	}
	if display.ScopeID != scopeID {
		return models.MonitorBinding{}, ErrRoomNotFound
	}
	return r.monitors.Set(scopeID, displayID), nil
}

// Setup finds or creates the display channel in categoryID, binds it and
// refreshes its label right away. The binding is kept even when the first
// refresh fails; the next tick retries it.
func (r *Reconciler) Setup(ctx context.Context, scopeID, categoryID uuid.UUID) (models.MonitorBinding, error) {
	list, err := r.gateway.ListRoomsInCategory(ctx, categoryID)
	if err != nil {
		return models.MonitorBinding{}, err
	}
	displayID := uuid.Nil
	for _, ch := range list {
		if strings.HasPrefix(ch.Name, r.cfg.MonitorPrefix) {
			displayID = ch.ID
			break
		}
	}
	if displayID == uuid.Nil {
		displayID, err = r.gateway.CreateDisplay(ctx, scopeID, categoryID, r.FormatLabel(0))
		if err != nil {
			return models.MonitorBinding{}, err
		}
	}
	binding := r.monitors.Set(scopeID, displayID)
	return binding, r.ReconcileScope(ctx, scopeID)
}
