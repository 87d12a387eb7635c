package rooms

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/aura-webinar/privatevc/internal/models"
)

type fakeChannel struct {
	scope    uuid.UUID
	category uuid.UUID
	name     string
	display  bool
}

// fakeGateway is an in-memory RoomGateway.
type fakeGateway struct {
	mu       sync.Mutex
	channels map[uuid.UUID]*fakeChannel
	order    []uuid.UUID
	grants   map[uuid.UUID][]uuid.UUID

	createErr error
	deleteErr error
	grantErr  error
	listErr   map[uuid.UUID]error // by category
	renameErr map[uuid.UUID]error // by display

	// hooks run outside the lock, before the operation itself
	onGrant  func(roomID uuid.UUID)
	onRename func(ctx context.Context)

	creates int
	deletes int
	renames int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		channels:  make(map[uuid.UUID]*fakeChannel),
		grants:    make(map[uuid.UUID][]uuid.UUID),
		listErr:   make(map[uuid.UUID]error),
		renameErr: make(map[uuid.UUID]error),
	}
}

func (g *fakeGateway) add(ch *fakeChannel) uuid.UUID {
	id := uuid.New()
	g.channels[id] = ch
	g.order = append(g.order, id)
	return id
}

// addChannel seeds a channel directly, bypassing CreateRoom.
func (g *fakeGateway) addChannel(scope, category uuid.UUID, name string, display bool) uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.add(&fakeChannel{scope: scope, category: category, name: name, display: display})
}

func (g *fakeGateway) CreateRoom(_ context.Context, spec RoomSpec) (uuid.UUID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.creates++
	if g.createErr != nil {
		return uuid.Nil, g.createErr
	}
	id := g.add(&fakeChannel{scope: spec.ScopeID, category: spec.CategoryID, name: spec.Name})
	g.grants[id] = []uuid.UUID{spec.OwnerID}
	return id, nil
}

func (g *fakeGateway) DeleteRoom(_ context.Context, roomID uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deletes++
	if g.deleteErr != nil {
		return g.deleteErr
	}
	if _, ok := g.channels[roomID]; !ok {
		return ErrRoomNotFound
	}
	delete(g.channels, roomID)
	delete(g.grants, roomID)
	return nil
}

func (g *fakeGateway) GrantAccess(_ context.Context, roomID, userID uuid.UUID) error {
	if g.onGrant != nil {
		g.onGrant(roomID)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.grantErr != nil {
		return g.grantErr
	}
	if _, ok := g.channels[roomID]; !ok {
		return ErrRoomNotFound
	}
	g.grants[roomID] = append(g.grants[roomID], userID)
	return nil
}

func (g *fakeGateway) ListRoomsInCategory(_ context.Context, categoryID uuid.UUID) ([]models.RoomInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.listErr[categoryID]; err != nil {
		return nil, err
	}
	var out []models.RoomInfo
	for _, id := range g.order {
		ch, ok := g.channels[id]
		if ok && ch.category == categoryID {
			out = append(out, models.RoomInfo{ID: id, Name: ch.name})
		}
	}
	return out, nil
}

func (g *fakeGateway) GetDisplay(_ context.Context, displayID uuid.UUID) (*models.DisplayChannel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.channels[displayID]
	if !ok || !ch.display {
		return nil, ErrRoomNotFound
	}
	return &models.DisplayChannel{ID: displayID, ScopeID: ch.scope, CategoryID: ch.category, Label: ch.name}, nil
}

func (g *fakeGateway) CreateDisplay(_ context.Context, scopeID, categoryID uuid.UUID, label string) (uuid.UUID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.add(&fakeChannel{scope: scopeID, category: categoryID, name: label, display: true}), nil
}

func (g *fakeGateway) RenameDisplay(ctx context.Context, displayID uuid.UUID, label string) error {
	if g.onRename != nil {
		g.onRename(ctx)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.renameErr[displayID]; err != nil {
		return err
	}
	ch, ok := g.channels[displayID]
	if !ok {
		return ErrRoomNotFound
	}
	g.renames++
	ch.name = label
	return nil
}

func (g *fakeGateway) label(id uuid.UUID) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ch, ok := g.channels[id]; ok {
		return ch.name
	}
	return ""
}

func (g *fakeGateway) exists(id uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.channels[id]
	return ok
}

func (g *fakeGateway) renameCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.renames
}

// fakeLedger counts tickets per user.
type fakeLedger struct {
	mu      sync.Mutex
	tickets map[uuid.UUID]int
	refunds int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{tickets: make(map[uuid.UUID]int)}
}

func (l *fakeLedger) ConsumeEntitlement(_ context.Context, _, userID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tickets[userID] <= 0 {
		return ErrInsufficient
	}
	l.tickets[userID]--
	return nil
}

func (l *fakeLedger) Refund(_ context.Context, _, userID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tickets[userID]++
	l.refunds++
	return nil
}

// fixedCodes hands out codes in order, repeating the last one.
type fixedCodes struct {
	mu    sync.Mutex
	codes []string
	err   error
}

func (f *fixedCodes) Generate(uuid.UUID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	code := f.codes[0]
	if len(f.codes) > 1 {
		f.codes = f.codes[1:]
	}
	return code, nil
}

// fakeCleanup records enqueued cleanup jobs.
type fakeCleanup struct {
	mu    sync.Mutex
	rooms []uuid.UUID
}

func (f *fakeCleanup) EnqueueRoomCleanup(_ context.Context, _, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms = append(f.rooms, roomID)
	return nil
}
