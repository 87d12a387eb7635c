package rooms

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/privatevc/internal/models"
)

func TestEnterRecordsParticipant(t *testing.T) {
	t.Parallel()

	f := newRoomsFixture(&fixedCodes{codes: []string{"7070"}}, nil)
	ctx := context.Background()
	scope, creator, x := uuid.New(), uuid.New(), uuid.New()
	session, err := f.creator.Create(ctx, scope, uuid.New(), creator)
	require.NoError(t, err)

	f.tracker.Handle(ctx, models.VoiceStateEvent{ScopeID: scope, UserID: x, To: session.RoomID})
	f.tracker.Handle(ctx, models.VoiceStateEvent{ScopeID: scope, UserID: x, To: session.RoomID})

	got, _ := f.registry.Get(scope, "7070")
	assert.Equal(t, []uuid.UUID{creator, x}, got.Participants)
}

func TestLeaveWithOccupantsKeepsRoom(t *testing.T) {
	t.Parallel()

	f := newRoomsFixture(&fixedCodes{codes: []string{"7171"}}, nil)
	ctx := context.Background()
	scope := uuid.New()
	session, err := f.creator.Create(ctx, scope, uuid.New(), uuid.New())
	require.NoError(t, err)

	f.tracker.Handle(ctx, models.VoiceStateEvent{ScopeID: scope, UserID: uuid.New(), From: session.RoomID, FromRemaining: 1})

	assert.True(t, f.registry.Contains(scope, "7171"))
	assert.True(t, f.gateway.exists(session.RoomID))
}

func TestLeaveUnmanagedRoomIsIgnored(t *testing.T) {
	t.Parallel()

	f := newRoomsFixture(nil, nil)
	scope := uuid.New()
	public := f.gateway.addChannel(scope, uuid.New(), "General", false)

	f.tracker.Handle(context.Background(), models.VoiceStateEvent{ScopeID: scope, UserID: uuid.New(), From: public})

	assert.True(t, f.gateway.exists(public))
	assert.Equal(t, 0, f.gateway.deletes)
}

func TestMoveTearsDownSourceAndEntersTarget(t *testing.T) {
	t.Parallel()

	f := newRoomsFixture(&fixedCodes{codes: []string{"1111", "2222"}}, nil)
	ctx := context.Background()
	scope, user := uuid.New(), uuid.New()
	a, err := f.creator.Create(ctx, scope, uuid.New(), user)
	require.NoError(t, err)
	b, err := f.creator.Create(ctx, scope, uuid.New(), uuid.New())
	require.NoError(t, err)

	f.tracker.Handle(ctx, models.VoiceStateEvent{ScopeID: scope, UserID: user, From: a.RoomID, To: b.RoomID})

	assert.False(t, f.registry.Contains(scope, "1111"))
	got, _ := f.registry.Get(scope, "2222")
	assert.Contains(t, got.Participants, user)
}

func TestTeardownDeleteFailureEnqueuesCleanup(t *testing.T) {
	t.Parallel()

	f := newRoomsFixture(&fixedCodes{codes: []string{"8080"}}, nil)
	ctx := context.Background()
	scope := uuid.New()
	session, err := f.creator.Create(ctx, scope, uuid.New(), uuid.New())
	require.NoError(t, err)
	f.gateway.deleteErr = &GatewayError{Op: "delete_room", Err: errors.New("timeout")}

	f.tracker.Handle(ctx, models.VoiceStateEvent{ScopeID: scope, UserID: uuid.New(), From: session.RoomID})

	assert.False(t, f.registry.Contains(scope, "8080"), "session goes even when the delete fails")
	assert.Equal(t, []uuid.UUID{session.RoomID}, f.cleanup.rooms)
}

func TestTeardownRoomAlreadyGone(t *testing.T) {
	t.Parallel()

	f := newRoomsFixture(&fixedCodes{codes: []string{"9090"}}, nil)
	ctx := context.Background()
	scope := uuid.New()
	session, err := f.creator.Create(ctx, scope, uuid.New(), uuid.New())
	require.NoError(t, err)
	require.NoError(t, f.gateway.DeleteRoom(ctx, session.RoomID))

	f.tracker.Handle(ctx, models.VoiceStateEvent{ScopeID: scope, UserID: uuid.New(), From: session.RoomID})

	assert.False(t, f.registry.Contains(scope, "9090"))
	assert.Empty(t, f.cleanup.rooms)
}

func TestRunProcessesEventsInOrder(t *testing.T) {
	t.Parallel()

	f := newRoomsFixture(&fixedCodes{codes: []string{"3131"}}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	scope, x := uuid.New(), uuid.New()
	session, err := f.creator.Create(ctx, scope, uuid.New(), uuid.New())
	require.NoError(t, err)

	events := make(chan models.VoiceStateEvent, 2)
	events <- models.VoiceStateEvent{ScopeID: scope, UserID: x, To: session.RoomID}
	events <- models.VoiceStateEvent{ScopeID: scope, UserID: x, From: session.RoomID}
	close(events)

	done := make(chan struct{})
	go func() {
		f.tracker.Run(ctx, events)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tracker did not stop after events closed")
	}
	assert.False(t, f.registry.Contains(scope, "3131"))
}

func TestEnterStaleRoomAfterCodeReuse(t *testing.T) {
	t.Parallel()

	f := newRoomsFixture(&fixedCodes{codes: []string{"7272"}}, nil)
	ctx := context.Background()
	scope, newCreator := uuid.New(), uuid.New()
	old, err := f.creator.Create(ctx, scope, uuid.New(), uuid.New())
	require.NoError(t, err)
	f.registry.ResetScope(scope)
	_, err = f.creator.Create(ctx, scope, uuid.New(), newCreator)
	require.NoError(t, err)

	f.tracker.Handle(ctx, models.VoiceStateEvent{ScopeID: scope, UserID: uuid.New(), To: old.RoomID})

	got, _ := f.registry.Get(scope, "7272")
	assert.Equal(t, []uuid.UUID{newCreator}, got.Participants)
}
