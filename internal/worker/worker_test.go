package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/privatevc/internal/rooms"
	"github.com/aura-webinar/privatevc/pkg/queue"
)

type fakeDeleter struct {
	mu      sync.Mutex
	err     error
	deleted []uuid.UUID
}

func (f *fakeDeleter) DeleteRoom(_ context.Context, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, roomID)
	return nil
}

type fakeSource struct {
	mu      sync.Mutex
	jobs    []*queue.Job
	retried []*queue.Job
}

func (f *fakeSource) Dequeue(ctx context.Context) (*queue.Job, error) {
	f.mu.Lock()
	if len(f.jobs) > 0 {
		job := f.jobs[0]
		f.jobs = f.jobs[1:]
		f.mu.Unlock()
		return job, nil
	}
	f.mu.Unlock()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Millisecond):
		return nil, nil
	}
}

func (f *fakeSource) Retry(_ context.Context, job *queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job.Attempt++
	f.retried = append(f.retried, job)
	return nil
}

func cleanupJob(t *testing.T, roomID uuid.UUID) *queue.Job {
	t.Helper()
	job, err := queue.NewJob(queue.JobTypeRoomCleanup, queue.RoomCleanupPayload{ScopeID: uuid.New(), RoomID: roomID})
	require.NoError(t, err)
	return job
}

func TestProcessDeletesRoom(t *testing.T) {
	t.Parallel()

	del := &fakeDeleter{}
	p := NewCleanupProcessor(del, &fakeSource{}, nil)
	room := uuid.New()

	require.NoError(t, p.Process(context.Background(), cleanupJob(t, room)))
	assert.Equal(t, []uuid.UUID{room}, del.deleted)
}

func TestProcessTreatsMissingRoomAsDone(t *testing.T) {
	t.Parallel()

	p := NewCleanupProcessor(&fakeDeleter{err: rooms.ErrRoomNotFound}, &fakeSource{}, nil)
	assert.NoError(t, p.Process(context.Background(), cleanupJob(t, uuid.New())))
}

func TestProcessRejectsUnknownJob(t *testing.T) {
	t.Parallel()

	p := NewCleanupProcessor(&fakeDeleter{}, &fakeSource{}, nil)
	err := p.Process(context.Background(), &queue.Job{ID: "x", Type: "recording_upload"})
	assert.Error(t, err)
}

func TestRunRetriesFailedJobs(t *testing.T) {
	t.Parallel()

	del := &fakeDeleter{err: &rooms.GatewayError{Op: "delete_room", Err: errors.New("timeout")}}
	src := &fakeSource{jobs: []*queue.Job{cleanupJob(t, uuid.New())}}
	p := NewCleanupProcessor(del, src, nil)
	p.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return len(src.retried) >= 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Equal(t, 1, src.retried[0].Attempt)
}
