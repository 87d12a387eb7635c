package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/privatevc/internal/rooms"
	"github.com/aura-webinar/privatevc/pkg/queue"
)

// RoomDeleter deletes rooms through the channel gateway.
type RoomDeleter interface {
	DeleteRoom(ctx context.Context, roomID uuid.UUID) error
}

// JobSource is the queue the processor drains.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// CleanupProcessor retries room deletes that failed during teardown.
type CleanupProcessor struct {
	rooms   RoomDeleter
	queue   JobSource
	backoff time.Duration
	logger  *zap.Logger
}

// NewCleanupProcessor creates a room cleanup processor.
func NewCleanupProcessor(deleter RoomDeleter, q JobSource, logger *zap.Logger) *CleanupProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CleanupProcessor{rooms: deleter, queue: q, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one cleanup job. A room that is already gone counts as done.
func (p *CleanupProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeRoomCleanup {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.RoomCleanupPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	err := p.rooms.DeleteRoom(ctx, payload.RoomID)
	if errors.Is(err, rooms.ErrRoomNotFound) {
		p.logger.Info("room already gone", zap.String("room_id", payload.RoomID.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete room %s: %w", payload.RoomID, err)
	}
	p.logger.Info("room cleanup completed",
		zap.String("scope_id", payload.ScopeID.String()),
		zap.String("room_id", payload.RoomID.String()),
		zap.Int("attempt", job.Attempt))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *CleanupProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("cleanup worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *CleanupProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
