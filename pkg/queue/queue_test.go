package queue

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobWrapsPayload(t *testing.T) {
	t.Parallel()

	scopeID, roomID := uuid.New(), uuid.New()
	job, err := NewJob(JobTypeRoomCleanup, RoomCleanupPayload{ScopeID: scopeID, RoomID: roomID})
	require.NoError(t, err)

	assert.Equal(t, JobTypeRoomCleanup, job.Type)
	assert.Zero(t, job.Attempt)
	assert.NotEmpty(t, job.ID)

	var p RoomCleanupPayload
	require.NoError(t, json.Unmarshal(job.Payload, &p))
	assert.Equal(t, roomID, p.RoomID)
	assert.Equal(t, scopeID, p.ScopeID)
}
