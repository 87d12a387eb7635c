package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNamesAreOrdered(t *testing.T) {
	t.Parallel()

	names, err := migrationNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"001_channels.sql", "002_tickets.sql"}, names)
}
