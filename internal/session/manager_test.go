package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateReusesThreadSession(t *testing.T) {
	m := NewManager("app", "demo_user")
	ctx := context.Background()

	first, err := m.GetOrCreate(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "thread-1", first.ID())
	assert.Equal(t, "demo_user", first.UserID())

	again, err := m.GetOrCreate(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID(), again.ID())

	other, err := m.GetOrCreate(ctx, "thread-2")
	require.NoError(t, err)
	assert.Equal(t, "thread-2", other.ID())
}
