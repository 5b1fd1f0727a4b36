package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeduper(t *testing.T) {
	d, err := NewMemoryDeduper(2, time.Minute)
	require.NoError(t, err)

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }
	ctx := context.Background()

	first, err := d.FirstSeen(ctx, "wamid.1")
	require.NoError(t, err)
	assert.True(t, first)

	again, _ := d.FirstSeen(ctx, "wamid.1")
	assert.False(t, again)

	now = now.Add(2 * time.Minute)
	expired, _ := d.FirstSeen(ctx, "wamid.1")
	assert.True(t, expired, "keys expire after the ttl")

	_, _ = d.FirstSeen(ctx, "wamid.2")
	_, _ = d.FirstSeen(ctx, "wamid.3")
	evicted, _ := d.FirstSeen(ctx, "wamid.1")
	assert.True(t, evicted, "least recently used keys are evicted")
}

func TestMemoryDeduper_Forget(t *testing.T) {
	d, err := NewMemoryDeduper(8, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	_, _ = d.FirstSeen(ctx, "mid.1")
	require.NoError(t, d.Forget(ctx, "mid.1"))
	require.NoError(t, d.Forget(ctx, "never-seen"))

	again, err := d.FirstSeen(ctx, "mid.1")
	require.NoError(t, err)
	assert.True(t, again)
}
