package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/voicecampaign-backend/internal/model"
)

func setupTestCache(t *testing.T, ttl time.Duration) (*RecipientCache, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	c, err := NewRecipientCache("redis://"+s.Addr(), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, s
}

func TestRecipientCacheRoundTrip(t *testing.T) {
	c, _ := setupTestCache(t, time.Hour)
	ctx := context.Background()

	recipients := []model.Recipient{
		{PhoneNumber: "+1", Status: model.RecipientCompleted},
		{PhoneNumber: "+2", Status: model.RecipientFailed, ConversationID: "conv-2"},
	}
	require.NoError(t, c.Save(ctx, "tenant-a", 7, 4, recipients))

	got, version, ok, err := c.Load(ctx, "tenant-a", 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, recipients, got)
	assert.EqualValues(t, 4, version)
}

func TestRecipientCacheTenantScoped(t *testing.T) {
	c, _ := setupTestCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, "tenant-a", 7, 1, []model.Recipient{{PhoneNumber: "+1"}}))

	_, _, ok, err := c.Load(ctx, "tenant-b", 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecipientCacheExpiry(t *testing.T) {
	c, s := setupTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Save(ctx, "tenant-a", 1, 1, []model.Recipient{{PhoneNumber: "+1"}}))
	s.FastForward(2 * time.Minute)

	_, _, ok, err := c.Load(ctx, "tenant-a", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRecipientCacheBadURL(t *testing.T) {
	_, err := NewRecipientCache("not-a-url", time.Minute)
	assert.Error(t, err)
}
