// Package cache keeps the last reconciled recipient list of each campaign.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unclebandit/voicecampaign-backend/internal/model"
)

type cachedRecipients struct {
	Recipients []model.Recipient `json:"recipients"`
	Version    int64             `json:"version"`
	FetchedAt  time.Time         `json:"fetched_at"`
}

// RecipientCache stores recipient status lists in Redis with a TTL.
type RecipientCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRecipientCache parses redisURL and checks the connection.
func NewRecipientCache(redisURL string, ttl time.Duration) (*RecipientCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRecipientCacheWithClient(client, ttl), nil
}

func NewRecipientCacheWithClient(client *redis.Client, ttl time.Duration) *RecipientCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RecipientCache{client: client, prefix: "campaign_recipients:", ttl: ttl}
}

func (c *RecipientCache) key(tenantID string, campaignID int64) string {
	return c.prefix + tenantID + ":" + strconv.FormatInt(campaignID, 10)
}

// Save stores recipients as observed at the given mirror version.
func (c *RecipientCache) Save(ctx context.Context, tenantID string, campaignID, version int64, recipients []model.Recipient) error {
	data, err := json.Marshal(cachedRecipients{Recipients: recipients, Version: version, FetchedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal recipients: %w", err)
	}
	if err := c.client.Set(ctx, c.key(tenantID, campaignID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("save recipients: %w", err)
	}
	return nil
}

// Load returns the cached list and the mirror version it was saved at.
// ok is false when nothing is cached or the entry expired.
func (c *RecipientCache) Load(ctx context.Context, tenantID string, campaignID int64) (recipients []model.Recipient, version int64, ok bool, err error) {
	raw, err := c.client.Get(ctx, c.key(tenantID, campaignID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("load recipients: %w", err)
	}
	var data cachedRecipients
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, 0, false, fmt.Errorf("unmarshal recipients: %w", err)
	}
	return data.Recipients, data.Version, true, nil
}

func (c *RecipientCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RecipientCache) Close() error {
	return c.client.Close()
}
