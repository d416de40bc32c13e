package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"slotwise/backend/internal/domain"
	"slotwise/backend/internal/store"
)

const settingsKeyPrefix = "slotwise:settings:"

// client is the subset of redis.Cmdable the cache uses.
type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// SettingsCache is a read-through cache in front of a SettingsStore.
// Redis failures fall through to the store.
type SettingsCache struct {
	next   store.SettingsStore
	client client
	ttl    time.Duration
	log    *slog.Logger
}

var _ store.SettingsStore = (*SettingsCache)(nil)

func NewSettingsCache(next store.SettingsStore, rdb client, ttl time.Duration, log *slog.Logger) *SettingsCache {
	if log == nil {
		log = slog.Default()
	}
	return &SettingsCache{
		next:   next,
		client: rdb,
		ttl:    ttl,
		log:    log.With(slog.String("component", "settings_cache")),
	}
}

func settingsKey(organizationID string) string {
	return settingsKeyPrefix + organizationID
}

func (c *SettingsCache) GetSettings(ctx context.Context, organizationID string) (domain.OrganizationSettings, error) {
	key := settingsKey(organizationID)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var s domain.OrganizationSettings
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, nil
		}
		c.log.Warn("discarding corrupt cached settings", slog.String("organization_id", organizationID))
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn("settings cache read failed", slog.String("organization_id", organizationID), slog.Any("err", err))
	}

	s, err := c.next.GetSettings(ctx, organizationID)
	if err != nil {
		return domain.OrganizationSettings{}, err
	}
	c.put(ctx, key, s)
	return s, nil
}

func (c *SettingsCache) SaveSettings(ctx context.Context, settings domain.OrganizationSettings) (domain.OrganizationSettings, error) {
	saved, err := c.next.SaveSettings(ctx, settings)
	if err != nil {
		return domain.OrganizationSettings{}, err
	}
	if err := c.client.Del(ctx, settingsKey(saved.OrganizationID)).Err(); err != nil {
		c.log.Warn("settings cache invalidation failed", slog.String("organization_id", saved.OrganizationID), slog.Any("err", err))
	}
	return saved, nil
}

func (c *SettingsCache) put(ctx context.Context, key string, s domain.OrganizationSettings) {
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("settings cache write failed", slog.String("key", key), slog.Any("err", err))
	}
}
