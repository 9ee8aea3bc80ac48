package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/entregave/dispatch-backend/pkg/config"
	"github.com/entregave/dispatch-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	keyNamespace   = "dv"
	driverPrefix   = "driver"
	lockPrefix     = "lock"
	counterPrefix  = "counter"
	positionSuffix = "pos"
)

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	HSet(context.Context, string, ...any) *redis.IntCmd
	HGetAll(context.Context, string) *redis.MapStringStringCmd
	Expire(context.Context, string, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// Client wraps the redis connection helpers needed by the platform.
type Client struct {
	store cmdable
	raw   *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// DriverPosition is the cached last-known location of a courier.
type DriverPosition struct {
	Latitude   float64
	Longitude  float64
	BatteryPct *float64
	ReportedAt time.Time
}

// New bootstraps a Redis client with pooling/timeouts and verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "redis connection established")
	}
	return &Client{store: raw, raw: raw}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL == "" && cfg.Address == "" {
		return nil, errors.New("redis url or address is required")
	}
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Set stores a string value with an optional TTL.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	return c.store.Set(ctx, key, value, ttl).Err()
}

// Get returns a string value stored at key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.store == nil {
		return "", errors.New("redis client not initialized")
	}
	return c.store.Get(ctx, key).Result()
}

// SetNX sets a value only if the key does not exist yet.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.store == nil {
		return false, errors.New("redis client not initialized")
	}
	return c.store.SetNX(ctx, key, value, ttl).Result()
}

// Del removes the provided keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	return c.store.Del(ctx, keys...).Err()
}

// DriverPositionKey returns the namespaced hash key for a courier's position.
func (c *Client) DriverPositionKey(driverID string) string {
	return c.buildKey(driverPrefix, positionSuffix, driverID)
}

// LockKey returns a namespaced key for distributed locks.
func (c *Client) LockKey(scope string) string {
	return c.buildKey(lockPrefix, scope)
}

// CounterKey returns a namespaced key for counters.
func (c *Client) CounterKey(name string) string {
	return c.buildKey(counterPrefix, name)
}

// StoreDriverPosition caches a courier's last-known position with a TTL.
func (c *Client) StoreDriverPosition(ctx context.Context, driverID string, pos DriverPosition, ttl time.Duration) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	key := c.DriverPositionKey(driverID)
	fields := []any{
		"lat", fmt.Sprintf("%.7f", pos.Latitude),
		"lng", fmt.Sprintf("%.7f", pos.Longitude),
		"reported_at", pos.ReportedAt.UTC().Format(time.RFC3339),
	}
	if pos.BatteryPct != nil {
		fields = append(fields, "battery_pct", fmt.Sprintf("%.1f", *pos.BatteryPct))
	}
	if err := c.store.HSet(ctx, key, fields...).Err(); err != nil {
		return err
	}
	if ttl > 0 {
		if err := c.store.Expire(ctx, key, ttl).Err(); err != nil {
			return err
		}
	}
	return nil
}

// GetDriverPosition reads a cached courier position. Returns redis.Nil-wrapped
// miss semantics as (nil, nil) when the hash is absent or expired.
func (c *Client) GetDriverPosition(ctx context.Context, driverID string) (*DriverPosition, error) {
	if c.store == nil {
		return nil, errors.New("redis client not initialized")
	}
	raw, err := c.store.HGetAll(ctx, c.DriverPositionKey(driverID)).Result()
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	pos := &DriverPosition{}
	if _, err := fmt.Sscanf(raw["lat"], "%f", &pos.Latitude); err != nil {
		return nil, fmt.Errorf("parsing cached latitude: %w", err)
	}
	if _, err := fmt.Sscanf(raw["lng"], "%f", &pos.Longitude); err != nil {
		return nil, fmt.Errorf("parsing cached longitude: %w", err)
	}
	if ts, ok := raw["reported_at"]; ok {
		if parsed, perr := time.Parse(time.RFC3339, ts); perr == nil {
			pos.ReportedAt = parsed
		}
	}
	if pct, ok := raw["battery_pct"]; ok {
		var battery float64
		if _, perr := fmt.Sscanf(pct, "%f", &battery); perr == nil {
			pos.BatteryPct = &battery
		}
	}
	return pos, nil
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	return c.store.Ping(ctx).Err()
}

// Close shuts down the underlying client if available.
func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

func (c *Client) buildKey(parts ...string) string {
	if len(parts) == 0 {
		return keyNamespace
	}
	clean := []string{keyNamespace}
	for _, part := range parts {
		if part == "" {
			continue
		}
		clean = append(clean, strings.TrimSpace(part))
	}
	return strings.Join(clean, ":")
}
