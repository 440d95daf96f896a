package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/timeboxer/internal/app"
	"github.com/alexanderramin/timeboxer/internal/logger"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "timeboxer:schedule:"

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"-"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
	Channel  string        `yaml:"channel"`
}

// Redis implements ScheduleCache and ProgressPublisher on one client.
type Redis struct {
	log     *logger.Logger
	rdb     *goredis.Client
	ttl     time.Duration
	channel string
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, cfg RedisConfig, log *logger.Logger) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Channel == "" {
		cfg.Channel = "timeboxer:progress"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Redis{
		log:     log.With("service", "RedisCache"),
		rdb:     rdb,
		ttl:     cfg.TTL,
		channel: cfg.Channel,
	}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (*app.ScheduleResponse, bool, error) {
	raw, err := r.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var resp app.ScheduleResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		// A stale entry from an older shape is treated as a miss.
		r.log.Warn("dropping unreadable cache entry", "key", key, "error", err)
		_ = r.rdb.Del(ctx, keyPrefix+key).Err()
		return nil, false, nil
	}
	return &resp, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, resp *app.ScheduleResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, keyPrefix+key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Publish(ctx context.Context, ev app.AttemptEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.channel, raw).Err()
}

func (r *Redis) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}
