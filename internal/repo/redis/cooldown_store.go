package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/diagnosis/formrelay/internal/cooldown"
	"github.com/diagnosis/formrelay/pkg/config"
)

const keyPrefix = "formrelay:cooldown:"

// Connect opens a client from cfg and pings it.
func Connect(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB

	client := goredis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// CooldownStore keeps last-submission times as unix milliseconds that
// expire with the cooldown window, so several relay instances share one clock.
type CooldownStore struct {
	client goredis.Cmdable
}

func NewCooldownStore(client goredis.Cmdable) *CooldownStore {
	return &CooldownStore{client: client}
}

func (s *CooldownStore) Last(ctx context.Context, key string) (time.Time, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	raw, err := s.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt cooldown value %q: %w", raw, err)
	}
	return time.UnixMilli(ms), true, nil
}

func (s *CooldownStore) Touch(ctx context.Context, key string, at time.Time, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	// Keep the record a little past the window so the boundary is decided by
	// the stored time, not by key expiry.
	return s.client.Set(ctx, keyPrefix+key, strconv.FormatInt(at.UnixMilli(), 10), ttl+time.Second).Err()
}

var _ cooldown.Store = (*CooldownStore)(nil)
