package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"weekrent/internal/app/policies"
	"weekrent/internal/app/uow"
	domainproperties "weekrent/internal/domain/properties"
	domainrange "weekrent/internal/domain/shared/daterange"
)

type Options struct {
	Addr     string
	Password string
	DB       int
}

func NewClient(opts Options) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB})
}

// SegmentCache stores display segments as JSON under one key per property.
type SegmentCache struct {
	client redis.Cmdable
}

func NewSegmentCache(client redis.Cmdable) *SegmentCache {
	return &SegmentCache{client: client}
}

type cachedRange struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

func (c *SegmentCache) Get(ctx context.Context, id domainproperties.PropertyID) ([]domainrange.DateRange, bool, error) {
	data, err := c.client.Get(ctx, segmentsKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var raw []cachedRange
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, err
	}
	out := make([]domainrange.DateRange, 0, len(raw))
	for _, r := range raw {
		checkIn, err := time.Parse(time.DateOnly, r.CheckIn)
		if err != nil {
			return nil, false, err
		}
		checkOut, err := time.Parse(time.DateOnly, r.CheckOut)
		if err != nil {
			return nil, false, err
		}
		out = append(out, domainrange.DateRange{CheckIn: checkIn, CheckOut: checkOut})
	}
	return out, true, nil
}

func (c *SegmentCache) Set(ctx context.Context, id domainproperties.PropertyID, segments []domainrange.DateRange, ttl time.Duration) error {
	raw := make([]cachedRange, 0, len(segments))
	for _, seg := range segments {
		raw = append(raw, cachedRange{CheckIn: seg.CheckIn.Format(time.DateOnly), CheckOut: seg.CheckOut.Format(time.DateOnly)})
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, segmentsKey(id), payload, ttl).Err()
}

func (c *SegmentCache) Invalidate(ctx context.Context, ids ...domainproperties.PropertyID) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, segmentsKey(id))
	}
	return c.client.Del(ctx, keys...).Err()
}

func segmentsKey(id domainproperties.PropertyID) string {
	return fmt.Sprintf("cache:segments:%s", id)
}

// ErrLockTimeout is returned when a lock stays taken past the wait budget.
var ErrLockTimeout = errors.New("cache: lock wait timed out")

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Locker implements uow.Locker with SET NX plus a token-checked release.
type Locker struct {
	client redis.Scripter
	setter redis.Cmdable
	TTL    time.Duration
	Wait   time.Duration
	Poll   time.Duration
}

func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client, setter: client, TTL: 30 * time.Second, Wait: 5 * time.Second, Poll: 25 * time.Millisecond}
}

func (l *Locker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	token := uuid.NewString()
	redisKey := lockKey(key)
	deadline := time.Now().Add(l.Wait)
	for {
		ok, err := l.setter.SetNX(ctx, redisKey, token, l.TTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func(ctx context.Context) error {
				return releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.Poll):
		}
	}
}

func lockKey(key string) string {
	return "lock:" + key
}

var (
	_ policies.SegmentCache = (*SegmentCache)(nil)
	_ uow.Locker            = (*Locker)(nil)
)
