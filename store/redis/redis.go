package redis

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/OutOfBedlam/trendline/store"
	backend "github.com/redis/go-redis/v9"
)

var _ store.VisibilityStore = (*Store)(nil)

// Store keeps the hidden series of each chart in a redis SET.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL expires the visibility of a chart ttl after its last change.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

func NewFromClient(client *backend.Client, opts ...Option) *Store {
	ret := &Store{
		client: client,
		prefix: "trendline:hidden:",
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (s *Store) key(chartID string) string {
	return s.prefix + chartID
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Hidden(ctx context.Context, chartID string) ([]string, error) {
	ret, err := s.client.SMembers(ctx, s.key(chartID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load hidden series: %w", err)
	}
	slices.Sort(ret)
	return ret, nil
}

func (s *Store) SetHidden(ctx context.Context, chartID string, names []string) error {
	key := s.key(chartID)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(names) > 0 {
		members := make([]any, len(names))
		for i, n := range names {
			members[i] = n
		}
		pipe.SAdd(ctx, key, members...)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save hidden series: %w", err)
	}
	return nil
}

// toggleScript flips membership of ARGV[1] and refreshes the expiry
// when ARGV[2] milliseconds is positive. It returns 1 when the member
// is in the set afterwards.
var toggleScript = backend.NewScript(`
local hidden = 1
if redis.call("SISMEMBER", KEYS[1], ARGV[1]) == 1 then
	redis.call("SREM", KEYS[1], ARGV[1])
	hidden = 0
else
	redis.call("SADD", KEYS[1], ARGV[1])
end
if tonumber(ARGV[2]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return hidden
`)

func (s *Store) Toggle(ctx context.Context, chartID, series string) (bool, error) {
	n, err := toggleScript.Run(ctx, s.client, []string{s.key(chartID)}, series, s.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to toggle hidden series: %w", err)
	}
	return n == 1, nil
}

func (s *Store) Clear(ctx context.Context, chartID string) error {
	if err := s.client.Del(ctx, s.key(chartID)).Err(); err != nil {
		return fmt.Errorf("failed to clear hidden series: %w", err)
	}
	return nil
}
