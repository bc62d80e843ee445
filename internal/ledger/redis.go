package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pollbook/pkg/platform/sentinel"
	"pollbook/pkg/requestcontext"
)

const (
	backendRedis = "redis"

	defaultRedisPrefix     = "pollbook:"
	defaultRedisMaxRetries = 16
	redisExpirySet         = "ledger:expiry"
)

// Redis stores each entry as a string key under a prefix. Transactions use
// optimistic locking: every key read inside RunInTx is WATCHed and the staged
// writes are applied with MULTI/EXEC. A concurrent change aborts EXEC and the
// callback is re-run against fresh state, up to maxRetries times.
//
// Expiry deadlines live in a sorted set scored in unix milliseconds and are
// only ever raised (ZADD GT), so they are never watched.
type Redis struct {
	client     *redis.Client
	prefix     string
	maxRetries int
	timeout    time.Duration
}

type RedisOption func(*Redis)

func WithRedisPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

func WithRedisMaxRetries(n int) RedisOption {
	return func(r *Redis) {
		if n > 0 {
			r.maxRetries = n
		}
	}
}

func WithRedisTxTimeout(d time.Duration) RedisOption {
	return func(r *Redis) {
		r.timeout = d
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		client:     client,
		prefix:     defaultRedisPrefix,
		maxRetries: defaultRedisMaxRetries,
		timeout:    DefaultTxTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) k(key Key) string {
	return r.prefix + string(key)
}

func (r *Redis) Get(ctx context.Context, key Key) ([]byte, error) {
	return redisGet(ctx, r.client, r.k(key))
}

func (r *Redis) Has(ctx context.Context, key Key) (bool, error) {
	return redisHas(ctx, r.client, r.k(key))
}

// View runs fn as a read-only transaction. Every key it reads is WATCHed and
// the view is validated with an EXEC at the end, so a commit that lands
// between two reads re-runs fn. fn may therefore run more than once.
func (r *Redis) View(ctx context.Context, fn func(ctx context.Context, rd Reader) error) error {
	return r.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		return fn(ctx, tx)
	})
}

func (r *Redis) ExpiresAt(ctx context.Context, key Key) (time.Time, bool, error) {
	score, err := r.client.ZScore(ctx, r.prefix+redisExpirySet, string(key)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("zscore expiry: %w", err)
	}
	return time.UnixMilli(int64(score)).UTC(), true, nil
}

func (r *Redis) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (err error) {
	start := time.Now()
	defer func() { observeTx(backendRedis, start, err) }()

	ctx, cancel, err := withTxDeadline(ctx, r.timeout)
	if err != nil {
		return err
	}
	defer cancel()

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		err = r.client.Watch(ctx, func(rtx *redis.Tx) error {
			tx := &redisTx{store: r, rtx: rtx, writes: make(map[Key][]byte)}
			if err := fn(ctx, tx); err != nil {
				return err
			}
			return tx.commit(ctx)
		})
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		txConflicts.WithLabelValues(backendRedis).Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return fmt.Errorf("ledger transaction retries exhausted: %w", sentinel.ErrConflict)
}

func (r *Redis) Close() error {
	return r.client.Close()
}

type redisTx struct {
	store  *Redis
	rtx    *redis.Tx
	order  []Key
	writes map[Key][]byte
	extend []redis.Z
	// watched is set once any key has been WATCHed on this connection.
	watched bool
}

func (t *redisTx) watch(ctx context.Context, key Key) error {
	if err := t.rtx.Watch(ctx, t.store.k(key)).Err(); err != nil {
		return fmt.Errorf("watch %s: %w", key, err)
	}
	t.watched = true
	return nil
}

func (t *redisTx) Get(ctx context.Context, key Key) ([]byte, error) {
	if raw, ok := t.writes[key]; ok {
		return raw, nil
	}
	if err := t.watch(ctx, key); err != nil {
		return nil, err
	}
	return redisGet(ctx, t.rtx, t.store.k(key))
}

func (t *redisTx) Has(ctx context.Context, key Key) (bool, error) {
	if _, ok := t.writes[key]; ok {
		return true, nil
	}
	if err := t.watch(ctx, key); err != nil {
		return false, err
	}
	return redisHas(ctx, t.rtx, t.store.k(key))
}

func (t *redisTx) Put(_ context.Context, key Key, value []byte) error {
	if _, ok := t.writes[key]; !ok {
		t.order = append(t.order, key)
	}
	t.writes[key] = value
	return nil
}

func (t *redisTx) Create(ctx context.Context, key Key, value []byte) error {
	exists, err := t.Has(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return sentinel.ErrAlreadyUsed
	}
	return t.Put(ctx, key, value)
}

func (t *redisTx) Extend(ctx context.Context, key Key, ttl time.Duration) error {
	exists, err := t.Has(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	deadline := requestcontext.Now(ctx).Add(ttl)
	t.extend = append(t.extend, redis.Z{Score: float64(deadline.UnixMilli()), Member: string(key)})
	return nil
}

// commit always EXECs when anything was watched, even with nothing staged:
// EXEC is what reports a concurrent change to the keys the callback read.
func (t *redisTx) commit(ctx context.Context) error {
	if !t.watched && len(t.order) == 0 && len(t.extend) == 0 {
		return nil
	}
	_, err := t.rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(t.order) == 0 && len(t.extend) == 0 {
			// go-redis skips empty pipelines, so queue a no-op to force MULTI/EXEC
			pipe.Ping(ctx)
		}
		for _, key := range t.order {
			pipe.Set(ctx, t.store.k(key), t.writes[key], 0)
		}
		if len(t.extend) > 0 {
			pipe.ZAddArgs(ctx, t.store.prefix+redisExpirySet, redis.ZAddArgs{GT: true, Members: t.extend})
		}
		return nil
	})
	return err
}

func redisGet(ctx context.Context, c redis.Cmdable, key string) ([]byte, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return raw, nil
}

func redisHas(ctx context.Context, c redis.Cmdable, key string) (bool, error) {
	n, err := c.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return n > 0, nil
}
