package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/storefront-bot/internal/core/domain"
	"github.com/rl1809/storefront-bot/internal/logging"
)

const (
	orderKeyPrefix = "order:pending:"
	pendingSetKey  = "orders:pending"
	lockKeyPrefix  = "lock:"
	lockTTL        = 2 * time.Minute
)

var tryCreateScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 1 then
	redis.call('SADD', KEYS[2], ARGV[2])
	return 1
end
return 0
`)

var removeScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then
	return false
end
redis.call('DEL', KEYS[1])
redis.call('SREM', KEYS[2], ARGV[1])
return current
`)

var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisAdapter stores pending orders as JSON under order:pending:<id> and
// indexes them in the orders:pending set. Both are updated by Lua scripts
// so the one-pending-order rule holds across handler goroutines and bot
// restarts. It also provides the confirm lock.
type RedisAdapter struct {
	client *redis.Client
	logger logging.Logger
}

func NewRedisAdapter(client *redis.Client, logger logging.Logger) *RedisAdapter {
	if logger == nil {
		logger = logging.Discard()
	}
	return &RedisAdapter{client: client, logger: logger.With("component", "redis")}
}

type orderRecord struct {
	ID                   string    `json:"id"`
	RequesterID          int64     `json:"requester_id"`
	PlanID               int64     `json:"plan_id"`
	PlanName             string    `json:"plan_name"`
	PlanPrice            int64     `json:"plan_price"`
	RequesterDisplayName string    `json:"requester_display_name"`
	Status               string    `json:"status"`
	CreatedAt            time.Time `json:"created_at"`
}

func toRecord(o domain.PendingOrder) orderRecord {
	return orderRecord{
		ID:                   o.ID,
		RequesterID:          o.RequesterID,
		PlanID:               o.PlanID,
		PlanName:             o.PlanName,
		PlanPrice:            o.PlanPrice,
		RequesterDisplayName: o.RequesterDisplayName,
		Status:               string(o.Status),
		CreatedAt:            o.CreatedAt,
	}
}

func (r orderRecord) toDomain() domain.PendingOrder {
	return domain.PendingOrder{
		ID:                   r.ID,
		RequesterID:          r.RequesterID,
		PlanID:               r.PlanID,
		PlanName:             r.PlanName,
		PlanPrice:            r.PlanPrice,
		RequesterDisplayName: r.RequesterDisplayName,
		Status:               domain.OrderStatus(r.Status),
		CreatedAt:            r.CreatedAt,
	}
}

func orderKey(requesterID int64) string {
	return orderKeyPrefix + strconv.FormatInt(requesterID, 10)
}

func decodeOrder(raw string) (*domain.PendingOrder, error) {
	var rec orderRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	o := rec.toDomain()
	return &o, nil
}

func (r *RedisAdapter) TryCreate(ctx context.Context, order domain.PendingOrder) error {
	payload, err := json.Marshal(toRecord(order))
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}

	id := strconv.FormatInt(order.RequesterID, 10)
	created, err := tryCreateScript.Run(ctx, r.client, []string{orderKey(order.RequesterID), pendingSetKey}, payload, id).Int()
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	if created != 1 {
		return domain.ErrAlreadyPending
	}
	return nil
}

func (r *RedisAdapter) Get(ctx context.Context, requesterID int64) (*domain.PendingOrder, error) {
	raw, err := r.client.Get(ctx, orderKey(requesterID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return decodeOrder(raw)
}

func (r *RedisAdapter) Remove(ctx context.Context, requesterID int64) (*domain.PendingOrder, error) {
	id := strconv.FormatInt(requesterID, 10)
	raw, err := removeScript.Run(ctx, r.client, []string{orderKey(requesterID), pendingSetKey}, id).Text()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("remove order: %w", err)
	}
	return decodeOrder(raw)
}

func (r *RedisAdapter) ListAll(ctx context.Context) ([]domain.PendingOrder, error) {
	ids, err := r.client.SMembers(ctx, pendingSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := make([]domain.PendingOrder, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = orderKeyPrefix + id
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		o, err := decodeOrder(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, nil
}

// TryLock takes lock:<key> with SET NX and a TTL so a crashed holder
// cannot wedge the key forever.
func (r *RedisAdapter) TryLock(ctx context.Context, key string) (func(), bool, error) {
	lockKey := lockKeyPrefix + key
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, lockKey, token, lockTTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	return r.releaser(lockKey, token), true, nil
}

func (r *RedisAdapter) releaser(lockKey, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.releaseLock(ctx, lockKey, token); err != nil {
			// The key stays held until lockTTL runs out.
			r.logger.Error(ctx, "release lock failed", "key", lockKey, "ttl", lockTTL.String(), "error", err)
		}
	}
}

// releaseLock deletes lockKey only while it still holds token.
func (r *RedisAdapter) releaseLock(ctx context.Context, lockKey, token string) error {
	deleted, err := releaseLockScript.Run(ctx, r.client, []string{lockKey}, token).Int()
	if err != nil {
		return err
	}
	if deleted == 0 {
		r.logger.Warn(ctx, "lock expired before release", "key", lockKey)
	}
	return nil
}
