package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "idempotency:"

// RedisStore shares reservations between API replicas. Expiry is delegated to Redis TTLs.
type RedisStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) Reserve(ctx context.Context, key, fingerprint string, ttl time.Duration) (Reservation, error) {
	ttl = resolveTTL(ttl)
	record := Record{
		Fingerprint: fingerprint,
		Status:      StatusPending,
		ExpiresAt:   s.now().Add(ttl),
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return Reservation{}, err
	}

	id := redisKeyPrefix + hashKey(key)
	ok, err := s.client.SetNX(ctx, id, payload, ttl).Result()
	if err != nil {
		return Reservation{}, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return Reservation{State: ReservationNew, Record: record}, nil
	}

	raw, err := s.client.Get(ctx, id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired between SETNX and GET; try once more.
			return s.Reserve(ctx, key, fingerprint, ttl)
		}
		return Reservation{}, fmt.Errorf("load idempotency key: %w", err)
	}
	var existing Record
	if err := json.Unmarshal(raw, &existing); err != nil {
		return Reservation{}, fmt.Errorf("decode idempotency record: %w", err)
	}
	return reservationFor(existing, fingerprint)
}

func (s *RedisStore) SaveResponse(ctx context.Context, key, fingerprint string, resp Response, ttl time.Duration) error {
	ttl = resolveTTL(ttl)
	payload, err := json.Marshal(Record{
		Fingerprint:    fingerprint,
		Status:         StatusCompleted,
		ResponseStatus: resp.Status,
		ContentType:    resp.ContentType,
		ResponseBody:   resp.Body,
		ExpiresAt:      s.now().Add(ttl),
	})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKeyPrefix+hashKey(key), payload, ttl).Err()
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisKeyPrefix+hashKey(key)).Err()
}
