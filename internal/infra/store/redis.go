package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"courier/internal/common"
	"courier/internal/domain/notification"

	"github.com/redis/go-redis/v9"
)

var _ notification.NotificationStore = (*RedisStore)(nil)

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisStore keeps each notification log as a JSON string and indexes ids in a
// sorted set scored by creation time.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a Redis-backed store on an existing client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "courier"
	}
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

// NewRedisClient creates a go-redis client for the store.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (s *RedisStore) recordKey(id string) string {
	return fmt.Sprintf("%s:notification:%s", s.prefix, id)
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":notifications:by_created"
}

func (s *RedisStore) seqKey() string {
	return s.prefix + ":notifications:seq"
}

// Create inserts a new notification log record. The record key and its index
// entry are written together: if indexing fails the record key is removed.
func (s *RedisStore) Create(ctx context.Context, log *notification.NotificationLog) (*notification.NotificationLog, error) {
	data, err := json.Marshal(log)
	if err != nil {
		return nil, fmt.Errorf("encoding notification log: %w", err)
	}

	key := s.recordKey(log.ID)
	ok, err := s.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("inserting notification log: %w", err)
	}
	if !ok {
		return nil, common.NewDuplicateError("notification", log.ID)
	}

	if err := s.index(ctx, log.ID); err != nil {
		if delErr := s.client.Del(context.WithoutCancel(ctx), key).Err(); delErr != nil {
			slog.Error("removing unindexed notification log", "id", log.ID, "error", delErr)
		}
		return nil, fmt.Errorf("indexing notification log: %w", err)
	}

	return log.Clone(), nil
}

// index adds id to the creation index. Scores come from a per-prefix counter
// so insertion order survives records created within the same instant.
func (s *RedisStore) index(ctx context.Context, id string) error {
	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return err
	}
	return s.client.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(seq),
		Member: id,
	}).Err()
}

// Update applies a partial update inside a WATCH transaction.
func (s *RedisStore) Update(ctx context.Context, id string, patch notification.Patch) (*notification.NotificationLog, error) {
	key := s.recordKey(id)
	var updated *notification.NotificationLog

	txf := func(tx *redis.Tx) error {
		current, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}

		patch.Apply(current, s.now().UTC())
		data, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("encoding notification log: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = current
		return nil
	}

	const maxRetries = 5
	for i := 0; i < maxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			var notFound *common.NotFoundError
			if errors.As(err, &notFound) {
				return nil, err
			}
			return nil, fmt.Errorf("updating notification log: %w", err)
		}
		return updated, nil
	}
	return nil, fmt.Errorf("updating notification log %s: too much contention", id)
}

// GetByID retrieves a notification log by its ID.
func (s *RedisStore) GetByID(ctx context.Context, id string) (*notification.NotificationLog, error) {
	return s.get(ctx, s.client, id)
}

// List retrieves notification logs newest-created first. Records with equal
// creation times keep index order, newest insertion first.
func (s *RedisStore) List(ctx context.Context, filter notification.ListFilter) ([]*notification.NotificationLog, int, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("listing notification ids: %w", err)
	}
	if len(ids) == 0 {
		return []*notification.NotificationLog{}, 0, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.recordKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("loading notification logs: %w", err)
	}

	matched := make([]*notification.NotificationLog, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var log notification.NotificationLog
		if err := json.Unmarshal([]byte(raw), &log); err != nil {
			return nil, 0, fmt.Errorf("decoding notification log: %w", err)
		}
		if filter.Matches(&log) {
			matched = append(matched, &log)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	start, end := filter.Window(len(matched))
	return matched[start:end], len(matched), nil
}

func (s *RedisStore) get(ctx context.Context, c getter, id string) (*notification.NotificationLog, error) {
	raw, err := c.Get(ctx, s.recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, common.NewNotFoundError("notification", id)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching notification log: %w", err)
	}

	var log notification.NotificationLog
	if err := json.Unmarshal(raw, &log); err != nil {
		return nil, fmt.Errorf("decoding notification log: %w", err)
	}
	return &log, nil
}
