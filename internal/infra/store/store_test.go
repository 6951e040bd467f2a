package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"courier/internal/common"
	"courier/internal/domain/notification"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactories lists every NotificationStore that runs without external services.
func storeFactories(t *testing.T) map[string]func(t *testing.T) notification.NotificationStore {
	return map[string]func(t *testing.T) notification.NotificationStore{
		"memory": func(t *testing.T) notification.NotificationStore {
			return NewMemoryStore()
		},
		"redis": func(t *testing.T) notification.NotificationStore {
			mr, err := miniredis.Run()
			require.NoError(t, err)
			client := NewRedisClient(mr.Addr(), "", 0)
			t.Cleanup(func() {
				client.Close()
				mr.Close()
			})
			return NewRedisStore(client, "test")
		},
	}
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newLog(id string, offset time.Duration, status notification.NotificationStatus, channel notification.Channel) *notification.NotificationLog {
	created := baseTime.Add(offset)
	return &notification.NotificationLog{
		ID:        id,
		CreatedAt: created,
		UpdatedAt: created,
		Channel:   channel,
		Type:      notification.TypeOTP,
		Language:  notification.LanguageEN,
		To:        "user@example.com",
		Subject:   "Your verification code",
		Body:      "code 1234",
		Status:    status,
		Metadata:  map[string]any{"source": "test"},
	}
}

func ids(logs []*notification.NotificationLog) []string {
	out := make([]string, len(logs))
	for i, l := range logs {
		out[i] = l.ID
	}
	return out
}

func TestStoreCreateAndGet(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			created, err := s.Create(ctx, newLog("n-1", 0, notification.StatusPending, notification.ChannelEmail))
			require.NoError(t, err)
			assert.Equal(t, "n-1", created.ID)
			assert.Equal(t, 0, created.Attempts)

			got, err := s.GetByID(ctx, "n-1")
			require.NoError(t, err)
			assert.Equal(t, notification.StatusPending, got.Status)
			assert.Equal(t, "Your verification code", got.Subject)
			assert.Equal(t, "test", got.Metadata["source"])
			assert.True(t, got.CreatedAt.Equal(baseTime))
		})
	}
}

func TestStoreCreateDuplicateID(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			_, err := s.Create(ctx, newLog("dup", 0, notification.StatusPending, notification.ChannelSMS))
			require.NoError(t, err)

			_, err = s.Create(ctx, newLog("dup", time.Second, notification.StatusPending, notification.ChannelSMS))
			var dupErr *common.DuplicateError
			require.True(t, errors.As(err, &dupErr), "got %v", err)
		})
	}
}

func TestStoreUpdate(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			_, err := s.Create(ctx, newLog("u-1", 0, notification.StatusPending, notification.ChannelPush))
			require.NoError(t, err)

			retried := notification.StatusRetried
			attempts := 2
			reason := "gateway timeout"
			updated, err := s.Update(ctx, "u-1", notification.Patch{Status: &retried, Attempts: &attempts, Error: &reason})
			require.NoError(t, err)
			assert.Equal(t, notification.StatusRetried, updated.Status)
			assert.Equal(t, 2, updated.Attempts)
			assert.Equal(t, "gateway timeout", updated.Error)
			assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))
			assert.Equal(t, "code 1234", updated.Body, "write-once fields must survive updates")

			sent := notification.StatusSent
			cleared := ""
			msgID := "msg-9"
			updated, err = s.Update(ctx, "u-1", notification.Patch{Status: &sent, Error: &cleared, MessageID: &msgID})
			require.NoError(t, err)
			assert.Equal(t, notification.StatusSent, updated.Status)
			assert.Equal(t, 2, updated.Attempts, "attempts untouched when absent from patch")
			assert.Empty(t, updated.Error)
			assert.Equal(t, "msg-9", updated.MessageID)

			got, err := s.GetByID(ctx, "u-1")
			require.NoError(t, err)
			assert.Equal(t, updated.Status, got.Status)
			assert.Empty(t, got.Error)
		})
	}
}

func TestStoreNotFound(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()
			var notFound *common.NotFoundError

			_, err := s.GetByID(ctx, "missing")
			assert.True(t, errors.As(err, &notFound), "GetByID: got %v", err)

			attempts := 1
			_, err = s.Update(ctx, "missing", notification.Patch{Attempts: &attempts})
			assert.True(t, errors.As(err, &notFound), "Update: got %v", err)
		})
	}
}

func TestStoreListFiltersNewestFirst(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			seed := []*notification.NotificationLog{
				newLog("a", 1*time.Minute, notification.StatusFailed, notification.ChannelEmail),
				newLog("b", 2*time.Minute, notification.StatusSent, notification.ChannelSMS),
				newLog("c", 3*time.Minute, notification.StatusFailed, notification.ChannelSMS),
				newLog("d", 4*time.Minute, notification.StatusSent, notification.ChannelEmail),
				newLog("e", 5*time.Minute, notification.StatusFailed, notification.ChannelPush),
			}
			for _, l := range seed {
				_, err := s.Create(ctx, l)
				require.NoError(t, err)
			}

			all, total, err := s.List(ctx, notification.ListFilter{})
			require.NoError(t, err)
			assert.Equal(t, 5, total)
			assert.Equal(t, []string{"e", "d", "c", "b", "a"}, ids(all))

			failed, total, err := s.List(ctx, notification.ListFilter{Status: "failed"})
			require.NoError(t, err)
			assert.Equal(t, 3, total)
			assert.Equal(t, []string{"e", "c", "a"}, ids(failed))

			smsFailed, _, err := s.List(ctx, notification.ListFilter{Status: "failed", Channel: "sms"})
			require.NoError(t, err)
			assert.Equal(t, []string{"c"}, ids(smsFailed))

			none, total, err := s.List(ctx, notification.ListFilter{Type: "receipt"})
			require.NoError(t, err)
			assert.Equal(t, 0, total)
			assert.Empty(t, none)
		})
	}
}

func TestStoreListPagination(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			for i := 0; i < 5; i++ {
				_, err := s.Create(ctx, newLog(fmt.Sprintf("p-%d", i), time.Duration(i)*time.Second, notification.StatusSent, notification.ChannelEmail))
				require.NoError(t, err)
			}

			page, total, err := s.List(ctx, notification.ListFilter{Page: 2, PageSize: 2})
			require.NoError(t, err)
			assert.Equal(t, 5, total)
			assert.Equal(t, []string{"p-2", "p-1"}, ids(page))

			last, _, err := s.List(ctx, notification.ListFilter{Page: 3, PageSize: 2})
			require.NoError(t, err)
			assert.Equal(t, []string{"p-0"}, ids(last))

			beyond, _, err := s.List(ctx, notification.ListFilter{Page: 9, PageSize: 2})
			require.NoError(t, err)
			assert.Empty(t, beyond)
		})
	}
}

func TestStoreConcurrentRecords(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					id := fmt.Sprintf("c-%d", i)
					_, err := s.Create(ctx, newLog(id, time.Duration(i)*time.Millisecond, notification.StatusPending, notification.ChannelSMS))
					assert.NoError(t, err)
					for attempt := 1; attempt <= 3; attempt++ {
						a := attempt
						_, err := s.Update(ctx, id, notification.Patch{Attempts: &a})
						assert.NoError(t, err)
					}
				}(i)
			}
			wg.Wait()

			logs, total, err := s.List(ctx, notification.ListFilter{})
			require.NoError(t, err)
			assert.Equal(t, 20, total)
			for _, l := range logs {
				assert.Equal(t, 3, l.Attempts, l.ID)
			}
		})
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	created, err := s.Create(ctx, newLog("copy", 0, notification.StatusPending, notification.ChannelEmail))
	require.NoError(t, err)
	created.Status = notification.StatusSent
	created.Metadata["source"] = "mutated"

	got, err := s.GetByID(ctx, "copy")
	require.NoError(t, err)
	assert.Equal(t, notification.StatusPending, got.Status)
	assert.Equal(t, "test", got.Metadata["source"])
}

func TestStoreListTiesByInsertionOrder(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			for _, id := range []string{"first", "second", "third"} {
				_, err := s.Create(ctx, newLog(id, 0, notification.StatusSent, notification.ChannelEmail))
				require.NoError(t, err)
			}

			logs, _, err := s.List(ctx, notification.ListFilter{})
			require.NoError(t, err)
			assert.Equal(t, []string{"third", "second", "first"}, ids(logs))
		})
	}
}

func TestStoreListOrdersNanosecondNeighbours(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			_, err := s.Create(ctx, newLog("zzz-older", 0, notification.StatusSent, notification.ChannelEmail))
			require.NoError(t, err)
			_, err = s.Create(ctx, newLog("aaa-newer", 100*time.Nanosecond, notification.StatusSent, notification.ChannelEmail))
			require.NoError(t, err)

			logs, _, err := s.List(ctx, notification.ListFilter{})
			require.NoError(t, err)
			assert.Equal(t, []string{"aaa-newer", "zzz-older"}, ids(logs))
		})
	}
}

func TestStoreListOrdersByCreationNotInsertion(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			_, err := s.Create(ctx, newLog("late", 2*time.Second, notification.StatusSent, notification.ChannelEmail))
			require.NoError(t, err)
			_, err = s.Create(ctx, newLog("early", time.Second, notification.StatusSent, notification.ChannelEmail))
			require.NoError(t, err)

			logs, _, err := s.List(ctx, notification.ListFilter{})
			require.NoError(t, err)
			assert.Equal(t, []string{"late", "early"}, ids(logs))
		})
	}
}

func TestRedisStoreCreateLeavesNothingWhenIndexFails(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := NewRedisClient(mr.Addr(), "", 0)
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	s := NewRedisStore(client, "test")
	ctx := context.Background()

	// A string under the index key makes ZADD fail with WRONGTYPE.
	require.NoError(t, mr.Set(s.indexKey(), "not-a-zset"))

	_, err = s.Create(ctx, newLog("x", 0, notification.StatusPending, notification.ChannelEmail))
	require.Error(t, err)

	_, err = s.GetByID(ctx, "x")
	var notFound *common.NotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.False(t, mr.Exists(s.recordKey("x")))

	// The id stays free for a retry once the index is usable again.
	mr.Del(s.indexKey())
	_, err = s.Create(ctx, newLog("x", 0, notification.StatusPending, notification.ChannelEmail))
	require.NoError(t, err)
	logs, total, err := s.List(ctx, notification.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, []string{"x"}, ids(logs))
}
