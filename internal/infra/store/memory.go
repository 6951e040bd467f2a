package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"courier/internal/common"
	"courier/internal/domain/notification"
)

var _ notification.NotificationStore = (*MemoryStore)(nil)

// MemoryStore keeps notification logs in process memory. Used for local runs
// and tests; records do not survive a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	logs map[string]*memoryEntry
	seq  uint64
	now  func() time.Time
}

type memoryEntry struct {
	log *notification.NotificationLog
	seq uint64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		logs: make(map[string]*memoryEntry),
		now:  time.Now,
	}
}

// Create inserts a new notification log record.
func (s *MemoryStore) Create(ctx context.Context, log *notification.NotificationLog) (*notification.NotificationLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.logs[log.ID]; exists {
		return nil, common.NewDuplicateError("notification", log.ID)
	}

	s.seq++
	s.logs[log.ID] = &memoryEntry{log: log.Clone(), seq: s.seq}
	return log.Clone(), nil
}

// Update applies a partial update to a notification log.
func (s *MemoryStore) Update(ctx context.Context, id string, patch notification.Patch) (*notification.NotificationLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.logs[id]
	if !ok {
		return nil, common.NewNotFoundError("notification", id)
	}

	patch.Apply(entry.log, s.now().UTC())
	return entry.log.Clone(), nil
}

// GetByID retrieves a notification log by its ID.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*notification.NotificationLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.logs[id]
	if !ok {
		return nil, common.NewNotFoundError("notification", id)
	}
	return entry.log.Clone(), nil
}

// List retrieves notification logs newest-created first. Records created at
// the same instant are ordered by insertion, newest first.
func (s *MemoryStore) List(ctx context.Context, filter notification.ListFilter) ([]*notification.NotificationLog, int, error) {
	s.mu.RLock()
	matched := make([]*memoryEntry, 0, len(s.logs))
	for _, entry := range s.logs {
		if filter.Matches(entry.log) {
			matched = append(matched, &memoryEntry{log: entry.log.Clone(), seq: entry.seq})
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.log.CreatedAt.Equal(b.log.CreatedAt) {
			return a.log.CreatedAt.After(b.log.CreatedAt)
		}
		return a.seq > b.seq
	})

	start, end := filter.Window(len(matched))
	logs := make([]*notification.NotificationLog, 0, end-start)
	for _, entry := range matched[start:end] {
		logs = append(logs, entry.log)
	}
	return logs, len(matched), nil
}
