package notifications

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/angelmondragon/blogqna-backend/internal/realtime"
	"github.com/angelmondragon/blogqna-backend/pkg/db/models"
	"github.com/angelmondragon/blogqna-backend/pkg/pagination"
)

type memStore struct {
	mu          sync.Mutex
	users       map[string]bool
	records     map[string]models.Notification
	history     map[string][]string
	failFor     map[string]error
	appendCalls int
	afterAppend func()
	listFn      func(q ListQuery) ([]models.Notification, error)
}

func newMemStore(users ...string) *memStore {
	s := &memStore{
		users:   make(map[string]bool),
		records: make(map[string]models.Notification),
		history: make(map[string][]string),
		failFor: make(map[string]error),
	}
	for _, u := range users {
		s.users[u] = true
	}
	return s
}

func (s *memStore) Append(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendCalls++
	if err := ctx.Err(); err != nil {
		return &StoreError{Op: OpCreateNotification, Err: err}
	}
	if err, ok := s.failFor[n.TargetUserID]; ok {
		return err
	}
	if !s.users[n.TargetUserID] {
		return &StoreError{Op: OpFindUser, Err: ErrUserNotFound}
	}
	s.records[n.ID] = *n
	s.history[n.TargetUserID] = append(s.history[n.TargetUserID], n.ID)
	if s.afterAppend != nil {
		s.afterAppend()
	}
	return nil
}

func (s *memStore) History(ctx context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.history[userID]...), nil
}

func (s *memStore) List(ctx context.Context, q ListQuery) ([]models.Notification, error) {
	if s.listFn != nil {
		return s.listFn(q)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []models.Notification
	for _, id := range s.history[q.UserID] {
		n := s.records[id]
		if q.UnreadOnly && n.Read {
			continue
		}
		rows = append(rows, n)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID > rows[j].ID
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
	if limit := pagination.LimitWithBuffer(q.Limit); len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *memStore) CountUnread(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, id := range s.history[userID] {
		if !s.records[id].Read {
			count++
		}
	}
	return count, nil
}

func (s *memStore) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, id := range s.history[userID] {
		n := s.records[id]
		if !n.Read {
			n.Read = true
			s.records[id] = n
			count++
		}
	}
	return count, nil
}

func (s *memStore) DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (s *memStore) historyLen(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history[userID])
}

type recordingChannel struct {
	mu   sync.Mutex
	sent [][]byte
	err  error
}

func (c *recordingChannel) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, payload)
	return nil
}

func (c *recordingChannel) Close() error { return nil }

func (c *recordingChannel) payloads() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

func onlineRegistry(channels map[string]*recordingChannel) *realtime.Registry {
	registry := realtime.NewRegistry(nil)
	for user, ch := range channels {
		registry.Register(user, ch)
	}
	return registry
}
