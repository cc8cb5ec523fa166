package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/inklet-hq/syndicator/internal/domain"
)

// memoryStore is an in-process Store used by tests and the "memory" storage
// type. A single mutex gives it the same claim atomicity as the durable
// backends.
type memoryStore struct {
	mu          sync.Mutex
	articles    map[string]domain.Article
	connections map[string]domain.PlatformConnection
	records     map[string]domain.PublishRecord
	queue       map[string]domain.PublishQueueItem
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{
		articles:    make(map[string]domain.Article),
		connections: make(map[string]domain.PlatformConnection),
		records:     make(map[string]domain.PublishRecord),
		queue:       make(map[string]domain.PublishQueueItem),
	}
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) Article(_ context.Context, id string) (domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[id]
	if !ok {
		return domain.Article{}, fmt.Errorf("article %s: %w", id, ErrNotFound)
	}
	return a, nil
}

func (m *memoryStore) PutArticle(_ context.Context, a domain.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articles[a.ID] = a
	return nil
}

func (m *memoryStore) SetArticleStatus(_ context.Context, id string, status domain.ArticleStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[id]
	if !ok {
		return fmt.Errorf("article %s: %w", id, ErrNotFound)
	}
	a.Status = status
	m.articles[id] = a
	return nil
}

func (m *memoryStore) MarkArticlePublished(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[id]
	if !ok {
		return fmt.Errorf("article %s: %w", id, ErrNotFound)
	}
	if a.Status == domain.ArticlePublished {
		return nil
	}
	a.Status = domain.ArticlePublished
	if a.PublishedAt == nil {
		stamp := at.UTC()
		a.PublishedAt = &stamp
	}
	m.articles[id] = a
	return nil
}

func (m *memoryStore) Connection(_ context.Context, userID string, p domain.Platform) (domain.PlatformConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.connections[userID+"|"+string(p)]
	if !ok || c.Status != domain.ConnectionActive {
		return domain.PlatformConnection{}, fmt.Errorf("%s for user %s: %w", p, userID, ErrNotConnected)
	}
	return c, nil
}

func (m *memoryStore) PutConnection(_ context.Context, c domain.PlatformConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[c.UserID+"|"+string(c.Platform)] = c
	return nil
}

func (m *memoryStore) AppendRecord(_ context.Context, r domain.PublishRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.ID] = r
	return nil
}

func (m *memoryStore) RecordsForArticle(_ context.Context, articleID string) ([]domain.PublishRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PublishRecord
	for _, r := range m.records {
		if r.ArticleID == articleID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.Before(out[j].PublishedAt) })
	return out, nil
}

func (m *memoryStore) LatestPublishedRecord(_ context.Context, articleID string, p domain.Platform) (domain.PublishRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best domain.PublishRecord
	found := false
	for _, r := range m.records {
		if r.ArticleID != articleID || r.Platform != p || r.Status != domain.RecordPublished {
			continue
		}
		if !found || r.PublishedAt.After(best.PublishedAt) {
			best = r
			found = true
		}
	}
	if !found {
		return domain.PublishRecord{}, fmt.Errorf("published record for article %s on %s: %w", articleID, p, ErrNotFound)
	}
	return best, nil
}

func (m *memoryStore) UpdateRecordRemote(_ context.Context, recordID, postID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[recordID]
	if !ok {
		return fmt.Errorf("publish record %s: %w", recordID, ErrNotFound)
	}
	r.PlatformPostID = postID
	r.URL = url
	m.records[recordID] = r
	return nil
}

func (m *memoryStore) EnqueueItem(_ context.Context, item domain.PublishQueueItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue[item.ID] = item
	return nil
}

func (m *memoryStore) QueueItem(_ context.Context, id string) (domain.PublishQueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.queue[id]
	if !ok {
		return domain.PublishQueueItem{}, fmt.Errorf("queue item %s: %w", id, ErrNotFound)
	}
	return item, nil
}

func (m *memoryStore) ClaimDueItems(_ context.Context, limit int, now time.Time) ([]domain.PublishQueueItem, error) {
	if limit <= 0 {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.queue))
	for id := range m.queue {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var claimed []domain.PublishQueueItem
	for _, id := range ids {
		if len(claimed) >= limit {
			break
		}
		item := m.queue[id]
		if item.Status != domain.QueuePending || item.ScheduleAt.After(now) {
			continue
		}
		item.Status = domain.QueueProcessing
		m.queue[id] = item
		claimed = append(claimed, item)
	}
	return claimed, nil
}

func (m *memoryStore) ResolveItem(_ context.Context, id string, status domain.QueueStatus, errMsg string, attempts int, processedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.queue[id]
	if !ok {
		return fmt.Errorf("queue item %s: %w", id, ErrNotFound)
	}
	item.Status = status
	item.Error = errMsg
	item.Attempts = attempts
	stamp := processedAt.UTC()
	item.ProcessedAt = &stamp
	m.queue[id] = item
	return nil
}

func (m *memoryStore) RequeueFailed(_ context.Context, limit, maxRetries int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	requeued := 0
	for id, item := range m.queue {
		if requeued >= limit {
			break
		}
		if item.Status != domain.QueueFailed || item.Attempts >= maxRetries {
			continue
		}
		item.Status = domain.QueuePending
		m.queue[id] = item
		requeued++
	}
	return requeued, nil
}
