// Package queue implements deferred publishing: a durable job table plus a
// sweeper that claims due jobs and delegates them to the orchestrator.
package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inklet-hq/syndicator/internal/domain"
	"github.com/inklet-hq/syndicator/internal/logger"
	"github.com/inklet-hq/syndicator/internal/orchestrator"
	"github.com/inklet-hq/syndicator/internal/storage"
)

// MaxRetries is the job-level retry budget: a failed item is requeued until
// its attempts reach this bound. Distinct from the per-call adapter retry
// budget inside the orchestrator.
const MaxRetries = 3

// Enqueue creates a deferred publish job and marks a draft article as
// scheduled. Returns the new queue item id.
func Enqueue(ctx context.Context, store storage.Store, articleID, userID string, targets []domain.Platform, scheduleAt time.Time) (string, error) {
	article, err := store.Article(ctx, articleID)
	if err != nil {
		return "", err
	}
	if article.OwnerID != userID {
		return "", fmt.Errorf("%w: %s", orchestrator.ErrArticleNotFound, articleID)
	}
	if len(targets) == 0 {
		return "", fmt.Errorf("no platforms requested for article %s", articleID)
	}

	item := domain.PublishQueueItem{
		ID:         uuid.NewString(),
		ArticleID:  articleID,
		UserID:     userID,
		Platforms:  targets,
		ScheduleAt: scheduleAt.UTC(),
		Status:     domain.QueuePending,
	}
	if err := store.EnqueueItem(ctx, item); err != nil {
		return "", fmt.Errorf("enqueue publish job: %w", err)
	}

	if article.Status == domain.ArticleDraft {
		if err := store.SetArticleStatus(ctx, articleID, domain.ArticleScheduled); err != nil {
			return "", fmt.Errorf("mark article scheduled: %w", err)
		}
	}
	return item.ID, nil
}

// Sweeper claims due queue items and processes them through the
// orchestrator. It is invoked by an external scheduler, runs to completion,
// and returns; it never schedules itself.
type Sweeper struct {
	store      storage.Store
	publisher  QueuePublisher
	log        logger.Logger
	maxRetries int
	now        func() time.Time
}

// QueuePublisher is the orchestrator surface the sweeper needs.
type QueuePublisher interface {
	PublishForQueueItem(ctx context.Context, item domain.PublishQueueItem) ([]domain.PublishResult, error)
}

// NewSweeper wires a sweeper over the store and orchestrator.
func NewSweeper(store storage.Store, publisher QueuePublisher, log logger.Logger) *Sweeper {
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Sweeper{
		store:      store,
		publisher:  publisher,
		log:        log,
		maxRetries: MaxRetries,
		now:        time.Now,
	}
}

// WithMaxRetries overrides the requeue budget applied by RetrySweep. Zero
// disables requeueing entirely.
func (s *Sweeper) WithMaxRetries(n int) *Sweeper {
	s.maxRetries = n
	return s
}

// Sweep claims up to batchSize due PENDING items and processes each
// concurrently. One item's failure is recorded on that item alone and never
// affects its siblings. Returns the number of items claimed.
func (s *Sweeper) Sweep(ctx context.Context, batchSize int) (int, error) {
	items, err := s.store.ClaimDueItems(ctx, batchSize, s.now())
	if err != nil {
		return 0, fmt.Errorf("claim due items: %w", err)
	}
	if len(items) == 0 {
		return 0, nil
	}

	s.log.InfoObj("sweep claimed items", "sweep_meta", map[string]any{
		"claimed": len(items),
	})

	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		go func(it domain.PublishQueueItem) {
			defer wg.Done()
			s.processItem(ctx, it)
		}(item)
	}
	wg.Wait()

	return len(items), nil
}

// processItem runs one claimed job to its terminal state.
func (s *Sweeper) processItem(ctx context.Context, item domain.PublishQueueItem) {
	defer func() {
		if r := recover(); r != nil {
			s.resolve(ctx, item, domain.QueueFailed, fmt.Sprintf("panic: %v", r))
		}
	}()

	results, err := s.publisher.PublishForQueueItem(ctx, item)
	if err != nil {
		s.resolve(ctx, item, domain.QueueFailed, err.Error())
		return
	}

	var failures []string
	for _, r := range results {
		if !r.Success {
			failures = append(failures, fmt.Sprintf("%s: %s", r.Platform, r.Error))
		}
	}
	if len(failures) > 0 {
		s.resolve(ctx, item, domain.QueueFailed, strings.Join(failures, "; "))
		return
	}
	s.resolve(ctx, item, domain.QueueCompleted, "")
}

// resolve writes the terminal state of one processing pass. Attempts
// increments only on a FAILED outcome.
func (s *Sweeper) resolve(ctx context.Context, item domain.PublishQueueItem, status domain.QueueStatus, errMsg string) {
	attempts := item.Attempts
	if status == domain.QueueFailed {
		attempts++
	}
	if err := s.store.ResolveItem(ctx, item.ID, status, errMsg, attempts, s.now()); err != nil {
		s.log.ErrorObj("queue item resolve failed", "queue_error", map[string]any{
			"item_id": item.ID,
			"error":   err.Error(),
		})
		return
	}
	if status == domain.QueueFailed {
		s.log.WarnObj("queue item failed", "queue_item", map[string]any{
			"item_id":  item.ID,
			"attempts": attempts,
			"error":    errMsg,
		})
	}
}

// RetrySweep requeues up to batchSize FAILED items that still have retry
// budget, making them eligible for the next ordinary sweep.
func (s *Sweeper) RetrySweep(ctx context.Context, batchSize int) (int, error) {
	n, err := s.store.RequeueFailed(ctx, batchSize, s.maxRetries)
	if err != nil {
		return 0, fmt.Errorf("requeue failed items: %w", err)
	}
	if n > 0 {
		s.log.InfoObj("retry sweep requeued items", "retry_sweep_meta", map[string]any{
			"requeued": n,
		})
	}
	return n, nil
}
