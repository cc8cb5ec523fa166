// Package orchestrator coordinates one publish operation across N platforms
// with independent failure domains: parallel fan-out, bounded retry on
// transport faults, publish-record writes, and article status convergence.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inklet-hq/syndicator/internal/connections"
	"github.com/inklet-hq/syndicator/internal/domain"
	"github.com/inklet-hq/syndicator/internal/logger"
	"github.com/inklet-hq/syndicator/internal/storage"
	"github.com/inklet-hq/syndicator/pkg/htmlconv"
	"github.com/inklet-hq/syndicator/pkg/platforms"
	"github.com/inklet-hq/syndicator/pkg/sinks"
)

const (
	defaultAttempts = 3
	defaultBackoff  = 2 * time.Second
)

// ErrArticleNotFound is returned when the article does not exist or is not
// owned by the calling user. Fatal to the whole call; no platform is
// attempted.
var ErrArticleNotFound = errors.New("article not found")

// Service is the publish orchestrator.
type Service struct {
	store    storage.Store
	resolver *connections.Resolver
	registry *platforms.Registry
	fanout   *sinks.Fanout
	log      logger.Logger

	attempts int
	backoff  time.Duration
	now      func() time.Time
	sleep    func(time.Duration)
	newID    func() string
}

// Options tunes retry behavior and optional collaborators.
type Options struct {
	// Attempts is the total adapter invocation budget per platform,
	// consumed only by transport-level failures.
	Attempts int
	// Backoff is the base delay; attempt n sleeps Backoff*n before the
	// next try.
	Backoff time.Duration
	// Fanout, when set, receives an outcome event after each publish pass.
	Fanout *sinks.Fanout
	Logger logger.Logger
}

// NewService wires an orchestrator over the store, resolver, and adapter
// registry.
func NewService(store storage.Store, resolver *connections.Resolver, registry *platforms.Registry, opts Options) *Service {
	if opts.Attempts <= 0 {
		opts.Attempts = defaultAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	log := opts.Logger
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Service{
		store:    store,
		resolver: resolver,
		registry: registry,
		fanout:   opts.Fanout,
		log:      log,
		attempts: opts.Attempts,
		backoff:  opts.Backoff,
		now:      time.Now,
		sleep:    time.Sleep,
		newID:    uuid.NewString,
	}
}

// PublishToMultiplePlatforms publishes one article to every requested
// platform in parallel. Each platform succeeds or fails independently; the
// returned slice preserves the requested platform order. If at least one
// platform succeeded and the article is not yet published, it transitions to
// published with PublishedAt stamped once.
func (s *Service) PublishToMultiplePlatforms(ctx context.Context, articleID, userID string, targets []domain.Platform, published bool) ([]domain.PublishResult, error) {
	results, err := s.publishPass(ctx, articleID, userID, targets, published)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, articleID, userID, sinks.TriggerImmediate, results)
	return results, nil
}

func (s *Service) publishPass(ctx context.Context, articleID, userID string, targets []domain.Platform, published bool) ([]domain.PublishResult, error) {
	article, err := s.loadOwnedArticle(ctx, articleID, userID)
	if err != nil {
		return nil, err
	}
	if article.Excerpt == "" {
		article.Excerpt = htmlconv.Excerpt(article.HTMLContent, htmlconv.DefaultExcerptLength)
	}

	sub := platforms.Submission{Article: article, Published: published}
	results := make([]domain.PublishResult, len(targets))

	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(idx int, p domain.Platform) {
			defer wg.Done()
			results[idx] = s.publishOne(ctx, p, sub)
		}(i, target)
	}
	wg.Wait()

	anySuccess := false
	for _, r := range results {
		if r.Success {
			anySuccess = true
			break
		}
	}
	if anySuccess {
		if err := s.store.MarkArticlePublished(ctx, article.ID, s.now()); err != nil {
			s.log.ErrorObj("article status transition failed", "publish_error", map[string]any{
				"article_id": article.ID,
				"error":      err.Error(),
			})
		}
	}

	s.log.InfoObj("publish pass settled", "publish_pass", map[string]any{
		"article_id": article.ID,
		"platforms":  len(targets),
		"succeeded":  countSuccesses(results),
	})
	return results, nil
}

// publishOne runs the full resolve-publish-record sequence for a single
// platform and never returns an error; every failure mode lands in the
// result.
func (s *Service) publishOne(ctx context.Context, p domain.Platform, sub platforms.Submission) domain.PublishResult {
	result := domain.PublishResult{Platform: p}

	conn, err := s.resolver.Resolve(ctx, sub.Article.OwnerID, p)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	adapter, err := s.registry.AdapterFor(p)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	outcome := s.withRetry(ctx, p, func() (platforms.Outcome, error) {
		return adapter.Publish(ctx, conn, sub)
	})

	result.Success = outcome.Success
	result.PostID = outcome.PostID
	result.URL = outcome.URL
	result.Error = outcome.Error

	s.appendRecord(ctx, sub.Article.ID, conn, result)
	return result
}

// withRetry invokes fn with the bounded attempt budget. Only transport-level
// errors are retried; a remote business rejection is terminal immediately.
func (s *Service) withRetry(ctx context.Context, p domain.Platform, fn func() (platforms.Outcome, error)) platforms.Outcome {
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		outcome, err := fn()
		if err == nil {
			return outcome
		}
		lastErr = err
		s.log.WarnObj("publish attempt failed", "attempt_error", map[string]any{
			"platform": string(p),
			"attempt":  attempt,
			"error":    err.Error(),
		})
		if attempt < s.attempts {
			s.sleep(s.backoff * time.Duration(attempt))
		}
	}
	return platforms.Outcome{Success: false, Error: lastErr.Error()}
}

// appendRecord writes the audit row for one settled platform attempt.
func (s *Service) appendRecord(ctx context.Context, articleID string, conn domain.PlatformConnection, result domain.PublishResult) {
	status := domain.RecordFailed
	if result.Success {
		status = domain.RecordPublished
	}
	record := domain.PublishRecord{
		ID:             s.newID(),
		ArticleID:      articleID,
		ConnectionID:   conn.ID,
		Platform:       result.Platform,
		PlatformPostID: result.PostID,
		URL:            result.URL,
		Status:         status,
		Error:          result.Error,
		PublishedAt:    s.now().UTC(),
	}
	if err := s.store.AppendRecord(ctx, record); err != nil {
		s.log.ErrorObj("publish record write failed", "record_error", map[string]any{
			"article_id": articleID,
			"platform":   string(result.Platform),
			"error":      err.Error(),
		})
	}
}

// UpdatePublishedPost pushes the article's current content to a platform it
// was already published on. Platforms with in-place update rewrite the
// existing remote post and publish record; the rest are republished with a
// fresh record, keeping the old row as history.
func (s *Service) UpdatePublishedPost(ctx context.Context, articleID, userID string, p domain.Platform) (domain.PublishResult, error) {
	article, err := s.loadOwnedArticle(ctx, articleID, userID)
	if err != nil {
		return domain.PublishResult{}, err
	}

	result := domain.PublishResult{Platform: p}

	prior, err := s.store.LatestPublishedRecord(ctx, articleID, p)
	if err != nil {
		result.Error = fmt.Sprintf("no prior publish on %s: %v", p, err)
		return result, nil
	}

	conn, err := s.resolver.Resolve(ctx, userID, p)
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}

	adapter, err := s.registry.AdapterFor(p)
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}

	sub := platforms.Submission{Article: article, Published: true}

	if updater, ok := adapter.(platforms.Updater); ok {
		outcome := s.withRetry(ctx, p, func() (platforms.Outcome, error) {
			return updater.Update(ctx, conn, prior.PlatformPostID, sub)
		})
		result.Success = outcome.Success
		result.PostID = outcome.PostID
		result.URL = outcome.URL
		result.Error = outcome.Error
		if outcome.Success {
			if err := s.store.UpdateRecordRemote(ctx, prior.ID, outcome.PostID, outcome.URL); err != nil {
				s.log.ErrorObj("publish record update failed", "record_error", map[string]any{
					"record_id": prior.ID,
					"error":     err.Error(),
				})
			}
		}
	} else {
		outcome := s.withRetry(ctx, p, func() (platforms.Outcome, error) {
			return adapter.Publish(ctx, conn, sub)
		})
		result.Success = outcome.Success
		result.PostID = outcome.PostID
		result.URL = outcome.URL
		result.Error = outcome.Error
		s.appendRecord(ctx, articleID, conn, result)
	}

	s.emit(ctx, articleID, userID, sinks.TriggerUpdate, []domain.PublishResult{result})
	return result, nil
}

// BulkPublish runs one publish pass per article, all articles in parallel.
// An unexpected failure for one article becomes a synthetic all-platforms-
// failed result set for that article only; it never aborts the batch.
func (s *Service) BulkPublish(ctx context.Context, articleIDs []string, userID string, targets []domain.Platform, published bool) []domain.ArticleResults {
	out := make([]domain.ArticleResults, len(articleIDs))

	var wg sync.WaitGroup
	for i, id := range articleIDs {
		wg.Add(1)
		go func(idx int, articleID string) {
			defer wg.Done()
			results, err := s.PublishToMultiplePlatforms(ctx, articleID, userID, targets, published)
			if err != nil {
				results = failedResults(targets, err)
			}
			out[idx] = domain.ArticleResults{ArticleID: articleID, Results: results}
		}(i, id)
	}
	wg.Wait()

	return out
}

// PublishForQueueItem is the sweeper's entry point: same pass as an
// immediate publish but tagged with the scheduled trigger.
func (s *Service) PublishForQueueItem(ctx context.Context, item domain.PublishQueueItem) ([]domain.PublishResult, error) {
	results, err := s.publishPass(ctx, item.ArticleID, item.UserID, item.Platforms, true)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, item.ArticleID, item.UserID, sinks.TriggerScheduled, results)
	return results, nil
}

func (s *Service) loadOwnedArticle(ctx context.Context, articleID, userID string) (domain.Article, error) {
	article, err := s.store.Article(ctx, articleID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Article{}, fmt.Errorf("%w: %s", ErrArticleNotFound, articleID)
		}
		return domain.Article{}, err
	}
	if article.OwnerID != userID {
		return domain.Article{}, fmt.Errorf("%w: %s", ErrArticleNotFound, articleID)
	}
	return article, nil
}

// emit fans the settled results out to configured sinks. Sink failures are
// logged, never propagated into publish results.
func (s *Service) emit(ctx context.Context, articleID, userID string, trigger sinks.Trigger, results []domain.PublishResult) {
	if s.fanout == nil || s.fanout.Size() == 0 {
		return
	}
	if _, err := s.fanout.Send(ctx, sinks.NewEvent(articleID, userID, trigger, results)); err != nil {
		s.log.WarnObj("outcome event delivery incomplete", "sink_error", map[string]any{
			"article_id": articleID,
			"error":      err.Error(),
		})
	}
}

func failedResults(targets []domain.Platform, err error) []domain.PublishResult {
	out := make([]domain.PublishResult, len(targets))
	for i, p := range targets {
		out[i] = domain.PublishResult{Platform: p, Error: err.Error()}
	}
	return out
}

func countSuccesses(results []domain.PublishResult) int {
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}
