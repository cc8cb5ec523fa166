package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/inklet-hq/syndicator/internal/domain"
)

// Package storage provides the durable datastore abstraction behind the
// publish pipeline: articles, platform connections, publish records, and the
// deferred publish queue.

var (
	// ErrNotFound reports a missing row.
	ErrNotFound = errors.New("not found")
	// ErrNotConnected reports that no connected credentials exist for a
	// (user, platform) pair. A configuration error, never retried.
	ErrNotConnected = errors.New("platform not connected")
)

// Store is the transactional datastore contract. Implementations must make
// ClaimDueItems an atomic PENDING->PROCESSING transition so concurrent
// sweeper passes can never claim the same item twice.
type Store interface {
	Close() error

	Article(ctx context.Context, id string) (domain.Article, error)
	PutArticle(ctx context.Context, a domain.Article) error
	SetArticleStatus(ctx context.Context, id string, status domain.ArticleStatus) error
	// MarkArticlePublished transitions a non-published article to published
	// and stamps PublishedAt once; re-marking an already published article
	// is a no-op.
	MarkArticlePublished(ctx context.Context, id string, at time.Time) error

	Connection(ctx context.Context, userID string, p domain.Platform) (domain.PlatformConnection, error)
	PutConnection(ctx context.Context, c domain.PlatformConnection) error

	AppendRecord(ctx context.Context, r domain.PublishRecord) error
	RecordsForArticle(ctx context.Context, articleID string) ([]domain.PublishRecord, error)
	LatestPublishedRecord(ctx context.Context, articleID string, p domain.Platform) (domain.PublishRecord, error)
	UpdateRecordRemote(ctx context.Context, recordID, postID, url string) error

	EnqueueItem(ctx context.Context, item domain.PublishQueueItem) error
	QueueItem(ctx context.Context, id string) (domain.PublishQueueItem, error)
	ClaimDueItems(ctx context.Context, limit int, now time.Time) ([]domain.PublishQueueItem, error)
	ResolveItem(ctx context.Context, id string, status domain.QueueStatus, errMsg string, attempts int, processedAt time.Time) error
	RequeueFailed(ctx context.Context, limit, maxRetries int) (int, error)
}

// Options carries backend connection settings.
type Options struct {
	BBoltPath   string
	PostgresDSN string
}

// NewStore creates the configured storage backend.
func NewStore(ctx context.Context, typ string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))

	switch typ {
	case "memory":
		return NewMemoryStore(), nil
	case "", "bbolt":
		if strings.TrimSpace(opts.BBoltPath) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(opts.BBoltPath)
	case "postgres":
		if strings.TrimSpace(opts.PostgresDSN) == "" {
			return nil, fmt.Errorf("postgres storage requires a dsn")
		}
		return openPostgres(ctx, opts.PostgresDSN)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}
