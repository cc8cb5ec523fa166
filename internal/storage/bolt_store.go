package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/inklet-hq/syndicator/internal/domain"
	bolt "go.etcd.io/bbolt"
)

const (
	articleBucket    = "articles"
	connectionBucket = "connections"
	recordBucket     = "publish_records"
	queueBucket      = "publish_queue"
)

// boltStore implements Store backed by BoltDB. Write transactions are
// serialized by bbolt, which makes the queue claim naturally atomic.
type boltStore struct {
	db *bolt.DB
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{articleBucket, connectionBucket, recordBucket, queueBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	return &boltStore{db: db}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func connectionKey(userID string, p domain.Platform) []byte {
	return []byte(userID + "|" + string(p))
}

func putJSON(bucket *bolt.Bucket, key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	return bucket.Put(key, raw)
}

// Article loads one article by id.
func (b *boltStore) Article(_ context.Context, id string) (domain.Article, error) {
	var out domain.Article
	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(articleBucket)).Get([]byte(id))
		if raw == nil {
			return fmt.Errorf("article %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(raw, &out)
	})
	return out, err
}

// PutArticle stores an article row.
func (b *boltStore) PutArticle(_ context.Context, a domain.Article) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket([]byte(articleBucket)), []byte(a.ID), a)
	})
}

// SetArticleStatus overwrites the article's lifecycle status.
func (b *boltStore) SetArticleStatus(_ context.Context, id string, status domain.ArticleStatus) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(articleBucket))
		raw := bucket.Get([]byte(id))
		if raw == nil {
			return fmt.Errorf("article %s: %w", id, ErrNotFound)
		}
		var a domain.Article
		if err := json.Unmarshal(raw, &a); err != nil {
			return err
		}
		a.Status = status
		return putJSON(bucket, []byte(id), a)
	})
}

// MarkArticlePublished promotes a non-published article, stamping
// PublishedAt exactly once.
func (b *boltStore) MarkArticlePublished(_ context.Context, id string, at time.Time) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(articleBucket))
		raw := bucket.Get([]byte(id))
		if raw == nil {
			return fmt.Errorf("article %s: %w", id, ErrNotFound)
		}
		var a domain.Article
		if err := json.Unmarshal(raw, &a); err != nil {
			return err
		}
		if a.Status == domain.ArticlePublished {
			return nil
		}
		a.Status = domain.ArticlePublished
		if a.PublishedAt == nil {
			stamp := at.UTC()
			a.PublishedAt = &stamp
		}
		return putJSON(bucket, []byte(id), a)
	})
}

// Connection returns the connected credentials for (userID, platform).
func (b *boltStore) Connection(_ context.Context, userID string, p domain.Platform) (domain.PlatformConnection, error) {
	var out domain.PlatformConnection
	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(connectionBucket)).Get(connectionKey(userID, p))
		if raw == nil {
			return fmt.Errorf("%s for user %s: %w", p, userID, ErrNotConnected)
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return err
		}
		if out.Status != domain.ConnectionActive {
			return fmt.Errorf("%s for user %s: %w", p, userID, ErrNotConnected)
		}
		return nil
	})
	return out, err
}

// PutConnection stores a connection row keyed by (userID, platform); at most
// one row per pair by construction.
func (b *boltStore) PutConnection(_ context.Context, c domain.PlatformConnection) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket([]byte(connectionBucket)), connectionKey(c.UserID, c.Platform), c)
	})
}

// AppendRecord appends a publish record; rows are never mutated afterwards
// except through UpdateRecordRemote on the in-place update path.
func (b *boltStore) AppendRecord(_ context.Context, r domain.PublishRecord) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket([]byte(recordBucket)), []byte(r.ID), r)
	})
}

// RecordsForArticle returns all publish records for one article.
func (b *boltStore) RecordsForArticle(_ context.Context, articleID string) ([]domain.PublishRecord, error) {
	var out []domain.PublishRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(recordBucket)).ForEach(func(_, raw []byte) error {
			var r domain.PublishRecord
			if err := json.Unmarshal(raw, &r); err != nil {
				return err
			}
			if r.ArticleID == articleID {
				out = append(out, r)
			}
			return nil
		})
	})
	return out, err
}

// LatestPublishedRecord returns the most recent published record for
// (article, platform).
func (b *boltStore) LatestPublishedRecord(_ context.Context, articleID string, p domain.Platform) (domain.PublishRecord, error) {
	var best domain.PublishRecord
	found := false
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(recordBucket)).ForEach(func(_, raw []byte) error {
			var r domain.PublishRecord
			if err := json.Unmarshal(raw, &r); err != nil {
				return err
			}
			if r.ArticleID != articleID || r.Platform != p || r.Status != domain.RecordPublished {
				return nil
			}
			if !found || r.PublishedAt.After(best.PublishedAt) {
				best = r
				found = true
			}
			return nil
		})
	})
	if err != nil {
		return domain.PublishRecord{}, err
	}
	if !found {
		return domain.PublishRecord{}, fmt.Errorf("published record for article %s on %s: %w", articleID, p, ErrNotFound)
	}
	return best, nil
}

// UpdateRecordRemote rewrites the remote id/url of an existing record after
// an in-place platform update.
func (b *boltStore) UpdateRecordRemote(_ context.Context, recordID, postID, url string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(recordBucket))
		raw := bucket.Get([]byte(recordID))
		if raw == nil {
			return fmt.Errorf("publish record %s: %w", recordID, ErrNotFound)
		}
		var r domain.PublishRecord
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		r.PlatformPostID = postID
		r.URL = url
		return putJSON(bucket, []byte(recordID), r)
	})
}

// EnqueueItem stores a new deferred publish job.
func (b *boltStore) EnqueueItem(_ context.Context, item domain.PublishQueueItem) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket([]byte(queueBucket)), []byte(item.ID), item)
	})
}

// QueueItem loads one queue item by id.
func (b *boltStore) QueueItem(_ context.Context, id string) (domain.PublishQueueItem, error) {
	var out domain.PublishQueueItem
	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(queueBucket)).Get([]byte(id))
		if raw == nil {
			return fmt.Errorf("queue item %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(raw, &out)
	})
	return out, err
}

// ClaimDueItems flips up to limit due PENDING items to PROCESSING inside one
// write transaction and returns the claimed rows.
func (b *boltStore) ClaimDueItems(_ context.Context, limit int, now time.Time) ([]domain.PublishQueueItem, error) {
	if limit <= 0 {
		return nil, nil
	}

	var claimed []domain.PublishQueueItem
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(queueBucket))

		// Scan first, write after: a Put may rebalance pages under a live
		// cursor.
		cursor := bucket.Cursor()
		for k, raw := cursor.First(); k != nil && len(claimed) < limit; k, raw = cursor.Next() {
			var item domain.PublishQueueItem
			if err := json.Unmarshal(raw, &item); err != nil {
				return err
			}
			if item.Status != domain.QueuePending || item.ScheduleAt.After(now) {
				continue
			}
			item.Status = domain.QueueProcessing
			claimed = append(claimed, item)
		}
		for _, item := range claimed {
			if err := putJSON(bucket, []byte(item.ID), item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// ResolveItem writes the terminal state of one processing pass.
func (b *boltStore) ResolveItem(_ context.Context, id string, status domain.QueueStatus, errMsg string, attempts int, processedAt time.Time) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(queueBucket))
		raw := bucket.Get([]byte(id))
		if raw == nil {
			return fmt.Errorf("queue item %s: %w", id, ErrNotFound)
		}
		var item domain.PublishQueueItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return err
		}
		item.Status = status
		item.Error = errMsg
		item.Attempts = attempts
		stamp := processedAt.UTC()
		item.ProcessedAt = &stamp
		return putJSON(bucket, []byte(id), item)
	})
}

// RequeueFailed flips FAILED items with attempts below maxRetries back to
// PENDING so the next ordinary sweep picks them up.
func (b *boltStore) RequeueFailed(_ context.Context, limit, maxRetries int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}

	requeued := 0
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(queueBucket))

		var eligible []domain.PublishQueueItem
		cursor := bucket.Cursor()
		for k, raw := cursor.First(); k != nil && len(eligible) < limit; k, raw = cursor.Next() {
			var item domain.PublishQueueItem
			if err := json.Unmarshal(raw, &item); err != nil {
				return err
			}
			if item.Status != domain.QueueFailed || item.Attempts >= maxRetries {
				continue
			}
			item.Status = domain.QueuePending
			eligible = append(eligible, item)
		}
		for _, item := range eligible {
			if err := putJSON(bucket, []byte(item.ID), item); err != nil {
				return err
			}
		}
		requeued = len(eligible)
		return nil
	})
	return requeued, err
}
