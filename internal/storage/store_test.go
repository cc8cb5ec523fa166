package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/inklet-hq/syndicator/internal/domain"
)

// backends runs each test against every embedded Store implementation so the
// two stay behaviorally interchangeable.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	bolt, err := openBolt(filepath.Join(t.TempDir(), "syndicator.db"))
	if err != nil {
		t.Fatalf("open bolt: %v", err)
	}
	t.Cleanup(func() { bolt.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"bolt":   bolt,
	}
}

func TestArticleRoundTrip(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := domain.Article{
				ID:          "a1",
				OwnerID:     "u1",
				Title:       "Hello",
				HTMLContent: "<p>hi</p>",
				Tags:        []string{"go"},
				Status:      domain.ArticleDraft,
			}
			if err := store.PutArticle(ctx, a); err != nil {
				t.Fatalf("put: %v", err)
			}
			got, err := store.Article(ctx, "a1")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Title != a.Title || got.Status != domain.ArticleDraft {
				t.Fatalf("got %+v", got)
			}

			if _, err := store.Article(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestMarkArticlePublishedIsIdempotent(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.PutArticle(ctx, domain.Article{ID: "a1", OwnerID: "u1", Status: domain.ArticleScheduled}); err != nil {
				t.Fatalf("put: %v", err)
			}

			first := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
			if err := store.MarkArticlePublished(ctx, "a1", first); err != nil {
				t.Fatalf("first mark: %v", err)
			}
			if err := store.MarkArticlePublished(ctx, "a1", first.Add(time.Hour)); err != nil {
				t.Fatalf("second mark: %v", err)
			}

			got, _ := store.Article(ctx, "a1")
			if got.Status != domain.ArticlePublished {
				t.Fatalf("status = %s", got.Status)
			}
			if got.PublishedAt == nil || !got.PublishedAt.Equal(first) {
				t.Fatalf("PublishedAt = %v, want %v", got.PublishedAt, first)
			}
		})
	}
}

func TestConnectionLookup(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			conn := domain.PlatformConnection{
				ID:          "c1",
				UserID:      "u1",
				Platform:    domain.PlatformDevTo,
				Status:      domain.ConnectionActive,
				Credentials: domain.APIKeyCredentials("k"),
				Metadata:    map[string]string{domain.MetaDisplayName: "me"},
			}
			if err := store.PutConnection(ctx, conn); err != nil {
				t.Fatalf("put: %v", err)
			}

			got, err := store.Connection(ctx, "u1", domain.PlatformDevTo)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.Credentials.APIKey != "k" || got.Metadata[domain.MetaDisplayName] != "me" {
				t.Fatalf("got %+v", got)
			}

			if _, err := store.Connection(ctx, "u1", domain.PlatformGhost); !errors.Is(err, ErrNotConnected) {
				t.Fatalf("err = %v, want ErrNotConnected", err)
			}

			conn.Status = domain.ConnectionDisconnected
			if err := store.PutConnection(ctx, conn); err != nil {
				t.Fatalf("put disconnected: %v", err)
			}
			if _, err := store.Connection(ctx, "u1", domain.PlatformDevTo); !errors.Is(err, ErrNotConnected) {
				t.Fatalf("disconnected row resolved: %v", err)
			}
		})
	}
}

func TestLatestPublishedRecord(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

			rows := []domain.PublishRecord{
				{ID: "r1", ArticleID: "a1", Platform: domain.PlatformDevTo, PlatformPostID: "p1", Status: domain.RecordPublished, PublishedAt: base},
				{ID: "r2", ArticleID: "a1", Platform: domain.PlatformDevTo, PlatformPostID: "p2", Status: domain.RecordPublished, PublishedAt: base.Add(time.Hour)},
				{ID: "r3", ArticleID: "a1", Platform: domain.PlatformDevTo, Status: domain.RecordFailed, Error: "nope", PublishedAt: base.Add(2 * time.Hour)},
				{ID: "r4", ArticleID: "a1", Platform: domain.PlatformGhost, PlatformPostID: "g1", Status: domain.RecordPublished, PublishedAt: base.Add(3 * time.Hour)},
				{ID: "r5", ArticleID: "other", Platform: domain.PlatformDevTo, PlatformPostID: "x1", Status: domain.RecordPublished, PublishedAt: base.Add(4 * time.Hour)},
			}
			for _, r := range rows {
				if err := store.AppendRecord(ctx, r); err != nil {
					t.Fatalf("append %s: %v", r.ID, err)
				}
			}

			got, err := store.LatestPublishedRecord(ctx, "a1", domain.PlatformDevTo)
			if err != nil {
				t.Fatalf("latest: %v", err)
			}
			if got.ID != "r2" {
				t.Fatalf("latest id = %s, want r2 (newest published, failures excluded)", got.ID)
			}

			if _, err := store.LatestPublishedRecord(ctx, "a1", domain.PlatformWix); !errors.Is(err, ErrNotFound) {
				t.Fatalf("err = %v, want ErrNotFound", err)
			}

			all, err := store.RecordsForArticle(ctx, "a1")
			if err != nil {
				t.Fatalf("records: %v", err)
			}
			if len(all) != 4 {
				t.Fatalf("records = %d, want 4", len(all))
			}
			for i := 1; i < len(all); i++ {
				if all[i].PublishedAt.Before(all[i-1].PublishedAt) {
					t.Fatal("records not in chronological order")
				}
			}
		})
	}
}

func TestUpdateRecordRemote(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			r := domain.PublishRecord{ID: "r1", ArticleID: "a1", Platform: domain.PlatformDevTo, PlatformPostID: "p1", Status: domain.RecordPublished, PublishedAt: time.Now().UTC()}
			if err := store.AppendRecord(ctx, r); err != nil {
				t.Fatalf("append: %v", err)
			}
			if err := store.UpdateRecordRemote(ctx, "r1", "p1", "https://example.com/v2"); err != nil {
				t.Fatalf("update: %v", err)
			}
			got, _ := store.LatestPublishedRecord(ctx, "a1", domain.PlatformDevTo)
			if got.URL != "https://example.com/v2" {
				t.Fatalf("url = %s", got.URL)
			}

			if err := store.UpdateRecordRemote(ctx, "missing", "p", "u"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestClaimDueItems(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

			items := []domain.PublishQueueItem{
				{ID: "q1", ArticleID: "a1", Status: domain.QueuePending, ScheduleAt: now.Add(-time.Minute)},
				{ID: "q2", ArticleID: "a2", Status: domain.QueuePending, ScheduleAt: now.Add(time.Hour)},
				{ID: "q3", ArticleID: "a3", Status: domain.QueueCompleted, ScheduleAt: now.Add(-time.Hour)},
				{ID: "q4", ArticleID: "a4", Status: domain.QueuePending, ScheduleAt: now},
			}
			for _, it := range items {
				if err := store.EnqueueItem(ctx, it); err != nil {
					t.Fatalf("enqueue %s: %v", it.ID, err)
				}
			}

			claimed, err := store.ClaimDueItems(ctx, 10, now)
			if err != nil {
				t.Fatalf("claim: %v", err)
			}
			if len(claimed) != 2 {
				t.Fatalf("claimed %d, want 2 (due pending only)", len(claimed))
			}
			for _, it := range claimed {
				if it.Status != domain.QueueProcessing {
					t.Fatalf("claimed item %s status = %s, want processing", it.ID, it.Status)
				}
			}

			// A second claim sees nothing; the first moved them out of PENDING.
			again, err := store.ClaimDueItems(ctx, 10, now)
			if err != nil {
				t.Fatalf("second claim: %v", err)
			}
			if len(again) != 0 {
				t.Fatalf("second claim got %d items, want 0", len(again))
			}
		})
	}
}

func TestClaimHonorsLimit(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now()
			for _, id := range []string{"q1", "q2", "q3"} {
				if err := store.EnqueueItem(ctx, domain.PublishQueueItem{ID: id, Status: domain.QueuePending, ScheduleAt: now.Add(-time.Minute)}); err != nil {
					t.Fatalf("enqueue: %v", err)
				}
			}
			claimed, err := store.ClaimDueItems(ctx, 2, now)
			if err != nil {
				t.Fatalf("claim: %v", err)
			}
			if len(claimed) != 2 {
				t.Fatalf("claimed %d, want 2", len(claimed))
			}
		})
	}
}

func TestResolveAndRequeue(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC()

			seed := []struct {
				id       string
				attempts int
			}{{"q1", 1}, {"q2", 3}}
			for _, s := range seed {
				if err := store.EnqueueItem(ctx, domain.PublishQueueItem{ID: s.id, Status: domain.QueuePending, ScheduleAt: now}); err != nil {
					t.Fatalf("enqueue: %v", err)
				}
				if err := store.ResolveItem(ctx, s.id, domain.QueueFailed, "boom", s.attempts, now); err != nil {
					t.Fatalf("resolve: %v", err)
				}
			}

			n, err := store.RequeueFailed(ctx, 10, 3)
			if err != nil {
				t.Fatalf("requeue: %v", err)
			}
			if n != 1 {
				t.Fatalf("requeued %d, want 1 (q2 exhausted its budget)", n)
			}

			q1, _ := store.QueueItem(ctx, "q1")
			if q1.Status != domain.QueuePending || q1.Attempts != 1 {
				t.Fatalf("q1 = %+v", q1)
			}
			q2, _ := store.QueueItem(ctx, "q2")
			if q2.Status != domain.QueueFailed {
				t.Fatalf("q2 status = %s, want failed", q2.Status)
			}
		})
	}
}
