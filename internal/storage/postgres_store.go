package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/inklet-hq/syndicator/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/samber/lo"
)

// postgresStore implements Store on PostgreSQL via sqlx. The queue claim uses
// FOR UPDATE SKIP LOCKED so concurrent sweeper passes never hand out the
// same item twice.
type postgresStore struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS articles (
	id           TEXT PRIMARY KEY,
	owner_id     TEXT NOT NULL,
	title        TEXT NOT NULL,
	html_content TEXT NOT NULL DEFAULT '',
	excerpt      TEXT NOT NULL DEFAULT '',
	tags         TEXT[] NOT NULL DEFAULT '{}',
	status       TEXT NOT NULL DEFAULT 'draft',
	published_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS platform_connections (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	platform    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'connected',
	credentials JSONB NOT NULL,
	metadata    JSONB NOT NULL DEFAULT '{}',
	UNIQUE (user_id, platform)
);

CREATE TABLE IF NOT EXISTS publish_records (
	id               TEXT PRIMARY KEY,
	article_id       TEXT NOT NULL,
	connection_id    TEXT NOT NULL DEFAULT '',
	platform         TEXT NOT NULL,
	platform_post_id TEXT NOT NULL DEFAULT '',
	url              TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL,
	error            TEXT NOT NULL DEFAULT '',
	published_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS publish_records_article_platform_idx
	ON publish_records (article_id, platform);

CREATE TABLE IF NOT EXISTS publish_queue (
	id           TEXT PRIMARY KEY,
	article_id   TEXT NOT NULL,
	user_id      TEXT NOT NULL,
	platforms    TEXT[] NOT NULL DEFAULT '{}',
	schedule_at  TIMESTAMPTZ NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	attempts     INT NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	processed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS publish_queue_due_idx
	ON publish_queue (status, schedule_at);
`

// openPostgres connects, applies the schema, and returns the store.
func openPostgres(ctx context.Context, dsn string) (Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &postgresStore{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}, nil
}

func (p *postgresStore) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Internal row types mapped onto table columns.

type dbArticle struct {
	ID          string         `db:"id"`
	OwnerID     string         `db:"owner_id"`
	Title       string         `db:"title"`
	HTMLContent string         `db:"html_content"`
	Excerpt     string         `db:"excerpt"`
	Tags        pq.StringArray `db:"tags"`
	Status      string         `db:"status"`
	PublishedAt *time.Time     `db:"published_at"`
}

func (r dbArticle) toDomain() domain.Article {
	return domain.Article{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Title:       r.Title,
		HTMLContent: r.HTMLContent,
		Excerpt:     r.Excerpt,
		Tags:        []string(r.Tags),
		Status:      domain.ArticleStatus(r.Status),
		PublishedAt: r.PublishedAt,
	}
}

type dbConnection struct {
	ID          string `db:"id"`
	UserID      string `db:"user_id"`
	Platform    string `db:"platform"`
	Status      string `db:"status"`
	Credentials []byte `db:"credentials"`
	Metadata    []byte `db:"metadata"`
}

type dbRecord struct {
	ID             string    `db:"id"`
	ArticleID      string    `db:"article_id"`
	ConnectionID   string    `db:"connection_id"`
	Platform       string    `db:"platform"`
	PlatformPostID string    `db:"platform_post_id"`
	URL            string    `db:"url"`
	Status         string    `db:"status"`
	Error          string    `db:"error"`
	PublishedAt    time.Time `db:"published_at"`
}

func (r dbRecord) toDomain() domain.PublishRecord {
	return domain.PublishRecord{
		ID:             r.ID,
		ArticleID:      r.ArticleID,
		ConnectionID:   r.ConnectionID,
		Platform:       domain.Platform(r.Platform),
		PlatformPostID: r.PlatformPostID,
		URL:            r.URL,
		Status:         domain.RecordStatus(r.Status),
		Error:          r.Error,
		PublishedAt:    r.PublishedAt,
	}
}

type dbQueueItem struct {
	ID          string         `db:"id"`
	ArticleID   string         `db:"article_id"`
	UserID      string         `db:"user_id"`
	Platforms   pq.StringArray `db:"platforms"`
	ScheduleAt  time.Time      `db:"schedule_at"`
	Status      string         `db:"status"`
	Attempts    int            `db:"attempts"`
	Error       string         `db:"error"`
	ProcessedAt *time.Time     `db:"processed_at"`
}

func (r dbQueueItem) toDomain() domain.PublishQueueItem {
	return domain.PublishQueueItem{
		ID:        r.ID,
		ArticleID: r.ArticleID,
		UserID:    r.UserID,
		Platforms: lo.Map(r.Platforms, func(s string, _ int) domain.Platform {
			return domain.Platform(s)
		}),
		ScheduleAt:  r.ScheduleAt,
		Status:      domain.QueueStatus(r.Status),
		Attempts:    r.Attempts,
		Error:       r.Error,
		ProcessedAt: r.ProcessedAt,
	}
}

func platformStrings(platforms []domain.Platform) pq.StringArray {
	return lo.Map(platforms, func(p domain.Platform, _ int) string { return string(p) })
}

func (p *postgresStore) Article(ctx context.Context, id string) (domain.Article, error) {
	query, args, err := p.sb.Select("*").From("articles").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.Article{}, err
	}

	var row dbArticle
	if err := p.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Article{}, fmt.Errorf("article %s: %w", id, ErrNotFound)
		}
		return domain.Article{}, err
	}
	return row.toDomain(), nil
}

func (p *postgresStore) PutArticle(ctx context.Context, a domain.Article) error {
	query, args, err := p.sb.Insert("articles").
		Columns("id", "owner_id", "title", "html_content", "excerpt", "tags", "status", "published_at").
		Values(a.ID, a.OwnerID, a.Title, a.HTMLContent, a.Excerpt, pq.StringArray(a.Tags), string(a.Status), a.PublishedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id, title = EXCLUDED.title,
			html_content = EXCLUDED.html_content, excerpt = EXCLUDED.excerpt,
			tags = EXCLUDED.tags, status = EXCLUDED.status,
			published_at = EXCLUDED.published_at`).
		ToSql()
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, query, args...)
	return err
}

func (p *postgresStore) SetArticleStatus(ctx context.Context, id string, status domain.ArticleStatus) error {
	query, args, err := p.sb.Update("articles").
		Set("status", string(status)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireRow(res, fmt.Sprintf("article %s", id))
}

func (p *postgresStore) MarkArticlePublished(ctx context.Context, id string, at time.Time) error {
	// Conditional on current status so the transition and the one-time
	// PublishedAt stamp happen in a single statement.
	query, args, err := p.sb.Update("articles").
		Set("status", string(domain.ArticlePublished)).
		Set("published_at", sq.Expr("COALESCE(published_at, ?)", at.UTC())).
		Where(sq.Eq{"id": id}).
		Where(sq.NotEq{"status": string(domain.ArticlePublished)}).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	return nil
}

func (p *postgresStore) Connection(ctx context.Context, userID string, platform domain.Platform) (domain.PlatformConnection, error) {
	query, args, err := p.sb.Select("*").From("platform_connections").
		Where(sq.Eq{
			"user_id":  userID,
			"platform": string(platform),
			"status":   string(domain.ConnectionActive),
		}).
		ToSql()
	if err != nil {
		return domain.PlatformConnection{}, err
	}

	var row dbConnection
	if err := p.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PlatformConnection{}, fmt.Errorf("%s for user %s: %w", platform, userID, ErrNotConnected)
		}
		return domain.PlatformConnection{}, err
	}

	conn := domain.PlatformConnection{
		ID:       row.ID,
		UserID:   row.UserID,
		Platform: domain.Platform(row.Platform),
		Status:   domain.ConnectionStatus(row.Status),
	}
	if err := json.Unmarshal(row.Credentials, &conn.Credentials); err != nil {
		return domain.PlatformConnection{}, fmt.Errorf("decode credentials: %w", err)
	}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &conn.Metadata); err != nil {
			return domain.PlatformConnection{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return conn, nil
}

func (p *postgresStore) PutConnection(ctx context.Context, c domain.PlatformConnection) error {
	creds, err := json.Marshal(c.Credentials)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	meta, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	query, args, err := p.sb.Insert("platform_connections").
		Columns("id", "user_id", "platform", "status", "credentials", "metadata").
		Values(c.ID, c.UserID, string(c.Platform), string(c.Status), creds, meta).
		Suffix(`ON CONFLICT (user_id, platform) DO UPDATE SET
			status = EXCLUDED.status, credentials = EXCLUDED.credentials,
			metadata = EXCLUDED.metadata`).
		ToSql()
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, query, args...)
	return err
}

func (p *postgresStore) AppendRecord(ctx context.Context, r domain.PublishRecord) error {
	query, args, err := p.sb.Insert("publish_records").
		Columns("id", "article_id", "connection_id", "platform", "platform_post_id", "url", "status", "error", "published_at").
		Values(r.ID, r.ArticleID, r.ConnectionID, string(r.Platform), r.PlatformPostID, r.URL, string(r.Status), r.Error, r.PublishedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, query, args...)
	return err
}

func (p *postgresStore) RecordsForArticle(ctx context.Context, articleID string) ([]domain.PublishRecord, error) {
	query, args, err := p.sb.Select("*").From("publish_records").
		Where(sq.Eq{"article_id": articleID}).
		OrderBy("published_at ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []dbRecord
	if err := p.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return lo.Map(rows, func(r dbRecord, _ int) domain.PublishRecord {
		return r.toDomain()
	}), nil
}

func (p *postgresStore) LatestPublishedRecord(ctx context.Context, articleID string, platform domain.Platform) (domain.PublishRecord, error) {
	query, args, err := p.sb.Select("*").From("publish_records").
		Where(sq.Eq{
			"article_id": articleID,
			"platform":   string(platform),
			"status":     string(domain.RecordPublished),
		}).
		OrderBy("published_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return domain.PublishRecord{}, err
	}

	var row dbRecord
	if err := p.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PublishRecord{}, fmt.Errorf("published record for article %s on %s: %w", articleID, platform, ErrNotFound)
		}
		return domain.PublishRecord{}, err
	}
	return row.toDomain(), nil
}

func (p *postgresStore) UpdateRecordRemote(ctx context.Context, recordID, postID, url string) error {
	query, args, err := p.sb.Update("publish_records").
		Set("platform_post_id", postID).
		Set("url", url).
		Where(sq.Eq{"id": recordID}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireRow(res, fmt.Sprintf("publish record %s", recordID))
}

func (p *postgresStore) EnqueueItem(ctx context.Context, item domain.PublishQueueItem) error {
	query, args, err := p.sb.Insert("publish_queue").
		Columns("id", "article_id", "user_id", "platforms", "schedule_at", "status", "attempts", "error", "processed_at").
		Values(item.ID, item.ArticleID, item.UserID, platformStrings(item.Platforms), item.ScheduleAt, string(item.Status), item.Attempts, item.Error, item.ProcessedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, query, args...)
	return err
}

func (p *postgresStore) QueueItem(ctx context.Context, id string) (domain.PublishQueueItem, error) {
	query, args, err := p.sb.Select("*").From("publish_queue").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.PublishQueueItem{}, err
	}

	var row dbQueueItem
	if err := p.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PublishQueueItem{}, fmt.Errorf("queue item %s: %w", id, ErrNotFound)
		}
		return domain.PublishQueueItem{}, err
	}
	return row.toDomain(), nil
}

// ClaimDueItems performs the conditional PENDING->PROCESSING claim. SKIP
// LOCKED keeps concurrent sweeper passes from blocking on or double-claiming
// the same rows.
func (p *postgresStore) ClaimDueItems(ctx context.Context, limit int, now time.Time) ([]domain.PublishQueueItem, error) {
	if limit <= 0 {
		return nil, nil
	}

	const claim = `
		UPDATE publish_queue SET status = $1
		WHERE id IN (
			SELECT id FROM publish_queue
			WHERE status = $2 AND schedule_at <= $3
			ORDER BY schedule_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`

	var rows []dbQueueItem
	if err := p.db.SelectContext(ctx, &rows, claim,
		string(domain.QueueProcessing), string(domain.QueuePending), now.UTC(), limit); err != nil {
		return nil, err
	}
	return lo.Map(rows, func(r dbQueueItem, _ int) domain.PublishQueueItem {
		return r.toDomain()
	}), nil
}

func (p *postgresStore) ResolveItem(ctx context.Context, id string, status domain.QueueStatus, errMsg string, attempts int, processedAt time.Time) error {
	query, args, err := p.sb.Update("publish_queue").
		Set("status", string(status)).
		Set("error", errMsg).
		Set("attempts", attempts).
		Set("processed_at", processedAt.UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireRow(res, fmt.Sprintf("queue item %s", id))
}

func (p *postgresStore) RequeueFailed(ctx context.Context, limit, maxRetries int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}

	const requeue = `
		UPDATE publish_queue SET status = $1
		WHERE id IN (
			SELECT id FROM publish_queue
			WHERE status = $2 AND attempts < $3
			ORDER BY schedule_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)`

	res, err := p.db.ExecContext(ctx, requeue,
		string(domain.QueuePending), string(domain.QueueFailed), maxRetries, limit)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
