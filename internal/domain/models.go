package domain

import "time"

// Domain contains the core entities moved through the publish pipeline.

// ArticleStatus tracks where an article sits in its publish lifecycle.
type ArticleStatus string

const (
	ArticleDraft     ArticleStatus = "draft"
	ArticleScheduled ArticleStatus = "scheduled"
	ArticlePublished ArticleStatus = "published"
)

// Article is the content unit being distributed. Authored elsewhere; this
// core only ever mutates Status and PublishedAt.
type Article struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"owner_id"`
	Title       string        `json:"title"`
	HTMLContent string        `json:"html_content"`
	Excerpt     string        `json:"excerpt"`
	Tags        []string      `json:"tags"`
	Status      ArticleStatus `json:"status"`
	PublishedAt *time.Time    `json:"published_at,omitempty"`
}

// ConnectionStatus marks whether stored credentials are usable.
type ConnectionStatus string

const (
	ConnectionActive       ConnectionStatus = "connected"
	ConnectionDisconnected ConnectionStatus = "disconnected"
)

// PlatformConnection holds stored credentials for one (user, platform) pair.
// At most one connected row exists per pair; this core never writes to it
// outside of seeding.
type PlatformConnection struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Platform    Platform          `json:"platform"`
	Status      ConnectionStatus  `json:"status"`
	Credentials Credentials       `json:"credentials"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Common metadata keys used by adapters.
const (
	MetaSiteURL       = "site_url"
	MetaPublicationID = "publication_id"
	MetaSiteID        = "site_id"
	MetaDisplayName   = "display_name"
)

// RecordStatus is the terminal outcome of one publish attempt.
type RecordStatus string

const (
	RecordPublished RecordStatus = "published"
	RecordFailed    RecordStatus = "failed"
)

// PublishRecord is an append-style audit row, one per publish attempt of an
// article to a platform. A published record always carries a remote post id.
type PublishRecord struct {
	ID             string       `json:"id"`
	ArticleID      string       `json:"article_id"`
	ConnectionID   string       `json:"connection_id"`
	Platform       Platform     `json:"platform"`
	PlatformPostID string       `json:"platform_post_id"`
	URL            string       `json:"url"`
	Status         RecordStatus `json:"status"`
	Error          string       `json:"error,omitempty"`
	PublishedAt    time.Time    `json:"published_at"`
}

// QueueStatus is the state of a deferred publish job.
type QueueStatus string

const (
	QueuePending    QueueStatus = "pending"
	QueueProcessing QueueStatus = "processing"
	QueueCompleted  QueueStatus = "completed"
	QueueFailed     QueueStatus = "failed"
)

// PublishQueueItem is a deferred publish job spanning possibly multiple
// platforms. Attempts counts terminal failed processing passes only.
type PublishQueueItem struct {
	ID          string      `json:"id"`
	ArticleID   string      `json:"article_id"`
	UserID      string      `json:"user_id"`
	Platforms   []Platform  `json:"platforms"`
	ScheduleAt  time.Time   `json:"schedule_at"`
	Status      QueueStatus `json:"status"`
	Attempts    int         `json:"attempts"`
	Error       string      `json:"error,omitempty"`
	ProcessedAt *time.Time  `json:"processed_at,omitempty"`
}

// PublishResult is the normalized per-platform outcome returned to callers.
type PublishResult struct {
	Platform Platform `json:"platform"`
	Success  bool     `json:"success"`
	PostID   string   `json:"post_id,omitempty"`
	URL      string   `json:"url,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// ArticleResults pairs one article with its per-platform results, used by
// bulk publishing.
type ArticleResults struct {
	ArticleID string          `json:"article_id"`
	Results   []PublishResult `json:"results"`
}
