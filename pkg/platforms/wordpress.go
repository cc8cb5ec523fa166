package platforms

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/inklet-hq/syndicator/internal/domain"
)

// wordpressAdapter publishes through the WordPress REST API using an
// application password over basic auth. WordPress accepts HTML directly.
// Supports in-place updates.
//
// Tags are skipped: the WP REST API wants numeric term ids, and resolving
// free-form tag names to terms is a remote taxonomy mutation this core
// deliberately avoids.
type wordpressAdapter struct {
	client *resty.Client
}

// NewWordPressAdapter builds the WordPress adapter over the shared HTTP client.
func NewWordPressAdapter(client *resty.Client) Adapter {
	return &wordpressAdapter{client: client}
}

func (a *wordpressAdapter) Platform() domain.Platform { return domain.PlatformWordPress }

type wpPostPayload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Excerpt string `json:"excerpt,omitempty"`
	Status  string `json:"status"`
}

type wpPostResponse struct {
	ID   int64  `json:"id"`
	Link string `json:"link"`
}

func (a *wordpressAdapter) ValidateCredentials(ctx context.Context, conn domain.PlatformConnection) (Validation, error) {
	req, outcome := a.authedRequest(ctx, conn)
	if outcome != nil {
		return Validation{Valid: false, Error: outcome.Error}, nil
	}

	resp, err := req.Get(a.apiRoot(conn) + "/users/me")
	if err != nil {
		return Validation{}, fmt.Errorf("wordpress whoami: %w", err)
	}
	if resp.IsError() {
		return Validation{Valid: false, Error: remoteFailure(resp).Error}, nil
	}

	var me struct {
		Slug string `json:"slug"`
	}
	if err := decodeJSON(resp.Body(), &me); err != nil {
		return Validation{}, fmt.Errorf("wordpress whoami decode: %w", err)
	}
	return Validation{Valid: true, Identity: me.Slug}, nil
}

func (a *wordpressAdapter) Publish(ctx context.Context, conn domain.PlatformConnection, sub Submission) (Outcome, error) {
	return a.submit(ctx, conn, sub, "")
}

// Update rewrites an existing WordPress post in place.
func (a *wordpressAdapter) Update(ctx context.Context, conn domain.PlatformConnection, remotePostID string, sub Submission) (Outcome, error) {
	return a.submit(ctx, conn, sub, remotePostID)
}

func (a *wordpressAdapter) submit(ctx context.Context, conn domain.PlatformConnection, sub Submission, remotePostID string) (Outcome, error) {
	req, outcome := a.authedRequest(ctx, conn)
	if outcome != nil {
		return *outcome, nil
	}

	status := "draft"
	if sub.Published {
		status = "publish"
	}
	req.SetBody(wpPostPayload{
		Title:   sub.Article.Title,
		Content: sub.Article.HTMLContent,
		Excerpt: sub.Article.Excerpt,
		Status:  status,
	})

	url := a.apiRoot(conn) + "/posts"
	if remotePostID != "" {
		url += "/" + remotePostID
	}
	resp, err := req.Post(url)
	if err != nil {
		return Outcome{}, fmt.Errorf("wordpress request: %w", err)
	}
	if resp.IsError() {
		return remoteFailure(resp), nil
	}

	var post wpPostResponse
	if err := decodeJSON(resp.Body(), &post); err != nil {
		return Outcome{}, fmt.Errorf("wordpress response decode: %w", err)
	}
	return Outcome{
		Success: true,
		PostID:  fmt.Sprintf("%d", post.ID),
		URL:     post.Link,
	}, nil
}

func (a *wordpressAdapter) authedRequest(ctx context.Context, conn domain.PlatformConnection) (*resty.Request, *Outcome) {
	c := conn.Credentials
	if c.Kind != domain.CredentialUserPassword || strings.TrimSpace(c.Username) == "" || strings.TrimSpace(c.Password) == "" {
		return nil, &Outcome{Success: false, Error: fmt.Sprintf("connection %s carries no application password", conn.ID)}
	}
	req := a.client.R().
		SetContext(ctx).
		SetBasicAuth(c.Username, c.Password).
		SetHeader("Content-Type", "application/json")
	return req, nil
}

func (a *wordpressAdapter) apiRoot(conn domain.PlatformConnection) string {
	return baseURL(conn, "") + "/wp-json/wp/v2"
}
