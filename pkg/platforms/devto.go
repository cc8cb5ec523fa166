package platforms

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/inklet-hq/syndicator/internal/domain"
	"github.com/inklet-hq/syndicator/pkg/htmlconv"
)

const (
	devtoDefaultBaseURL = "https://dev.to/api"

	// The Forem API rejects articles carrying more than four tags.
	devtoMaxTags = 4
)

// devtoAdapter publishes to DEV (Forem) via its REST API: api-key header,
// markdown body, in-place updates supported.
type devtoAdapter struct {
	client *resty.Client
}

// NewDevToAdapter builds the DEV adapter over the shared HTTP client.
func NewDevToAdapter(client *resty.Client) Adapter {
	return &devtoAdapter{client: client}
}

func (a *devtoAdapter) Platform() domain.Platform { return domain.PlatformDevTo }

type devtoArticlePayload struct {
	Title        string   `json:"title"`
	BodyMarkdown string   `json:"body_markdown"`
	Published    bool     `json:"published"`
	Description  string   `json:"description,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

type devtoArticleResponse struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

func (a *devtoAdapter) ValidateCredentials(ctx context.Context, conn domain.PlatformConnection) (Validation, error) {
	key, err := apiKey(conn)
	if err != nil {
		return Validation{Valid: false, Error: err.Error()}, nil
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("api-key", key).
		Get(baseURL(conn, devtoDefaultBaseURL) + "/users/me")
	if err != nil {
		return Validation{}, fmt.Errorf("devto whoami: %w", err)
	}
	if resp.IsError() {
		return Validation{Valid: false, Error: remoteFailure(resp).Error}, nil
	}

	var me struct {
		Username string `json:"username"`
	}
	if err := decodeJSON(resp.Body(), &me); err != nil {
		return Validation{}, fmt.Errorf("devto whoami decode: %w", err)
	}
	return Validation{Valid: true, Identity: me.Username}, nil
}

func (a *devtoAdapter) Publish(ctx context.Context, conn domain.PlatformConnection, sub Submission) (Outcome, error) {
	return a.submit(ctx, conn, sub, "")
}

// Update rewrites an existing DEV article in place.
func (a *devtoAdapter) Update(ctx context.Context, conn domain.PlatformConnection, remotePostID string, sub Submission) (Outcome, error) {
	return a.submit(ctx, conn, sub, remotePostID)
}

func (a *devtoAdapter) submit(ctx context.Context, conn domain.PlatformConnection, sub Submission, remotePostID string) (Outcome, error) {
	key, err := apiKey(conn)
	if err != nil {
		return Outcome{Success: false, Error: err.Error()}, nil
	}

	payload := devtoArticlePayload{
		Title:        sub.Article.Title,
		BodyMarkdown: htmlconv.ToMarkdown(sub.Article.HTMLContent),
		Published:    sub.Published,
		Description:  sub.Article.Excerpt,
		Tags:         capTags(sub.Article.Tags, devtoMaxTags),
	}

	req := a.client.R().
		SetContext(ctx).
		SetHeader("api-key", key).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]devtoArticlePayload{"article": payload})

	var resp *resty.Response
	if remotePostID == "" {
		resp, err = req.Post(baseURL(conn, devtoDefaultBaseURL) + "/articles")
	} else {
		resp, err = req.Put(baseURL(conn, devtoDefaultBaseURL) + "/articles/" + remotePostID)
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("devto request: %w", err)
	}
	if resp.IsError() {
		return remoteFailure(resp), nil
	}

	var created devtoArticleResponse
	if err := decodeJSON(resp.Body(), &created); err != nil {
		return Outcome{}, fmt.Errorf("devto response decode: %w", err)
	}
	return Outcome{
		Success: true,
		PostID:  fmt.Sprintf("%d", created.ID),
		URL:     created.URL,
	}, nil
}
