package platforms

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/inklet-hq/syndicator/internal/domain"
)

const ghostTokenTTL = 5 * time.Minute

// ghostAdapter publishes through the Ghost Admin API. Auth is a short-lived
// JWT minted per request from the stored id:secret admin key. Ghost accepts
// HTML directly, so no markdown conversion happens here. Supports in-place
// updates.
type ghostAdapter struct {
	client *resty.Client
	now    func() time.Time
}

// NewGhostAdapter builds the Ghost adapter over the shared HTTP client.
func NewGhostAdapter(client *resty.Client) Adapter {
	return &ghostAdapter{client: client, now: time.Now}
}

func (a *ghostAdapter) Platform() domain.Platform { return domain.PlatformGhost }

type ghostPost struct {
	ID        string   `json:"id,omitempty"`
	Title     string   `json:"title"`
	HTML      string   `json:"html,omitempty"`
	Excerpt   string   `json:"custom_excerpt,omitempty"`
	Status    string   `json:"status,omitempty"`
	URL       string   `json:"url,omitempty"`
	UpdatedAt string   `json:"updated_at,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

type ghostPostsEnvelope struct {
	Posts []ghostPost `json:"posts"`
}

func (a *ghostAdapter) ValidateCredentials(ctx context.Context, conn domain.PlatformConnection) (Validation, error) {
	req, outcome, err := a.authedRequest(ctx, conn)
	if outcome != nil {
		return Validation{Valid: false, Error: outcome.Error}, nil
	}
	if err != nil {
		return Validation{}, err
	}

	site := baseURL(conn, "")
	resp, err := req.Get(site + "/ghost/api/admin/site/")
	if err != nil {
		return Validation{}, fmt.Errorf("ghost site check: %w", err)
	}
	if resp.IsError() {
		return Validation{Valid: false, Error: remoteFailure(resp).Error}, nil
	}

	var out struct {
		Site struct {
			Title string `json:"title"`
		} `json:"site"`
	}
	if err := decodeJSON(resp.Body(), &out); err != nil {
		return Validation{}, fmt.Errorf("ghost site decode: %w", err)
	}
	return Validation{Valid: true, Identity: out.Site.Title}, nil
}

func (a *ghostAdapter) Publish(ctx context.Context, conn domain.PlatformConnection, sub Submission) (Outcome, error) {
	req, outcome, err := a.authedRequest(ctx, conn)
	if outcome != nil {
		return *outcome, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	status := "draft"
	if sub.Published {
		status = "published"
	}
	payload := ghostPostsEnvelope{Posts: []ghostPost{{
		Title:   sub.Article.Title,
		HTML:    sub.Article.HTMLContent,
		Excerpt: sub.Article.Excerpt,
		Status:  status,
		Tags:    sub.Article.Tags,
	}}}

	resp, err := req.
		SetQueryParam("source", "html").
		SetBody(payload).
		Post(baseURL(conn, "") + "/ghost/api/admin/posts/")
	if err != nil {
		return Outcome{}, fmt.Errorf("ghost publish: %w", err)
	}
	return ghostOutcome(resp)
}

// Update rewrites an existing Ghost post. Ghost's optimistic concurrency
// requires sending the post's current updated_at, so the post is fetched
// first.
func (a *ghostAdapter) Update(ctx context.Context, conn domain.PlatformConnection, remotePostID string, sub Submission) (Outcome, error) {
	req, outcome, err := a.authedRequest(ctx, conn)
	if outcome != nil {
		return *outcome, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	site := baseURL(conn, "")
	current, err := req.Get(site + "/ghost/api/admin/posts/" + remotePostID + "/")
	if err != nil {
		return Outcome{}, fmt.Errorf("ghost fetch post: %w", err)
	}
	if current.IsError() {
		return remoteFailure(current), nil
	}
	var envelope ghostPostsEnvelope
	if err := decodeJSON(current.Body(), &envelope); err != nil {
		return Outcome{}, fmt.Errorf("ghost post decode: %w", err)
	}
	if len(envelope.Posts) == 0 {
		return Outcome{Success: false, Error: "ghost post not found"}, nil
	}

	payload := ghostPostsEnvelope{Posts: []ghostPost{{
		Title:     sub.Article.Title,
		HTML:      sub.Article.HTMLContent,
		Excerpt:   sub.Article.Excerpt,
		UpdatedAt: envelope.Posts[0].UpdatedAt,
	}}}

	updReq, outcome, err := a.authedRequest(ctx, conn)
	if outcome != nil {
		return *outcome, nil
	}
	if err != nil {
		return Outcome{}, err
	}
	resp, err := updReq.
		SetQueryParam("source", "html").
		SetBody(payload).
		Put(site + "/ghost/api/admin/posts/" + remotePostID + "/")
	if err != nil {
		return Outcome{}, fmt.Errorf("ghost update: %w", err)
	}
	return ghostOutcome(resp)
}

// authedRequest mints the admin JWT and returns a prepared request. A bad
// stored key is a business failure (non-nil Outcome), not a transport error.
func (a *ghostAdapter) authedRequest(ctx context.Context, conn domain.PlatformConnection) (*resty.Request, *Outcome, error) {
	token, err := a.mintToken(conn)
	if err != nil {
		return nil, &Outcome{Success: false, Error: err.Error()}, nil
	}
	req := a.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Ghost "+token).
		SetHeader("Content-Type", "application/json")
	return req, nil, nil
}

func (a *ghostAdapter) mintToken(conn domain.PlatformConnection) (string, error) {
	c := conn.Credentials
	if c.Kind != domain.CredentialKeySecret || strings.TrimSpace(c.KeyID) == "" || strings.TrimSpace(c.Secret) == "" {
		return "", fmt.Errorf("connection %s carries no ghost admin key", conn.ID)
	}

	secret, err := hex.DecodeString(c.Secret)
	if err != nil {
		return "", fmt.Errorf("ghost admin secret is not hex: %w", err)
	}

	now := a.now()
	claims := jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(ghostTokenTTL).Unix(),
		"aud": "/admin/",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = c.KeyID

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign ghost token: %w", err)
	}
	return signed, nil
}

func ghostOutcome(resp *resty.Response) (Outcome, error) {
	if resp.IsError() {
		return remoteFailure(resp), nil
	}

	var envelope ghostPostsEnvelope
	if err := decodeJSON(resp.Body(), &envelope); err != nil {
		return Outcome{}, fmt.Errorf("ghost response decode: %w", err)
	}
	if len(envelope.Posts) == 0 {
		return Outcome{Success: false, Error: "ghost returned no post"}, nil
	}
	post := envelope.Posts[0]
	return Outcome{Success: true, PostID: post.ID, URL: post.URL}, nil
}
