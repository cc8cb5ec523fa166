package platforms

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/inklet-hq/syndicator/internal/domain"
	"github.com/inklet-hq/syndicator/pkg/htmlconv"
)

const (
	hashnodeDefaultBaseURL = "https://gql.hashnode.com"
	hashnodeMaxTags        = 5
)

// hashnodeAdapter publishes through the Hashnode GraphQL API: bearer token,
// markdown body, publication id from connection metadata. Supports in-place
// updates.
type hashnodeAdapter struct {
	client *resty.Client
}

// NewHashnodeAdapter builds the Hashnode adapter over the shared HTTP client.
func NewHashnodeAdapter(client *resty.Client) Adapter {
	return &hashnodeAdapter{client: client}
}

func (a *hashnodeAdapter) Platform() domain.Platform { return domain.PlatformHashnode }

const hashnodePublishMutation = `
mutation PublishPost($input: PublishPostInput!) {
  publishPost(input: $input) { post { id url } }
}`

const hashnodeUpdateMutation = `
mutation UpdatePost($input: UpdatePostInput!) {
  updatePost(input: $input) { post { id url } }
}`

const hashnodeMeQuery = `query { me { username } }`

type hashnodeResponse struct {
	Data struct {
		Me *struct {
			Username string `json:"username"`
		} `json:"me"`
		PublishPost *hashnodePostWrapper `json:"publishPost"`
		UpdatePost  *hashnodePostWrapper `json:"updatePost"`
	} `json:"data"`
	Errors []hashnodeError `json:"errors"`
}

type hashnodeError struct {
	Message string `json:"message"`
}

type hashnodePostWrapper struct {
	Post struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"post"`
}

func (a *hashnodeAdapter) ValidateCredentials(ctx context.Context, conn domain.PlatformConnection) (Validation, error) {
	key, err := apiKey(conn)
	if err != nil {
		return Validation{Valid: false, Error: err.Error()}, nil
	}

	body, err := a.query(ctx, conn, key, hashnodeMeQuery, nil)
	if err != nil {
		return Validation{}, err
	}
	if len(body.Errors) > 0 {
		return Validation{Valid: false, Error: body.Errors[0].Message}, nil
	}
	if body.Data.Me == nil {
		return Validation{Valid: false, Error: "hashnode returned no identity"}, nil
	}
	return Validation{Valid: true, Identity: body.Data.Me.Username}, nil
}

func (a *hashnodeAdapter) Publish(ctx context.Context, conn domain.PlatformConnection, sub Submission) (Outcome, error) {
	key, err := apiKey(conn)
	if err != nil {
		return Outcome{Success: false, Error: err.Error()}, nil
	}

	publicationID := conn.Metadata[domain.MetaPublicationID]
	if publicationID == "" {
		return Outcome{Success: false, Error: "hashnode connection missing publication id"}, nil
	}

	input := map[string]any{
		"title":           sub.Article.Title,
		"contentMarkdown": htmlconv.ToMarkdown(sub.Article.HTMLContent),
		"publicationId":   publicationID,
		"tags":            hashnodeTags(sub.Article.Tags),
	}
	if sub.Article.Excerpt != "" {
		input["subtitle"] = sub.Article.Excerpt
	}

	body, err := a.query(ctx, conn, key, hashnodePublishMutation, map[string]any{"input": input})
	if err != nil {
		return Outcome{}, err
	}
	if len(body.Errors) > 0 {
		return Outcome{Success: false, Error: body.Errors[0].Message}, nil
	}
	if body.Data.PublishPost == nil {
		return Outcome{Success: false, Error: "hashnode returned no post"}, nil
	}
	return Outcome{
		Success: true,
		PostID:  body.Data.PublishPost.Post.ID,
		URL:     body.Data.PublishPost.Post.URL,
	}, nil
}

// Update edits an existing Hashnode post in place.
func (a *hashnodeAdapter) Update(ctx context.Context, conn domain.PlatformConnection, remotePostID string, sub Submission) (Outcome, error) {
	key, err := apiKey(conn)
	if err != nil {
		return Outcome{Success: false, Error: err.Error()}, nil
	}

	input := map[string]any{
		"id":              remotePostID,
		"title":           sub.Article.Title,
		"contentMarkdown": htmlconv.ToMarkdown(sub.Article.HTMLContent),
	}

	body, err := a.query(ctx, conn, key, hashnodeUpdateMutation, map[string]any{"input": input})
	if err != nil {
		return Outcome{}, err
	}
	if len(body.Errors) > 0 {
		return Outcome{Success: false, Error: body.Errors[0].Message}, nil
	}
	if body.Data.UpdatePost == nil {
		return Outcome{Success: false, Error: "hashnode returned no post"}, nil
	}
	return Outcome{
		Success: true,
		PostID:  body.Data.UpdatePost.Post.ID,
		URL:     body.Data.UpdatePost.Post.URL,
	}, nil
}

// query posts one GraphQL document. GraphQL-level errors ride back inside
// the 200 body and are the caller's business failures; only transport and
// HTTP-level faults become errors here.
func (a *hashnodeAdapter) query(ctx context.Context, conn domain.PlatformConnection, token, doc string, vars map[string]any) (*hashnodeResponse, error) {
	payload := map[string]any{"query": doc}
	if vars != nil {
		payload["variables"] = vars
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Authorization", token).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(baseURL(conn, hashnodeDefaultBaseURL))
	if err != nil {
		return nil, fmt.Errorf("hashnode request: %w", err)
	}
	if resp.IsError() {
		// Non-2xx is a remote rejection, surfaced through the same error
		// channel GraphQL uses so callers treat it as terminal.
		return &hashnodeResponse{Errors: []hashnodeError{{Message: remoteFailure(resp).Error}}}, nil
	}

	var out hashnodeResponse
	if err := decodeJSON(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("hashnode response decode: %w", err)
	}
	return &out, nil
}

func hashnodeTags(tags []string) []map[string]string {
	out := make([]map[string]string, 0, hashnodeMaxTags)
	for _, t := range capTags(tags, hashnodeMaxTags) {
		out = append(out, map[string]string{"slug": slugify(t), "name": t})
	}
	return out
}
