package platforms

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/inklet-hq/syndicator/internal/domain"
	"github.com/inklet-hq/syndicator/pkg/htmlconv"
)

const wixDefaultBaseURL = "https://www.wixapis.com"

// wixAdapter publishes to a Wix blog: API key plus site id headers, a
// two-step draft-create then publish flow, markdown body. Wix has no usable
// in-place update path for published posts, so this adapter deliberately
// does not implement Updater; the orchestrator republishes instead.
type wixAdapter struct {
	client *resty.Client
}

// NewWixAdapter builds the Wix adapter over the shared HTTP client.
func NewWixAdapter(client *resty.Client) Adapter {
	return &wixAdapter{client: client}
}

func (a *wixAdapter) Platform() domain.Platform { return domain.PlatformWix }

type wixDraftEnvelope struct {
	DraftPost wixDraftPost `json:"draftPost"`
}

type wixDraftPost struct {
	ID      string `json:"id,omitempty"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt,omitempty"`
	Content string `json:"contentText,omitempty"`
	URL     string `json:"url,omitempty"`
}

type wixPublishResponse struct {
	PostID string `json:"postId"`
	URL    string `json:"url"`
}

func (a *wixAdapter) ValidateCredentials(ctx context.Context, conn domain.PlatformConnection) (Validation, error) {
	req, outcome := a.authedRequest(ctx, conn)
	if outcome != nil {
		return Validation{Valid: false, Error: outcome.Error}, nil
	}

	resp, err := req.Get(baseURL(conn, wixDefaultBaseURL) + "/site-properties/v4/properties")
	if err != nil {
		return Validation{}, fmt.Errorf("wix site check: %w", err)
	}
	if resp.IsError() {
		return Validation{Valid: false, Error: remoteFailure(resp).Error}, nil
	}

	var props struct {
		Properties struct {
			SiteDisplayName string `json:"siteDisplayName"`
		} `json:"properties"`
	}
	if err := decodeJSON(resp.Body(), &props); err != nil {
		return Validation{}, fmt.Errorf("wix properties decode: %w", err)
	}
	return Validation{Valid: true, Identity: props.Properties.SiteDisplayName}, nil
}

func (a *wixAdapter) Publish(ctx context.Context, conn domain.PlatformConnection, sub Submission) (Outcome, error) {
	req, outcome := a.authedRequest(ctx, conn)
	if outcome != nil {
		return *outcome, nil
	}

	draftPayload := wixDraftEnvelope{DraftPost: wixDraftPost{
		Title:   sub.Article.Title,
		Excerpt: sub.Article.Excerpt,
		Content: htmlconv.ToMarkdown(sub.Article.HTMLContent),
	}}

	root := baseURL(conn, wixDefaultBaseURL)
	resp, err := req.SetBody(draftPayload).Post(root + "/blog/v3/draft-posts")
	if err != nil {
		return Outcome{}, fmt.Errorf("wix draft create: %w", err)
	}
	if resp.IsError() {
		return remoteFailure(resp), nil
	}

	var draft wixDraftEnvelope
	if err := decodeJSON(resp.Body(), &draft); err != nil {
		return Outcome{}, fmt.Errorf("wix draft decode: %w", err)
	}
	if draft.DraftPost.ID == "" {
		return Outcome{Success: false, Error: "wix returned no draft id"}, nil
	}

	if !sub.Published {
		return Outcome{Success: true, PostID: draft.DraftPost.ID, URL: draft.DraftPost.URL}, nil
	}

	pubReq, outcome := a.authedRequest(ctx, conn)
	if outcome != nil {
		return *outcome, nil
	}
	pubResp, err := pubReq.Post(root + "/blog/v3/draft-posts/" + draft.DraftPost.ID + "/publish")
	if err != nil {
		return Outcome{}, fmt.Errorf("wix publish: %w", err)
	}
	if pubResp.IsError() {
		return remoteFailure(pubResp), nil
	}

	var published wixPublishResponse
	if err := decodeJSON(pubResp.Body(), &published); err != nil {
		return Outcome{}, fmt.Errorf("wix publish decode: %w", err)
	}
	postID := published.PostID
	if postID == "" {
		postID = draft.DraftPost.ID
	}
	url := published.URL
	if url == "" {
		url = draft.DraftPost.URL
	}
	return Outcome{Success: true, PostID: postID, URL: url}, nil
}

func (a *wixAdapter) authedRequest(ctx context.Context, conn domain.PlatformConnection) (*resty.Request, *Outcome) {
	key, err := apiKey(conn)
	if err != nil {
		return nil, &Outcome{Success: false, Error: err.Error()}
	}
	siteID := conn.Metadata[domain.MetaSiteID]
	if siteID == "" {
		return nil, &Outcome{Success: false, Error: "wix connection missing site id"}
	}

	req := a.client.R().
		SetContext(ctx).
		SetHeader("Authorization", key).
		SetHeader("wix-site-id", siteID).
		SetHeader("Content-Type", "application/json")
	return req, nil
}
