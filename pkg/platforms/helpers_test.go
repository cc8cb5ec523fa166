package platforms

import (
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/inklet-hq/syndicator/internal/domain"
)

func testHTTPClient() *resty.Client {
	return DefaultHTTPClient(2 * time.Second)
}

// testConn points an adapter at an httptest server via the site url override.
func testConn(p domain.Platform, creds domain.Credentials, serverURL string, extra map[string]string) domain.PlatformConnection {
	meta := map[string]string{domain.MetaSiteURL: serverURL}
	for k, v := range extra {
		meta[k] = v
	}
	return domain.PlatformConnection{
		ID:          "conn-test",
		UserID:      "u1",
		Platform:    p,
		Status:      domain.ConnectionActive,
		Credentials: creds,
		Metadata:    meta,
	}
}

func testSubmission(published bool) Submission {
	return Submission{
		Article: domain.Article{
			ID:          "a1",
			OwnerID:     "u1",
			Title:       "Retry Budgets in Practice",
			HTMLContent: "<p>Some <strong>bold</strong> words.</p>",
			Excerpt:     "A short summary.",
			Tags:        []string{"go", "distributed systems", "retries", "http", "backoff"},
		},
		Published: published,
	}
}

func TestCapTags(t *testing.T) {
	tags := []string{"a", "b", "c", "d", "e"}
	got := capTags(tags, 4)
	if len(got) != 4 {
		t.Fatalf("got %d tags, want 4", len(got))
	}
	for i, want := range []string{"a", "b", "c", "d"} {
		if got[i] != want {
			t.Fatalf("tag %d = %s, want %s (original order)", i, got[i], want)
		}
	}
	if len(capTags(tags, 0)) != 5 {
		t.Fatal("limit 0 should be a no-op")
	}
	if len(capTags([]string{"a"}, 4)) != 1 {
		t.Fatal("short list should pass through")
	}
}

func TestBaseURLOverride(t *testing.T) {
	conn := domain.PlatformConnection{Metadata: map[string]string{domain.MetaSiteURL: "https://my.site/"}}
	if got := baseURL(conn, "https://dev.to/api"); got != "https://my.site" {
		t.Fatalf("got %q", got)
	}
	if got := baseURL(domain.PlatformConnection{}, "https://dev.to/api/"); got != "https://dev.to/api" {
		t.Fatalf("got %q", got)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Distributed Systems": "distributed-systems",
		"  Go!  ":             "go",
		"C++ tips":            "c-tips",
		"already-slugged":     "already-slugged",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Fatalf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRemoteErrorMessageShapes(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{"error":"boom"}`, "boom"},
		{`{"message":"nope"}`, "nope"},
		{`{"errors":[{"message":"first"},{"message":"second"}]}`, "first"},
		{`not json`, ""},
		{``, ""},
	}
	for _, tc := range cases {
		if got := remoteErrorMessage([]byte(tc.body)); got != tc.want {
			t.Fatalf("remoteErrorMessage(%q) = %q, want %q", tc.body, got, tc.want)
		}
	}
}
