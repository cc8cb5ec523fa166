package platforms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/inklet-hq/syndicator/internal/domain"
)

func TestWordPressPublish(t *testing.T) {
	var captured wpPostPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/posts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "editor" || pass != "app-pass" {
			t.Errorf("basic auth = %q/%q", user, pass)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"id": 9, "link": "https://my.site/retry-budgets/"})
	}))
	defer server.Close()

	adapter := NewWordPressAdapter(testHTTPClient())
	conn := testConn(domain.PlatformWordPress, domain.UserPasswordCredentials("editor", "app-pass"), server.URL, nil)

	outcome, err := adapter.Publish(context.Background(), conn, testSubmission(true))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !outcome.Success || outcome.PostID != "9" || outcome.URL != "https://my.site/retry-budgets/" {
		t.Fatalf("outcome = %+v", outcome)
	}
	if captured.Status != "publish" {
		t.Fatalf("status = %q", captured.Status)
	}
	if !strings.Contains(captured.Content, "<strong>") {
		t.Fatalf("wordpress should receive raw HTML, got %q", captured.Content)
	}
}

func TestWordPressDraftStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload wpPostPayload
		json.NewDecoder(r.Body).Decode(&payload)
		if payload.Status != "draft" {
			t.Errorf("status = %q, want draft", payload.Status)
		}
		json.NewEncoder(w).Encode(map[string]any{"id": 9})
	}))
	defer server.Close()

	adapter := NewWordPressAdapter(testHTTPClient())
	conn := testConn(domain.PlatformWordPress, domain.UserPasswordCredentials("editor", "app-pass"), server.URL, nil)
	if _, err := adapter.Publish(context.Background(), conn, testSubmission(false)); err != nil {
		t.Fatalf("publish: %v", err)
	}
}

func TestWordPressUpdateTargetsPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/posts/9" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"id": 9, "link": "https://my.site/v2/"})
	}))
	defer server.Close()

	adapter := NewWordPressAdapter(testHTTPClient()).(Updater)
	conn := testConn(domain.PlatformWordPress, domain.UserPasswordCredentials("editor", "app-pass"), server.URL, nil)

	outcome, err := adapter.Update(context.Background(), conn, "9", testSubmission(true))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !outcome.Success || outcome.URL != "https://my.site/v2/" {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestWordPressWrongCredentialKind(t *testing.T) {
	adapter := NewWordPressAdapter(testHTTPClient())
	conn := testConn(domain.PlatformWordPress, domain.APIKeyCredentials("k"), "http://127.0.0.1:0", nil)

	outcome, err := adapter.Publish(context.Background(), conn, testSubmission(true))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if outcome.Success || outcome.Error == "" {
		t.Fatalf("outcome = %+v", outcome)
	}
}
