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

func wixTestConn(serverURL string) domain.PlatformConnection {
	return testConn(domain.PlatformWix, domain.APIKeyCredentials("wix-key"), serverURL,
		map[string]string{domain.MetaSiteID: "site-7"})
}

func TestWixPublishTwoStep(t *testing.T) {
	var steps []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "wix-key" || r.Header.Get("wix-site-id") != "site-7" {
			t.Errorf("auth headers = %q / %q", r.Header.Get("Authorization"), r.Header.Get("wix-site-id"))
		}
		steps = append(steps, r.URL.Path)
		switch r.URL.Path {
		case "/blog/v3/draft-posts":
			var envelope wixDraftEnvelope
			json.NewDecoder(r.Body).Decode(&envelope)
			if strings.Contains(envelope.DraftPost.Content, "<strong>") {
				t.Errorf("wix should receive markdown, got %q", envelope.DraftPost.Content)
			}
			json.NewEncoder(w).Encode(wixDraftEnvelope{DraftPost: wixDraftPost{ID: "d1"}})
		case "/blog/v3/draft-posts/d1/publish":
			json.NewEncoder(w).Encode(wixPublishResponse{PostID: "p1", URL: "https://my.wixsite.com/post/p1"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	adapter := NewWixAdapter(testHTTPClient())
	outcome, err := adapter.Publish(context.Background(), wixTestConn(server.URL), testSubmission(true))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !outcome.Success || outcome.PostID != "p1" || outcome.URL != "https://my.wixsite.com/post/p1" {
		t.Fatalf("outcome = %+v", outcome)
	}
	if len(steps) != 2 {
		t.Fatalf("steps = %v, want draft then publish", steps)
	}
}

func TestWixDraftOnlySkipsPublishStep(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/blog/v3/draft-posts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(wixDraftEnvelope{DraftPost: wixDraftPost{ID: "d1"}})
	}))
	defer server.Close()

	adapter := NewWixAdapter(testHTTPClient())
	outcome, err := adapter.Publish(context.Background(), wixTestConn(server.URL), testSubmission(false))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !outcome.Success || outcome.PostID != "d1" {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestWixPublishStepFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/blog/v3/draft-posts":
			json.NewEncoder(w).Encode(wixDraftEnvelope{DraftPost: wixDraftPost{ID: "d1"}})
		default:
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"message": "draft already published"})
		}
	}))
	defer server.Close()

	adapter := NewWixAdapter(testHTTPClient())
	outcome, err := adapter.Publish(context.Background(), wixTestConn(server.URL), testSubmission(true))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if outcome.Success || outcome.Error != "draft already published" {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestWixMissingSiteID(t *testing.T) {
	adapter := NewWixAdapter(testHTTPClient())
	conn := testConn(domain.PlatformWix, domain.APIKeyCredentials("wix-key"), "http://127.0.0.1:0", nil)

	outcome, err := adapter.Publish(context.Background(), conn, testSubmission(true))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if outcome.Success || !strings.Contains(outcome.Error, "site id") {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestWixDoesNotUpdateInPlace(t *testing.T) {
	if _, ok := NewWixAdapter(testHTTPClient()).(Updater); ok {
		t.Fatal("wix adapter must republish, not update in place")
	}
}
