package platforms

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/inklet-hq/syndicator/internal/domain"
)

// capTags keeps the first limit tags in their original order. Deliberate,
// silent lossy truncation for platforms that enforce a maximum.
func capTags(tags []string, limit int) []string {
	if limit <= 0 || len(tags) <= limit {
		return tags
	}
	return tags[:limit]
}

// baseURL resolves the remote API root: connection metadata override first,
// then the platform default. The override is what points adapters at
// self-hosted sites and test servers.
func baseURL(conn domain.PlatformConnection, fallback string) string {
	if u := strings.TrimRight(strings.TrimSpace(conn.Metadata[domain.MetaSiteURL]), "/"); u != "" {
		return u
	}
	return strings.TrimRight(fallback, "/")
}

// remoteFailure converts a non-2xx response into the terminal business
// Outcome, preferring a structured error message over the raw status.
func remoteFailure(resp *resty.Response) Outcome {
	msg := remoteErrorMessage(resp.Body())
	if msg == "" {
		msg = fmt.Sprintf("remote responded %d: %s", resp.StatusCode(), readBodySnippet(resp.Body()))
	}
	return Outcome{Success: false, Error: msg}
}

// remoteErrorMessage digs a human-readable message out of common JSON error
// body shapes.
func remoteErrorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Errors  []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	switch {
	case envelope.Error != "":
		return envelope.Error
	case envelope.Message != "":
		return envelope.Message
	case len(envelope.Errors) > 0 && envelope.Errors[0].Message != "":
		return envelope.Errors[0].Message
	}
	return ""
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}

func decodeJSON(body []byte, v any) error {
	return json.Unmarshal(body, v)
}

// apiKey extracts the bare API key from a connection's credential union.
func apiKey(conn domain.PlatformConnection) (string, error) {
	c := conn.Credentials
	if c.Kind != domain.CredentialAPIKey || strings.TrimSpace(c.APIKey) == "" {
		return "", fmt.Errorf("connection %s carries no api key", conn.ID)
	}
	return c.APIKey, nil
}

// slugify produces the lowercase dashed tag slugs some platforms require.
func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
