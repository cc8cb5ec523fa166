// Package platforms hides each remote publishing API's authentication,
// payload shape, and content-format requirements behind one adapter
// contract. Concrete implementations live in platform-specific files
// (e.g., devto.go).
package platforms

import (
	"context"

	"github.com/inklet-hq/syndicator/internal/domain"
)

// Submission is the generic unit handed to adapters: the article plus the
// caller's visibility choice (draft vs. immediately public on the remote).
type Submission struct {
	Article   domain.Article
	Published bool
}

// Outcome is the normalized result of one publish or update call.
// Success=false with Error set is a remote business rejection and is
// terminal; transport-level failures are returned as a separate error and
// may be retried.
type Outcome struct {
	Success bool
	PostID  string
	URL     string
	Error   string
}

// Validation reports whether stored credentials still work.
type Validation struct {
	Valid    bool
	Identity string
	Error    string
}

// Adapter translates the generic article model into one platform's publish
// call. Implementations never mutate remote state from ValidateCredentials.
type Adapter interface {
	Platform() domain.Platform
	ValidateCredentials(ctx context.Context, conn domain.PlatformConnection) (Validation, error)
	Publish(ctx context.Context, conn domain.PlatformConnection, sub Submission) (Outcome, error)
}

// Updater is the optional in-place update capability. Platforms without it
// fall back to delete-and-republish semantics in the orchestrator.
type Updater interface {
	Update(ctx context.Context, conn domain.PlatformConnection, remotePostID string, sub Submission) (Outcome, error)
}
